package actions

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// CommandReporter emits GitHub workflow command annotations. Annotations go
// to stdout, where the runner picks them up; diagnostics stay on the slog
// side.
type CommandReporter struct {
	w io.Writer
}

// NewCommandReporter creates a reporter. A nil writer defaults to stdout.
func NewCommandReporter(w io.Writer) *CommandReporter {
	if w == nil {
		w = os.Stdout
	}
	return &CommandReporter{w: w}
}

// Noticef emits an informational ::notice:: annotation.
func (r *CommandReporter) Noticef(format string, args ...any) {
	r.emit("notice", format, args...)
}

// Warningf emits a recoverable ::warning:: annotation.
func (r *CommandReporter) Warningf(format string, args ...any) {
	r.emit("warning", format, args...)
}

// Errorf emits a fatal ::error:: annotation.
func (r *CommandReporter) Errorf(format string, args ...any) {
	r.emit("error", format, args...)
}

func (r *CommandReporter) emit(level, format string, args ...any) {
	fmt.Fprintf(r.w, "::%s::%s\n", level, escapeData(fmt.Sprintf(format, args...)))
}

// escapeData applies the workflow command data escaping rules.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}
