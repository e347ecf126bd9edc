// Package actions writes the GitHub Actions surfaces a pipeline run talks
// through: step outputs, workflow command annotations, and the job summary.
package actions

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// OutputEnv names the environment variable holding the step output file.
const OutputEnv = "GITHUB_OUTPUT"

// ErrNoOutputFile signals the required output channel is missing. This is a
// fatal configuration error: the run stops before producing any output.
var ErrNoOutputFile = errors.New("GITHUB_OUTPUT environment variable is not set")

// OutputWriter appends named step outputs to the GITHUB_OUTPUT file.
type OutputWriter struct {
	path string
}

// NewOutputWriter resolves the output file from the environment.
func NewOutputWriter() (*OutputWriter, error) {
	path := os.Getenv(OutputEnv)
	if path == "" {
		return nil, ErrNoOutputFile
	}
	return &OutputWriter{path: path}, nil
}

// NewFileOutputWriter writes outputs to an explicit file path.
func NewFileOutputWriter(path string) *OutputWriter {
	return &OutputWriter{path: path}
}

// Set appends one named output. Multi-line values use the heredoc form with
// a random delimiter so embedded newlines stay unambiguous; single-line
// values use the plain name=value form.
func (w *OutputWriter) Set(name, value string) error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open output file %s: %w", w.path, err)
	}
	defer f.Close()

	var record string
	if strings.Contains(value, "\n") {
		delimiter := "ghadelim_" + uuid.New().String()
		record = fmt.Sprintf("%s<<%s\n%s\n%s\n", name, delimiter, value, delimiter)
	} else {
		record = fmt.Sprintf("%s=%s\n", name, value)
	}

	if _, err := f.WriteString(record); err != nil {
		return fmt.Errorf("write output %s: %w", name, err)
	}
	return nil
}
