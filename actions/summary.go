package actions

import (
	"fmt"
	"io"
	"os"
)

// SummaryEnv names the environment variable holding the job summary file.
const SummaryEnv = "GITHUB_STEP_SUMMARY"

// StepSummary appends markdown to the job summary. When the environment
// does not provide a summary file the markdown goes to the fallback writer
// instead, so local runs still show the report.
type StepSummary struct {
	path     string
	fallback io.Writer
}

// NewStepSummary resolves the summary file from the environment. A nil
// fallback defaults to stdout.
func NewStepSummary(fallback io.Writer) *StepSummary {
	if fallback == nil {
		fallback = os.Stdout
	}
	return &StepSummary{path: os.Getenv(SummaryEnv), fallback: fallback}
}

// Append writes one markdown block followed by a newline.
func (s *StepSummary) Append(markdown string) error {
	if s.path == "" {
		_, err := fmt.Fprintln(s.fallback, markdown)
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open step summary %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(markdown + "\n"); err != nil {
		return fmt.Errorf("write step summary: %w", err)
	}
	return nil
}
