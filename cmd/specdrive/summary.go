package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specdrive/specdrive/actions"
	"github.com/specdrive/specdrive/config"
)

// newSummaryCmd builds the summary command: append a short markdown recap
// of the pipeline run to the step summary.
func newSummaryCmd() *cobra.Command {
	var (
		promptSource string
		taskID       string
		taskStatus   string
		prURL        string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Append a pipeline run summary to the step summary",
		Long: `Render the run's key facts (prompt source, task, status, pull request)
as markdown and append them to the GITHUB_STEP_SUMMARY file, or stdout
when the variable is unset. Flags default to the matching environment
variables so the command slots into a workflow without arguments.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return actions.NewStepSummary(os.Stdout).
				Append(pipelineSummary(promptSource, taskID, taskStatus, prURL))
		},
	}

	cmd.Flags().StringVar(&promptSource, "prompt-source", os.Getenv(config.EnvPromptSource), "Provenance tag of the assembled prompt")
	cmd.Flags().StringVar(&taskID, "task-id", os.Getenv(config.EnvCodegenTaskID), "Codegen task ID")
	cmd.Flags().StringVar(&taskStatus, "task-status", os.Getenv(config.EnvTaskStatus), "Terminal task status")
	cmd.Flags().StringVar(&prURL, "pr-url", os.Getenv(config.EnvPullRequestURL), "Validated pull request URL")

	return cmd
}

// pipelineSummary renders the non-empty run facts as a markdown table.
func pipelineSummary(source, taskID, status, prURL string) string {
	var b strings.Builder
	b.WriteString("## specdrive run\n\n")

	rows := []struct{ label, value string }{
		{"Prompt source", source},
		{"Task", taskID},
		{"Status", status},
		{"Pull request", prURL},
	}

	written := 0
	for _, row := range rows {
		if row.value == "" {
			continue
		}
		if written == 0 {
			b.WriteString("| step | value |\n|---|---|\n")
		}
		fmt.Fprintf(&b, "| %s | %s |\n", row.label, row.value)
		written++
	}
	if written == 0 {
		b.WriteString("No run details recorded.\n")
	}

	return b.String()
}
