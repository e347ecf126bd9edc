package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/specdrive/specdrive/actions"
	"github.com/specdrive/specdrive/codegen"
	"github.com/specdrive/specdrive/config"
)

// newRunTaskCmd builds the run-task command: hand the assembled prompt to
// the codegen service and record the task ID for later steps.
func newRunTaskCmd() *cobra.Command {
	var promptFile string

	cmd := &cobra.Command{
		Use:   "run-task",
		Short: "Submit the prompt to the codegen service",
		Long: `Start an agent run for the prompt in $PROMPT (or --prompt-file) and
append "task-id" to the GITHUB_OUTPUT file. Requires CODEGEN_TOKEN and
CODEGEN_ORG_ID; RESOLVED_REPO_ID pins the run to a registered repository
when set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv()
			if err != nil {
				return err
			}

			reporter := actions.NewCommandReporter(os.Stdout)
			output, err := actions.NewOutputWriter()
			if err != nil {
				reporter.Errorf("%v.", err)
				return err
			}

			token := os.Getenv(config.EnvCodegenToken)
			orgID := os.Getenv(config.EnvCodegenOrgID)
			if token == "" || orgID == "" {
				return fmt.Errorf("CODEGEN_TOKEN and CODEGEN_ORG_ID are required")
			}

			promptText := os.Getenv(config.EnvPrompt)
			if promptFile != "" {
				data, err := os.ReadFile(promptFile)
				if err != nil {
					return fmt.Errorf("read prompt file %s: %w", promptFile, err)
				}
				promptText = string(data)
			}
			if promptText == "" {
				return fmt.Errorf("prompt is empty: set PROMPT or pass --prompt-file")
			}

			client := codegen.NewClient(token, orgID,
				codegen.WithBaseURL(env.cfg.Codegen.BaseURL),
				codegen.WithLogger(env.logger))

			task, err := client.CreateTask(cmd.Context(), codegen.TaskRequest{
				Prompt: promptText,
				RepoID: os.Getenv(config.EnvResolvedRepoID),
			})
			if err != nil {
				return err
			}

			if err := output.Set("task-id", task.ID.String()); err != nil {
				return err
			}

			fmt.Printf("Started task %s (%s)\n", task.ID.String(), task.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&promptFile, "prompt-file", "", "Read the prompt from a file instead of $PROMPT")

	return cmd
}
