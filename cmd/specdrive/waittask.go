package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/specdrive/specdrive/actions"
	"github.com/specdrive/specdrive/codegen"
	"github.com/specdrive/specdrive/config"
)

// newWaitTaskCmd builds the wait-task command: poll a previously started
// agent run until it settles.
func newWaitTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait-task",
		Short: "Poll a codegen task until it finishes",
		Long: `Poll the task named by CODEGEN_TASK_ID until it leaves the pending
states or the deadline passes, then append "task-status" (and "pr-url"
when the result links a pull request) to the GITHUB_OUTPUT file.`,
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
			taskID := os.Getenv(config.EnvCodegenTaskID)
			if taskID == "" {
				return fmt.Errorf("CODEGEN_TASK_ID is required")
			}

			client := codegen.NewClient(token, orgID,
				codegen.WithBaseURL(env.cfg.Codegen.BaseURL),
				codegen.WithLogger(env.logger))

			task, err := client.Wait(cmd.Context(), taskID, codegen.WaitOptions{
				PollInterval: env.cfg.Codegen.GetPollInterval(),
				Deadline:     env.cfg.Codegen.GetPollDeadline(),
			})
			if err != nil {
				return err
			}

			if err := output.Set("task-status", task.Status); err != nil {
				return err
			}
			if pr, ok := codegen.FindPullRequest(task.Result); ok {
				if err := output.Set("pr-url", pr.URL); err != nil {
					return err
				}
			}

			fmt.Printf("Task %s finished with status %s\n", taskID, task.Status)
			return nil
		},
	}

	return cmd
}
