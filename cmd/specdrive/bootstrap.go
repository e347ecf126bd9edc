package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/specdrive/specdrive/actions"
	"github.com/specdrive/specdrive/config"
	"github.com/specdrive/specdrive/tracker"
)

// newBootstrapCmd builds the bootstrap command: stand up the GitHub project
// board and issue hierarchy described by a hierarchy JSON file.
func newBootstrapCmd() *cobra.Command {
	var hierarchyPath string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the GitHub project, milestones, epics, and tasks",
		Long: `Create a Project V2 board plus the milestones, epic issues, and task
issues described by the hierarchy file, in order. Requires GITHUB_TOKEN
and GITHUB_REPOSITORY. A markdown report of what was created is appended
to the step summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv()
			if err != nil {
				return err
			}

			token := os.Getenv(config.EnvGitHubToken)
			repoSlug := os.Getenv(config.EnvGitHubRepository)
			if token == "" || repoSlug == "" {
				return fmt.Errorf("GITHUB_TOKEN and GITHUB_REPOSITORY are required")
			}
			owner, repo, err := tracker.SplitRepository(repoSlug)
			if err != nil {
				return err
			}

			hierarchy, err := tracker.LoadHierarchy(hierarchyPath)
			if err != nil {
				return err
			}

			client := tracker.NewClient(token, owner, repo, tracker.WithLogger(env.logger))
			report, runErr := tracker.NewBootstrapper(client, env.logger).Run(cmd.Context(), hierarchy)

			if report != nil {
				if err := actions.NewStepSummary(os.Stdout).Append(report.Markdown()); err != nil {
					env.logger.Warn("Failed to write step summary", "error", err)
				}
			}
			if runErr != nil {
				return runErr
			}

			fmt.Printf("Bootstrapped project %q: %d milestones, %d epics, %d tasks\n",
				report.ProjectTitle, report.Milestones, report.Epics, report.Tasks)
			return nil
		},
	}

	cmd.Flags().StringVar(&hierarchyPath, "hierarchy", "", "Path to the hierarchy JSON file")
	_ = cmd.MarkFlagRequired("hierarchy")

	return cmd
}
