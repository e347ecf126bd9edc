package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/specdrive/specdrive/actions"
	"github.com/specdrive/specdrive/codegen"
	"github.com/specdrive/specdrive/config"
)

// newValidatePRCmd builds the validate-pr command: confirm the agent's
// result points at a pull request in the expected repository.
func newValidatePRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-pr [url-or-text]",
		Short: "Validate the pull request produced by a task",
		Long: `Extract the first GitHub pull request link from the argument (or $PR_URL)
and check it targets TARGET_REPO (falling back to GITHUB_REPOSITORY),
case-insensitively. On success the normalized URL is appended to the
GITHUB_OUTPUT file as "pr-url".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := newAppEnv(); err != nil {
				return err
			}

			reporter := actions.NewCommandReporter(os.Stdout)
			output, err := actions.NewOutputWriter()
			if err != nil {
				reporter.Errorf("%v.", err)
				return err
			}

			text := os.Getenv(config.EnvPullRequestURL)
			if len(args) == 1 {
				text = args[0]
			}
			if text == "" {
				return fmt.Errorf("no pull request URL: pass an argument or set PR_URL")
			}

			targetRepo := os.Getenv(config.EnvTargetRepo)
			if targetRepo == "" {
				targetRepo = os.Getenv(config.EnvGitHubRepository)
			}

			pr, err := codegen.ValidatePullRequest(text, targetRepo)
			if err != nil {
				reporter.Errorf("%v.", err)
				return err
			}

			if err := output.Set("pr-url", pr.URL); err != nil {
				return err
			}

			reporter.Noticef("Validated pull request %s for %s.", pr.URL, pr.Repo)
			return nil
		},
	}

	return cmd
}
