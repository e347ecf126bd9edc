package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/specdrive/specdrive/actions"
	"github.com/specdrive/specdrive/migrate"
	"github.com/specdrive/specdrive/sdd"
)

// newMigrateCmd builds the migrate command: normalize legacy spec folders
// into the canonical three-document layout.
func newMigrateCmd() *cobra.Command {
	var (
		src    string
		dest   string
		dryRun bool
		since  string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate legacy spec folders into the canonical layout",
		Long: `Copy each legacy spec folder into the canonical destination as exactly
three documents (requirements.md, design.md, tasks.md), filling missing
roles with placeholders. Writes are skipped when the destination content
is already identical, so reruns are no-ops.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv()
			if err != nil {
				return err
			}

			var sinceTime time.Time
			if since != "" {
				sinceTime, err = migrate.ParseSince(since)
				if err != nil {
					return err
				}
			}

			srcAbs := src
			if !filepath.IsAbs(srcAbs) {
				srcAbs = filepath.Join(env.repo, srcAbs)
			}
			destAbs := dest
			if !filepath.IsAbs(destAbs) {
				destAbs = filepath.Join(env.repo, destAbs)
			}

			migrator := migrate.NewMigrator(srcAbs, destAbs, migrate.Options{
				DryRun: dryRun,
				Since:  sinceTime,
			}, env.logger)

			results, runErr := migrator.Run()

			reporter := actions.NewCommandReporter(os.Stdout)
			for _, res := range results {
				fmt.Printf("Migrated %s -> %s\n", res.Source, res.Dest)
				for _, path := range res.Written {
					fmt.Printf("   - wrote %s\n", path)
				}
				for _, skipped := range res.Skipped {
					fmt.Printf("   - skipped %s (%s)\n", skipped.Path, skipped.Reason)
				}
				for _, warning := range res.Warnings {
					reporter.Warningf("%s: %s", filepath.Base(res.Source), warning)
				}
			}
			if runErr != nil {
				return runErr
			}

			env.logger.Info("Migration complete",
				"folders", len(results),
				"dry_run", dryRun)
			return nil
		},
	}

	cmd.Flags().StringVar(&src, "src", sdd.AgentOSSpecsRoot, "Legacy source root (repo-relative or absolute)")
	cmd.Flags().StringVar(&dest, "dest", filepath.Join(sdd.RootDir, sdd.SpecsDir), "Canonical destination root")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	cmd.Flags().StringVar(&since, "since", "", "Only migrate folders whose name starts with this date or later")

	return cmd
}
