package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/specdrive/specdrive/config"
	"github.com/specdrive/specdrive/resolve"
	"github.com/specdrive/specdrive/watch"
)

// newWatchCmd builds the watch command: keep re-running specification
// resolution as the spec roots change, logging the selected candidate.
func newWatchCmd() *cobra.Command {
	var includeLegacy bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run resolution whenever spec roots change",
		Long: `Watch the canonical spec root (and, with --include-legacy-specs, the
deprecated roots) and re-run candidate resolution after each debounced
batch of changes. Selection changes are logged; stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv()
			if err != nil {
				return err
			}

			inputs := config.InputsFromEnv()
			if cmd.Flags().Changed("include-legacy-specs") {
				inputs.IncludeLegacy = includeLegacy
			}
			inputs.Apply(env.cfg)

			roots := []string{env.manager.SpecsPath()}
			if env.cfg.Resolver.IncludeLegacy {
				for _, root := range env.cfg.Resolver.LegacyRoots {
					roots = append(roots, env.manager.LegacyRootPath(root))
				}
			}

			watcher, err := watch.NewSpecWatcher(env.cfg.Watch, env.repo, roots, env.logger)
			if err != nil {
				return err
			}

			// Watch mode logs selections instead of emitting workflow
			// commands, so the resolver gets no reporter.
			resolver := resolve.NewResolver(env.manager, env.cfg.Resolver.LegacyRoots, nil, env.logger)
			monitor := watch.NewMonitor(watcher, resolver, resolve.Options{
				SpecPath:      env.cfg.Resolver.SpecPath,
				SpecsGlob:     env.cfg.Resolver.SpecsGlob,
				IncludeLegacy: env.cfg.Resolver.IncludeLegacy,
			}, env.logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return monitor.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&includeLegacy, "include-legacy-specs", false, "Also watch the deprecated spec roots")

	return cmd
}
