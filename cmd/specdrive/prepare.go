package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/specdrive/specdrive/actions"
	"github.com/specdrive/specdrive/config"
	"github.com/specdrive/specdrive/prompt"
	"github.com/specdrive/specdrive/resolve"
)

// newPrepareCmd builds the prepare-prompt command: resolve the governing
// specification, assemble the instruction prompt, and publish it as
// workflow outputs.
func newPrepareCmd() *cobra.Command {
	var (
		specPath      string
		specsGlob     string
		includeLegacy bool
	)

	cmd := &cobra.Command{
		Use:   "prepare-prompt",
		Short: "Resolve the governing specification and emit the prompt",
		Long: `Resolve which specification governs this run, assemble the instruction
prompt for the codegen service, and append "prompt" and "prompt-source"
to the GITHUB_OUTPUT file. A non-empty INPUT_PROMPT bypasses discovery
entirely; with nothing discovered the deterministic fallback prompt is
emitted with source "fallback".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv()
			if err != nil {
				return err
			}

			reporter := actions.NewCommandReporter(os.Stdout)

			// The output channel must exist before any work happens.
			output, err := actions.NewOutputWriter()
			if err != nil {
				reporter.Errorf("%v.", err)
				return err
			}

			inputs := config.InputsFromEnv()
			if cmd.Flags().Changed("spec-path") {
				inputs.SpecPath = specPath
			}
			if cmd.Flags().Changed("specs-glob") {
				inputs.SpecsGlob = specsGlob
			}
			if cmd.Flags().Changed("include-legacy-specs") {
				inputs.IncludeLegacy = includeLegacy
			}
			inputs.Apply(env.cfg)

			var candidate *resolve.Candidate
			if inputs.Prompt == "" {
				resolver := resolve.NewResolver(env.manager, env.cfg.Resolver.LegacyRoots, reporter, env.logger)
				candidate, err = resolver.Resolve(resolve.Options{
					SpecPath:      env.cfg.Resolver.SpecPath,
					SpecsGlob:     env.cfg.Resolver.SpecsGlob,
					IncludeLegacy: env.cfg.Resolver.IncludeLegacy,
				})
				if err != nil {
					return err
				}
			}

			assembler := prompt.NewAssembler(env.manager, reporter, env.logger)
			result, err := assembler.Assemble(candidate, inputs.Prompt)
			if err != nil {
				return err
			}

			if result.Source == prompt.SourceFallback {
				reporter.Warningf("No specification found; using fallback prompt.")
			}

			if err := output.Set("prompt", result.Text); err != nil {
				return err
			}
			if err := output.Set("prompt-source", string(result.Source)); err != nil {
				return err
			}

			env.logger.Info("Prepared prompt",
				"source", result.Source,
				"chars", len(result.Text))
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec-path", "", "Explicit specification file or folder")
	cmd.Flags().StringVar(&specsGlob, "specs-glob", "", "Doublestar pattern searched before the canonical root")
	cmd.Flags().BoolVar(&includeLegacy, "include-legacy-specs", false, "Scan the deprecated spec roots")

	return cmd
}
