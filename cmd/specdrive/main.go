// Package main provides the specdrive binary entry point.
// Specdrive decides which specification governs an automated change request,
// assembles the prompt for the downstream codegen service, and keeps
// historical spec folders in one canonical shape.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specdrive/specdrive/config"
	"github.com/specdrive/specdrive/sdd"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "specdrive"
)

// rootFlags are shared by every subcommand.
var rootFlags struct {
	repo     string
	logLevel string
}

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specdrive",
		Short: "Specification resolution and migration for automated change requests",
		Long: `Specdrive decides which specification governs an automated change
request and keeps historical spec folders in one canonical shape.

It provides:
- deterministic specification discovery with strict precedence
- prompt assembly with provenance for the downstream codegen service
- idempotent migration of legacy spec folders into .sdd/specs
- task submission, polling, and pull request validation for pipelines`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&rootFlags.repo, "repo", "", "Repository root (defaults to the git root, then the working directory)")
	cmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newPrepareCmd(),
		newMigrateCmd(),
		newRunTaskCmd(),
		newWaitTaskCmd(),
		newValidatePRCmd(),
		newBootstrapCmd(),
		newSummaryCmd(),
		newWatchCmd(),
	)

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// appEnv carries the resolved shared state every subcommand needs.
type appEnv struct {
	cfg     *config.Config
	logger  *slog.Logger
	repo    string
	manager *sdd.Manager
}

// newAppEnv configures logging, loads the layered config, and pins the
// repository root. The --repo flag beats the configured and detected paths.
func newAppEnv() (*appEnv, error) {
	logger := newLogger(rootFlags.logLevel)
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if rootFlags.repo != "" {
		cfg.Repo.Path = rootFlags.repo
	}

	absRepo, err := filepath.Abs(cfg.Repo.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve repo path: %w", err)
	}
	info, err := os.Stat(absRepo)
	if err != nil {
		return nil, fmt.Errorf("stat repo path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRepo)
	}
	cfg.Repo.Path = absRepo

	return &appEnv{
		cfg:     cfg,
		logger:  logger,
		repo:    absRepo,
		manager: sdd.NewManager(absRepo),
	}, nil
}

// newLogger builds the text handler used for diagnostics. Workflow-facing
// lines never go through it; stdout is reserved for the actions reporter.
func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
