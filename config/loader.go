package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile lives at the repo root and travels with the project.
	ProjectConfigFile = "specdrive.yaml"
	// UserConfigDir holds per-user defaults below the home directory.
	UserConfigDir = ".config/specdrive"
	// UserConfigFile is the file name inside UserConfigDir.
	UserConfigFile = "config.yaml"
)

// Loader assembles the effective configuration from layered sources.
// Later layers win: built-in defaults, then the user file, then the
// project file. Workflow inputs go on top, applied by the command
// layer through Inputs.Apply.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader that reports layer problems through logger.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load merges the configuration layers and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	layers := []struct {
		origin string
		path   string
	}{
		{"user", l.userConfigPath()},
		{"project", l.projectConfigPath()},
	}
	for _, layer := range layers {
		if layer.path == "" {
			continue
		}
		l.overlay(cfg, layer.origin, layer.path)
	}

	if cfg.Repo.Path == "" {
		cfg.Repo.Path = l.fallbackRepoPath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay reads one layer file as a sparse config and merges only the
// fields it sets. A missing file is normal. A broken one is reported
// and skipped so a bad project file cannot take the whole CLI down.
func (l *Loader) overlay(cfg *Config, origin, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("Config layer absent", "origin", origin, "path", path)
		} else {
			l.logger.Warn("Cannot read config layer", "origin", origin, "path", path, "error", err)
		}
		return
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		l.logger.Warn("Skipping malformed config layer", "origin", origin, "path", path, "error", err)
		return
	}

	cfg.Merge(&partial)
	l.logger.Debug("Applied config layer", "origin", origin, "path", path)
}

// EnsureUserConfig writes the default user config file if none exists.
func (l *Loader) EnsureUserConfig() error {
	path := l.userConfigPath()
	if path == "" {
		return errors.New("cannot locate home directory for user config")
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := DefaultConfig().SaveToFile(path); err != nil {
		return err
	}
	l.logger.Info("Created default user config", "path", path)
	return nil
}

// userConfigPath resolves ~/.config/specdrive/config.yaml.
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// projectConfigPath walks from the working directory toward the
// filesystem root and returns the first specdrive.yaml it finds.
func (l *Loader) projectConfigPath() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// fallbackRepoPath asks git for the repository root and falls back to
// the working directory when that fails.
func (l *Loader) fallbackRepoPath() string {
	if out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output(); err == nil {
		if root := strings.TrimSpace(string(out)); root != "" {
			l.logger.Debug("Detected git repository root", "path", root)
			return root
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	l.logger.Debug("Using working directory as repository root", "path", cwd)
	return cwd
}
