// Package config provides configuration loading and management for specdrive.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/specdrive/specdrive/codegen"
	"github.com/specdrive/specdrive/sdd"
	"github.com/specdrive/specdrive/watch"
)

// Config represents the complete specdrive configuration
type Config struct {
	Repo     RepoConfig     `yaml:"repo"`
	Resolver ResolverConfig `yaml:"resolver"`
	Codegen  CodegenConfig  `yaml:"codegen"`
	Watch    watch.Config   `yaml:"watch"`
}

// RepoConfig configures the repository settings
type RepoConfig struct {
	// Path is the repository root path (auto-detected from git if empty)
	Path string `yaml:"path"`
}

// ResolverConfig configures specification discovery
type ResolverConfig struct {
	// SpecPath pins resolution to an explicit file or folder
	SpecPath string `yaml:"spec_path"`
	// SpecsGlob is a doublestar pattern searched before the canonical root
	SpecsGlob string `yaml:"specs_glob"`
	// IncludeLegacy enables scanning the deprecated spec roots
	IncludeLegacy bool `yaml:"include_legacy"`
	// LegacyRoots overrides the deprecated roots to scan
	LegacyRoots []string `yaml:"legacy_roots"`
}

// CodegenConfig configures the change-generation service client
type CodegenConfig struct {
	// BaseURL is the agent API endpoint
	BaseURL string `yaml:"base_url"`
	// PollInterval is how often wait-task polls (e.g., "15s")
	PollInterval string `yaml:"poll_interval"`
	// PollDeadline is how long wait-task polls before giving up (e.g., "30m")
	PollDeadline string `yaml:"poll_deadline"`
}

// GetPollInterval returns the poll interval as a duration.
func (c *CodegenConfig) GetPollInterval() time.Duration {
	if c.PollInterval == "" {
		return codegen.DefaultPollInterval
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return codegen.DefaultPollInterval
	}
	return d
}

// GetPollDeadline returns the poll deadline as a duration.
func (c *CodegenConfig) GetPollDeadline() time.Duration {
	if c.PollDeadline == "" {
		return codegen.DefaultWaitDeadline
	}
	d, err := time.ParseDuration(c.PollDeadline)
	if err != nil {
		return codegen.DefaultWaitDeadline
	}
	return d
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{
			Path: "", // Auto-detect
		},
		Resolver: ResolverConfig{
			IncludeLegacy: false,
			LegacyRoots:   sdd.DefaultLegacyRoots(),
		},
		Codegen: CodegenConfig{
			BaseURL:      codegen.DefaultBaseURL,
			PollInterval: "15s",
			PollDeadline: "30m",
		},
		Watch: watch.DefaultConfig(),
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Resolver.SpecsGlob != "" && !doublestar.ValidatePattern(c.Resolver.SpecsGlob) {
		return fmt.Errorf("resolver.specs_glob %q is not a valid pattern", c.Resolver.SpecsGlob)
	}
	if c.Codegen.BaseURL == "" {
		return fmt.Errorf("codegen.base_url is required")
	}
	if c.Codegen.PollInterval != "" {
		if _, err := time.ParseDuration(c.Codegen.PollInterval); err != nil {
			return fmt.Errorf("codegen.poll_interval: %w", err)
		}
	}
	if c.Codegen.PollDeadline != "" {
		if _, err := time.ParseDuration(c.Codegen.PollDeadline); err != nil {
			return fmt.Errorf("codegen.poll_deadline: %w", err)
		}
	}
	if c.Watch.DebounceDelay != "" {
		if _, err := time.ParseDuration(c.Watch.DebounceDelay); err != nil {
			return fmt.Errorf("watch.debounce_delay: %w", err)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Repo
	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}

	// Resolver
	if other.Resolver.SpecPath != "" {
		c.Resolver.SpecPath = other.Resolver.SpecPath
	}
	if other.Resolver.SpecsGlob != "" {
		c.Resolver.SpecsGlob = other.Resolver.SpecsGlob
	}
	if other.Resolver.IncludeLegacy {
		c.Resolver.IncludeLegacy = true
	}
	if len(other.Resolver.LegacyRoots) > 0 {
		c.Resolver.LegacyRoots = other.Resolver.LegacyRoots
	}

	// Codegen
	if other.Codegen.BaseURL != "" {
		c.Codegen.BaseURL = other.Codegen.BaseURL
	}
	if other.Codegen.PollInterval != "" {
		c.Codegen.PollInterval = other.Codegen.PollInterval
	}
	if other.Codegen.PollDeadline != "" {
		c.Codegen.PollDeadline = other.Codegen.PollDeadline
	}

	// Watch
	if other.Watch.DebounceDelay != "" {
		c.Watch.DebounceDelay = other.Watch.DebounceDelay
	}
	if len(other.Watch.FileExtensions) > 0 {
		c.Watch.FileExtensions = other.Watch.FileExtensions
	}
	if len(other.Watch.ExcludeDirs) > 0 {
		c.Watch.ExcludeDirs = other.Watch.ExcludeDirs
	}
}
