package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specdrive/specdrive/codegen"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Codegen.BaseURL != codegen.DefaultBaseURL {
		t.Errorf("expected default base URL %s, got %s", codegen.DefaultBaseURL, cfg.Codegen.BaseURL)
	}
	if cfg.Codegen.PollInterval != "15s" {
		t.Errorf("expected default poll interval 15s, got %s", cfg.Codegen.PollInterval)
	}
	if cfg.Resolver.IncludeLegacy {
		t.Error("expected legacy roots disabled by default")
	}
	if len(cfg.Resolver.LegacyRoots) != 2 {
		t.Errorf("expected 2 default legacy roots, got %d", len(cfg.Resolver.LegacyRoots))
	}
	if cfg.Watch.DebounceDelay != "500ms" {
		t.Errorf("expected default debounce delay 500ms, got %s", cfg.Watch.DebounceDelay)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "valid specs glob",
			modify:  func(c *Config) { c.Resolver.SpecsGlob = "docs/**/*.md" },
			wantErr: false,
		},
		{
			name:    "malformed specs glob",
			modify:  func(c *Config) { c.Resolver.SpecsGlob = "docs/[bad" },
			wantErr: true,
		},
		{
			name:    "missing base URL",
			modify:  func(c *Config) { c.Codegen.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "malformed poll interval",
			modify:  func(c *Config) { c.Codegen.PollInterval = "soon" },
			wantErr: true,
		},
		{
			name:    "malformed poll deadline",
			modify:  func(c *Config) { c.Codegen.PollDeadline = "later" },
			wantErr: true,
		},
		{
			name:    "malformed debounce delay",
			modify:  func(c *Config) { c.Watch.DebounceDelay = "fast" },
			wantErr: true,
		},
		{
			name:    "empty durations are allowed",
			modify:  func(c *Config) { c.Codegen.PollInterval = ""; c.Codegen.PollDeadline = "" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
repo:
  path: "/test/path"
resolver:
  specs_glob: "docs/**/*.md"
  include_legacy: true
codegen:
  base_url: "http://test:1234/v1"
  poll_interval: 5s
watch:
  debounce_delay: 250ms
  file_extensions:
    - .md
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Repo.Path != "/test/path" {
		t.Errorf("expected repo path /test/path, got %s", cfg.Repo.Path)
	}
	if cfg.Resolver.SpecsGlob != "docs/**/*.md" {
		t.Errorf("expected specs glob docs/**/*.md, got %s", cfg.Resolver.SpecsGlob)
	}
	if !cfg.Resolver.IncludeLegacy {
		t.Error("expected include_legacy true")
	}
	if cfg.Codegen.BaseURL != "http://test:1234/v1" {
		t.Errorf("expected base URL http://test:1234/v1, got %s", cfg.Codegen.BaseURL)
	}
	if cfg.Codegen.GetPollInterval() != 5*time.Second {
		t.Errorf("expected poll interval 5s, got %v", cfg.Codegen.GetPollInterval())
	}
	// Unset fields keep their defaults
	if cfg.Codegen.PollDeadline != "30m" {
		t.Errorf("expected poll deadline to remain default, got %s", cfg.Codegen.PollDeadline)
	}
	if cfg.Watch.GetDebounceDelay() != 250*time.Millisecond {
		t.Errorf("expected debounce delay 250ms, got %v", cfg.Watch.GetDebounceDelay())
	}
	if len(cfg.Watch.FileExtensions) != 1 {
		t.Errorf("expected 1 file extension, got %d", len(cfg.Watch.FileExtensions))
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Repo: RepoConfig{
			Path: "/override/path",
		},
		Resolver: ResolverConfig{
			SpecPath:      "docs/spec.md",
			IncludeLegacy: true,
		},
	}

	base.Merge(override)

	if base.Repo.Path != "/override/path" {
		t.Errorf("expected repo path /override/path, got %s", base.Repo.Path)
	}
	if base.Resolver.SpecPath != "docs/spec.md" {
		t.Errorf("expected spec path docs/spec.md, got %s", base.Resolver.SpecPath)
	}
	if !base.Resolver.IncludeLegacy {
		t.Error("expected include_legacy true after merge")
	}
	// Base URL should remain from base since override didn't set it
	if base.Codegen.BaseURL != codegen.DefaultBaseURL {
		t.Errorf("expected base URL to remain default, got %s", base.Codegen.BaseURL)
	}
}

func TestConfigMerge_FalseDoesNotClear(t *testing.T) {
	base := DefaultConfig()
	base.Resolver.IncludeLegacy = true

	base.Merge(&Config{})

	// A zero-valued overlay never turns the legacy window back off.
	if !base.Resolver.IncludeLegacy {
		t.Error("expected include_legacy to survive an empty merge")
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Resolver.SpecsGlob = "specs/**"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Resolver.SpecsGlob != "specs/**" {
		t.Errorf("expected specs glob specs/**, got %s", loaded.Resolver.SpecsGlob)
	}
}

func TestGetPollInterval_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{"empty falls back", "", codegen.DefaultPollInterval},
		{"malformed falls back", "soon", codegen.DefaultPollInterval},
		{"valid value", "45s", 45 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CodegenConfig{PollInterval: tt.value}
			if got := c.GetPollInterval(); got != tt.expected {
				t.Errorf("GetPollInterval() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetPollDeadline_Fallbacks(t *testing.T) {
	c := CodegenConfig{}
	if got := c.GetPollDeadline(); got != codegen.DefaultWaitDeadline {
		t.Errorf("GetPollDeadline() = %v, want %v", got, codegen.DefaultWaitDeadline)
	}

	c.PollDeadline = "10m"
	if got := c.GetPollDeadline(); got != 10*time.Minute {
		t.Errorf("GetPollDeadline() = %v, want %v", got, 10*time.Minute)
	}
}
