package config

import (
	"os"
	"strings"
)

// Environment variables supplied by the GitHub Actions pipeline.
const (
	EnvInputPrompt        = "INPUT_PROMPT"
	EnvInputSpecPath      = "INPUT_SPEC_PATH"
	EnvInputSpecsGlob     = "INPUT_SPECS_GLOB"
	EnvInputIncludeLegacy = "INPUT_INCLUDE_LEGACY_SPECS"

	EnvCodegenToken   = "CODEGEN_TOKEN"
	EnvCodegenOrgID   = "CODEGEN_ORG_ID"
	EnvCodegenTaskID  = "CODEGEN_TASK_ID"
	EnvResolvedRepoID = "RESOLVED_REPO_ID"
	EnvTargetRepo     = "TARGET_REPO"

	EnvPrompt         = "PROMPT"
	EnvPromptSource   = "PROMPT_SOURCE"
	EnvTaskStatus     = "TASK_STATUS"
	EnvPullRequestURL = "PR_URL"

	EnvGitHubToken      = "GITHUB_TOKEN"
	EnvGitHubRepository = "GITHUB_REPOSITORY"
)

// Inputs holds the workflow-supplied values that steer one pipeline run.
type Inputs struct {
	// Prompt, when set, bypasses specification discovery entirely.
	Prompt string

	// SpecPath pins resolution to an explicit file or folder.
	SpecPath string

	// SpecsGlob is a doublestar pattern searched before the canonical root.
	SpecsGlob string

	// IncludeLegacy enables scanning the deprecated spec roots.
	IncludeLegacy bool
}

// InputsFromEnv reads the INPUT_* variables GitHub Actions exposes for the
// composite action's inputs.
func InputsFromEnv() Inputs {
	return Inputs{
		Prompt:        os.Getenv(EnvInputPrompt),
		SpecPath:      os.Getenv(EnvInputSpecPath),
		SpecsGlob:     os.Getenv(EnvInputSpecsGlob),
		IncludeLegacy: ParseBool(os.Getenv(EnvInputIncludeLegacy)),
	}
}

// ParseBool interprets workflow boolean inputs: any non-empty value other
// than "0" or "false" (case-insensitive) enables the flag.
func ParseBool(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "0", "false":
		return false
	}
	return true
}

// Apply overlays the non-empty inputs onto a loaded config.
func (in Inputs) Apply(cfg *Config) {
	if in.SpecPath != "" {
		cfg.Resolver.SpecPath = in.SpecPath
	}
	if in.SpecsGlob != "" {
		cfg.Resolver.SpecsGlob = in.SpecsGlob
	}
	if in.IncludeLegacy {
		cfg.Resolver.IncludeLegacy = true
	}
}
