package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specdrive/specdrive/resolve"
	"github.com/specdrive/specdrive/sdd"
)

type recordingReporter struct {
	warnings []string
}

func (r *recordingReporter) Warningf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func newTestAssembler(t *testing.T) (*Assembler, *sdd.Manager, *recordingReporter) {
	t.Helper()
	tempDir := t.TempDir()
	manager := sdd.NewManager(tempDir)
	reporter := &recordingReporter{}
	return NewAssembler(manager, reporter, nil), manager, reporter
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestAssemble_InputPrompt(t *testing.T) {
	assembler, _, _ := newTestAssembler(t)

	prompt, err := assembler.Assemble(nil, "Fix the login timeout")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if prompt.Source != SourceInput {
		t.Errorf("Source = %q, want %q", prompt.Source, SourceInput)
	}
	if prompt.Text != "Fix the login timeout" {
		t.Errorf("Text = %q, want verbatim input", prompt.Text)
	}
}

func TestAssemble_InputPromptBeatsCandidate(t *testing.T) {
	assembler, manager, _ := newTestAssembler(t)

	if err := manager.WriteDocument("feature-x", sdd.RoleRequirements, "# R"); err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}
	candidate := &resolve.Candidate{
		Path:          manager.SpecPath("feature-x"),
		Format:        resolve.FormatStructured,
		DiscoveredVia: resolve.StrategyStructuredRoot,
		Documents:     []string{"requirements.md"},
	}

	prompt, err := assembler.Assemble(candidate, "Do this instead")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if prompt.Source != SourceInput {
		t.Errorf("Source = %q, want %q", prompt.Source, SourceInput)
	}
	if prompt.Text != "Do this instead" {
		t.Errorf("Text = %q, want verbatim input", prompt.Text)
	}
}

func TestAssemble_Fallback(t *testing.T) {
	assembler, _, _ := newTestAssembler(t)

	prompt, err := assembler.Assemble(nil, "")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if prompt.Source != SourceFallback {
		t.Errorf("Source = %q, want %q", prompt.Source, SourceFallback)
	}
	if prompt.Text != FallbackPrompt {
		t.Errorf("Text = %q, want %q", prompt.Text, FallbackPrompt)
	}
}

func TestAssemble_Structured(t *testing.T) {
	assembler, manager, _ := newTestAssembler(t)

	if err := manager.WriteDocument("feature-x", sdd.RoleRequirements, "# Requirements\n\nbody\n"); err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}
	if err := manager.WriteDocument("feature-x", sdd.RoleDesign, "# Design\n"); err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}
	if err := manager.WriteDocument("feature-x", sdd.RoleTasks, "# Tasks\n"); err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}

	specDir := manager.SpecPath("feature-x")
	candidate := &resolve.Candidate{
		Path:          specDir,
		Format:        resolve.FormatStructured,
		DiscoveredVia: resolve.StrategyStructuredRoot,
		Documents:     []string{"requirements.md", "design.md", "tasks.md"},
	}

	prompt, err := assembler.Assemble(candidate, "")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if prompt.Source != SourceSDD {
		t.Errorf("Source = %q, want %q", prompt.Source, SourceSDD)
	}

	expected := SpecHeader(specDir) + "\n\n# Requirements\n\nbody\n\n# Design\n\n# Tasks"
	if prompt.Text != expected {
		t.Errorf("Text = %q, want %q", prompt.Text, expected)
	}
}

func TestAssemble_StructuredRoleOrder(t *testing.T) {
	assembler, manager, _ := newTestAssembler(t)

	// Written out of order; assembly still follows the role order.
	if err := manager.WriteDocument("feature-x", sdd.RoleTasks, "# Tasks"); err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}
	if err := manager.WriteDocument("feature-x", sdd.RoleRequirements, "# Requirements"); err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}

	candidate := &resolve.Candidate{
		Path:          manager.SpecPath("feature-x"),
		Format:        resolve.FormatStructured,
		DiscoveredVia: resolve.StrategyStructuredRoot,
		Documents:     []string{"tasks.md", "requirements.md"},
	}

	prompt, err := assembler.Assemble(candidate, "")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	reqIdx := strings.Index(prompt.Text, "# Requirements")
	tasksIdx := strings.Index(prompt.Text, "# Tasks")
	if reqIdx < 0 || tasksIdx < 0 {
		t.Fatalf("Text missing documents: %q", prompt.Text)
	}
	if reqIdx > tasksIdx {
		t.Error("Requirements should precede tasks")
	}
}

func TestAssemble_GenericUnderRoot(t *testing.T) {
	assembler, manager, _ := newTestAssembler(t)

	specFile := filepath.Join(manager.SpecPath("feature-x"), "spec.md")
	writeTestFile(t, specFile, "Build the widget")

	candidate := &resolve.Candidate{
		Path:          manager.SpecPath("feature-x"),
		Format:        resolve.FormatGeneric,
		DiscoveredVia: resolve.StrategyGenericInRoot,
		SpecFile:      specFile,
	}

	prompt, err := assembler.Assemble(candidate, "")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if prompt.Source != SourceSpecPack {
		t.Errorf("Source = %q, want %q", prompt.Source, SourceSpecPack)
	}
	if !strings.Contains(prompt.Text, "Build the widget") {
		t.Error("Text missing embedded spec content")
	}
	if !strings.Contains(prompt.Text, "requirements.md, design.md,\nand tasks.md") {
		t.Error("Text missing expansion instructions")
	}
}

func TestAssemble_GenericOutsideRoot(t *testing.T) {
	assembler, _, _ := newTestAssembler(t)

	tempDir := t.TempDir()
	specFile := filepath.Join(tempDir, "spec.md")
	writeTestFile(t, specFile, "Build the widget")

	candidate := &resolve.Candidate{
		Path:          specFile,
		Format:        resolve.FormatGeneric,
		DiscoveredVia: resolve.StrategyExplicitPath,
		SpecFile:      specFile,
	}

	prompt, err := assembler.Assemble(candidate, "")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if prompt.Source != SourceSpec {
		t.Errorf("Source = %q, want %q", prompt.Source, SourceSpec)
	}

	expected := SpecHeader(specFile) + "\n\nBuild the widget"
	if prompt.Text != expected {
		t.Errorf("Text = %q, want %q", prompt.Text, expected)
	}
}

func TestAssemble_Legacy(t *testing.T) {
	assembler, manager, reporter := newTestAssembler(t)

	specFile := filepath.Join(manager.LegacyRootPath(sdd.AgentOSSpecsRoot), "2024-07-01-login", "spec.md")
	writeTestFile(t, specFile, "Legacy content")

	candidate := &resolve.Candidate{
		Path:          specFile,
		Format:        resolve.FormatLegacy,
		DiscoveredVia: resolve.StrategyLegacyRoots,
		SpecFile:      specFile,
	}

	prompt, err := assembler.Assemble(candidate, "")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if prompt.Source != SourceLegacy {
		t.Errorf("Source = %q, want %q", prompt.Source, SourceLegacy)
	}
	if !strings.Contains(prompt.Text, "Legacy content") {
		t.Error("Text missing legacy content")
	}

	if len(reporter.warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", reporter.warnings)
	}
	if !strings.Contains(reporter.warnings[0], "deprecated layout") {
		t.Errorf("warning = %q, want deprecation notice", reporter.warnings[0])
	}
	if !strings.Contains(reporter.warnings[0], "specdrive migrate") {
		t.Errorf("warning = %q, want migrate hint", reporter.warnings[0])
	}
}

func TestAssemble_UnknownFormat(t *testing.T) {
	assembler, _, _ := newTestAssembler(t)

	candidate := &resolve.Candidate{Path: "/tmp/x", Format: resolve.Format("bogus")}
	if _, err := assembler.Assemble(candidate, ""); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestAssemble_MissingSpecFile(t *testing.T) {
	assembler, manager, _ := newTestAssembler(t)

	candidate := &resolve.Candidate{
		Path:          manager.SpecPath("feature-x"),
		Format:        resolve.FormatGeneric,
		DiscoveredVia: resolve.StrategyGenericInRoot,
		SpecFile:      filepath.Join(manager.SpecPath("feature-x"), "gone.md"),
	}

	_, err := assembler.Assemble(candidate, "")
	if err == nil {
		t.Fatal("Expected error for missing spec file")
	}
	if !strings.Contains(err.Error(), "gone.md") {
		t.Errorf("error = %q, want it to name the path", err)
	}
}

func TestGenerationPrompt_EmbedsContent(t *testing.T) {
	text := GenerationPrompt("The source spec body")

	if !strings.Contains(text, "The source spec body") {
		t.Error("Generation prompt missing source content")
	}
	for _, marker := range []string{"REQ-NNN", "DES-NNN", "TSK-NNN", "24000"} {
		if !strings.Contains(text, marker) {
			t.Errorf("Generation prompt missing %q", marker)
		}
	}
}
