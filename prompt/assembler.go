package prompt

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/specdrive/specdrive/resolve"
	"github.com/specdrive/specdrive/sdd"
)

// Source is the provenance tag recording which resolution path produced a
// prompt.
type Source string

// Provenance tags.
const (
	// SourceInput marks explicit instruction text that bypassed discovery.
	SourceInput Source = "input"

	// SourceSDD marks a structured-complete folder concatenation.
	SourceSDD Source = "sdd"

	// SourceSpecPack marks a generic file under the canonical root embedded
	// in the expansion template.
	SourceSpecPack Source = "spec-pack"

	// SourceSpec marks a generic file outside the canonical root, wrapped
	// with its content verbatim.
	SourceSpec Source = "spec"

	// SourceLegacy marks a file selected from a deprecated root.
	SourceLegacy Source = "legacy"

	// SourceFallback marks the fixed prompt used when nothing was found.
	SourceFallback Source = "fallback"
)

// Prompt is the assembled instruction text plus its provenance tag.
type Prompt struct {
	Text   string
	Source Source
}

// Reporter receives the deprecation warnings assembly emits.
type Reporter interface {
	Warningf(format string, args ...any)
}

type nopReporter struct{}

func (nopReporter) Warningf(string, ...any) {}

// Assembler builds the final instruction text for a resolved candidate.
type Assembler struct {
	manager  *sdd.Manager
	reporter Reporter
	logger   *slog.Logger
}

// NewAssembler creates an assembler over the canonical structure manager.
func NewAssembler(manager *sdd.Manager, reporter Reporter, logger *slog.Logger) *Assembler {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{manager: manager, reporter: reporter, logger: logger}
}

// Assemble produces the prompt for a candidate. Explicit input text takes
// absolute precedence and is used verbatim; a nil candidate yields the
// fixed fallback prompt. Read failures on a selected candidate's files are
// fatal and name the offending path.
func (a *Assembler) Assemble(candidate *resolve.Candidate, inputPrompt string) (*Prompt, error) {
	if inputPrompt != "" {
		return &Prompt{Text: inputPrompt, Source: SourceInput}, nil
	}

	if candidate == nil {
		return &Prompt{Text: FallbackPrompt, Source: SourceFallback}, nil
	}

	switch candidate.Format {
	case resolve.FormatStructured:
		return a.assembleStructured(candidate)
	case resolve.FormatGeneric:
		return a.assembleGeneric(candidate)
	case resolve.FormatLegacy:
		return a.assembleLegacy(candidate)
	default:
		return nil, fmt.Errorf("unknown candidate format %q", candidate.Format)
	}
}

// assembleStructured concatenates the present canonical documents in role
// order behind a single header line naming the folder.
func (a *Assembler) assembleStructured(candidate *resolve.Candidate) (*Prompt, error) {
	present := make(map[string]bool, len(candidate.Documents))
	for _, doc := range candidate.Documents {
		present[doc] = true
	}

	parts := []string{SpecHeader(candidate.Path)}
	for _, role := range sdd.Roles() {
		file := sdd.FileForRole(role)
		if !present[file] {
			continue
		}
		path := filepath.Join(candidate.Path, file)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read canonical document %s: %w", path, err)
		}
		parts = append(parts, strings.TrimRight(string(data), "\n"))
	}

	return &Prompt{Text: strings.Join(parts, "\n\n"), Source: SourceSDD}, nil
}

// assembleGeneric embeds a generic file in the expansion template when it
// lives under the canonical root, and wraps it verbatim otherwise.
func (a *Assembler) assembleGeneric(candidate *resolve.Candidate) (*Prompt, error) {
	content := ""
	if candidate.SpecFile != "" {
		data, err := os.ReadFile(candidate.SpecFile)
		if err != nil {
			return nil, fmt.Errorf("read spec file %s: %w", candidate.SpecFile, err)
		}
		content = string(data)
	}

	ref := candidate.SpecFile
	if ref == "" {
		ref = candidate.Path
	}
	if underRoot(ref, a.manager.SpecsPath()) {
		return &Prompt{Text: GenerationPrompt(content), Source: SourceSpecPack}, nil
	}

	return &Prompt{
		Text:   fmt.Sprintf("%s\n\n%s", SpecHeader(candidate.Path), content),
		Source: SourceSpec,
	}, nil
}

// assembleLegacy wraps a deprecated-root file and warns about the location.
func (a *Assembler) assembleLegacy(candidate *resolve.Candidate) (*Prompt, error) {
	data, err := os.ReadFile(candidate.SpecFile)
	if err != nil {
		return nil, fmt.Errorf("read legacy spec %s: %w", candidate.SpecFile, err)
	}

	a.reporter.Warningf("Spec at %s uses a deprecated layout; run 'specdrive migrate' to move it under %s.",
		candidate.Path, filepath.Join(sdd.RootDir, sdd.SpecsDir))
	a.logger.Debug("Assembled legacy prompt", "path", candidate.Path)

	return &Prompt{
		Text:   fmt.Sprintf("%s\n\n%s", SpecHeader(candidate.Path), string(data)),
		Source: SourceLegacy,
	}, nil
}

// underRoot reports whether path lies beneath root.
func underRoot(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
