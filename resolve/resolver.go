package resolve

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/specdrive/specdrive/sdd"
)

// Strategy names the discovery path that produced a candidate.
type Strategy string

// Discovery strategies in precedence order.
const (
	StrategyExplicitPath   Strategy = "explicit-path"
	StrategyCustomGlob     Strategy = "custom-glob"
	StrategyStructuredRoot Strategy = "structured-root"
	StrategyGenericInRoot  Strategy = "generic-in-root"
	StrategyLegacyRoots    Strategy = "legacy-roots"
)

// Candidate is the single resolved specification location for one run.
// It is immutable once selected and never persisted.
type Candidate struct {
	// Path is the selected file or directory.
	Path string

	// Format is the classified shape of the path.
	Format Format

	// DiscoveredVia names the strategy that produced the candidate.
	DiscoveredVia Strategy

	// Documents lists present canonical files for structured candidates.
	Documents []string

	// SpecFile is the backing file for generic candidates.
	SpecFile string
}

// Options carries the per-run discovery inputs.
type Options struct {
	// SpecPath is an explicitly requested path. Highest filesystem
	// precedence; a missing path warns and falls through.
	SpecPath string

	// SpecsGlob is a custom search pattern (doublestar syntax).
	SpecsGlob string

	// IncludeLegacy enables scanning the deprecated legacy roots.
	IncludeLegacy bool
}

// Reporter receives the human-readable notice/warning lines a resolution
// run emits alongside its result.
type Reporter interface {
	Noticef(format string, args ...any)
	Warningf(format string, args ...any)
}

type nopReporter struct{}

func (nopReporter) Noticef(string, ...any)  {}
func (nopReporter) Warningf(string, ...any) {}

// Resolver selects at most one specification candidate per run by walking
// an ordered list of discovery strategies and stopping at the first success.
type Resolver struct {
	manager     *sdd.Manager
	legacyNames []string
	legacyRoots []string
	reporter    Reporter
	logger      *slog.Logger
}

// NewResolver creates a resolver over the given canonical structure manager.
// legacyRoots are repo-relative deprecated roots; empty falls back to the
// default conventions.
func NewResolver(manager *sdd.Manager, legacyRoots []string, reporter Reporter, logger *slog.Logger) *Resolver {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	if len(legacyRoots) == 0 {
		legacyRoots = sdd.DefaultLegacyRoots()
	}
	roots := make([]string, 0, len(legacyRoots))
	for _, root := range legacyRoots {
		roots = append(roots, manager.LegacyRootPath(root))
	}

	return &Resolver{
		manager:     manager,
		legacyNames: legacyRoots,
		legacyRoots: roots,
		reporter:    reporter,
		logger:      logger,
	}
}

// Resolve returns the single selected candidate, or nil when no strategy
// succeeds. A nil candidate is not an error: the caller still produces the
// deterministic fallback prompt. Errors are reserved for paths the run must
// read (an explicit path that exists but cannot be classified) and for
// malformed patterns.
func (r *Resolver) Resolve(opts Options) (*Candidate, error) {
	strategies := []struct {
		name Strategy
		fn   func() (*Candidate, error)
	}{
		{StrategyExplicitPath, func() (*Candidate, error) { return r.resolveExplicitPath(opts.SpecPath) }},
		{StrategyCustomGlob, func() (*Candidate, error) { return r.resolveCustomGlob(opts.SpecsGlob) }},
		{StrategyStructuredRoot, r.resolveStructuredRoot},
		{StrategyGenericInRoot, r.resolveGenericInRoot},
		{StrategyLegacyRoots, func() (*Candidate, error) { return r.resolveLegacyRoots(opts.IncludeLegacy) }},
	}

	for _, s := range strategies {
		candidate, err := s.fn()
		if err != nil {
			return nil, err
		}
		if candidate != nil {
			r.reporter.Noticef("Using specification at %s (via %s).", candidate.Path, candidate.DiscoveredVia)
			r.logger.Debug("Candidate selected",
				"path", candidate.Path,
				"format", string(candidate.Format),
				"strategy", string(candidate.DiscoveredVia))
			return candidate, nil
		}
	}

	r.logger.Debug("No candidate discovered")
	return nil, nil
}

// resolveExplicitPath handles an explicitly requested path. A missing path
// warns and falls through; any other failure on the path is fatal since the
// operator asked for it by name.
func (r *Resolver) resolveExplicitPath(specPath string) (*Candidate, error) {
	if specPath == "" {
		return nil, nil
	}

	if _, err := os.Stat(specPath); err != nil {
		if os.IsNotExist(err) {
			r.reporter.Warningf("Requested spec_path '%s' not found.", specPath)
			return nil, nil
		}
		return nil, fmt.Errorf("stat requested spec path %s: %w", specPath, err)
	}

	cls, err := Classify(specPath, r.legacyRoots)
	if err != nil {
		return nil, fmt.Errorf("classify requested spec path %s: %w", specPath, err)
	}

	return r.candidateFrom(specPath, cls, StrategyExplicitPath), nil
}

// resolveCustomGlob selects the newest file matching the supplied pattern.
func (r *Resolver) resolveCustomGlob(pattern string) (*Candidate, error) {
	if pattern == "" {
		return nil, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid specs glob %q: %w", pattern, err)
	}

	best := newestOf(regularFiles(matches))
	if best == nil {
		r.logger.Debug("Glob matched no files", "pattern", pattern)
		return nil, nil
	}

	cls, err := Classify(best.path, r.legacyRoots)
	if err != nil {
		r.logger.Warn("Failed to classify glob match", "path", best.path, "error", err)
		return nil, nil
	}

	return r.candidateFrom(best.path, cls, StrategyCustomGlob), nil
}

// resolveStructuredRoot selects the newest structured-complete folder under
// the canonical specs root.
func (r *Resolver) resolveStructuredRoot() (*Candidate, error) {
	folders, err := r.manager.ListSpecFolders()
	if err != nil {
		r.logger.Warn("Failed to scan structured root", "error", err)
		return nil, nil
	}

	var entries []entry
	byPath := make(map[string]sdd.SpecFolder)
	for _, folder := range folders {
		if len(folder.Documents) == 0 {
			continue
		}
		entries = append(entries, entry{path: folder.Path, mod: folder.ModTime})
		byPath[folder.Path] = folder
	}

	best := newestOf(entries)
	if best == nil {
		return nil, nil
	}

	folder := byPath[best.path]
	return &Candidate{
		Path:          folder.Path,
		Format:        FormatStructured,
		DiscoveredVia: StrategyStructuredRoot,
		Documents:     folder.Documents,
	}, nil
}

// resolveGenericInRoot selects the newest folder under the canonical specs
// root that holds only a generic specification file (no canonical documents
// yet).
func (r *Resolver) resolveGenericInRoot() (*Candidate, error) {
	folders, err := r.manager.ListSpecFolders()
	if err != nil {
		r.logger.Warn("Failed to scan structured root", "error", err)
		return nil, nil
	}

	var entries []entry
	specFiles := make(map[string]string)
	for _, folder := range folders {
		if len(folder.Documents) > 0 {
			continue
		}
		spec := newestFileUnder(folder.Path)
		if spec == "" {
			continue
		}
		entries = append(entries, entry{path: folder.Path, mod: folder.ModTime})
		specFiles[folder.Path] = spec
	}

	best := newestOf(entries)
	if best == nil {
		return nil, nil
	}

	return &Candidate{
		Path:          best.path,
		Format:        FormatGeneric,
		DiscoveredVia: StrategyGenericInRoot,
		SpecFile:      specFiles[best.path],
	}, nil
}

// resolveLegacyRoots selects the newest single file among the deprecated
// roots. When the legacy window is disabled the strategy is skipped with a
// notice rather than a warning.
func (r *Resolver) resolveLegacyRoots(includeLegacy bool) (*Candidate, error) {
	if !includeLegacy {
		r.reporter.Noticef("Legacy spec roots are disabled; enable include_legacy_specs to scan %s.",
			strings.Join(r.legacyNames, ", "))
		return nil, nil
	}

	var files []entry
	for _, root := range r.legacyRoots {
		matches, err := doublestar.FilepathGlob(filepath.Join(root, "**", "*"))
		if err != nil {
			r.logger.Warn("Failed to scan legacy root", "root", root, "error", err)
			continue
		}
		files = append(files, regularFiles(matches)...)
	}

	best := newestOf(files)
	if best == nil {
		return nil, nil
	}

	return &Candidate{
		Path:          best.path,
		Format:        FormatLegacy,
		DiscoveredVia: StrategyLegacyRoots,
		SpecFile:      best.path,
	}, nil
}

// candidateFrom builds a Candidate from a classification verdict.
func (r *Resolver) candidateFrom(path string, cls *Classification, via Strategy) *Candidate {
	return &Candidate{
		Path:          path,
		Format:        cls.Format,
		DiscoveredVia: via,
		Documents:     cls.Documents,
		SpecFile:      cls.SpecFile,
	}
}

// entry pairs a path with its modification time for recency ranking.
type entry struct {
	path string
	mod  time.Time
}

// regularFiles stats each path and keeps only regular files.
func regularFiles(paths []string) []entry {
	var out []entry
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, entry{path: p, mod: info.ModTime()})
	}
	return out
}

// newestOf returns the entry with the strictly greatest modification time.
// Exact ties are broken by lexicographically smaller path so that repeated
// runs over an unchanged filesystem always pick the same entry.
func newestOf(entries []entry) *entry {
	var best *entry
	for i := range entries {
		e := &entries[i]
		switch {
		case best == nil:
			best = e
		case e.mod.After(best.mod):
			best = e
		case e.mod.Equal(best.mod) && e.path < best.path:
			best = e
		}
	}
	return best
}
