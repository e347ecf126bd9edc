package migrate

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/specdrive/specdrive/sdd"
)

// SkippedFile records one destination path the migrator decided not to
// write, with the reason ("unchanged" or "dry-run").
type SkippedFile struct {
	Path   string
	Reason string
}

// Result is the per-folder migration report. It is produced once per folder
// per run and never persisted.
type Result struct {
	// Source is the legacy folder that was processed.
	Source string
	// Dest is the canonical destination folder.
	Dest string
	// Written lists destination paths actually written.
	Written []string
	// Skipped lists destination paths left untouched, with reasons.
	Skipped []SkippedFile
	// Warnings lists unmapped or unconvertible legacy files.
	Warnings []string
}

// Options configures a migration run.
type Options struct {
	// DryRun reports pending writes without touching storage.
	DryRun bool
	// Since keeps only folders whose name carries a date prefix on or after
	// this date. Folders without a date-like prefix are always kept. The
	// zero value disables the filter.
	Since time.Time
}

// Migrator converts legacy specification folders under a source root into
// the canonical three-document layout under a destination root.
type Migrator struct {
	src       string
	dest      string
	opts      Options
	converter *Converter
	logger    *slog.Logger
}

// NewMigrator creates a migrator from src (a root of legacy folders) to
// dest (the canonical structured root).
func NewMigrator(src, dest string, opts Options, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{
		src:       src,
		dest:      dest,
		opts:      opts,
		converter: NewConverter(),
		logger:    logger,
	}
}

// Run migrates every retained folder and returns one Result per folder.
// Mapping gaps never abort a folder; the run errors only for unreadable
// source files or unwritable destinations. Repeated runs over unchanged
// input produce zero writes.
func (m *Migrator) Run() ([]Result, error) {
	entries, err := os.ReadDir(m.src)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Info("Source root does not exist; nothing to migrate", "src", m.src)
			return []Result{}, nil
		}
		return nil, fmt.Errorf("read source root %s: %w", m.src, err)
	}

	var results []Result
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !m.includeFolder(name) {
			m.logger.Debug("Folder excluded by since filter", "folder", name)
			continue
		}

		result, err := m.migrateFolder(name)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}

	return results, nil
}

// includeFolder applies the since filter to a folder name. Non-date
// prefixes fail open.
func (m *Migrator) includeFolder(name string) bool {
	if m.opts.Since.IsZero() {
		return true
	}
	prefix, ok := ParseDatePrefix(name)
	if !ok {
		return true
	}
	return !prefix.Before(m.opts.Since)
}

// ParseDatePrefix extracts a leading YYYY-MM-DD or YYYYMMDD date from a
// folder name. Returns false when the name does not begin with either
// layout.
func ParseDatePrefix(name string) (time.Time, bool) {
	if len(name) >= 10 {
		if t, err := time.Parse("2006-01-02", name[:10]); err == nil {
			return t, true
		}
	}
	if len(name) >= 8 {
		if t, err := time.Parse("20060102", name[:8]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseSince parses a --since value in either accepted date layout. Unlike
// folder prefixes, a malformed value here is a configuration error.
func ParseSince(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid since date %q (want YYYY-MM-DD or YYYYMMDD)", value)
}

// migrateFolder processes a single legacy folder.
func (m *Migrator) migrateFolder(name string) (*Result, error) {
	srcDir := filepath.Join(m.src, name)
	destDir := filepath.Join(m.dest, name)
	result := &Result{Source: srcDir, Dest: destDir}

	docs, err := m.collectDocuments(srcDir, result)
	if err != nil {
		return nil, err
	}

	for _, role := range sdd.Roles() {
		target := filepath.Join(destDir, sdd.FileForRole(role))
		content := docs.FinalContent(role)

		existing, err := os.ReadFile(target)
		switch {
		case err == nil:
			if sdd.ContentHash(existing) == sdd.ContentHash([]byte(content)) {
				result.Skipped = append(result.Skipped, SkippedFile{Path: target, Reason: "unchanged"})
				continue
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read existing document %s: %w", target, err)
		}

		if m.opts.DryRun {
			result.Skipped = append(result.Skipped, SkippedFile{Path: target, Reason: "dry-run"})
			continue
		}

		if err := os.MkdirAll(destDir, 0755); err != nil {
			return nil, fmt.Errorf("create destination folder %s: %w", destDir, err)
		}
		if err := os.WriteFile(target, []byte(content), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", target, err)
		}
		result.Written = append(result.Written, target)
	}

	m.logger.Debug("Processed folder",
		"folder", name,
		"written", len(result.Written),
		"skipped", len(result.Skipped),
		"warnings", len(result.Warnings))

	return result, nil
}

// collectDocuments walks a legacy folder in lexical order and buckets every
// contained file by role. Later files win when several map to the same
// role. Unmapped filenames produce a warning and are not copied.
func (m *Migrator) collectDocuments(srcDir string, result *Result) (DocumentSet, error) {
	docs := DocumentSet{}

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk %s: %w", path, walkErr)
		}
		if d.IsDir() {
			return nil
		}

		base := d.Name()
		if role, ok := RoleForFilename(base); ok {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read legacy document %s: %w", path, err)
			}
			docs[role] = string(data)
			return nil
		}

		if role, ok := htmlRoleForFilename(base); ok {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read legacy document %s: %w", path, err)
			}
			markdown, convErr := m.converter.Convert(data)
			if convErr != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Failed to convert %s: %v", relTo(srcDir, path), convErr))
				return nil
			}
			docs[role] = markdown
			return nil
		}

		result.Warnings = append(result.Warnings, fmt.Sprintf("Unmapped file: %s", relTo(srcDir, path)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// relTo returns path relative to base, falling back to the full path.
func relTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}
