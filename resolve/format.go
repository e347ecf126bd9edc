// Package resolve discovers which specification governs an automated change
// request. It classifies candidate locations into one of three format shapes
// and applies a strict precedence order over discovery strategies to select
// at most one candidate per run.
package resolve

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specdrive/specdrive/sdd"
)

// Format identifies the shape of a specification location.
type Format string

// The three recognized specification shapes.
const (
	// FormatStructured is a directory already organized into canonical
	// documents (requirements.md, design.md, tasks.md), even if incomplete.
	FormatStructured Format = "structured-complete"

	// FormatGeneric is a single freestanding specification file meant to be
	// expanded into the three canonical documents.
	FormatGeneric Format = "generic-single"

	// FormatLegacy is a single file under a deprecated storage convention.
	// This is the only format eligible for deprecation warnings.
	FormatLegacy Format = "legacy-single"
)

// Classification is the Format Classifier's verdict for one path.
type Classification struct {
	// Format is the detected shape.
	Format Format

	// Documents lists the canonical files present, in role order.
	// Populated only for structured-complete directories.
	Documents []string

	// SpecFile is the generic specification file backing the classification:
	// the path itself for single files, or the newest contained file for
	// generic directories. Empty for structured directories and for
	// directories containing nothing usable.
	SpecFile string
}

// Classify determines the format shape of a path. It is a pure function of
// the filesystem snapshot at call time and performs no writes.
//
// Directories holding at least one canonical document are structured-complete.
// Directories without canonical documents are generic-single, backed by their
// newest contained file. Files under one of the given legacy roots are
// legacy-single; any other file is generic-single with its content used
// verbatim downstream.
func Classify(path string, legacyRoots []string) (*Classification, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		if underAnyRoot(path, legacyRoots) {
			return &Classification{Format: FormatLegacy, SpecFile: path}, nil
		}
		return &Classification{Format: FormatGeneric, SpecFile: path}, nil
	}

	var present []string
	for _, file := range sdd.CanonicalFiles() {
		if fileExists(filepath.Join(path, file)) {
			present = append(present, file)
		}
	}
	if len(present) > 0 {
		return &Classification{Format: FormatStructured, Documents: present}, nil
	}

	spec := newestFileUnder(path)
	return &Classification{Format: FormatGeneric, SpecFile: spec}, nil
}

// underAnyRoot reports whether path lies beneath one of the given roots.
func underAnyRoot(path string, roots []string) bool {
	cleaned := filepath.Clean(path)
	for _, root := range roots {
		root = filepath.Clean(root)
		if cleaned == root || strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// newestFileUnder returns the newest regular file beneath dir, breaking
// modification-time ties by lexicographically smaller path. Hidden entries
// are skipped. Returns an empty string when the directory holds no files.
func newestFileUnder(dir string) string {
	var best string
	var bestMod time.Time

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if best == "" || info.ModTime().After(bestMod) ||
			(info.ModTime().Equal(bestMod) && path < best) {
			best = path
			bestMod = info.ModTime()
		}
		return nil
	})

	return best
}

// fileExists returns true if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
