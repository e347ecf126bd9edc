// Package sdd manages the canonical .sdd specification layout: one folder
// per specification under .sdd/specs, each holding up to three canonical
// documents (requirements.md, design.md, tasks.md).
package sdd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Directory and file constants for the .sdd structure.
const (
	RootDir          = ".sdd"
	SpecsDir         = "specs"
	RequirementsFile = "requirements.md"
	DesignFile       = "design.md"
	TasksFile        = "tasks.md"
)

// Deprecated specification roots recognized for discovery and migration.
const (
	AgentOSSpecsRoot = ".agent-os/specs"
	SpecifySpecsRoot = ".specify/specs"
)

// Role identifies one of the three canonical document roles.
type Role string

// RoleRequirements, RoleDesign, and RoleTasks enumerate the canonical roles.
const (
	RoleRequirements Role = "requirements"
	RoleDesign       Role = "design"
	RoleTasks        Role = "tasks"
)

// Roles returns the canonical roles in their fixed document order.
func Roles() []Role {
	return []Role{RoleRequirements, RoleDesign, RoleTasks}
}

// FileForRole returns the canonical filename for a role.
func FileForRole(role Role) string {
	switch role {
	case RoleRequirements:
		return RequirementsFile
	case RoleDesign:
		return DesignFile
	case RoleTasks:
		return TasksFile
	default:
		return ""
	}
}

// CanonicalFiles returns the three canonical filenames in role order.
func CanonicalFiles() []string {
	return []string{RequirementsFile, DesignFile, TasksFile}
}

// DefaultLegacyRoots returns the deprecated roots scanned when the
// legacy window is enabled.
func DefaultLegacyRoots() []string {
	return []string{AgentOSSpecsRoot, SpecifySpecsRoot}
}

// SpecFolder describes one folder under the canonical specs root.
type SpecFolder struct {
	// Name is the folder name (the specification key).
	Name string
	// Path is the full path to the folder.
	Path string
	// ModTime is the folder's modification time, used for recency ranking.
	ModTime time.Time
	// Documents lists which canonical files are present, in role order.
	Documents []string
}

// Manager provides file operations over the canonical .sdd structure.
type Manager struct {
	repoRoot string
}

// NewManager creates a manager rooted at the given repository path.
func NewManager(repoRoot string) *Manager {
	return &Manager{repoRoot: repoRoot}
}

// RootPath returns the full path to the .sdd directory.
func (m *Manager) RootPath() string {
	return filepath.Join(m.repoRoot, RootDir)
}

// SpecsPath returns the path to the canonical specs root.
func (m *Manager) SpecsPath() string {
	return filepath.Join(m.RootPath(), SpecsDir)
}

// SpecPath returns the path to a named specification folder.
func (m *Manager) SpecPath(name string) string {
	return filepath.Join(m.SpecsPath(), name)
}

// DocumentPath returns the path to a canonical document within a folder.
func (m *Manager) DocumentPath(name string, role Role) string {
	return filepath.Join(m.SpecPath(name), FileForRole(role))
}

// LegacyRootPath returns the full path of a deprecated root relative to
// the repository.
func (m *Manager) LegacyRootPath(root string) string {
	return filepath.Join(m.repoRoot, filepath.FromSlash(root))
}

// EnsureDirectories creates the .sdd directory structure if it doesn't exist.
func (m *Manager) EnsureDirectories() error {
	dirs := []string{
		m.RootPath(),
		m.SpecsPath(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ListSpecFolders returns all folders under the canonical specs root with
// their modification times and present canonical documents. A missing
// specs root yields an empty list, not an error.
func (m *Manager) ListSpecFolders() ([]SpecFolder, error) {
	specsPath := m.SpecsPath()

	entries, err := os.ReadDir(specsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []SpecFolder{}, nil
		}
		return nil, fmt.Errorf("failed to read specs directory: %w", err)
	}

	var folders []SpecFolder
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(specsPath, entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		var present []string
		for _, file := range CanonicalFiles() {
			if fileExists(filepath.Join(path, file)) {
				present = append(present, file)
			}
		}

		folders = append(folders, SpecFolder{
			Name:      entry.Name(),
			Path:      path,
			ModTime:   info.ModTime(),
			Documents: present,
		})
	}

	return folders, nil
}

// WriteDocument writes a canonical document for a named specification,
// creating the folder if needed.
func (m *Manager) WriteDocument(name string, role Role, content string) error {
	return writeFile(m.DocumentPath(name, role), content)
}

// ReadDocument reads a canonical document for a named specification.
func (m *Manager) ReadDocument(name string, role Role) (string, error) {
	data, err := os.ReadFile(m.DocumentPath(name, role))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeFile writes content to a file, creating parent directories if needed.
func writeFile(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// fileExists returns true if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
