// Package migrate batch-converts deprecated specification folders into the
// canonical three-document layout. Runs are idempotent: unchanged content is
// never rewritten, and unmapped legacy files are warned about rather than
// silently lost.
package migrate

import (
	"strings"

	"github.com/specdrive/specdrive/sdd"
)

// legacyRoles maps historical lowercase filenames to canonical roles.
// Process-wide constant; never mutated at runtime.
var legacyRoles = map[string]sdd.Role{
	// "what" documents
	"spec.md":          sdd.RoleRequirements,
	"requirements.md":  sdd.RoleRequirements,
	"specification.md": sdd.RoleRequirements,

	// "how" documents
	"technical-spec.md": sdd.RoleDesign,
	"design.md":         sdd.RoleDesign,
	"architecture.md":   sdd.RoleDesign,

	// "plan" documents
	"tasks.md":    sdd.RoleTasks,
	"todo.md":     sdd.RoleTasks,
	"workplan.md": sdd.RoleTasks,
}

// placeholders are the fixed bodies written for roles with no source
// content. An unset role always receives its placeholder, never an empty
// file.
var placeholders = map[sdd.Role]string{
	sdd.RoleRequirements: "# Requirements\n\n<!-- TODO: migrate legacy requirements content -->\n",
	sdd.RoleDesign:       "# Design\n\n<!-- TODO: migrate legacy design content -->\n",
	sdd.RoleTasks:        "# Tasks\n\n<!-- TODO: migrate legacy tasks content -->\n",
}

// RoleForFilename returns the canonical role a legacy filename maps to.
// Matching is case-insensitive on the base name.
func RoleForFilename(name string) (sdd.Role, bool) {
	role, ok := legacyRoles[strings.ToLower(name)]
	return role, ok
}

// htmlRoleForFilename maps HTML exports of legacy documents: a file whose
// name with the .html/.htm extension swapped for .md would map to a role is
// treated as that role after conversion.
func htmlRoleForFilename(name string) (sdd.Role, bool) {
	lower := strings.ToLower(name)
	var stem string
	switch {
	case strings.HasSuffix(lower, ".html"):
		stem = strings.TrimSuffix(lower, ".html")
	case strings.HasSuffix(lower, ".htm"):
		stem = strings.TrimSuffix(lower, ".htm")
	default:
		return "", false
	}
	return RoleForFilename(stem + ".md")
}

// Placeholder returns the fixed body for a role with no migrated content.
func Placeholder(role sdd.Role) string {
	return placeholders[role]
}

// DocumentSet holds the canonical role contents materialized from one
// legacy folder. Missing keys are unset roles.
type DocumentSet map[sdd.Role]string

// FinalContent returns the content to persist for a role: the migrated
// text when set, the fixed placeholder otherwise.
func (s DocumentSet) FinalContent(role sdd.Role) string {
	if content, ok := s[role]; ok {
		return content
	}
	return Placeholder(role)
}
