// Package prompt turns a resolved specification candidate into the single
// instruction text delegated to the change-generation service, together
// with a provenance tag recording which resolution path produced it.
package prompt

import "fmt"

// FallbackPrompt is the fixed instruction emitted when no specification is
// discoverable. The downstream service is never invoked with an empty or
// ambiguous prompt.
const FallbackPrompt = "No specification was discovered. Inspect the repository and proceed safely."

// SpecHeader returns the header line naming a specification source. It
// prefixes both structured concatenations and single-file wrappers.
func SpecHeader(path string) string {
	return fmt.Sprintf("Follow the latest specification at %s", path)
}

// GenerationPrompt embeds a free-form specification into the expansion
// template. The template text is a file-format contract with the
// change-generation service: the identifier schemes, cross-reference rules,
// section ordering, and size ceiling below must not change silently.
func GenerationPrompt(content string) string {
	return fmt.Sprintf(`You are expanding a single free-form specification into the canonical
three-document set used by this repository: requirements.md, design.md,
and tasks.md.

## Source Specification

%s

## Documents To Produce

Produce exactly three markdown documents.

### requirements.md

Sections, in this order:

1. A top-level heading: # Requirements
2. ## Overview - two or three sentences summarizing the change.
3. ## Requirements - one subsection per requirement.

Each requirement:
- Heading ### REQ-NNN: <name>, with NNN a zero-padded sequence starting
  at 001.
- Body states what the system SHALL do. Use SHALL for mandatory behavior,
  SHOULD for recommended behavior, and MAY for optional behavior. State one
  obligation per requirement.
- Ends with a line "Refs:" listing every DES and TSK identifier that
  realizes the requirement.

### design.md

Sections, in this order:

1. A top-level heading: # Design
2. ## Overview - how the design satisfies the requirements.
3. ## Design Elements - one subsection per element.

Each design element:
- Heading ### DES-NNN: <name>.
- Body describes one component, data shape, or decision.
- Ends with a line "Refs:" listing the REQ identifiers it satisfies and the
  TSK identifiers that build it.

### tasks.md

Sections, in this order:

1. A top-level heading: # Tasks
2. ## Tasks - a flat checklist.

Each task is one checklist line:
- [ ] TSK-NNN: <imperative description> (Refs: REQ-..., DES-...)

## Cross-Reference Rules

References are bidirectional: if REQ-001 lists DES-002 then DES-002 must
list REQ-001. Every requirement maps to at least one design element and at
least one task. Never invent identifiers outside the REQ/DES/TSK schemes.

## Size Ceiling

The three documents combined must not exceed 24000 characters. When
trimming is needed, drop detail before dropping requirements.`, content)
}
