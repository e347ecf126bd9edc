package tracker

import (
	"encoding/json"
	"fmt"
	"os"
)

// Hierarchy is the declarative plan a bootstrap run executes: one project
// board, its milestones, and the epic and task issues under each.
type Hierarchy struct {
	Project    Project     `json:"project"`
	Milestones []Milestone `json:"milestones"`
}

// Project names the board to create.
type Project struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Milestone groups epics under a delivery target.
type Milestone struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// DueOn is an RFC 3339 timestamp, passed through to the API verbatim.
	DueOn string `json:"due_on,omitempty"`

	Epics []Epic `json:"epics"`
}

// Epic becomes an issue labelled "type: epic" with a task checklist.
type Epic struct {
	Title  string   `json:"title"`
	Body   string   `json:"body,omitempty"`
	Labels []string `json:"labels,omitempty"`
	Tasks  []Task   `json:"tasks"`
}

// Task becomes an issue labelled "type: task" that references its epic.
type Task struct {
	Title  string   `json:"title"`
	Body   string   `json:"body,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// LoadHierarchy reads and validates a hierarchy JSON file.
func LoadHierarchy(path string) (*Hierarchy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hierarchy file %s: %w", path, err)
	}

	var h Hierarchy
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse hierarchy file %s: %w", path, err)
	}

	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hierarchy in %s: %w", path, err)
	}

	return &h, nil
}

// Validate checks the hierarchy has the minimum shape to bootstrap.
func (h *Hierarchy) Validate() error {
	if h.Project.Title == "" {
		return fmt.Errorf("project title is required")
	}

	for i, milestone := range h.Milestones {
		if milestone.Title == "" {
			return fmt.Errorf("milestone %d: title is required", i)
		}
		for j, epic := range milestone.Epics {
			if epic.Title == "" {
				return fmt.Errorf("milestone %q epic %d: title is required", milestone.Title, j)
			}
			for k, task := range epic.Tasks {
				if task.Title == "" {
					return fmt.Errorf("epic %q task %d: title is required", epic.Title, k)
				}
			}
		}
	}

	return nil
}
