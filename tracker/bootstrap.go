package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Labels applied to the two issue tiers.
const (
	EpicLabel = "type: epic"
	TaskLabel = "type: task"
)

// Bootstrapper creates the project board and issue hierarchy in order:
// project, then per milestone its epics, then per epic its tasks. Milestone
// and issue creation failures abort the run; board placement failures only
// warn, since the issues themselves are the durable record.
type Bootstrapper struct {
	client *Client
	logger *slog.Logger
}

// NewBootstrapper wraps a client for a bootstrap run.
func NewBootstrapper(client *Client, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{client: client, logger: logger}
}

// Report summarizes what a bootstrap run created.
type Report struct {
	ProjectTitle string
	ProjectURL   string
	Milestones   int
	Epics        int
	Tasks        int
}

// Markdown renders the report for the step summary.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("## Tracker bootstrap\n\n")
	fmt.Fprintf(&b, "- Project: [%s](%s)\n", r.ProjectTitle, r.ProjectURL)
	fmt.Fprintf(&b, "- Milestones: %d\n", r.Milestones)
	fmt.Fprintf(&b, "- Epics: %d\n", r.Epics)
	fmt.Fprintf(&b, "- Tasks: %d\n", r.Tasks)
	return b.String()
}

// board carries the project identifiers threaded through a run.
type board struct {
	projectID     string
	statusFieldID string
	todoOptionID  string
	statusReady   bool
}

// Run executes the full bootstrap sequence for a hierarchy.
func (b *Bootstrapper) Run(ctx context.Context, h *Hierarchy) (*Report, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	ownerID, err := b.client.OwnerID(ctx)
	if err != nil {
		return nil, err
	}

	projectID, projectURL, err := b.client.CreateProject(ctx, ownerID, h.Project.Title)
	if err != nil {
		return nil, err
	}
	if h.Project.Description != "" {
		if err := b.client.SetProjectDescription(ctx, projectID, h.Project.Description); err != nil {
			b.logger.Warn("Failed to set project description", "error", err)
		}
	}

	brd := board{projectID: projectID}
	brd.statusFieldID, brd.todoOptionID, err = b.client.StatusField(ctx, projectID)
	if err != nil {
		b.logger.Warn("Status column unavailable, skipping board placement", "error", err)
	} else {
		brd.statusReady = true
	}

	report := &Report{ProjectTitle: h.Project.Title, ProjectURL: projectURL}

	for _, milestone := range h.Milestones {
		number, err := b.client.CreateMilestone(ctx, milestone.Title, milestone.Description, milestone.DueOn)
		if err != nil {
			return report, err
		}
		report.Milestones++

		for _, epic := range milestone.Epics {
			if err := b.createEpic(ctx, &brd, number, epic, report); err != nil {
				return report, err
			}
		}
	}

	b.logger.Info("Bootstrap complete",
		"project", h.Project.Title,
		"milestones", report.Milestones,
		"epics", report.Epics,
		"tasks", report.Tasks)

	return report, nil
}

// createEpic creates one epic issue, its task issues, and the checklist that
// ties them together.
func (b *Bootstrapper) createEpic(ctx context.Context, brd *board, milestone int, epic Epic, report *Report) error {
	epicIssue, err := b.client.CreateIssue(ctx, IssueRequest{
		Title:     epic.Title,
		Body:      epic.Body,
		Labels:    withLabel(epic.Labels, EpicLabel),
		Milestone: milestone,
	})
	if err != nil {
		return err
	}
	report.Epics++
	b.placeOnBoard(ctx, brd, epicIssue)

	type createdTask struct {
		number int
		title  string
	}
	var created []createdTask

	for _, task := range epic.Tasks {
		body := task.Body
		if body != "" {
			body += "\n\n"
		}
		body += fmt.Sprintf("Parent: #%d", epicIssue.Number)

		taskIssue, err := b.client.CreateIssue(ctx, IssueRequest{
			Title:     task.Title,
			Body:      body,
			Labels:    withLabel(task.Labels, TaskLabel),
			Milestone: milestone,
		})
		if err != nil {
			return err
		}
		report.Tasks++
		b.placeOnBoard(ctx, brd, taskIssue)

		created = append(created, createdTask{number: taskIssue.Number, title: task.Title})
	}

	if len(created) == 0 {
		return nil
	}

	var checklist strings.Builder
	checklist.WriteString(strings.TrimRight(epic.Body, "\n"))
	if checklist.Len() > 0 {
		checklist.WriteString("\n\n")
	}
	checklist.WriteString("## Tasks\n")
	for _, task := range created {
		fmt.Fprintf(&checklist, "- [ ] #%d %s\n", task.number, task.title)
	}

	if err := b.client.UpdateIssueBody(ctx, epicIssue.Number, checklist.String()); err != nil {
		return err
	}
	return nil
}

// placeOnBoard adds an issue to the project and moves it to To Do.
func (b *Bootstrapper) placeOnBoard(ctx context.Context, brd *board, issue *Issue) {
	itemID, err := b.client.AddItemToProject(ctx, brd.projectID, issue.NodeID)
	if err != nil {
		b.logger.Warn("Failed to add issue to project", "issue", issue.Number, "error", err)
		return
	}

	if !brd.statusReady {
		return
	}
	if err := b.client.SetItemStatus(ctx, brd.projectID, itemID, brd.statusFieldID, brd.todoOptionID); err != nil {
		b.logger.Warn("Failed to set issue status", "issue", issue.Number, "error", err)
	}
}

// withLabel returns labels with label appended unless already present.
func withLabel(labels []string, label string) []string {
	for _, l := range labels {
		if strings.EqualFold(l, label) {
			return labels
		}
	}
	out := make([]string, 0, len(labels)+1)
	out = append(out, labels...)
	return append(out, label)
}
