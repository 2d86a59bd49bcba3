package domain

import (
	"slices"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// DefaultSLAOffset is the intake-to-resolution window used for overdue
// reporting when no override is configured.
const DefaultSLAOffset = 48 * time.Hour

// Task is the unit of work tracked through the intake pipeline, one per
// product.
type Task struct {
	ID         string
	ProductID  string
	Title      string
	Status     Status
	Priority   Priority
	AssignedTo string
	CreatedBy  string

	ReceivedDate time.Time
	AssignedAt   *time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	PublishedAt  *time.Time
	SLADeadline  time.Time

	Notes     string
	Checklist map[string]bool

	LeadTimeMinutes  *int
	CycleTimeMinutes *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

type TaskInput struct {
	ID           string
	ProductID    string
	Title        string
	Priority     Priority
	AssignedTo   string
	CreatedBy    string
	ReceivedDate time.Time
	SLAOffset    time.Duration
	Notes        string
	Checklist    map[string]bool
}

// NewTask constructs a task in StatusNew. ReceivedDate defaults to now and
// the SLA deadline is fixed at construction; neither is mutated afterwards.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.Title = strings.TrimSpace(in.Title)
	in.CreatedBy = strings.TrimSpace(in.CreatedBy)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.ProductID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}
	if in.CreatedBy == "" {
		return Task{}, ErrInvalidID
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return Task{}, ErrInvalidPriority
	}

	received := in.ReceivedDate
	if received.IsZero() {
		received = now
	}
	received = received.UTC().Truncate(time.Second)

	offset := in.SLAOffset
	if offset <= 0 {
		offset = DefaultSLAOffset
	}

	return Task{
		ID:           in.ID,
		ProductID:    in.ProductID,
		Title:        in.Title,
		Status:       StatusNew,
		Priority:     in.Priority,
		AssignedTo:   strings.TrimSpace(in.AssignedTo),
		CreatedBy:    in.CreatedBy,
		ReceivedDate: received,
		SLADeadline:  received.Add(offset),
		Notes:        strings.TrimSpace(in.Notes),
		Checklist:    in.Checklist,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// UpdateDetails applies a plain (non-status) edit. Status, stamped
// timestamps, and derived metrics are never touched here.
func (t *Task) UpdateDetails(title string, priority Priority, assignedTo, notes string, checklist map[string]bool, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	if !slices.Contains(validPriorities, priority) {
		return ErrInvalidPriority
	}
	t.Title = title
	t.Priority = priority
	t.AssignedTo = strings.TrimSpace(assignedTo)
	t.Notes = strings.TrimSpace(notes)
	if checklist != nil {
		t.Checklist = checklist
	}
	t.UpdatedAt = now.UTC()
	return nil
}

// ApplyTransition moves the task to target and merges the derived field
// updates. Callers validate the transition first; this only mutates state.
func (t *Task) ApplyTransition(target Status, fields TransitionFields, now time.Time) {
	t.Status = target
	if fields.AssignedAt != nil {
		t.AssignedAt = fields.AssignedAt
	}
	if fields.StartedAt != nil {
		t.StartedAt = fields.StartedAt
	}
	if fields.PublishedAt != nil {
		t.PublishedAt = fields.PublishedAt
	}
	if fields.CompletedAt != nil {
		t.CompletedAt = fields.CompletedAt
	}
	if fields.LeadTimeMinutes != nil {
		t.LeadTimeMinutes = fields.LeadTimeMinutes
	}
	if fields.CycleTimeMinutes != nil {
		t.CycleTimeMinutes = fields.CycleTimeMinutes
	}
	t.UpdatedAt = now.UTC()
}

// Overdue reports whether the task has blown its SLA deadline and is not in
// a settled state.
func (t Task) Overdue(now time.Time) bool {
	if t.Status == StatusDone || t.Status == StatusQAApproved {
		return false
	}
	return t.SLADeadline.Before(now)
}
