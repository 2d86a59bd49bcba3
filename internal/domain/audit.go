package domain

import (
	"strings"
	"time"
)

// AuditAction labels a persisted audit-trail event.
type AuditAction string

const (
	AuditTaskCreated   AuditAction = "TASK_CREATED"
	AuditStatusChanged AuditAction = "STATUS_CHANGED"
)

// AuditDetails carries the action-specific payload for an entry. The entry's
// Action discriminates which fields are populated: TASK_CREATED sets
// TaskTitle, STATUS_CHANGED sets From and To.
type AuditDetails struct {
	TaskTitle string `json:"task_title,omitempty"`
	From      Status `json:"from,omitempty"`
	To        Status `json:"to,omitempty"`
}

// AuditEntry is one immutable audit-trail record. Entries are appended
// inside the same transaction as the task mutation they describe and are
// never updated or deleted.
type AuditEntry struct {
	ID         string
	TaskID     string
	UserID     string
	Action     AuditAction
	FromStatus *Status
	ToStatus   *Status
	Details    AuditDetails
	Timestamp  time.Time
}

// NewTaskCreatedEntry records the creation of a task in StatusNew.
func NewTaskCreatedEntry(id string, task Task, now time.Time) (AuditEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return AuditEntry{}, ErrInvalidID
	}
	to := task.Status
	return AuditEntry{
		ID:       id,
		TaskID:   task.ID,
		UserID:   task.CreatedBy,
		Action:   AuditTaskCreated,
		ToStatus: &to,
		Details:  AuditDetails{TaskTitle: task.Title},
		Timestamp: now.UTC(),
	}, nil
}

// NewStatusChangedEntry records one validated status transition.
func NewStatusChangedEntry(id, taskID, actorID string, from, to Status, now time.Time) (AuditEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return AuditEntry{}, ErrInvalidID
	}
	if taskID = strings.TrimSpace(taskID); taskID == "" {
		return AuditEntry{}, ErrInvalidID
	}
	if actorID = strings.TrimSpace(actorID); actorID == "" {
		return AuditEntry{}, ErrInvalidID
	}
	f, t := from, to
	return AuditEntry{
		ID:         id,
		TaskID:     taskID,
		UserID:     actorID,
		Action:     AuditStatusChanged,
		FromStatus: &f,
		ToStatus:   &t,
		Details:    AuditDetails{From: from, To: to},
		Timestamp:  now.UTC(),
	}, nil
}
