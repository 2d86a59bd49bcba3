package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Status enumerates the intake pipeline states in pipeline order.
type Status string

const (
	StatusNew            Status = "NEW"
	StatusTriage         Status = "TRIAGE"
	StatusAssigned       Status = "ASSIGNED"
	StatusInProgress     Status = "IN_PROGRESS"
	StatusReadyForReview Status = "READY_FOR_REVIEW"
	StatusPublished      Status = "PUBLISHED"
	StatusQAApproved     Status = "QA_APPROVED"
	StatusDone           Status = "DONE"
)

// pipelineStatuses lists every status in pipeline order.
var pipelineStatuses = []Status{
	StatusNew,
	StatusTriage,
	StatusAssigned,
	StatusInProgress,
	StatusReadyForReview,
	StatusPublished,
	StatusQAApproved,
	StatusDone,
}

// PipelineStatuses returns every status in pipeline order.
func PipelineStatuses() []Status {
	return slices.Clone(pipelineStatuses)
}

// IsValidStatus reports whether s names one of the pipeline states.
func IsValidStatus(s Status) bool {
	return slices.Contains(pipelineStatuses, s)
}

// Role labels the acting user's workflow role.
type Role string

const (
	RoleSuperAdmin       Role = "SuperAdmin"
	RoleWarehouseManager Role = "WarehouseManager"
	RoleEditor           Role = "Editor"
	RoleAuditor          Role = "Auditor"
)

var validRoles = []Role{RoleSuperAdmin, RoleWarehouseManager, RoleEditor, RoleAuditor}

// IsValidRole reports whether r names a known role.
func IsValidRole(r Role) bool {
	return slices.Contains(validRoles, r)
}

// transitions is the full role-gated state machine. A missing (status, role)
// cell means no transition is permitted from that pair.
var transitions = map[Status]map[Role][]Status{
	StatusNew: {
		RoleSuperAdmin:       {StatusTriage, StatusAssigned, StatusDone},
		RoleWarehouseManager: {StatusTriage, StatusAssigned},
	},
	StatusTriage: {
		RoleSuperAdmin:       {StatusAssigned, StatusNew, StatusDone},
		RoleWarehouseManager: {StatusAssigned, StatusNew},
	},
	StatusAssigned: {
		RoleSuperAdmin:       {StatusInProgress, StatusTriage, StatusDone},
		RoleWarehouseManager: {StatusInProgress, StatusTriage},
		RoleEditor:           {StatusInProgress},
	},
	StatusInProgress: {
		RoleSuperAdmin:       {StatusReadyForReview, StatusAssigned, StatusDone},
		RoleWarehouseManager: {StatusReadyForReview, StatusAssigned},
		RoleEditor:           {StatusReadyForReview, StatusAssigned},
	},
	StatusReadyForReview: {
		RoleSuperAdmin:       {StatusPublished, StatusInProgress, StatusQAApproved},
		RoleWarehouseManager: {StatusPublished, StatusInProgress},
		// Auditors can send work back for changes.
		RoleAuditor: {StatusInProgress},
	},
	StatusPublished: {
		RoleSuperAdmin:       {StatusQAApproved, StatusReadyForReview, StatusDone},
		RoleWarehouseManager: {StatusQAApproved},
		RoleAuditor:          {StatusQAApproved, StatusReadyForReview},
	},
	StatusQAApproved: {
		RoleSuperAdmin: {StatusDone, StatusPublished},
		RoleAuditor:    {StatusDone},
	},
	// DONE is terminal for every role.
	StatusDone: {},
}

// AllowedTransitions returns the exact set of statuses role may move a task
// to from current. An empty slice means the pair permits no transition.
func AllowedTransitions(current Status, role Role) []Status {
	byRole, ok := transitions[current]
	if !ok {
		return []Status{}
	}
	return slices.Clone(byRole[role])
}

// InvalidTransitionError describes a rejected status change, carrying the
// legal target set for client display.
type InvalidTransitionError struct {
	From  Status
	To    Status
	Valid []Status
}

func (e *InvalidTransitionError) Error() string {
	valid := make([]string, 0, len(e.Valid))
	for _, s := range e.Valid {
		valid = append(valid, string(s))
	}
	return fmt.Sprintf("invalid status transition from %s to %s (valid: %s)", e.From, e.To, strings.Join(valid, ", "))
}

// ValidateTransition returns nil when role may move a task from current to
// target, and an *InvalidTransitionError otherwise.
func ValidateTransition(current, target Status, role Role) error {
	valid := AllowedTransitions(current, role)
	if slices.Contains(valid, target) {
		return nil
	}
	return &InvalidTransitionError{From: current, To: target, Valid: valid}
}

// CanEditTask reports whether the acting user may apply a plain (non-status)
// edit. This gate is separate from transition permission.
func CanEditTask(role Role, actorID string, task Task) bool {
	switch role {
	case RoleSuperAdmin, RoleWarehouseManager:
		return true
	case RoleEditor:
		return actorID != "" && task.AssignedTo == actorID
	default:
		return false
	}
}
