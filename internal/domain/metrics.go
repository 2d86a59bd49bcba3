package domain

import "time"

// TransitionFields is the set of field updates derived from one status
// change. Nil fields are left untouched by ApplyTransition.
type TransitionFields struct {
	AssignedAt  *time.Time
	StartedAt   *time.Time
	PublishedAt *time.Time
	CompletedAt *time.Time

	LeadTimeMinutes  *int
	CycleTimeMinutes *int
}

// DeriveTransitionFields computes the timestamp stamps and completion
// metrics for moving prev into target at now. Stamps are write-once: a field
// already set on prev is never overwritten, so rework loops that re-enter a
// state keep the first entry time. Lead and cycle time are computed only on
// entry to DONE, and only when the prerequisite stamp exists.
func DeriveTransitionFields(prev Task, target Status, now time.Time) TransitionFields {
	ts := now.UTC()
	var fields TransitionFields

	switch target {
	case StatusAssigned:
		if prev.AssignedAt == nil {
			fields.AssignedAt = &ts
		}
	case StatusInProgress:
		if prev.StartedAt == nil {
			fields.StartedAt = &ts
		}
	case StatusPublished:
		if prev.PublishedAt == nil {
			fields.PublishedAt = &ts
		}
	case StatusDone:
		if prev.CompletedAt == nil {
			fields.CompletedAt = &ts
		}
		if prev.AssignedAt != nil {
			lead := int(ts.Sub(*prev.AssignedAt) / time.Minute)
			fields.LeadTimeMinutes = &lead
		}
		if prev.StartedAt != nil {
			cycle := int(ts.Sub(*prev.StartedAt) / time.Minute)
			fields.CycleTimeMinutes = &cycle
		}
	}

	return fields
}
