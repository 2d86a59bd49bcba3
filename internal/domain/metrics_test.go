package domain

import (
	"testing"
	"time"
)

func baseTask(t *testing.T, now time.Time) Task {
	t.Helper()
	task, err := NewTask(TaskInput{ID: "t1", ProductID: "p1", Title: "x", CreatedBy: "u1"}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	return task
}

func TestDeriveStampsOnFirstEntry(t *testing.T) {
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	task := baseTask(t, now)

	fields := DeriveTransitionFields(task, StatusAssigned, now.Add(time.Hour))
	if fields.AssignedAt == nil || !fields.AssignedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("assigned stamp = %v", fields.AssignedAt)
	}
	if fields.StartedAt != nil || fields.CompletedAt != nil || fields.PublishedAt != nil {
		t.Fatalf("unexpected extra stamps %#v", fields)
	}

	fields = DeriveTransitionFields(task, StatusInProgress, now.Add(2*time.Hour))
	if fields.StartedAt == nil {
		t.Fatal("expected started stamp")
	}
	fields = DeriveTransitionFields(task, StatusPublished, now.Add(3*time.Hour))
	if fields.PublishedAt == nil {
		t.Fatal("expected published stamp")
	}
}

func TestDeriveStampsAreWriteOnce(t *testing.T) {
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	task := baseTask(t, now)
	first := now.Add(time.Hour)
	task.AssignedAt = &first

	// Rework loop re-enters ASSIGNED later; the original stamp survives.
	fields := DeriveTransitionFields(task, StatusAssigned, now.Add(10*time.Hour))
	if fields.AssignedAt != nil {
		t.Fatalf("assigned stamp overwritten: %v", fields.AssignedAt)
	}
}

func TestDeriveMetricsOnDone(t *testing.T) {
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	task := baseTask(t, now)
	assigned := now.Add(30 * time.Minute)
	started := now.Add(90 * time.Minute)
	task.AssignedAt = &assigned
	task.StartedAt = &started

	done := now.Add(5*time.Hour + 30*time.Second)
	fields := DeriveTransitionFields(task, StatusDone, done)
	if fields.CompletedAt == nil || !fields.CompletedAt.Equal(done) {
		t.Fatalf("completed stamp = %v", fields.CompletedAt)
	}
	// 4h30m30s from assignment floors to 270 minutes.
	if fields.LeadTimeMinutes == nil || *fields.LeadTimeMinutes != 270 {
		t.Fatalf("lead time = %v", fields.LeadTimeMinutes)
	}
	// 3h30m30s from start floors to 210 minutes.
	if fields.CycleTimeMinutes == nil || *fields.CycleTimeMinutes != 210 {
		t.Fatalf("cycle time = %v", fields.CycleTimeMinutes)
	}
}

func TestDeriveMetricsSkippedStates(t *testing.T) {
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	task := baseTask(t, now)

	// Direct NEW -> DONE: no assignment ever happened, so no metrics.
	fields := DeriveTransitionFields(task, StatusDone, now.Add(time.Hour))
	if fields.CompletedAt == nil {
		t.Fatal("expected completed stamp")
	}
	if fields.LeadTimeMinutes != nil {
		t.Fatalf("lead time without assignment: %v", fields.LeadTimeMinutes)
	}
	if fields.CycleTimeMinutes != nil {
		t.Fatalf("cycle time without start: %v", fields.CycleTimeMinutes)
	}

	// Assigned but never started: lead time only.
	assigned := now.Add(time.Hour)
	task.AssignedAt = &assigned
	fields = DeriveTransitionFields(task, StatusDone, now.Add(3*time.Hour))
	if fields.LeadTimeMinutes == nil || *fields.LeadTimeMinutes != 120 {
		t.Fatalf("lead time = %v", fields.LeadTimeMinutes)
	}
	if fields.CycleTimeMinutes != nil {
		t.Fatalf("cycle time without start: %v", fields.CycleTimeMinutes)
	}
}

func TestApplyTransitionMergesFields(t *testing.T) {
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	task := baseTask(t, now)

	at := now.Add(time.Hour)
	task.ApplyTransition(StatusAssigned, TransitionFields{AssignedAt: &at}, at)
	if task.Status != StatusAssigned {
		t.Fatalf("status = %q", task.Status)
	}
	if task.AssignedAt == nil || !task.AssignedAt.Equal(at) {
		t.Fatalf("assigned = %v", task.AssignedAt)
	}
	if !task.UpdatedAt.Equal(at) {
		t.Fatalf("updated = %v", task.UpdatedAt)
	}

	// Empty fields leave the stamps alone.
	later := now.Add(2 * time.Hour)
	task.ApplyTransition(StatusTriage, TransitionFields{}, later)
	if task.AssignedAt == nil || !task.AssignedAt.Equal(at) {
		t.Fatalf("stamp lost on rework: %v", task.AssignedAt)
	}
}
