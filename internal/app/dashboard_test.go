package app

import (
	"testing"
	"time"

	"github.com/hylla/intag/internal/domain"
)

func statTask(t *testing.T, id string, status domain.Status, created time.Time) domain.Task {
	t.Helper()
	task, err := domain.NewTask(domain.TaskInput{
		ID:        id,
		ProductID: "p-" + id,
		Title:     "Task " + id,
		CreatedBy: "u1",
	}, created)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	task.Status = status
	return task
}

func TestComputeDashboardStatsEmptySnapshot(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	stats := ComputeDashboardStats(nil, now)
	if stats.TotalTasks != 0 || stats.PendingReview != 0 || stats.OverdueSLA != 0 || stats.CompletedToday != 0 {
		t.Fatalf("unexpected stats %#v", stats)
	}
	if len(stats.KanbanCounts) != 8 {
		t.Fatalf("expected all 8 statuses present, got %d", len(stats.KanbanCounts))
	}
	for status, count := range stats.KanbanCounts {
		if count != 0 {
			t.Fatalf("status %s count = %d, want 0", status, count)
		}
	}
}

func TestComputeDashboardStatsCounts(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-72 * time.Hour)

	overdue := statTask(t, "t1", domain.StatusInProgress, earlier)
	review := statTask(t, "t2", domain.StatusReadyForReview, now.Add(-time.Hour))
	fresh := statTask(t, "t3", domain.StatusNew, now.Add(-time.Hour))

	doneToday := statTask(t, "t4", domain.StatusDone, earlier)
	completed := now.Add(-2 * time.Hour)
	doneToday.CompletedAt = &completed

	doneYesterday := statTask(t, "t5", domain.StatusDone, earlier)
	yesterday := now.Add(-26 * time.Hour)
	doneYesterday.CompletedAt = &yesterday

	tasks := []domain.Task{overdue, review, fresh, doneToday, doneYesterday}
	stats := ComputeDashboardStats(tasks, now)

	if stats.TotalTasks != 5 {
		t.Fatalf("total = %d", stats.TotalTasks)
	}
	if stats.PendingReview != 1 {
		t.Fatalf("pending review = %d", stats.PendingReview)
	}
	// Only t1 blew its 48h window; the DONE tasks are settled and never count.
	if stats.OverdueSLA != 1 {
		t.Fatalf("overdue = %d", stats.OverdueSLA)
	}
	if stats.CompletedToday != 1 {
		t.Fatalf("completed today = %d", stats.CompletedToday)
	}

	sum := 0
	for _, count := range stats.KanbanCounts {
		sum += count
	}
	if sum != stats.TotalTasks {
		t.Fatalf("kanban sum %d != total %d", sum, stats.TotalTasks)
	}
	if stats.KanbanCounts[domain.StatusDone] != 2 {
		t.Fatalf("done count = %d", stats.KanbanCounts[domain.StatusDone])
	}
	if stats.KanbanCounts[domain.StatusTriage] != 0 {
		t.Fatalf("triage count = %d", stats.KanbanCounts[domain.StatusTriage])
	}
}

func TestCompletedTodayUsesLocalMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 8, 20, 1, 0, 0, 0, loc)

	task := statTask(t, "t1", domain.StatusDone, now.Add(-96*time.Hour))
	// 23:30 the previous local day.
	completed := time.Date(2026, 8, 19, 23, 30, 0, 0, loc)
	task.CompletedAt = &completed

	stats := ComputeDashboardStats([]domain.Task{task}, now)
	if stats.CompletedToday != 0 {
		t.Fatalf("yesterday's completion counted: %#v", stats)
	}

	justAfterMidnight := time.Date(2026, 8, 20, 0, 10, 0, 0, loc)
	task.CompletedAt = &justAfterMidnight
	stats = ComputeDashboardStats([]domain.Task{task}, now)
	if stats.CompletedToday != 1 {
		t.Fatalf("today's completion missed: %#v", stats)
	}
}
