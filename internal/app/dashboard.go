package app

import (
	"time"

	"github.com/hylla/intag/internal/domain"
)

// DashboardStats summarizes one task snapshot for the dashboard and kanban
// board. KanbanCounts carries every pipeline status, zero-counts included.
type DashboardStats struct {
	TotalTasks     int
	PendingReview  int
	OverdueSLA     int
	CompletedToday int
	KanbanCounts   map[domain.Status]int
}

// ComputeDashboardStats aggregates the counters from a single snapshot, so
// the scalars and the kanban map are always internally consistent. Counts
// are recomputed on every read rather than maintained incrementally.
func ComputeDashboardStats(tasks []domain.Task, now time.Time) DashboardStats {
	stats := DashboardStats{
		KanbanCounts: make(map[domain.Status]int, 8),
	}
	for _, status := range domain.PipelineStatuses() {
		stats.KanbanCounts[status] = 0
	}

	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, task := range tasks {
		stats.TotalTasks++
		stats.KanbanCounts[task.Status]++

		if task.Status == domain.StatusReadyForReview {
			stats.PendingReview++
		}
		if task.Overdue(now) {
			stats.OverdueSLA++
		}
		settled := task.Status == domain.StatusDone || task.Status == domain.StatusQAApproved
		if settled && task.CompletedAt != nil && !task.CompletedAt.Before(startOfToday) {
			stats.CompletedToday++
		}
	}
	return stats
}
