package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/hylla/intag/internal/domain"
)

// notificationPlan describes the audience for one status-entry notification.
// Roles are resolved through the directory; IDs are addressed directly.
type notificationPlan struct {
	RecipientRoles []domain.Role
	RecipientIDs   []string
	Title          string
	Message        string
}

// planStatusNotifications maps a post-transition task to its notification
// audience. Statuses without fan-out return ok=false.
func planStatusNotifications(task domain.Task) (notificationPlan, bool) {
	switch task.Status {
	case domain.StatusTriage:
		return notificationPlan{
			RecipientRoles: []domain.Role{domain.RoleWarehouseManager},
			Title:          "New Task in Triage",
			Message:        fmt.Sprintf("Task %q needs to be assigned", task.Title),
		}, true
	case domain.StatusReadyForReview:
		return notificationPlan{
			RecipientRoles: []domain.Role{domain.RoleAuditor, domain.RoleSuperAdmin},
			Title:          "Task Ready for Review",
			Message:        fmt.Sprintf("Task %q is ready for quality review", task.Title),
		}, true
	case domain.StatusPublished:
		ids := make([]string, 0, 2)
		if task.AssignedTo != "" {
			ids = append(ids, task.AssignedTo)
		}
		ids = append(ids, task.CreatedBy)
		return notificationPlan{
			RecipientIDs: ids,
			Title:        "Task Published",
			Message:      fmt.Sprintf("Task %q has been published to the storefront", task.Title),
		}, true
	default:
		return notificationPlan{}, false
	}
}

// dispatchStatusNotifications expands the plan's audience, excludes the
// acting user, and creates one notification per recipient. Each create is
// independent: a failure is logged and the rest still go out.
func (s *Service) dispatchStatusNotifications(ctx context.Context, task domain.Task, actorID string) {
	plan, ok := planStatusNotifications(task)
	if !ok {
		return
	}

	seen := map[string]struct{}{}
	recipients := make([]string, 0, len(plan.RecipientIDs))
	add := func(id string) {
		if id == "" || id == actorID {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}

	for _, role := range plan.RecipientRoles {
		if s.directory == nil {
			break
		}
		users, err := s.directory.ListUsersByRole(ctx, role)
		if err != nil {
			s.logger.Error("notification fan-out lookup failed", "role", role, "task_id", task.ID, "err", err)
			continue
		}
		for _, user := range users {
			add(user.ID)
		}
	}
	for _, id := range plan.RecipientIDs {
		add(id)
	}
	slices.Sort(recipients)

	for _, recipientID := range recipients {
		notification, err := domain.NewNotification(s.idGen(), recipientID, task.ID, plan.Title, plan.Message, s.clock())
		if err != nil {
			s.logger.Error("notification construction failed", "recipient", recipientID, "task_id", task.ID, "err", err)
			continue
		}
		if err := s.repo.CreateNotification(ctx, notification); err != nil {
			s.logger.Error("notification create failed", "recipient", recipientID, "task_id", task.ID, "err", err)
		}
	}
}
