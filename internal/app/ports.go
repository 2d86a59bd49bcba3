package app

import (
	"context"

	"github.com/hylla/intag/internal/domain"
)

// TaskFilter narrows task listings. Zero-valued fields match everything.
type TaskFilter struct {
	Status     domain.Status
	AssignedTo string
	CreatedBy  string
}

// TransitionFunc decides one status change against the task row as read
// inside the store's transaction. The returned entry is appended atomically
// with the task update; returning an error aborts with no mutation.
type TransitionFunc func(domain.Task) (domain.Task, domain.AuditEntry, error)

// Repository owns persisted workflow entities.
type Repository interface {
	CreateUser(context.Context, domain.User) error
	GetUser(context.Context, string) (domain.User, error)
	GetUserByUsername(context.Context, string) (domain.User, error)
	GetUserByEmail(context.Context, string) (domain.User, error)
	ListUsersByRole(context.Context, domain.Role) ([]domain.User, error)

	CreateProduct(context.Context, domain.Product) error
	GetProduct(context.Context, string) (domain.Product, error)
	UpdateProduct(context.Context, domain.Product) error

	CreateTask(context.Context, domain.Task, domain.AuditEntry) error
	GetTask(context.Context, string) (domain.Task, error)
	GetTaskByProduct(context.Context, string) (domain.Task, error)
	ListTasks(context.Context, TaskFilter) ([]domain.Task, error)
	UpdateTask(context.Context, domain.Task) error
	TransitionTask(context.Context, string, TransitionFunc) (domain.Task, error)

	ListTaskAuditEntries(context.Context, string) ([]domain.AuditEntry, error)
	ListRecentAuditEntries(context.Context, int) ([]domain.AuditEntry, error)

	CreateNotification(context.Context, domain.Notification) error
	ListUserNotifications(context.Context, string, int) ([]domain.Notification, error)
	MarkNotificationRead(context.Context, string) error

	CreatePublishMapping(context.Context, domain.PublishMapping) error
	GetPublishMapping(context.Context, string) (domain.PublishMapping, error)
}

// Directory resolves users by role for notification fan-out.
type Directory interface {
	ListUsersByRole(context.Context, domain.Role) ([]domain.User, error)
}

// PublishResult identifies a product on the external commerce channel.
type PublishResult struct {
	ExternalID string
	Handle     string
	Status     string
}

// Publisher pushes a product to the external commerce channel. Failures are
// logged and swallowed by the service; they never reverse a transition.
type Publisher interface {
	PublishProduct(context.Context, domain.Product) (PublishResult, error)
}
