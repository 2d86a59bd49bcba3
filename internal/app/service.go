package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	charmLog "github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/hylla/intag/internal/domain"
)

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds configuration for the workflow service.
type ServiceConfig struct {
	SLAOffset         time.Duration
	AuditReadLimit    int
	NotificationLimit int
}

// Service composes the transition policy, metrics deriver, audit recorder,
// and notification dispatcher over the repository.
type Service struct {
	repo      Repository
	directory Directory
	publisher Publisher
	idGen     IDGenerator
	clock     Clock
	logger    *charmLog.Logger

	slaOffset         time.Duration
	auditReadLimit    int
	notificationLimit int
}

// NewService constructs the workflow service. A nil publisher disables
// external publishing; a nil directory disables role fan-out.
func NewService(repo Repository, directory Directory, publisher Publisher, idGen IDGenerator, clock Clock, logger *charmLog.Logger, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	if cfg.SLAOffset <= 0 {
		cfg.SLAOffset = domain.DefaultSLAOffset
	}
	if cfg.AuditReadLimit <= 0 {
		cfg.AuditReadLimit = 500
	}
	if cfg.NotificationLimit <= 0 {
		cfg.NotificationLimit = 10
	}
	return &Service{
		repo:              repo,
		directory:         directory,
		publisher:         publisher,
		idGen:             idGen,
		clock:             clock,
		logger:            logger,
		slaOffset:         cfg.SLAOffset,
		auditReadLimit:    cfg.AuditReadLimit,
		notificationLimit: cfg.NotificationLimit,
	}
}

// CreateUserInput holds input values for user creation.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	Role      domain.Role
	FirstName string
	LastName  string
}

// CreateUser creates a directory user with a bcrypt password hash.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	if in.Password == "" || len(in.Password) > 72 {
		return domain.User{}, ErrInvalidPassword
	}
	if _, err := s.repo.GetUserByUsername(ctx, in.Username); err == nil {
		return domain.User{}, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return domain.User{}, err
	}
	if _, err := s.repo.GetUserByEmail(ctx, in.Email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := domain.NewUser(domain.UserInput{
		ID:           s.idGen(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	}, s.clock())
	if err != nil {
		return domain.User{}, err
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GetUser resolves a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateIntakeInput holds input values for the intake operation: one new
// product plus its tracking task, created together.
type CreateIntakeInput struct {
	Product      domain.ProductInput
	Priority     domain.Priority
	AssignedTo   string
	ReceivedDate time.Time
	Notes        string
	Checklist    map[string]bool
	ActorID      string
}

// CreateIntake creates a product and its owning task. The task title mirrors
// the product title, the SLA deadline is fixed from the received date, and a
// TASK_CREATED audit entry is appended in the same transaction as the task.
func (s *Service) CreateIntake(ctx context.Context, in CreateIntakeInput) (domain.Product, domain.Task, error) {
	actor, err := s.repo.GetUser(ctx, in.ActorID)
	if err != nil {
		return domain.Product{}, domain.Task{}, err
	}
	if actor.Role == domain.RoleAuditor {
		return domain.Product{}, domain.Task{}, ErrPermissionDenied
	}

	now := s.clock()
	in.Product.ID = s.idGen()
	product, err := domain.NewProduct(in.Product, now)
	if err != nil {
		return domain.Product{}, domain.Task{}, err
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return domain.Product{}, domain.Task{}, err
	}

	task, err := domain.NewTask(domain.TaskInput{
		ID:           s.idGen(),
		ProductID:    product.ID,
		Title:        product.Title,
		Priority:     in.Priority,
		AssignedTo:   in.AssignedTo,
		CreatedBy:    actor.ID,
		ReceivedDate: in.ReceivedDate,
		SLAOffset:    s.slaOffset,
		Notes:        in.Notes,
		Checklist:    in.Checklist,
	}, now)
	if err != nil {
		return domain.Product{}, domain.Task{}, err
	}
	entry, err := domain.NewTaskCreatedEntry(s.idGen(), task, now)
	if err != nil {
		return domain.Product{}, domain.Task{}, err
	}
	if err := s.repo.CreateTask(ctx, task, entry); err != nil {
		return domain.Product{}, domain.Task{}, err
	}
	return product, task, nil
}

// TransitionTask moves a task to target on behalf of the acting user. The
// policy check, field derivation, and audit entry all apply against the row
// read inside the store's transaction, so concurrent transitions on the
// same task serialize and the audit trail records the state actually seen.
func (s *Service) TransitionTask(ctx context.Context, taskID string, target domain.Status, actorID string) (domain.Task, error) {
	if !domain.IsValidStatus(target) {
		return domain.Task{}, domain.ErrInvalidStatus
	}
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}

	entryID := s.idGen()
	now := s.clock()
	updated, err := s.repo.TransitionTask(ctx, taskID, func(cur domain.Task) (domain.Task, domain.AuditEntry, error) {
		if err := domain.ValidateTransition(cur.Status, target, actor.Role); err != nil {
			return domain.Task{}, domain.AuditEntry{}, err
		}
		fields := domain.DeriveTransitionFields(cur, target, now)
		entry, err := domain.NewStatusChangedEntry(entryID, cur.ID, actor.ID, cur.Status, target, now)
		if err != nil {
			return domain.Task{}, domain.AuditEntry{}, err
		}
		next := cur
		next.ApplyTransition(target, fields, now)
		return next, entry, nil
	})
	if err != nil {
		return domain.Task{}, err
	}

	// Side effects after the committed transition: both are logged and
	// swallowed, never surfaced to the caller.
	if updated.Status == domain.StatusPublished {
		s.publishProduct(ctx, updated)
	}
	s.dispatchStatusNotifications(ctx, updated, actor.ID)

	return updated, nil
}

// UpdateTaskInput holds input values for plain (non-status) task edits.
type UpdateTaskInput struct {
	TaskID     string
	Title      string
	Priority   domain.Priority
	AssignedTo string
	Notes      string
	Checklist  map[string]bool
	ActorID    string
}

// UpdateTask applies a plain edit when the actor holds edit permission.
// Plain edits are not audited; the trail stays focused on transitions.
func (s *Service) UpdateTask(ctx context.Context, in UpdateTaskInput) (domain.Task, error) {
	actor, err := s.repo.GetUser(ctx, in.ActorID)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := s.repo.GetTask(ctx, in.TaskID)
	if err != nil {
		return domain.Task{}, err
	}
	if !domain.CanEditTask(actor.Role, actor.ID, task) {
		return domain.Task{}, ErrPermissionDenied
	}
	if err := task.UpdateDetails(in.Title, in.Priority, in.AssignedTo, in.Notes, in.Checklist, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// UpdateProductInput holds input values for product edits.
type UpdateProductInput struct {
	ProductID   string
	Title       string
	Description string
	Price       string
	Category    string
	ActorID     string
}

// UpdateProduct edits a product while its owning task is editable by the
// actor, under the same edit-permission rule as task edits.
func (s *Service) UpdateProduct(ctx context.Context, in UpdateProductInput) (domain.Product, error) {
	actor, err := s.repo.GetUser(ctx, in.ActorID)
	if err != nil {
		return domain.Product{}, err
	}
	task, err := s.repo.GetTaskByProduct(ctx, in.ProductID)
	if err != nil {
		return domain.Product{}, err
	}
	if !domain.CanEditTask(actor.Role, actor.ID, task) {
		return domain.Product{}, ErrPermissionDenied
	}
	product, err := s.repo.GetProduct(ctx, in.ProductID)
	if err != nil {
		return domain.Product{}, err
	}
	if err := product.UpdateDetails(in.Title, in.Description, in.Price, in.Category, s.clock()); err != nil {
		return domain.Product{}, err
	}
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// GetTask resolves a task, restricting Editors to their own assignments.
func (s *Service) GetTask(ctx context.Context, taskID, actorID string) (domain.Task, error) {
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if actor.Role == domain.RoleEditor && task.AssignedTo != actor.ID {
		return domain.Task{}, ErrPermissionDenied
	}
	return task, nil
}

// ListTasks lists tasks with the given filter. Editors only see tasks
// assigned to them regardless of the requested filter.
func (s *Service) ListTasks(ctx context.Context, filter TaskFilter, actorID string) ([]domain.Task, error) {
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleEditor {
		filter.AssignedTo = actor.ID
	}
	return s.repo.ListTasks(ctx, filter)
}

// GetProduct resolves a product by id.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// DashboardStats aggregates the dashboard counters from one task snapshot.
func (s *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	tasks, err := s.repo.ListTasks(ctx, TaskFilter{})
	if err != nil {
		return DashboardStats{}, err
	}
	return ComputeDashboardStats(tasks, s.clock()), nil
}

// GetTaskAuditLog returns the audit trail for one task, newest first.
// Restricted to SuperAdmin and Auditor.
func (s *Service) GetTaskAuditLog(ctx context.Context, taskID, actorID string) ([]domain.AuditEntry, error) {
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleSuperAdmin && actor.Role != domain.RoleAuditor {
		return nil, ErrPermissionDenied
	}
	if _, err := s.repo.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.repo.ListTaskAuditEntries(ctx, taskID)
}

// ListRecentAuditEntries returns the most recent audit entries across all
// tasks, capped for replay performance. Restricted like GetTaskAuditLog.
func (s *Service) ListRecentAuditEntries(ctx context.Context, actorID string) ([]domain.AuditEntry, error) {
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleSuperAdmin && actor.Role != domain.RoleAuditor {
		return nil, ErrPermissionDenied
	}
	return s.repo.ListRecentAuditEntries(ctx, s.auditReadLimit)
}

// ListNotifications returns the user's newest notifications.
func (s *Service) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = s.notificationLimit
	}
	return s.repo.ListUserNotifications(ctx, userID, limit)
}

// MarkNotificationRead flips one notification to read.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	return s.repo.MarkNotificationRead(ctx, id)
}

// publishProduct pushes the task's product to the external channel after a
// transition into PUBLISHED. Every failure path logs and returns; publishing
// never blocks or reverses the transition.
func (s *Service) publishProduct(ctx context.Context, task domain.Task) {
	if s.publisher == nil {
		s.logger.Debug("publishing disabled, skipping", "task_id", task.ID, "product_id", task.ProductID)
		return
	}
	if mapping, err := s.repo.GetPublishMapping(ctx, task.ProductID); err == nil {
		s.logger.Info("product already published", "product_id", task.ProductID, "external_id", mapping.ExternalID)
		return
	} else if !errors.Is(err, ErrNotFound) {
		s.logger.Error("publish mapping lookup failed", "product_id", task.ProductID, "err", err)
		return
	}
	product, err := s.repo.GetProduct(ctx, task.ProductID)
	if err != nil {
		s.logger.Error("product lookup for publish failed", "product_id", task.ProductID, "err", err)
		return
	}
	result, err := s.publisher.PublishProduct(ctx, product)
	if err != nil {
		s.logger.Error("external publish failed", "product_id", product.ID, "err", err)
		return
	}
	mapping, err := domain.NewPublishMapping(s.idGen(), product.ID, result.ExternalID, result.Handle, result.Status, s.clock())
	if err != nil {
		s.logger.Error("publish mapping construction failed", "product_id", product.ID, "err", err)
		return
	}
	if err := s.repo.CreatePublishMapping(ctx, mapping); err != nil {
		s.logger.Error("publish mapping persist failed", "product_id", product.ID, "err", err)
		return
	}
	s.logger.Info("product published", "product_id", product.ID, "external_id", result.ExternalID)
}
