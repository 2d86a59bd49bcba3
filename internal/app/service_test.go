package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hylla/intag/internal/domain"
)

// fakeRepo is an in-memory Repository and Directory for service tests.
type fakeRepo struct {
	users         map[string]domain.User
	products      map[string]domain.Product
	tasks         map[string]domain.Task
	audit         []domain.AuditEntry
	notifications []domain.Notification
	mappings      map[string]domain.PublishMapping

	transitionErr   error
	notificationErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    map[string]domain.User{},
		products: map[string]domain.Product{},
		tasks:    map[string]domain.Task{},
		mappings: map[string]domain.PublishMapping{},
	}
}

func (f *fakeRepo) CreateUser(_ context.Context, u domain.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeRepo) GetUser(_ context.Context, id string) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (f *fakeRepo) ListUsersByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	out := []domain.User{}
	for _, u := range f.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateProduct(_ context.Context, p domain.Product) error {
	f.products[p.ID] = p
	return nil
}

func (f *fakeRepo) GetProduct(_ context.Context, id string) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) UpdateProduct(_ context.Context, p domain.Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return ErrNotFound
	}
	f.products[p.ID] = p
	return nil
}

func (f *fakeRepo) CreateTask(_ context.Context, t domain.Task, entry domain.AuditEntry) error {
	f.tasks[t.ID] = t
	f.audit = append(f.audit, entry)
	return nil
}

func (f *fakeRepo) GetTask(_ context.Context, id string) (domain.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) GetTaskByProduct(_ context.Context, productID string) (domain.Task, error) {
	for _, t := range f.tasks {
		if t.ProductID == productID {
			return t, nil
		}
	}
	return domain.Task{}, ErrNotFound
}

func (f *fakeRepo) ListTasks(_ context.Context, filter TaskFilter) ([]domain.Task, error) {
	out := []domain.Task{}
	for _, t := range f.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != "" && t.AssignedTo != filter.AssignedTo {
			continue
		}
		if filter.CreatedBy != "" && t.CreatedBy != filter.CreatedBy {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepo) UpdateTask(_ context.Context, t domain.Task) error {
	if _, ok := f.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeRepo) TransitionTask(_ context.Context, id string, decide TransitionFunc) (domain.Task, error) {
	if f.transitionErr != nil {
		return domain.Task{}, f.transitionErr
	}
	cur, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, ErrNotFound
	}
	next, entry, err := decide(cur)
	if err != nil {
		return domain.Task{}, err
	}
	f.tasks[id] = next
	f.audit = append(f.audit, entry)
	return next, nil
}

func (f *fakeRepo) ListTaskAuditEntries(_ context.Context, taskID string) ([]domain.AuditEntry, error) {
	out := []domain.AuditEntry{}
	for i := len(f.audit) - 1; i >= 0; i-- {
		if f.audit[i].TaskID == taskID {
			out = append(out, f.audit[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) ListRecentAuditEntries(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	out := []domain.AuditEntry{}
	for i := len(f.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.audit[i])
	}
	return out, nil
}

func (f *fakeRepo) CreateNotification(_ context.Context, n domain.Notification) error {
	if f.notificationErr != nil {
		return f.notificationErr
	}
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeRepo) ListUserNotifications(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	out := []domain.Notification{}
	for i := len(f.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if f.notifications[i].UserID == userID {
			out = append(out, f.notifications[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkNotificationRead(_ context.Context, id string) error {
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) CreatePublishMapping(_ context.Context, m domain.PublishMapping) error {
	f.mappings[m.ProductID] = m
	return nil
}

func (f *fakeRepo) GetPublishMapping(_ context.Context, productID string) (domain.PublishMapping, error) {
	m, ok := f.mappings[productID]
	if !ok {
		return domain.PublishMapping{}, ErrNotFound
	}
	return m, nil
}

// fakePublisher records publish calls.
type fakePublisher struct {
	calls  int
	result PublishResult
	err    error
}

func (f *fakePublisher) PublishProduct(_ context.Context, _ domain.Product) (PublishResult, error) {
	f.calls++
	if f.err != nil {
		return PublishResult{}, f.err
	}
	return f.result, nil
}

type harness struct {
	repo      *fakeRepo
	publisher *fakePublisher
	svc       *Service
	now       time.Time

	admin   domain.User
	manager domain.User
	editor  domain.User
	auditor domain.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := newFakeRepo()
	publisher := &fakePublisher{result: PublishResult{ExternalID: "ext-1", Handle: "h", Status: "active"}}
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	seq := 0
	idGen := func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	h := &harness{repo: repo, publisher: publisher, now: now}
	h.svc = NewService(repo, repo, publisher, idGen, func() time.Time { return h.now }, nil, ServiceConfig{})
	h.admin = h.addUser(t, "admin", domain.RoleSuperAdmin)
	h.manager = h.addUser(t, "manager", domain.RoleWarehouseManager)
	h.editor = h.addUser(t, "editor", domain.RoleEditor)
	h.auditor = h.addUser(t, "auditor", domain.RoleAuditor)
	return h
}

func (h *harness) addUser(t *testing.T, name string, role domain.Role) domain.User {
	t.Helper()
	user, err := h.svc.CreateUser(context.Background(), CreateUserInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "correct horse battery",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s) error = %v", name, err)
	}
	return user
}

func (h *harness) addIntake(t *testing.T, actorID, assignedTo string) (domain.Product, domain.Task) {
	t.Helper()
	product, task, err := h.svc.CreateIntake(context.Background(), CreateIntakeInput{
		Product: domain.ProductInput{
			Title:  "Walnut sideboard",
			Vendor: "Nordiska",
		},
		Priority:   domain.PriorityHigh,
		AssignedTo: assignedTo,
		ActorID:    actorID,
	})
	if err != nil {
		t.Fatalf("CreateIntake() error = %v", err)
	}
	return product, task
}

func (h *harness) setStatus(t *testing.T, taskID string, status domain.Status) {
	t.Helper()
	task := h.repo.tasks[taskID]
	task.Status = status
	h.repo.tasks[taskID] = task
}

func TestCreateUserHashingAndUniqueness(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	stored := h.repo.users[h.admin.ID]
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct horse battery")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}

	if _, err := h.svc.CreateUser(ctx, CreateUserInput{
		Username: "admin", Email: "fresh@example.com", Password: "pw-long-enough",
	}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := h.svc.CreateUser(ctx, CreateUserInput{
		Username: "fresh", Email: "admin@example.com", Password: "pw-long-enough",
	}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := h.svc.CreateUser(ctx, CreateUserInput{
		Username: "fresh", Email: "fresh@example.com", Password: "",
	}); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestCreateIntake(t *testing.T) {
	h := newHarness(t)
	product, task := h.addIntake(t, h.manager.ID, h.editor.ID)

	if task.Title != product.Title {
		t.Fatalf("task title %q should mirror product title %q", task.Title, product.Title)
	}
	if task.Status != domain.StatusNew {
		t.Fatalf("status = %q", task.Status)
	}
	if !task.SLADeadline.Equal(task.ReceivedDate.Add(domain.DefaultSLAOffset)) {
		t.Fatalf("sla deadline = %v", task.SLADeadline)
	}
	if len(h.repo.audit) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(h.repo.audit))
	}
	entry := h.repo.audit[0]
	if entry.Action != domain.AuditTaskCreated || entry.TaskID != task.ID || entry.UserID != h.manager.ID {
		t.Fatalf("unexpected audit entry %#v", entry)
	}
	if entry.Details.TaskTitle != product.Title {
		t.Fatalf("audit details %#v", entry.Details)
	}
}

func TestCreateIntakeDeniedForAuditor(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.svc.CreateIntake(context.Background(), CreateIntakeInput{
		Product: domain.ProductInput{Title: "X", Vendor: "V"},
		ActorID: h.auditor.ID,
	})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if len(h.repo.products) != 0 || len(h.repo.tasks) != 0 {
		t.Fatal("auditor intake must not persist anything")
	}
}

func TestTransitionTaskHappyPath(t *testing.T) {
	h := newHarness(t)
	_, task := h.addIntake(t, h.manager.ID, "")

	updated, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusTriage, h.manager.ID)
	if err != nil {
		t.Fatalf("TransitionTask() error = %v", err)
	}
	if updated.Status != domain.StatusTriage {
		t.Fatalf("status = %q", updated.Status)
	}
	if len(h.repo.audit) != 2 {
		t.Fatalf("expected creation + transition audit, got %d", len(h.repo.audit))
	}
	entry := h.repo.audit[1]
	if entry.Action != domain.AuditStatusChanged {
		t.Fatalf("action = %q", entry.Action)
	}
	if *entry.FromStatus != domain.StatusNew || *entry.ToStatus != domain.StatusTriage {
		t.Fatalf("unexpected entry statuses %#v", entry)
	}
}

func TestTransitionTaskRejectedLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	_, task := h.addIntake(t, h.manager.ID, h.editor.ID)

	_, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusPublished, h.manager.ID)
	var invalid *domain.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if h.repo.tasks[task.ID].Status != domain.StatusNew {
		t.Fatal("rejected transition mutated the task")
	}
	if len(h.repo.audit) != 1 {
		t.Fatal("rejected transition wrote an audit entry")
	}
	if len(h.repo.notifications) != 0 {
		t.Fatal("rejected transition dispatched notifications")
	}
}

func TestTransitionUnknownStatusAndActor(t *testing.T) {
	h := newHarness(t)
	_, task := h.addIntake(t, h.manager.ID, "")

	if _, err := h.svc.TransitionTask(context.Background(), task.ID, "SHIPPED", h.manager.ID); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusTriage, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown actor, got %v", err)
	}
}

func TestSuperAdminDirectDoneHasNoMetrics(t *testing.T) {
	h := newHarness(t)
	_, task := h.addIntake(t, h.admin.ID, "")

	updated, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusDone, h.admin.ID)
	if err != nil {
		t.Fatalf("TransitionTask() error = %v", err)
	}
	if updated.Status != domain.StatusDone {
		t.Fatalf("status = %q", updated.Status)
	}
	if updated.CompletedAt == nil {
		t.Fatal("expected completion stamp")
	}
	if updated.LeadTimeMinutes != nil || updated.CycleTimeMinutes != nil {
		t.Fatalf("direct NEW -> DONE must not derive metrics: %#v", updated)
	}
}

func TestAuditorSendsBackButCannotPublish(t *testing.T) {
	h := newHarness(t)
	_, task := h.addIntake(t, h.manager.ID, h.editor.ID)
	h.setStatus(t, task.ID, domain.StatusReadyForReview)

	updated, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusInProgress, h.auditor.ID)
	if err != nil {
		t.Fatalf("auditor send-back error = %v", err)
	}
	if updated.Status != domain.StatusInProgress {
		t.Fatalf("status = %q", updated.Status)
	}

	if _, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusPublished, h.manager.ID); err == nil {
		t.Fatal("expected manager IN_PROGRESS -> PUBLISHED rejected")
	}
}

func TestTransitionIntoPublishedPushesProductOnce(t *testing.T) {
	h := newHarness(t)
	product, task := h.addIntake(t, h.manager.ID, h.editor.ID)
	h.setStatus(t, task.ID, domain.StatusReadyForReview)

	if _, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusPublished, h.manager.ID); err != nil {
		t.Fatalf("TransitionTask() error = %v", err)
	}
	if h.publisher.calls != 1 {
		t.Fatalf("publisher calls = %d, want 1", h.publisher.calls)
	}
	mapping, ok := h.repo.mappings[product.ID]
	if !ok || mapping.ExternalID != "ext-1" {
		t.Fatalf("mapping not recorded: %#v", h.repo.mappings)
	}

	// Round trip back into PUBLISHED: the mapping short-circuits the push.
	h.setStatus(t, task.ID, domain.StatusReadyForReview)
	if _, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusPublished, h.manager.ID); err != nil {
		t.Fatalf("second TransitionTask() error = %v", err)
	}
	if h.publisher.calls != 1 {
		t.Fatalf("publisher calls = %d, want still 1", h.publisher.calls)
	}
}

func TestPublishFailureNeverReversesTransition(t *testing.T) {
	h := newHarness(t)
	h.publisher.err = errors.New("store down")
	_, task := h.addIntake(t, h.manager.ID, "")
	h.setStatus(t, task.ID, domain.StatusReadyForReview)

	updated, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusPublished, h.manager.ID)
	if err != nil {
		t.Fatalf("TransitionTask() error = %v", err)
	}
	if updated.Status != domain.StatusPublished {
		t.Fatalf("status = %q", updated.Status)
	}
	if len(h.repo.mappings) != 0 {
		t.Fatal("failed publish must not record a mapping")
	}
}

func TestNotificationFanOutExcludesActor(t *testing.T) {
	h := newHarness(t)
	secondManager := h.addUser(t, "manager2", domain.RoleWarehouseManager)
	_, task := h.addIntake(t, h.manager.ID, "")

	if _, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusTriage, h.manager.ID); err != nil {
		t.Fatalf("TransitionTask() error = %v", err)
	}
	if len(h.repo.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(h.repo.notifications))
	}
	if h.repo.notifications[0].UserID != secondManager.ID {
		t.Fatalf("notification went to %q, want the other manager", h.repo.notifications[0].UserID)
	}
}

func TestPublishedNotificationTargetsAssigneeAndCreator(t *testing.T) {
	h := newHarness(t)
	_, task := h.addIntake(t, h.manager.ID, h.editor.ID)
	h.setStatus(t, task.ID, domain.StatusReadyForReview)

	if _, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusPublished, h.admin.ID); err != nil {
		t.Fatalf("TransitionTask() error = %v", err)
	}
	recipients := map[string]bool{}
	for _, n := range h.repo.notifications {
		recipients[n.UserID] = true
	}
	if !recipients[h.editor.ID] || !recipients[h.manager.ID] {
		t.Fatalf("expected assignee and creator notified, got %#v", recipients)
	}
	if recipients[h.admin.ID] {
		t.Fatal("acting admin must not notify themselves")
	}
}

func TestNotificationFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.repo.notificationErr = errors.New("inbox full")
	_, task := h.addIntake(t, h.manager.ID, "")

	if _, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusTriage, h.admin.ID); err != nil {
		t.Fatalf("notification failure leaked: %v", err)
	}
}

func TestUpdateTaskPermissions(t *testing.T) {
	h := newHarness(t)
	_, task := h.addIntake(t, h.manager.ID, h.editor.ID)

	updated, err := h.svc.UpdateTask(context.Background(), UpdateTaskInput{
		TaskID:     task.ID,
		Title:      "Renamed",
		Priority:   domain.PriorityLow,
		AssignedTo: h.editor.ID,
		ActorID:    h.editor.ID,
	})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if updated.Title != "Renamed" || updated.Status != domain.StatusNew {
		t.Fatalf("unexpected task %#v", updated)
	}
	// Plain edits stay out of the audit trail.
	if len(h.repo.audit) != 1 {
		t.Fatalf("plain edit was audited: %d entries", len(h.repo.audit))
	}

	if _, err := h.svc.UpdateTask(context.Background(), UpdateTaskInput{
		TaskID:   task.ID,
		Title:    "Nope",
		Priority: domain.PriorityLow,
		ActorID:  h.auditor.ID,
	}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for auditor, got %v", err)
	}

	other := h.addUser(t, "editor2", domain.RoleEditor)
	if _, err := h.svc.UpdateTask(context.Background(), UpdateTaskInput{
		TaskID:   task.ID,
		Title:    "Nope",
		Priority: domain.PriorityLow,
		ActorID:  other.ID,
	}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for foreign editor, got %v", err)
	}
}

func TestEditorVisibility(t *testing.T) {
	h := newHarness(t)
	_, mine := h.addIntake(t, h.manager.ID, h.editor.ID)
	_, foreign := h.addIntake(t, h.manager.ID, "")

	got, err := h.svc.GetTask(context.Background(), mine.ID, h.editor.ID)
	if err != nil {
		t.Fatalf("GetTask(own) error = %v", err)
	}
	if got.ID != mine.ID {
		t.Fatalf("got %q", got.ID)
	}
	if _, err := h.svc.GetTask(context.Background(), foreign.ID, h.editor.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	tasks, err := h.svc.ListTasks(context.Background(), TaskFilter{}, h.editor.ID)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != mine.ID {
		t.Fatalf("editor list = %#v", tasks)
	}

	all, err := h.svc.ListTasks(context.Background(), TaskFilter{}, h.admin.ID)
	if err != nil {
		t.Fatalf("ListTasks(admin) error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin sees %d tasks, want 2", len(all))
	}
}

func TestAuditReadsAreRoleGated(t *testing.T) {
	h := newHarness(t)
	_, task := h.addIntake(t, h.manager.ID, "")

	if _, err := h.svc.GetTaskAuditLog(context.Background(), task.ID, h.editor.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for editor, got %v", err)
	}
	if _, err := h.svc.GetTaskAuditLog(context.Background(), task.ID, h.manager.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for manager, got %v", err)
	}
	entries, err := h.svc.GetTaskAuditLog(context.Background(), task.ID, h.auditor.ID)
	if err != nil {
		t.Fatalf("GetTaskAuditLog(auditor) error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	if _, err := h.svc.ListRecentAuditEntries(context.Background(), h.admin.ID); err != nil {
		t.Fatalf("ListRecentAuditEntries(admin) error = %v", err)
	}
}

func TestReworkLoopKeepsFirstAssignmentStamp(t *testing.T) {
	h := newHarness(t)
	_, task := h.addIntake(t, h.admin.ID, "")

	h.now = h.now.Add(time.Hour)
	first := h.now
	if _, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusAssigned, h.admin.ID); err != nil {
		t.Fatalf("assign error = %v", err)
	}

	h.now = h.now.Add(time.Hour)
	if _, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusTriage, h.admin.ID); err != nil {
		t.Fatalf("rework error = %v", err)
	}
	h.now = h.now.Add(time.Hour)
	updated, err := h.svc.TransitionTask(context.Background(), task.ID, domain.StatusAssigned, h.admin.ID)
	if err != nil {
		t.Fatalf("reassign error = %v", err)
	}
	if updated.AssignedAt == nil || !updated.AssignedAt.Equal(first) {
		t.Fatalf("assignment stamp moved: %v, want %v", updated.AssignedAt, first)
	}
}

func TestFullPipelineRecordsMetricsAndTrail(t *testing.T) {
	h := newHarness(t)
	_, task := h.addIntake(t, h.manager.ID, h.editor.ID)

	steps := []struct {
		target domain.Status
		actor  string
	}{
		{domain.StatusTriage, h.manager.ID},
		{domain.StatusAssigned, h.manager.ID},
		{domain.StatusInProgress, h.editor.ID},
		{domain.StatusReadyForReview, h.editor.ID},
		{domain.StatusPublished, h.manager.ID},
		{domain.StatusQAApproved, h.auditor.ID},
		{domain.StatusDone, h.auditor.ID},
	}
	for _, step := range steps {
		if _, err := h.svc.TransitionTask(context.Background(), task.ID, step.target, step.actor); err != nil {
			t.Fatalf("transition to %s by %s: %v", step.target, step.actor, err)
		}
	}

	final := h.repo.tasks[task.ID]
	if final.Status != domain.StatusDone {
		t.Fatalf("status = %q", final.Status)
	}
	if final.AssignedAt == nil || final.StartedAt == nil || final.PublishedAt == nil || final.CompletedAt == nil {
		t.Fatalf("missing stamps %#v", final)
	}
	if final.LeadTimeMinutes == nil || final.CycleTimeMinutes == nil {
		t.Fatal("missing metrics after full pipeline")
	}

	entries, err := h.svc.GetTaskAuditLog(context.Background(), task.ID, h.auditor.ID)
	if err != nil {
		t.Fatalf("GetTaskAuditLog() error = %v", err)
	}
	// One creation entry plus one entry per transition, with contiguous
	// from/to chaining when replayed oldest-first.
	if len(entries) != len(steps)+1 {
		t.Fatalf("entries = %d, want %d", len(entries), len(steps)+1)
	}
	for i := len(entries) - 2; i >= 0; i-- {
		older := entries[i+1]
		newer := entries[i]
		if older.ToStatus == nil || newer.FromStatus == nil {
			t.Fatalf("nil chain statuses at %d", i)
		}
		if *older.ToStatus != *newer.FromStatus {
			t.Fatalf("broken chain: %s then %s", *older.ToStatus, *newer.FromStatus)
		}
	}
}
