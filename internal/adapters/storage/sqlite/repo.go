// Package sqlite persists workflow entities behind the app.Repository port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/intag/internal/app"
	"github.com/hylla/intag/internal/domain"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Repository implements app.Repository over a single sqlite database.
type Repository struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a shared in-memory database, used by tests.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'Editor',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			vendor TEXT NOT NULL,
			order_number TEXT NOT NULL DEFAULT '',
			sku TEXT NOT NULL DEFAULT '',
			price TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			images_json TEXT NOT NULL DEFAULT '[]',
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'NEW',
			priority TEXT NOT NULL DEFAULT 'medium',
			assigned_to TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL,
			received_date TEXT NOT NULL,
			assigned_at TEXT,
			started_at TEXT,
			completed_at TEXT,
			published_at TEXT,
			sla_deadline TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			checklist_json TEXT NOT NULL DEFAULT '{}',
			lead_time_minutes INTEGER,
			cycle_time_minutes INTEGER,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY(product_id) REFERENCES products(id) ON DELETE CASCADE,
			FOREIGN KEY(created_by) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL DEFAULT '',
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			from_status TEXT,
			to_status TEXT,
			details_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			task_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			read INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS publish_mappings (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL UNIQUE,
			external_id TEXT NOT NULL,
			handle TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'published',
			published_at TEXT NOT NULL,
			last_sync_at TEXT NOT NULL,
			FOREIGN KEY(product_id) REFERENCES products(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks(assigned_to);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created_by ON tasks(created_by);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_task_created_at ON audit_log(task_id, created_at DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_created_at ON notifications(user_id, created_at DESC, id DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateUser creates a user row.
func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users(id, username, email, password_hash, role, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.FirstName, u.LastName, ts(u.CreatedAt), ts(u.UpdatedAt))
	return err
}

// GetUser returns a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE id = ?`, id))
}

// GetUserByUsername returns a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE username = ?`, username))
}

// GetUserByEmail returns a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE email = ?`, email))
}

// ListUsersByRole lists users holding the given role.
func (r *Repository) ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, userSelect+` WHERE role = ? ORDER BY username ASC`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// CreateProduct creates a product row.
func (r *Repository) CreateProduct(ctx context.Context, p domain.Product) error {
	imagesJSON, err := json.Marshal(orEmptySlice(p.Images))
	if err != nil {
		return fmt.Errorf("encode product images: %w", err)
	}
	metadataJSON, err := json.Marshal(orEmptyMap(p.Metadata))
	if err != nil {
		return fmt.Errorf("encode product metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products(id, title, description, vendor, order_number, sku, price, category, images_json, metadata_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, p.Description, p.Vendor, p.OrderNumber, p.SKU, p.Price, p.Category, string(imagesJSON), string(metadataJSON), ts(p.CreatedAt), ts(p.UpdatedAt))
	return err
}

// GetProduct returns a product by id.
func (r *Repository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx, productSelect+` WHERE id = ?`, id))
}

// UpdateProduct updates the mutable product fields.
func (r *Repository) UpdateProduct(ctx context.Context, p domain.Product) error {
	imagesJSON, err := json.Marshal(orEmptySlice(p.Images))
	if err != nil {
		return fmt.Errorf("encode product images: %w", err)
	}
	metadataJSON, err := json.Marshal(orEmptyMap(p.Metadata))
	if err != nil {
		return fmt.Errorf("encode product metadata: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET title = ?, description = ?, vendor = ?, order_number = ?, sku = ?, price = ?, category = ?, images_json = ?, metadata_json = ?, updated_at = ?
		WHERE id = ?
	`, p.Title, p.Description, p.Vendor, p.OrderNumber, p.SKU, p.Price, p.Category, string(imagesJSON), string(metadataJSON), ts(p.UpdatedAt), p.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// CreateTask inserts the task together with its TASK_CREATED audit entry in
// one transaction, so a task row never exists without its creation record.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task, entry domain.AuditEntry) error {
	checklistJSON, err := json.Marshal(orEmptyBoolMap(t.Checklist))
	if err != nil {
		return fmt.Errorf("encode task checklist: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks(
			id, product_id, title, status, priority, assigned_to, created_by, received_date,
			assigned_at, started_at, completed_at, published_at, sla_deadline, notes, checklist_json,
			lead_time_minutes, cycle_time_minutes, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		t.ProductID,
		t.Title,
		string(t.Status),
		string(t.Priority),
		t.AssignedTo,
		t.CreatedBy,
		ts(t.ReceivedDate),
		nullableTS(t.AssignedAt),
		nullableTS(t.StartedAt),
		nullableTS(t.CompletedAt),
		nullableTS(t.PublishedAt),
		ts(t.SLADeadline),
		t.Notes,
		string(checklistJSON),
		nullableInt(t.LeadTimeMinutes),
		nullableInt(t.CycleTimeMinutes),
		ts(t.CreatedAt),
		ts(t.UpdatedAt),
	)
	if err != nil {
		return err
	}

	if err = insertAuditEntry(ctx, tx, entry); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// GetTask returns a task by id.
func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return getTaskByID(ctx, r.db, id)
}

// GetTaskByProduct returns the task owning the given product.
func (r *Repository) GetTaskByProduct(ctx context.Context, productID string) (domain.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, taskSelect+` WHERE product_id = ?`, productID))
}

// ListTasks lists tasks matching the filter, newest first.
func (r *Repository) ListTasks(ctx context.Context, filter app.TaskFilter) ([]domain.Task, error) {
	query := taskSelect
	conditions := []string{}
	args := []any{}
	if filter.Status != "" {
		conditions = append(conditions, `status = ?`)
		args = append(args, string(filter.Status))
	}
	if filter.AssignedTo != "" {
		conditions = append(conditions, `assigned_to = ?`)
		args = append(args, filter.AssignedTo)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, `created_by = ?`)
		args = append(args, filter.CreatedBy)
	}
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// UpdateTask updates the plain-edit fields. Status, stamps, and metrics go
// through TransitionTask only.
func (r *Repository) UpdateTask(ctx context.Context, t domain.Task) error {
	checklistJSON, err := json.Marshal(orEmptyBoolMap(t.Checklist))
	if err != nil {
		return fmt.Errorf("encode task checklist: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, priority = ?, assigned_to = ?, notes = ?, checklist_json = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, string(t.Priority), t.AssignedTo, t.Notes, string(checklistJSON), ts(t.UpdatedAt), t.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// TransitionTask runs decide against the row read inside one transaction and
// applies the resulting task state and audit entry atomically. Concurrent
// transitions on the same task serialize on the database write lock, and the
// appended entry always reflects the row the deciding writer actually read.
func (r *Repository) TransitionTask(ctx context.Context, id string, decide app.TransitionFunc) (domain.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cur, err := getTaskByID(ctx, tx, id)
	if err != nil {
		return domain.Task{}, err
	}

	next, entry, err := decide(cur)
	if err != nil {
		return domain.Task{}, err
	}

	checklistJSON, err := json.Marshal(orEmptyBoolMap(next.Checklist))
	if err != nil {
		return domain.Task{}, fmt.Errorf("encode task checklist: %w", err)
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, assigned_at = ?, started_at = ?, completed_at = ?, published_at = ?,
		    lead_time_minutes = ?, cycle_time_minutes = ?, checklist_json = ?, updated_at = ?
		WHERE id = ?
	`,
		string(next.Status),
		nullableTS(next.AssignedAt),
		nullableTS(next.StartedAt),
		nullableTS(next.CompletedAt),
		nullableTS(next.PublishedAt),
		nullableInt(next.LeadTimeMinutes),
		nullableInt(next.CycleTimeMinutes),
		string(checklistJSON),
		ts(next.UpdatedAt),
		next.ID,
	)
	if err != nil {
		return domain.Task{}, err
	}
	if err = translateNoRows(res); err != nil {
		return domain.Task{}, err
	}

	if err = insertAuditEntry(ctx, tx, entry); err != nil {
		return domain.Task{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return next, nil
}

// ListTaskAuditEntries lists one task's audit trail, newest first.
func (r *Repository) ListTaskAuditEntries(ctx context.Context, taskID string) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, auditSelect+` WHERE task_id = ? ORDER BY created_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

// ListRecentAuditEntries lists the newest entries across all tasks.
func (r *Repository) ListRecentAuditEntries(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.db.QueryContext(ctx, auditSelect+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

// CreateNotification creates a notification row.
func (r *Repository) CreateNotification(ctx context.Context, n domain.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications(id, user_id, task_id, title, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.TaskID, n.Title, n.Message, boolToInt(n.Read), ts(n.CreatedAt))
	return err
}

// ListUserNotifications lists a user's newest notifications.
func (r *Repository) ListUserNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, task_id, title, message, read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Notification{}
	for rows.Next() {
		var (
			n          domain.Notification
			readRaw    int
			createdRaw string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.TaskID, &n.Title, &n.Message, &readRaw, &createdRaw); err != nil {
			return nil, err
		}
		n.Read = readRaw != 0
		n.CreatedAt = parseTS(createdRaw)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flips one notification to read.
func (r *Repository) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// CreatePublishMapping records an external publish.
func (r *Repository) CreatePublishMapping(ctx context.Context, m domain.PublishMapping) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO publish_mappings(id, product_id, external_id, handle, status, published_at, last_sync_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.ProductID, m.ExternalID, m.Handle, m.Status, ts(m.PublishedAt), ts(m.LastSyncAt))
	return err
}

// GetPublishMapping returns the mapping for a product.
func (r *Repository) GetPublishMapping(ctx context.Context, productID string) (domain.PublishMapping, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, external_id, handle, status, published_at, last_sync_at
		FROM publish_mappings
		WHERE product_id = ?
	`, productID)
	var (
		m            domain.PublishMapping
		publishedRaw string
		syncRaw      string
	)
	if err := row.Scan(&m.ID, &m.ProductID, &m.ExternalID, &m.Handle, &m.Status, &publishedRaw, &syncRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PublishMapping{}, app.ErrNotFound
		}
		return domain.PublishMapping{}, err
	}
	m.PublishedAt = parseTS(publishedRaw)
	m.LastSyncAt = parseTS(syncRaw)
	return m, nil
}

const userSelect = `
	SELECT id, username, email, password_hash, role, first_name, last_name, created_at, updated_at
	FROM users`

const productSelect = `
	SELECT id, title, description, vendor, order_number, sku, price, category, images_json, metadata_json, created_at, updated_at
	FROM products`

const taskSelect = `
	SELECT
		id, product_id, title, status, priority, assigned_to, created_by, received_date,
		assigned_at, started_at, completed_at, published_at, sla_deadline, notes, checklist_json,
		lead_time_minutes, cycle_time_minutes, created_at, updated_at
	FROM tasks`

const auditSelect = `
	SELECT id, task_id, user_id, action, from_status, to_status, details_json, created_at
	FROM audit_log`

// queryRower represents a query-only DB contract used by DB and Tx implementations.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func getTaskByID(ctx context.Context, q queryRower, id string) (domain.Task, error) {
	return scanTask(q.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, id))
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// insertAuditEntry appends an audit record inside the caller's transaction.
func insertAuditEntry(ctx context.Context, execer execerContext, entry domain.AuditEntry) error {
	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO audit_log(id, task_id, user_id, action, from_status, to_status, details_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.TaskID,
		entry.UserID,
		string(entry.Action),
		nullableStatus(entry.FromStatus),
		nullableStatus(entry.ToStatus),
		string(detailsJSON),
		ts(entry.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (domain.User, error) {
	var (
		u          domain.User
		role       string
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.FirstName, &u.LastName, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, app.ErrNotFound
		}
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.CreatedAt = parseTS(createdRaw)
	u.UpdatedAt = parseTS(updatedRaw)
	return u, nil
}

func scanProduct(s scanner) (domain.Product, error) {
	var (
		p           domain.Product
		imagesRaw   string
		metadataRaw string
		createdRaw  string
		updatedRaw  string
	)
	if err := s.Scan(&p.ID, &p.Title, &p.Description, &p.Vendor, &p.OrderNumber, &p.SKU, &p.Price, &p.Category, &imagesRaw, &metadataRaw, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, app.ErrNotFound
		}
		return domain.Product{}, err
	}
	if err := json.Unmarshal([]byte(imagesRaw), &p.Images); err != nil {
		return domain.Product{}, fmt.Errorf("decode images_json: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataRaw), &p.Metadata); err != nil {
		return domain.Product{}, fmt.Errorf("decode metadata_json: %w", err)
	}
	p.CreatedAt = parseTS(createdRaw)
	p.UpdatedAt = parseTS(updatedRaw)
	return p, nil
}

func scanTask(s scanner) (domain.Task, error) {
	var (
		t            domain.Task
		status       string
		priority     string
		receivedRaw  string
		assignedRaw  sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		publishedRaw sql.NullString
		slaRaw       string
		checklistRaw string
		leadRaw      sql.NullInt64
		cycleRaw     sql.NullInt64
		createdRaw   string
		updatedRaw   string
	)
	if err := s.Scan(
		&t.ID,
		&t.ProductID,
		&t.Title,
		&status,
		&priority,
		&t.AssignedTo,
		&t.CreatedBy,
		&receivedRaw,
		&assignedRaw,
		&startedRaw,
		&completedRaw,
		&publishedRaw,
		&slaRaw,
		&t.Notes,
		&checklistRaw,
		&leadRaw,
		&cycleRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, app.ErrNotFound
		}
		return domain.Task{}, err
	}
	t.Status = domain.Status(status)
	t.Priority = domain.Priority(priority)
	t.ReceivedDate = parseTS(receivedRaw)
	t.AssignedAt = parseNullTS(assignedRaw)
	t.StartedAt = parseNullTS(startedRaw)
	t.CompletedAt = parseNullTS(completedRaw)
	t.PublishedAt = parseNullTS(publishedRaw)
	t.SLADeadline = parseTS(slaRaw)
	if err := json.Unmarshal([]byte(checklistRaw), &t.Checklist); err != nil {
		return domain.Task{}, fmt.Errorf("decode checklist_json: %w", err)
	}
	t.LeadTimeMinutes = parseNullInt(leadRaw)
	t.CycleTimeMinutes = parseNullInt(cycleRaw)
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	return t, nil
}

func collectAuditEntries(rows *sql.Rows) ([]domain.AuditEntry, error) {
	out := []domain.AuditEntry{}
	for rows.Next() {
		var (
			entry      domain.AuditEntry
			action     string
			fromRaw    sql.NullString
			toRaw      sql.NullString
			detailsRaw string
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.UserID, &action, &fromRaw, &toRaw, &detailsRaw, &createdRaw); err != nil {
			return nil, err
		}
		entry.Action = domain.AuditAction(action)
		entry.FromStatus = parseNullStatus(fromRaw)
		entry.ToStatus = parseNullStatus(toRaw)
		if strings.TrimSpace(detailsRaw) == "" {
			detailsRaw = "{}"
		}
		if err := json.Unmarshal([]byte(detailsRaw), &entry.Details); err != nil {
			return nil, fmt.Errorf("decode details_json: %w", err)
		}
		entry.Timestamp = parseTS(createdRaw)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableStatus(s *domain.Status) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}

func parseNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func parseNullStatus(v sql.NullString) *domain.Status {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	s := domain.Status(v.String)
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func orEmptySlice(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func orEmptyMap(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	return in
}

func orEmptyBoolMap(in map[string]bool) map[string]bool {
	if in == nil {
		return map[string]bool{}
	}
	return in
}
