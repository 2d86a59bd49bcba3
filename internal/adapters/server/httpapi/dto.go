package httpapi

import (
	"time"

	"github.com/hylla/intag/internal/domain"
)

type taskDTO struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	Title            string          `json:"title"`
	Status           string          `json:"status"`
	Priority         string          `json:"priority"`
	AssignedTo       string          `json:"assigned_to,omitempty"`
	CreatedBy        string          `json:"created_by"`
	ReceivedDate     string          `json:"received_date"`
	AssignedAt       *string         `json:"assigned_at,omitempty"`
	StartedAt        *string         `json:"started_at,omitempty"`
	CompletedAt      *string         `json:"completed_at,omitempty"`
	PublishedAt      *string         `json:"published_at,omitempty"`
	SLADeadline      string          `json:"sla_deadline"`
	Notes            string          `json:"notes,omitempty"`
	Checklist        map[string]bool `json:"checklist,omitempty"`
	LeadTimeMinutes  *int            `json:"lead_time_minutes,omitempty"`
	CycleTimeMinutes *int            `json:"cycle_time_minutes,omitempty"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

func taskToDTO(t domain.Task) taskDTO {
	return taskDTO{
		ID:               t.ID,
		ProductID:        t.ProductID,
		Title:            t.Title,
		Status:           string(t.Status),
		Priority:         string(t.Priority),
		AssignedTo:       t.AssignedTo,
		CreatedBy:        t.CreatedBy,
		ReceivedDate:     stamp(t.ReceivedDate),
		AssignedAt:       stampPtr(t.AssignedAt),
		StartedAt:        stampPtr(t.StartedAt),
		CompletedAt:      stampPtr(t.CompletedAt),
		PublishedAt:      stampPtr(t.PublishedAt),
		SLADeadline:      stamp(t.SLADeadline),
		Notes:            t.Notes,
		Checklist:        t.Checklist,
		LeadTimeMinutes:  t.LeadTimeMinutes,
		CycleTimeMinutes: t.CycleTimeMinutes,
		CreatedAt:        stamp(t.CreatedAt),
		UpdatedAt:        stamp(t.UpdatedAt),
	}
}

type productDTO struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Vendor      string            `json:"vendor"`
	OrderNumber string            `json:"order_number,omitempty"`
	SKU         string            `json:"sku,omitempty"`
	Price       string            `json:"price,omitempty"`
	Category    string            `json:"category,omitempty"`
	Images      []string          `json:"images,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

func productToDTO(p domain.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Vendor:      p.Vendor,
		OrderNumber: p.OrderNumber,
		SKU:         p.SKU,
		Price:       p.Price,
		Category:    p.Category,
		Images:      p.Images,
		Metadata:    p.Metadata,
		CreatedAt:   stamp(p.CreatedAt),
		UpdatedAt:   stamp(p.UpdatedAt),
	}
}

type auditDTO struct {
	ID         string              `json:"id"`
	TaskID     string              `json:"task_id"`
	UserID     string              `json:"user_id"`
	Action     string              `json:"action"`
	FromStatus *string             `json:"from_status,omitempty"`
	ToStatus   *string             `json:"to_status,omitempty"`
	Details    domain.AuditDetails `json:"details"`
	Timestamp  string              `json:"timestamp"`
}

func auditToDTOs(entries []domain.AuditEntry) []auditDTO {
	out := make([]auditDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, auditDTO{
			ID:         entry.ID,
			TaskID:     entry.TaskID,
			UserID:     entry.UserID,
			Action:     string(entry.Action),
			FromStatus: statusPtr(entry.FromStatus),
			ToStatus:   statusPtr(entry.ToStatus),
			Details:    entry.Details,
			Timestamp:  stamp(entry.Timestamp),
		})
	}
	return out
}

type notificationDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	TaskID    string `json:"task_id,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

func notificationToDTO(n domain.Notification) notificationDTO {
	return notificationDTO{
		ID:        n.ID,
		UserID:    n.UserID,
		TaskID:    n.TaskID,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: stamp(n.CreatedAt),
	}
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func stampPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := stamp(*t)
	return &s
}

func statusPtr(s *domain.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
