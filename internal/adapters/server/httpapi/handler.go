// Package httpapi provides the REST HTTP adapter for the workflow service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/intag/internal/app"
	"github.com/hylla/intag/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// actorHeader names the header carrying the acting user's id. Session
// management sits in front of this service; the header is trusted as-is.
const actorHeader = "X-Actor-ID"

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	service *app.Service
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs the HTTP API adapter over the workflow service.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	switch {
	case path == "dashboard/stats":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleDashboardStats(w, r)
	case path == "intakes":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleCreateIntake(w, r)
	case path == "tasks":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListTasks(w, r)
	case path == "audit":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleRecentAudit(w, r)
	case path == "notifications":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListNotifications(w, r)
	default:
		h.routeEntity(w, r, path)
	}
}

// routeEntity dispatches `tasks/{id}[/...]`, `products/{id}` and
// `notifications/{id}/read` paths.
func (h *Handler) routeEntity(w http.ResponseWriter, r *http.Request, path string) {
	switch {
	case strings.HasPrefix(path, "tasks/"):
		rest := strings.TrimPrefix(path, "tasks/")
		id, sub, _ := strings.Cut(rest, "/")
		if id == "" || strings.Contains(sub, "/") {
			writeNotFoundRoute(w)
			return
		}
		switch sub {
		case "":
			switch r.Method {
			case http.MethodGet:
				h.handleGetTask(w, r, id)
			case http.MethodPatch:
				h.handleUpdateTask(w, r, id)
			default:
				writeMethodNotAllowed(w, http.MethodGet, http.MethodPatch)
			}
		case "status":
			if r.Method != http.MethodPatch {
				writeMethodNotAllowed(w, http.MethodPatch)
				return
			}
			h.handleTransitionTask(w, r, id)
		case "audit":
			if r.Method != http.MethodGet {
				writeMethodNotAllowed(w, http.MethodGet)
				return
			}
			h.handleTaskAudit(w, r, id)
		default:
			writeNotFoundRoute(w)
		}
	case strings.HasPrefix(path, "products/"):
		id := strings.TrimPrefix(path, "products/")
		if id == "" || strings.Contains(id, "/") {
			writeNotFoundRoute(w)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleGetProduct(w, r, id)
		case http.MethodPatch:
			h.handleUpdateProduct(w, r, id)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPatch)
		}
	case strings.HasPrefix(path, "notifications/"):
		rest := strings.TrimPrefix(path, "notifications/")
		id, sub, _ := strings.Cut(rest, "/")
		if id == "" || sub != "read" {
			writeNotFoundRoute(w)
			return
		}
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleMarkNotificationRead(w, r, id)
	default:
		writeNotFoundRoute(w)
	}
}

// handleDashboardStats serves GET `/dashboard/stats`.
func (h *Handler) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	kanban := make(map[string]int, len(stats.KanbanCounts))
	for status, count := range stats.KanbanCounts {
		kanban[string(status)] = count
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_tasks":     stats.TotalTasks,
		"pending_review":  stats.PendingReview,
		"overdue_sla":     stats.OverdueSLA,
		"completed_today": stats.CompletedToday,
		"kanban_counts":   kanban,
	})
}

type createIntakeRequest struct {
	Product struct {
		Title       string            `json:"title"`
		Description string            `json:"description"`
		Vendor      string            `json:"vendor"`
		OrderNumber string            `json:"order_number"`
		SKU         string            `json:"sku"`
		Price       string            `json:"price"`
		Category    string            `json:"category"`
		Images      []string          `json:"images"`
		Metadata    map[string]string `json:"metadata"`
	} `json:"product"`
	Priority     string          `json:"priority"`
	AssignedTo   string          `json:"assigned_to"`
	ReceivedDate string          `json:"received_date"`
	Notes        string          `json:"notes"`
	Checklist    map[string]bool `json:"checklist"`
}

// handleCreateIntake serves POST `/intakes`.
func (h *Handler) handleCreateIntake(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req createIntakeRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}

	var received time.Time
	if strings.TrimSpace(req.ReceivedDate) != "" {
		parsed, err := time.Parse(time.RFC3339, req.ReceivedDate)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, APIError{
				Code:    "invalid_request",
				Message: "received_date must be RFC 3339",
			})
			return
		}
		received = parsed
	}

	product, task, err := h.service.CreateIntake(r.Context(), app.CreateIntakeInput{
		Product: domain.ProductInput{
			Title:       req.Product.Title,
			Description: req.Product.Description,
			Vendor:      req.Product.Vendor,
			OrderNumber: req.Product.OrderNumber,
			SKU:         req.Product.SKU,
			Price:       req.Product.Price,
			Category:    req.Product.Category,
			Images:      req.Product.Images,
			Metadata:    req.Product.Metadata,
		},
		Priority:     domain.Priority(req.Priority),
		AssignedTo:   req.AssignedTo,
		ReceivedDate: received,
		Notes:        req.Notes,
		Checklist:    req.Checklist,
		ActorID:      actorID,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"product": productToDTO(product),
		"task":    taskToDTO(task),
	})
}

// handleListTasks serves GET `/tasks`.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	filter := app.TaskFilter{
		Status:     domain.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
		AssignedTo: strings.TrimSpace(r.URL.Query().Get("assigned_to")),
		CreatedBy:  strings.TrimSpace(r.URL.Query().Get("created_by")),
	}
	if filter.Status != "" && !domain.IsValidStatus(filter.Status) {
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: fmt.Sprintf("unknown status %q", filter.Status),
		})
		return
	}
	tasks, err := h.service.ListTasks(r.Context(), filter, actorID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	dtos := make([]taskDTO, 0, len(tasks))
	for _, task := range tasks {
		dtos = append(dtos, taskToDTO(task))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": dtos})
}

// handleGetTask serves GET `/tasks/{id}`.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request, id string) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	task, err := h.service.GetTask(r.Context(), id, actorID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskToDTO(task))
}

type updateTaskRequest struct {
	Title      string          `json:"title"`
	Priority   string          `json:"priority"`
	AssignedTo string          `json:"assigned_to"`
	Notes      string          `json:"notes"`
	Checklist  map[string]bool `json:"checklist"`
}

// handleUpdateTask serves PATCH `/tasks/{id}` for plain edits. Status never
// changes here; it has its own endpoint.
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request, id string) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.service.UpdateTask(r.Context(), app.UpdateTaskInput{
		TaskID:     id,
		Title:      req.Title,
		Priority:   domain.Priority(req.Priority),
		AssignedTo: req.AssignedTo,
		Notes:      req.Notes,
		Checklist:  req.Checklist,
		ActorID:    actorID,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskToDTO(task))
}

type transitionRequest struct {
	Status string `json:"status"`
}

// handleTransitionTask serves PATCH `/tasks/{id}/status`.
func (h *Handler) handleTransitionTask(w http.ResponseWriter, r *http.Request, id string) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.service.TransitionTask(r.Context(), id, domain.Status(req.Status), actorID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskToDTO(task))
}

// handleTaskAudit serves GET `/tasks/{id}/audit`.
func (h *Handler) handleTaskAudit(w http.ResponseWriter, r *http.Request, id string) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	entries, err := h.service.GetTaskAuditLog(r.Context(), id, actorID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": auditToDTOs(entries)})
}

// handleRecentAudit serves GET `/audit`.
func (h *Handler) handleRecentAudit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	entries, err := h.service.ListRecentAuditEntries(r.Context(), actorID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": auditToDTOs(entries)})
}

// handleGetProduct serves GET `/products/{id}`.
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request, id string) {
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productToDTO(product))
}

type updateProductRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
}

// handleUpdateProduct serves PATCH `/products/{id}`.
func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request, id string) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req updateProductRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), app.UpdateProductInput{
		ProductID:   id,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ActorID:     actorID,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productToDTO(product))
}

// handleListNotifications serves GET `/notifications`.
func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSONError(w, http.StatusBadRequest, APIError{
				Code:    "invalid_request",
				Message: "limit must be a non-negative integer",
			})
			return
		}
		limit = parsed
	}
	notifications, err := h.service.ListNotifications(r.Context(), actorID, limit)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	dtos := make([]notificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, notificationToDTO(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": dtos})
}

// handleMarkNotificationRead serves POST `/notifications/{id}/read`.
func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	if err := h.service.MarkNotificationRead(r.Context(), id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"read": true})
}

// requireActor extracts the acting user id or writes a structured 401.
func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actorID := strings.TrimSpace(r.Header.Get(actorHeader))
	if actorID == "" {
		writeJSONError(w, http.StatusUnauthorized, APIError{
			Code:    "actor_required",
			Message: fmt.Sprintf("%s header is required", actorHeader),
		})
		return "", false
	}
	return actorID, true
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

var errInvalidRequestBody = errors.New("invalid request body")

// writeErrorFrom maps service and domain errors into structured HTTP
// responses. A rejected transition carries its valid-target set so clients
// can render the allowed moves.
func writeErrorFrom(w http.ResponseWriter, err error) {
	var transitionErr *domain.InvalidTransitionError
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.As(err, &transitionErr):
		valid := make([]string, 0, len(transitionErr.Valid))
		for _, status := range transitionErr.Valid {
			valid = append(valid, string(status))
		}
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "invalid_transition",
			Message: err.Error(),
			Context: map[string]any{
				"current":   string(transitionErr.From),
				"attempted": string(transitionErr.To),
				"valid":     valid,
			},
		})
	case errors.Is(err, app.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, app.ErrPermissionDenied):
		writeJSONError(w, http.StatusForbidden, APIError{
			Code:    "permission_denied",
			Message: err.Error(),
		})
	case errors.Is(err, app.ErrUsernameTaken), errors.Is(err, app.ErrEmailTaken):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "conflict",
			Message: err.Error(),
		})
	case errors.Is(err, errInvalidRequestBody),
		errors.Is(err, app.ErrInvalidPassword),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidVendor),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidRecipient),
		errors.Is(err, domain.ErrInvalidMessage):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeNotFoundRoute writes the structured 404 for unmatched routes.
func writeNotFoundRoute(w http.ResponseWriter) {
	writeJSONError(w, http.StatusNotFound, APIError{
		Code:    "not_found",
		Message: "endpoint not found",
	})
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(errInvalidRequestBody, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", errInvalidRequestBody)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
