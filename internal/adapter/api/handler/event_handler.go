package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/plugin-gateway/internal/adapter/api/httpjson"
	"github.com/user/plugin-gateway/internal/adapter/api/middleware"
	"github.com/user/plugin-gateway/internal/domain"
	"github.com/user/plugin-gateway/internal/usecase"
)

// EventHandler exposes the plugin event CRUD routes. The tenant id always
// comes from the resolution middleware.
type EventHandler struct {
	svc           *usecase.EventService
	logger        *slog.Logger
	includeDetail bool
}

func NewEventHandler(svc *usecase.EventService, logger *slog.Logger, includeDetail bool) *EventHandler {
	return &EventHandler{svc: svc, logger: logger, includeDetail: includeDetail}
}

// Create handles POST /api/v1/plugin/events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httpjson.WriteError(w, domain.MissingTenant(), h.includeDetail)
		return
	}

	var input usecase.EventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpjson.WriteError(w, domain.InvalidPayload([]domain.FieldError{
			{Path: "", Message: "malformed JSON body"},
		}), h.includeDetail)
		return
	}

	event, err := h.svc.Create(r.Context(), tenantID, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, event)
}

// List handles GET /api/v1/plugin/events.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httpjson.WriteError(w, domain.MissingTenant(), h.includeDetail)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	events, err := h.svc.List(r.Context(), tenantID, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, events)
}

// Get handles GET /api/v1/plugin/events/{id}.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httpjson.WriteError(w, domain.MissingTenant(), h.includeDetail)
		return
	}

	event, err := h.svc.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, event)
}

// Update handles PUT /api/v1/plugin/events/{id}.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httpjson.WriteError(w, domain.MissingTenant(), h.includeDetail)
		return
	}

	var input usecase.EventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpjson.WriteError(w, domain.InvalidPayload([]domain.FieldError{
			{Path: "", Message: "malformed JSON body"},
		}), h.includeDetail)
		return
	}

	event, err := h.svc.Update(r.Context(), tenantID, chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, event)
}

// Delete handles DELETE /api/v1/plugin/events/{id}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httpjson.WriteError(w, domain.MissingTenant(), h.includeDetail)
		return
	}

	if err := h.svc.Delete(r.Context(), tenantID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := domain.AsError(err); !ok || appErr.Code == domain.CodeUnexpected {
		h.logger.Error("event operation failed", "error", err, "path", r.URL.Path)
	}
	httpjson.WriteError(w, err, h.includeDetail)
}
