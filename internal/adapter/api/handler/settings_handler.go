package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/plugin-gateway/internal/adapter/api/httpjson"
	"github.com/user/plugin-gateway/internal/adapter/api/middleware"
	"github.com/user/plugin-gateway/internal/domain"
	"github.com/user/plugin-gateway/internal/usecase"
)

// SettingsHandler exposes the settings lifecycle over HTTP. Every route
// runs behind BearerAuth; the user id always comes from the verified
// identity, never from the payload.
type SettingsHandler struct {
	svc           *usecase.SettingsService
	logger        *slog.Logger
	includeDetail bool
}

// NewSettingsHandler creates a new SettingsHandler. includeDetail exposes
// internal error messages in non-production builds.
func NewSettingsHandler(svc *usecase.SettingsService, logger *slog.Logger, includeDetail bool) *SettingsHandler {
	return &SettingsHandler{svc: svc, logger: logger, includeDetail: includeDetail}
}

// Get handles GET /api/v1/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpjson.WriteError(w, domain.Unauthorized("missing identity"), h.includeDetail)
		return
	}

	prefs, err := h.svc.Get(r.Context(), identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, prefs)
}

// Put handles PUT /api/v1/settings: full document replacement.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpjson.WriteError(w, domain.Unauthorized("missing identity"), h.includeDetail)
		return
	}

	var prefs domain.UserPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		httpjson.WriteError(w, domain.InvalidPayload([]domain.FieldError{
			{Path: "", Message: "malformed JSON body"},
		}), h.includeDetail)
		return
	}

	saved, err := h.svc.Replace(r.Context(), identity, prefs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, saved)
}

// Patch handles PATCH /api/v1/settings: merge-patch semantics.
func (h *SettingsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpjson.WriteError(w, domain.Unauthorized("missing identity"), h.includeDetail)
		return
	}

	var patch domain.PreferencesPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httpjson.WriteError(w, domain.InvalidPayload([]domain.FieldError{
			{Path: "", Message: "malformed JSON body"},
		}), h.includeDetail)
		return
	}

	saved, err := h.svc.Patch(r.Context(), identity, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, saved)
}

// ScheduleDeletion handles POST /api/v1/settings/delete. Responds 202: the
// job is scheduled, the full erasure happens later.
func (h *SettingsHandler) ScheduleDeletion(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpjson.WriteError(w, domain.Unauthorized("missing identity"), h.includeDetail)
		return
	}

	job, err := h.svc.ScheduleDeletion(r.Context(), identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, job)
}

// Export handles POST /api/v1/settings/export. Responds 201 with the job id
// and the single-use download link.
func (h *SettingsHandler) Export(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpjson.WriteError(w, domain.Unauthorized("missing identity"), h.includeDetail)
		return
	}

	result, err := h.svc.Export(r.Context(), identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, result)
}

// FetchExport handles GET /api/v1/settings/export/{token}.
func (h *SettingsHandler) FetchExport(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpjson.WriteError(w, domain.Unauthorized("missing identity"), h.includeDetail)
		return
	}

	archive, err := h.svc.FetchExport(r.Context(), identity, chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, archive)
}

func (h *SettingsHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := domain.AsError(err); !ok || appErr.Code == domain.CodeUnexpected {
		h.logger.Error("settings operation failed", "error", err, "path", r.URL.Path)
	}
	httpjson.WriteError(w, err, h.includeDetail)
}
