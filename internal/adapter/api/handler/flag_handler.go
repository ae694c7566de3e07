package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/plugin-gateway/internal/adapter/api/httpjson"
	"github.com/user/plugin-gateway/internal/domain"
	"github.com/user/plugin-gateway/internal/usecase"
)

// FlagHandler exposes the feature flag admin routes. These are mounted on
// the admin listener, not the public API.
type FlagHandler struct {
	svc    *usecase.FlagService
	logger *slog.Logger
}

func NewFlagHandler(svc *usecase.FlagService, logger *slog.Logger) *FlagHandler {
	return &FlagHandler{svc: svc, logger: logger}
}

// List handles GET /flags: the full flag snapshot. Snapshot fails open, so
// this never errors.
func (h *FlagHandler) List(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, h.svc.Snapshot(r.Context()))
}

// Get handles GET /flags/{key}.
func (h *FlagHandler) Get(w http.ResponseWriter, r *http.Request) {
	flag, err := h.svc.GetFlag(r.Context(), domain.FlagKey(chi.URLParam(r, "key")))
	if err != nil {
		httpjson.WriteError(w, err, true)
		return
	}
	httpjson.Write(w, http.StatusOK, flag)
}

type setFlagRequest struct {
	Enabled bool            `json:"enabled"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Set handles PUT /flags/{key}: toggling a flag and optionally replacing its
// payload. Toggles never fail open.
func (h *FlagHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, domain.InvalidPayload([]domain.FieldError{
			{Path: "", Message: "malformed JSON body"},
		}), true)
		return
	}

	key := domain.FlagKey(chi.URLParam(r, "key"))
	if err := h.svc.SetFlag(r.Context(), key, req.Enabled, req.Payload); err != nil {
		httpjson.WriteError(w, err, true)
		return
	}

	flag, err := h.svc.GetFlag(r.Context(), key)
	if err != nil {
		httpjson.WriteError(w, err, true)
		return
	}
	httpjson.Write(w, http.StatusOK, flag)
}
