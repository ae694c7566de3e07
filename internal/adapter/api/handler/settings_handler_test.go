package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/user/plugin-gateway/internal/adapter/api/middleware"
	"github.com/user/plugin-gateway/internal/adapter/metrics"
	"github.com/user/plugin-gateway/internal/adapter/notifier"
	"github.com/user/plugin-gateway/internal/domain"
	"github.com/user/plugin-gateway/internal/domain/mocks"
	"github.com/user/plugin-gateway/internal/usecase"
)

// stubFlags serves a fixed snapshot without touching any store.
type stubFlags struct {
	snap domain.FlagSnapshot
}

func (s *stubFlags) Snapshot(ctx context.Context) domain.FlagSnapshot { return s.snap }

func allFlagsEnabled() domain.FlagSnapshot {
	snap := make(domain.FlagSnapshot, len(domain.KnownFlagKeys))
	for _, key := range domain.KnownFlagKeys {
		snap[key] = domain.FlagState{Enabled: true}
	}
	return snap
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSettingsFixture(flags usecase.FlagProvider) (*usecase.SettingsService, *mocks.MockPreferencesRepository) {
	prefsRepo := mocks.NewMockPreferencesRepository()
	svc := usecase.NewSettingsService(
		prefsRepo,
		&mocks.MockDeletionJobRepository{},
		mocks.NewMockExportRepository(),
		flags,
		notifier.NewSlogNotifier(testLogger()),
		testLogger(),
		metrics.NewGatewayMetrics(prometheus.NewRegistry()),
		7*24*time.Hour,
		"http://localhost:8080",
	)
	return svc, prefsRepo
}

// settingsRouter mirrors the production route layout, with a fixed identity
// injected instead of bearer auth.
func settingsRouter(h *SettingsHandler, identity domain.Identity) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithIdentity(req.Context(), identity)))
		})
	})
	r.Get("/api/v1/settings", h.Get)
	r.Put("/api/v1/settings", h.Put)
	r.Patch("/api/v1/settings", h.Patch)
	r.Post("/api/v1/settings/delete", h.ScheduleDeletion)
	r.Post("/api/v1/settings/export", h.Export)
	r.Get("/api/v1/settings/export/{token}", h.FetchExport)
	return r
}

func TestSettingsHandlerGetReturnsDefaults(t *testing.T) {
	svc, prefsRepo := newSettingsFixture(&stubFlags{snap: allFlagsEnabled()})
	h := NewSettingsHandler(svc, testLogger(), false)
	router := settingsRouter(h, domain.Identity{ID: "user-1", Email: "pat@example.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rr.Code, rr.Body.String())
	}

	var prefs domain.UserPreferences
	if err := json.Unmarshal(rr.Body.Bytes(), &prefs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if prefs.DisplayName != "pat" {
		t.Errorf("displayName = %q, want %q", prefs.DisplayName, "pat")
	}
	if prefs.RadiusKm != 10 {
		t.Errorf("radiusKm = %d, want 10", prefs.RadiusKm)
	}
	if prefsRepo.Saves != 0 {
		t.Errorf("first read persisted %d documents, want 0", prefsRepo.Saves)
	}
}

func TestSettingsHandlerFeatureGate(t *testing.T) {
	snap := allFlagsEnabled()
	snap[domain.FlagSettingsUI] = domain.FlagState{Enabled: false}
	svc, _ := newSettingsFixture(&stubFlags{snap: snap})
	h := NewSettingsHandler(svc, testLogger(), false)
	router := settingsRouter(h, domain.Identity{ID: "user-1"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error != "feature_disabled" {
		t.Errorf("error code = %q, want %q", envelope.Error, "feature_disabled")
	}
}

func TestSettingsHandlerPut(t *testing.T) {
	svc, _ := newSettingsFixture(&stubFlags{snap: allFlagsEnabled()})
	h := NewSettingsHandler(svc, testLogger(), false)
	router := settingsRouter(h, domain.Identity{ID: "user-1", Email: "pat@example.com"})

	doc := domain.DefaultPreferences(domain.Identity{ID: "user-1", Email: "pat@example.com"})
	doc.RadiusKm = 25
	body, _ := json.Marshal(doc)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rr.Code, rr.Body.String())
	}
	var saved domain.UserPreferences
	if err := json.Unmarshal(rr.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if saved.RadiusKm != 25 {
		t.Errorf("radiusKm = %d, want 25", saved.RadiusKm)
	}
}

func TestSettingsHandlerPutValidation(t *testing.T) {
	svc, prefsRepo := newSettingsFixture(&stubFlags{snap: allFlagsEnabled()})
	h := NewSettingsHandler(svc, testLogger(), false)
	router := settingsRouter(h, domain.Identity{ID: "user-1"})

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed JSON", body: `{"radiusKm": `},
		{name: "out of range radius", body: `{"radiusKm": 500, "spontaneity": "medium", "matchStrictness": "medium", "locationSharing": "off", "transportPreference": "walk", "profileVisibility": "friends"}`},
		{name: "bad enum", body: `{"radiusKm": 10, "spontaneity": "extreme", "matchStrictness": "medium", "locationSharing": "off", "transportPreference": "walk", "profileVisibility": "friends"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body: %s", rr.Code, rr.Body.String())
			}
			var envelope struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			if envelope.Error != "invalid_payload" {
				t.Errorf("error code = %q, want %q", envelope.Error, "invalid_payload")
			}
		})
	}

	if prefsRepo.Saves != 0 {
		t.Errorf("rejected writes persisted %d documents, want 0", prefsRepo.Saves)
	}
}

func TestSettingsHandlerPatch(t *testing.T) {
	svc, _ := newSettingsFixture(&stubFlags{snap: allFlagsEnabled()})
	h := NewSettingsHandler(svc, testLogger(), false)
	router := settingsRouter(h, domain.Identity{ID: "user-1", Email: "pat@example.com"})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/settings", bytes.NewBufferString(`{"radiusKm": 42}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rr.Code, rr.Body.String())
	}
	var prefs domain.UserPreferences
	if err := json.Unmarshal(rr.Body.Bytes(), &prefs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if prefs.RadiusKm != 42 {
		t.Errorf("radiusKm = %d, want 42", prefs.RadiusKm)
	}
	// Untouched fields keep their defaults.
	if prefs.TransportPreference != "walk" {
		t.Errorf("transportPreference = %q, want %q", prefs.TransportPreference, "walk")
	}
}

func TestSettingsHandlerScheduleDeletion(t *testing.T) {
	svc, _ := newSettingsFixture(&stubFlags{snap: allFlagsEnabled()})
	h := NewSettingsHandler(svc, testLogger(), false)
	router := settingsRouter(h, domain.Identity{ID: "user-1"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/settings/delete", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body: %s", rr.Code, rr.Body.String())
	}
	var job domain.DeletionJob
	if err := json.Unmarshal(rr.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.ID == "" {
		t.Error("job id is empty")
	}
	if job.Status != "scheduled" {
		t.Errorf("job status = %q, want %q", job.Status, "scheduled")
	}
}

func TestSettingsHandlerExportLifecycle(t *testing.T) {
	svc, _ := newSettingsFixture(&stubFlags{snap: allFlagsEnabled()})
	h := NewSettingsHandler(svc, testLogger(), false)
	router := settingsRouter(h, domain.Identity{ID: "user-1", Email: "pat@example.com"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/settings/export", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("export status = %d, want 201, body: %s", rr.Code, rr.Body.String())
	}
	var result usecase.ExportResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode export result: %v", err)
	}
	if result.DownloadURL == "" {
		t.Fatal("download URL is empty")
	}

	// The URL is absolute; strip the base to route it through the test mux.
	path := result.DownloadURL[len("http://localhost:8080"):]

	fetch := httptest.NewRequest(http.MethodGet, path, nil)
	fetchRR := httptest.NewRecorder()
	router.ServeHTTP(fetchRR, fetch)
	if fetchRR.Code != http.StatusOK {
		t.Fatalf("fetch status = %d, want 200, body: %s", fetchRR.Code, fetchRR.Body.String())
	}

	// Second fetch: the token is consumed.
	again := httptest.NewRequest(http.MethodGet, path, nil)
	againRR := httptest.NewRecorder()
	router.ServeHTTP(againRR, again)
	if againRR.Code != http.StatusNotFound {
		t.Fatalf("second fetch status = %d, want 404", againRR.Code)
	}
}
