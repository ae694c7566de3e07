package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	wrapped := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte("hello"))
		}
	}))

	lastLine := func(t *testing.T) map[string]any {
		t.Helper()
		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", buf.String(), err)
		}
		return entry
	}

	t.Run("logs status, bytes and duration at info", func(t *testing.T) {
		buf.Reset()
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/plugin/events", nil))

		entry := lastLine(t)
		if entry["level"] != "INFO" {
			t.Errorf("level = %v, want INFO", entry["level"])
		}
		if entry["status"] != float64(http.StatusOK) {
			t.Errorf("status = %v, want 200", entry["status"])
		}
		if entry["bytes"] != float64(len("hello")) {
			t.Errorf("bytes = %v, want %d", entry["bytes"], len("hello"))
		}
		if entry["path"] != "/api/v1/plugin/events" {
			t.Errorf("path = %v", entry["path"])
		}
	})

	t.Run("health probes log at debug", func(t *testing.T) {
		buf.Reset()
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		if entry := lastLine(t); entry["level"] != "DEBUG" {
			t.Errorf("level = %v, want DEBUG", entry["level"])
		}
	})

	t.Run("server errors log at warn", func(t *testing.T) {
		buf.Reset()
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

		entry := lastLine(t)
		if entry["level"] != "WARN" {
			t.Errorf("level = %v, want WARN", entry["level"])
		}
		if entry["status"] != float64(http.StatusInternalServerError) {
			t.Errorf("status = %v, want 500", entry["status"])
		}
	})
}
