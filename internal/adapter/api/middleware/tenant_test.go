package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user/plugin-gateway/internal/adapter/tenant"
)

func TestResolveTenant(t *testing.T) {
	registry := tenant.NewRegistry(map[string]string{"key-abc": "tenant-1"})
	resolver := tenant.NewResolver(registry, discardLogger())

	var seenTenant string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTenant, _ = TenantFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	wrapped := ResolveTenant(resolver, discardLogger(), nil)(next)

	t.Run("api key header resolves through registry", func(t *testing.T) {
		seenTenant = ""
		req := httptest.NewRequest(http.MethodGet, "/api/v1/plugin/events", nil)
		req.Header.Set("X-API-Key", "key-abc")
		rr := httptest.NewRecorder()

		wrapped.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		if seenTenant != "tenant-1" {
			t.Errorf("tenant = %q, want %q", seenTenant, "tenant-1")
		}
	})

	t.Run("explicit tenant id wins over api key", func(t *testing.T) {
		seenTenant = ""
		req := httptest.NewRequest(http.MethodGet, "/api/v1/plugin/events?tenantId=tenant-9", nil)
		req.Header.Set("X-API-Key", "key-abc")
		rr := httptest.NewRecorder()

		wrapped.ServeHTTP(rr, req)

		if seenTenant != "tenant-9" {
			t.Errorf("tenant = %q, want %q", seenTenant, "tenant-9")
		}
	})

	t.Run("no credentials rejects with envelope", func(t *testing.T) {
		seenTenant = ""
		req := httptest.NewRequest(http.MethodGet, "/api/v1/plugin/events", nil)
		rr := httptest.NewRecorder()

		wrapped.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "missing_tenant") {
			t.Errorf("body = %q, want missing_tenant code", rr.Body.String())
		}
		if seenTenant != "" {
			t.Errorf("handler ran with tenant %q, want rejection", seenTenant)
		}
	})
}
