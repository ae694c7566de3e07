package tenant

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user/plugin-gateway/internal/domain"
)

func testResolver(keys map[string]string) *Resolver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewResolver(NewRegistry(keys), logger)
}

func TestExtractPrecedence(t *testing.T) {
	t.Run("body tenant id beats header tenant id", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/plugin/events", strings.NewReader(`{"tenantId":"body-tenant"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(TenantIDHeader, "header-tenant")

		ext := Extract(req)
		if ext.TenantID != "body-tenant" {
			t.Errorf("TenantID = %q, want body-tenant", ext.TenantID)
		}
	})

	t.Run("query beats header for api key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/plugin/events?apiKey=query-key", nil)
		req.Header.Set(APIKeyHeader, "header-key")

		ext := Extract(req)
		if ext.APIKey != "query-key" {
			t.Errorf("APIKey = %q, want query-key", ext.APIKey)
		}
	})
}

func TestExtractCookieFallback(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/plugin/events", nil)
	req.Header.Set("Cookie", TenantIDCookie+"=cookie-tenant")

	ext := Extract(req)
	if ext.TenantID != "cookie-tenant" {
		t.Errorf("TenantID = %q, want cookie-tenant", ext.TenantID)
	}
	if ext.Sources.CookieTenantID != "cookie-tenant" {
		t.Errorf("cookie source not traced: %+v", ext.Sources)
	}
}

func TestExtractRestoresBody(t *testing.T) {
	body := `{"apiKey":"k1","title":"event"}`
	req := httptest.NewRequest("POST", "/api/v1/plugin/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	ext := Extract(req)
	if ext.APIKey != "k1" {
		t.Fatalf("APIKey = %q, want k1", ext.APIKey)
	}

	restored, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("reading restored body: %v", err)
	}
	if string(restored) != body {
		t.Errorf("body not restored: got %q want %q", restored, body)
	}
}

func TestExtractTracesAllSources(t *testing.T) {
	req := httptest.NewRequest("POST", "/x?apiKey=qk&tenantId=qt", strings.NewReader(`{"apiKey":"bk","tenantId":"bt"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, "hk")
	req.Header.Set(TenantIDHeader, "ht")
	req.Header.Set("Cookie", TenantIDCookie+"=ct")

	ext := Extract(req)
	want := domain.TenantSources{
		QueryAPIKey: "qk", BodyAPIKey: "bk", HeaderAPIKey: "hk",
		QueryTenantID: "qt", BodyTenantID: "bt", HeaderTenantID: "ht", CookieTenantID: "ct",
	}
	if ext.Sources != want {
		t.Errorf("sources = %+v, want %+v", ext.Sources, want)
	}
	if ext.APIKey != "bk" || ext.TenantID != "bt" {
		t.Errorf("winners = (%q, %q), want (bk, bt)", ext.APIKey, ext.TenantID)
	}
}

func TestResolve(t *testing.T) {
	resolver := testResolver(map[string]string{"key-1": "tenant-1"})

	tests := []struct {
		name       string
		ext        domain.TenantExtraction
		wantTenant string
		wantErr    bool
	}{
		{
			name:       "explicit tenant id wins over api key",
			ext:        domain.TenantExtraction{TenantID: "tenant-9", APIKey: "key-1"},
			wantTenant: "tenant-9",
		},
		{
			name:       "api key resolves through registry",
			ext:        domain.TenantExtraction{APIKey: "key-1"},
			wantTenant: "tenant-1",
		},
		{
			name:    "unknown api key fails",
			ext:     domain.TenantExtraction{APIKey: "nope"},
			wantErr: true,
		},
		{
			name:    "nothing extracted fails",
			ext:     domain.TenantExtraction{},
			wantErr: true,
		},
		{
			name:       "malformed tenant id falls back to api key",
			ext:        domain.TenantExtraction{TenantID: "bad tenant!", APIKey: "key-1"},
			wantTenant: "tenant-1",
		},
		{
			name:    "malformed tenant id with no api key fails",
			ext:     domain.TenantExtraction{TenantID: strings.Repeat("x", 65)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenantID, err := resolver.Resolve(tt.ext)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error, got nil")
				}
				appErr, ok := domain.AsError(err)
				if !ok || appErr.Code != domain.CodeMissingTenant {
					t.Errorf("expected missing_tenant, got %v", err)
				}
				if ok && appErr.Status != 400 {
					t.Errorf("status = %d, want 400", appErr.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if tenantID != tt.wantTenant {
				t.Errorf("tenantID = %q, want %q", tenantID, tt.wantTenant)
			}
		})
	}
}

func TestRegistryMergeOrder(t *testing.T) {
	dbRows := map[string]string{"key-1": "db-tenant", "key-2": "tenant-2"}
	configEntries := map[string]string{"key-1": "override-tenant"}

	registry := NewRegistry(dbRows, configEntries)
	if got, _ := registry.Lookup("key-1"); got != "override-tenant" {
		t.Errorf("Lookup(key-1) = %q, want override-tenant", got)
	}
	if got, _ := registry.Lookup("key-2"); got != "tenant-2" {
		t.Errorf("Lookup(key-2) = %q, want tenant-2", got)
	}
	if _, ok := registry.Lookup("absent"); ok {
		t.Error("unmapped key should not resolve")
	}
}
