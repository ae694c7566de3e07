// Package tenant extracts API keys and tenant identifiers from inbound
// requests and resolves them against the startup registry.
package tenant

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/user/plugin-gateway/internal/domain"
)

const (
	// APIKeyHeader and TenantIDHeader carry credentials for callers that
	// cannot set query parameters or body fields.
	APIKeyHeader   = "X-API-Key"
	TenantIDHeader = "X-Tenant-ID"

	// TenantIDCookie is the lowest-precedence tenant id source.
	TenantIDCookie = "tenant_id"

	// maxBodyProbe bounds how much of the body is buffered while probing
	// for credential fields.
	maxBodyProbe = 1 << 20
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type bodyCredentials struct {
	APIKey   string `json:"apiKey"`
	TenantID string `json:"tenantId"`
}

// Extract probes the request for credential candidates and applies the
// precedence order: body > query > header for API keys, body > query >
// header > cookie for tenant ids. The request body is restored so handlers
// can still read it.
func Extract(r *http.Request) domain.TenantExtraction {
	var ext domain.TenantExtraction

	ext.Sources.QueryAPIKey = r.URL.Query().Get("apiKey")
	ext.Sources.QueryTenantID = r.URL.Query().Get("tenantId")
	ext.Sources.HeaderAPIKey = r.Header.Get(APIKeyHeader)
	ext.Sources.HeaderTenantID = r.Header.Get(TenantIDHeader)
	if cookie, err := r.Cookie(TenantIDCookie); err == nil {
		ext.Sources.CookieTenantID = cookie.Value
	}

	if r.Body != nil && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyProbe))
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err == nil {
			var creds bodyCredentials
			if json.Unmarshal(raw, &creds) == nil {
				ext.Sources.BodyAPIKey = creds.APIKey
				ext.Sources.BodyTenantID = creds.TenantID
			}
		}
	}

	ext.APIKey = firstNonEmpty(ext.Sources.BodyAPIKey, ext.Sources.QueryAPIKey, ext.Sources.HeaderAPIKey)
	ext.TenantID = firstNonEmpty(ext.Sources.BodyTenantID, ext.Sources.QueryTenantID, ext.Sources.HeaderTenantID, ext.Sources.CookieTenantID)

	return ext
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Registry maps API keys to tenant ids. It is built once at process start
// and read-only afterwards.
type Registry struct {
	keys map[string]string
}

// NewRegistry builds a registry from one or more apiKey -> tenantId maps.
// Later maps win on key collisions, so config entries can override rows
// loaded from the database.
func NewRegistry(sources ...map[string]string) *Registry {
	keys := make(map[string]string)
	for _, source := range sources {
		for apiKey, tenantID := range source {
			keys[apiKey] = tenantID
		}
	}
	return &Registry{keys: keys}
}

// Lookup returns the tenant mapped to apiKey. An unmapped key resolves to
// no tenant.
func (r *Registry) Lookup(apiKey string) (string, bool) {
	tenantID, ok := r.keys[apiKey]
	return tenantID, ok
}

// Len reports the number of registered keys.
func (r *Registry) Len() int { return len(r.keys) }

// Resolver turns an extraction into a tenant id.
type Resolver struct {
	registry *Registry
	logger   *slog.Logger
}

// NewResolver creates a Resolver over the given registry.
func NewResolver(registry *Registry, logger *slog.Logger) *Resolver {
	return &Resolver{registry: registry, logger: logger}
}

// Resolve applies the resolution rules: a well-formed tenant id candidate is
// self-authorizing for trusted callers and wins outright; otherwise the API
// key is looked up in the registry. The provenance trace is logged for
// support diagnostics and never consulted again after this call.
func (res *Resolver) Resolve(ext domain.TenantExtraction) (string, error) {
	res.logger.Debug("tenant extraction trace",
		"query_api_key", ext.Sources.QueryAPIKey != "",
		"body_api_key", ext.Sources.BodyAPIKey != "",
		"header_api_key", ext.Sources.HeaderAPIKey != "",
		"query_tenant_id", ext.Sources.QueryTenantID,
		"body_tenant_id", ext.Sources.BodyTenantID,
		"header_tenant_id", ext.Sources.HeaderTenantID,
		"cookie_tenant_id", ext.Sources.CookieTenantID,
	)

	if ext.TenantID != "" && tenantIDPattern.MatchString(ext.TenantID) {
		return ext.TenantID, nil
	}

	if ext.APIKey != "" {
		if tenantID, ok := res.registry.Lookup(ext.APIKey); ok {
			return tenantID, nil
		}
	}

	return "", domain.MissingTenant()
}
