package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/user/plugin-gateway/internal/adapter/api/httpjson"
	"github.com/user/plugin-gateway/internal/adapter/metrics"
	"github.com/user/plugin-gateway/internal/adapter/tenant"
)

const tenantKey contextKey = "tenant"

// ResolveTenant is a middleware factory that extracts tenant credentials
// from the request and resolves them through the registry. Requests with no
// resolvable tenant fail 400 before reaching any handler.
func ResolveTenant(resolver *tenant.Resolver, logger *slog.Logger, m *metrics.GatewayMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			extraction := tenant.Extract(r)

			tenantID, err := resolver.Resolve(extraction)
			if err != nil {
				logger.Warn("tenant resolution failed", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				if m != nil {
					m.TenantResolutions.WithLabelValues("missing").Inc()
				}
				httpjson.WriteError(w, err, false)
				return
			}
			if m != nil {
				m.TenantResolutions.WithLabelValues("resolved").Inc()
			}

			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenantID)))
		})
	}
}

// WithTenant attaches a resolved tenant id to the context.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// TenantFrom returns the tenant id attached by ResolveTenant.
func TenantFrom(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(tenantKey).(string)
	return tenantID, ok
}
