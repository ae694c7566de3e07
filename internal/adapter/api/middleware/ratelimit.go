package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/user/plugin-gateway/internal/adapter/api/httpjson"
	"github.com/user/plugin-gateway/internal/adapter/metrics"
	"github.com/user/plugin-gateway/internal/adapter/ratelimit"
	"github.com/user/plugin-gateway/internal/domain"
)

// RateLimit is a middleware factory enforcing the per-tenant quota for one
// operation class. Quota headers are attached to every response; denials
// additionally carry Retry-After. It must run after ResolveTenant.
func RateLimit(limiter *ratelimit.Limiter, class ratelimit.Class, logger *slog.Logger, m *metrics.GatewayMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, ok := TenantFrom(r.Context())
			if !ok {
				httpjson.WriteError(w, domain.MissingTenant(), false)
				return
			}

			result, err := limiter.Check(r.Context(), tenantID, class)
			if err != nil {
				// Admission must never be granted silently on a store
				// failure.
				logger.Error("rate limit check failed", "error", err, "tenant_id", tenantID)
				if m != nil {
					m.RateLimitDecisions.WithLabelValues(string(class), "error").Inc()
				}
				httpjson.WriteError(w, domain.Unexpected(err), false)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.UnixMilli(), 10))

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter(time.Now())))
				if m != nil {
					m.RateLimitDecisions.WithLabelValues(string(class), "denied").Inc()
				}
				httpjson.WriteError(w, domain.RateLimited(), false)
				return
			}
			if m != nil {
				m.RateLimitDecisions.WithLabelValues(string(class), "allowed").Inc()
			}

			next.ServeHTTP(w, r)
		})
	}
}
