package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/plugin-gateway/internal/adapter/api/httpjson"
	"github.com/user/plugin-gateway/internal/adapter/auth"
	"github.com/user/plugin-gateway/internal/adapter/metrics"
	"github.com/user/plugin-gateway/internal/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// BearerAuth is a middleware factory that verifies the Authorization header
// and attaches the resolved identity to the request context.
func BearerAuth(verifier auth.Verifier, logger *slog.Logger, m *metrics.GatewayMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				logger.Warn("bearer token missing from request", "remote_addr", r.RemoteAddr)
				if m != nil {
					m.AuthFailures.WithLabelValues("missing").Inc()
				}
				httpjson.WriteError(w, domain.Unauthorized("missing bearer token"), false)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Warn("bearer token rejected", "remote_addr", r.RemoteAddr, "error", err)
				if m != nil {
					m.AuthFailures.WithLabelValues("invalid").Inc()
				}
				httpjson.WriteError(w, err, false)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *identity)))
		})
	}
}

// WithIdentity attaches a verified identity to the context.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the verified identity attached by BearerAuth.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}
