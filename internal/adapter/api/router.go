package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/plugin-gateway/internal/adapter/api/handler"
	"github.com/user/plugin-gateway/internal/adapter/api/middleware"
	"github.com/user/plugin-gateway/internal/adapter/auth"
	"github.com/user/plugin-gateway/internal/adapter/metrics"
	"github.com/user/plugin-gateway/internal/adapter/ratelimit"
	"github.com/user/plugin-gateway/internal/adapter/tenant"
)

// RouterDeps bundles everything the public router wires together.
type RouterDeps struct {
	Logger   *slog.Logger
	Metrics  *metrics.GatewayMetrics
	Verifier auth.Verifier
	Resolver *tenant.Resolver
	Limiter  *ratelimit.Limiter
	Settings *handler.SettingsHandler
	Events   *handler.EventHandler
}

// NewRouter creates and configures the public HTTP router. Plugin routes run
// through tenant resolution and the per-class rate limiter; settings routes
// run behind bearer auth, with the feature gate enforced inside the service.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(deps.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1/plugin", func(r chi.Router) {
		r.Use(middleware.ResolveTenant(deps.Resolver, deps.Logger, deps.Metrics))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(deps.Limiter, ratelimit.ClassRequests, deps.Logger, deps.Metrics))
			r.Get("/events", deps.Events.List)
			r.Get("/events/{id}", deps.Events.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(deps.Limiter, ratelimit.ClassWrites, deps.Logger, deps.Metrics))
			r.Post("/events", deps.Events.Create)
			r.Put("/events/{id}", deps.Events.Update)
			r.Delete("/events/{id}", deps.Events.Delete)
		})
	})

	r.Route("/api/v1/settings", func(r chi.Router) {
		r.Use(middleware.BearerAuth(deps.Verifier, deps.Logger, deps.Metrics))

		r.Get("/", deps.Settings.Get)
		r.Put("/", deps.Settings.Put)
		r.Patch("/", deps.Settings.Patch)
		r.Post("/delete", deps.Settings.ScheduleDeletion)
		r.Post("/export", deps.Settings.Export)
		r.Get("/export/{token}", deps.Settings.FetchExport)
	})

	return r
}
