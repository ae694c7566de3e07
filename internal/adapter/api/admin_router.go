package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/plugin-gateway/internal/adapter/api/handler"
	"github.com/user/plugin-gateway/internal/adapter/api/middleware"
)

// NewAdminRouter creates the router for the operational listener: feature
// flag management. It is mounted next to /metrics and is expected to stay
// off the public network.
func NewAdminRouter(flags *handler.FlagHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/admin/flags", flags.List)
	r.Get("/admin/flags/{key}", flags.Get)
	r.Put("/admin/flags/{key}", flags.Set)

	return r
}
