package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/plugin-gateway/internal/adapter/api"
	"github.com/user/plugin-gateway/internal/adapter/api/handler"
	"github.com/user/plugin-gateway/internal/adapter/auth"
	"github.com/user/plugin-gateway/internal/adapter/metrics"
	"github.com/user/plugin-gateway/internal/adapter/notifier"
	"github.com/user/plugin-gateway/internal/adapter/ratelimit"
	"github.com/user/plugin-gateway/internal/adapter/repository/postgres"
	"github.com/user/plugin-gateway/internal/adapter/tenant"
	"github.com/user/plugin-gateway/internal/pkg/config"
	"github.com/user/plugin-gateway/internal/pkg/logger"
	"github.com/user/plugin-gateway/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewGatewayMetrics(prometheus.DefaultRegisterer)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter keeps windows in
	// process memory, which is fine for a single instance.
	var windowStore ratelimit.WindowStore = ratelimit.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, rate limiting falls back to in-memory windows", "error", err)
		} else {
			windowStore = ratelimit.NewRedisStore(redisClient)
			defer redisClient.Close()
		}
	}

	// --- Initialize Repositories ---
	flagRepo := postgres.NewFlagRepository(db, logger)
	prefsRepo := postgres.NewPreferencesRepository(db, logger)
	jobRepo := postgres.NewDeletionJobRepository(db, logger)
	exportRepo := postgres.NewExportRepository(db, logger)
	eventRepo := postgres.NewEventRepository(db, logger)
	tenantRepo := postgres.NewTenantRepository(db, logger)

	// --- Tenant Registry ---
	dbKeys, err := tenantRepo.ListAPIKeys(ctx)
	if err != nil {
		logger.Warn("could not load tenant API keys from postgres, continuing with config entries only", "error", err)
		dbKeys = map[string]string{}
	}
	cfgKeys, err := cfg.ParseAPIKeys()
	if err != nil {
		logger.Error("failed to parse API_KEYS", "error", err)
		os.Exit(1)
	}
	registry := tenant.NewRegistry(dbKeys, cfgKeys)
	resolver := tenant.NewResolver(registry, logger)
	logger.Info("tenant registry loaded", "keys", registry.Len())

	// --- Credential Verifier ---
	verifiers := []auth.Verifier{auth.NewHMACVerifier(cfg.TokenSecret)}
	if cfg.FederatedUserinfoURL != "" {
		verifiers = append(verifiers, auth.NewFederatedVerifier(cfg.FederatedUserinfoURL, cfg.FederatedTimeout))
	}
	verifier := auth.NewChainVerifier(logger, verifiers...)

	// --- Rate Limiter ---
	limiter := ratelimit.NewLimiter(windowStore, map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassRequests: {Limit: cfg.RateLimitRequests, Window: cfg.RateLimitWindow},
		ratelimit.ClassWrites:   {Limit: cfg.RateLimitWrites, Window: cfg.RateLimitWindow},
	})

	// --- Initialize Use Cases and Services ---
	flagService := usecase.NewFlagService(flagRepo, logger, m)
	settingsService := usecase.NewSettingsService(
		prefsRepo, jobRepo, exportRepo,
		flagService,
		notifier.NewSlogNotifier(logger),
		logger, m,
		cfg.DeletionDelay, cfg.ExportBaseURL,
	)
	eventService := usecase.NewEventService(eventRepo, logger)

	// --- Start Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.Handle("/", api.NewAdminRouter(handler.NewFlagHandler(flagService, logger), logger))

	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: adminMux,
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Initialize Gateway Server ---
	router := api.NewRouter(api.RouterDeps{
		Logger:   logger,
		Metrics:  m,
		Verifier: verifier,
		Resolver: resolver,
		Limiter:  limiter,
		Settings: handler.NewSettingsHandler(settingsService, logger, cfg.IsDevelopment()),
		Events:   handler.NewEventHandler(eventService, logger, cfg.IsDevelopment()),
	})
	gatewayServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		logger.Info("starting gateway server", "addr", gatewayServer.Addr)
		if err := gatewayServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("gateway server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}
	if err := gatewayServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}
