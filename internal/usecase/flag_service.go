package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/plugin-gateway/internal/adapter/metrics"
	"github.com/user/plugin-gateway/internal/domain"
)

// FlagProvider yields the per-request flag snapshot consulted by every
// settings operation.
type FlagProvider interface {
	Snapshot(ctx context.Context) domain.FlagSnapshot
}

// FlagService owns feature flag reads and admin toggles. Reads fail open:
// when the store is unreachable the documented default snapshot is served,
// with a warning and a metric so operators can see the degradation.
type FlagService struct {
	repo    domain.FlagRepository
	logger  *slog.Logger
	metrics *metrics.GatewayMetrics
}

// NewFlagService creates a new FlagService.
func NewFlagService(repo domain.FlagRepository, logger *slog.Logger, m *metrics.GatewayMetrics) *FlagService {
	return &FlagService{repo: repo, logger: logger, metrics: m}
}

// Snapshot returns the current state of every recognized flag. Keys are
// bootstrapped lazily with enabled=false; the externally visible default
// (true for settings_ui_enabled) is substituted at this read layer for every
// row no admin has toggled, so the store keeps behaving like the documented
// defaults until someone actually writes a flag.
func (s *FlagService) Snapshot(ctx context.Context) domain.FlagSnapshot {
	if err := s.repo.EnsureDefaults(ctx, domain.KnownFlagKeys); err != nil {
		return s.failOpen("flag bootstrap failed", err)
	}

	flags, err := s.repo.List(ctx)
	if err != nil {
		return s.failOpen("flag read failed", err)
	}

	snap := make(domain.FlagSnapshot, len(flags))
	for _, flag := range flags {
		enabled := flag.Enabled
		if !flag.Toggled {
			enabled = domain.FlagReadDefault(flag.Key)
		}
		snap[flag.Key] = domain.FlagState{Enabled: enabled, Payload: flag.Payload}
	}
	return snap
}

// GetFlag returns the read-layer state of a single flag.
func (s *FlagService) GetFlag(ctx context.Context, key domain.FlagKey) (domain.FlagState, error) {
	if !domain.IsKnownFlagKey(key) {
		return domain.FlagState{}, domain.NotFound(fmt.Sprintf("unknown flag %q", key))
	}
	return s.Snapshot(ctx)[key], nil
}

// SetFlag toggles a flag. Toggles never fail open: an unreachable store is
// surfaced so an admin does not believe a change landed when it did not.
func (s *FlagService) SetFlag(ctx context.Context, key domain.FlagKey, enabled bool, payload json.RawMessage) error {
	if !domain.IsKnownFlagKey(key) {
		return domain.NotFound(fmt.Sprintf("unknown flag %q", key))
	}

	flag := domain.FeatureFlag{
		Key:       key,
		Enabled:   enabled,
		Toggled:   true,
		Payload:   payload,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Set(ctx, flag); err != nil {
		return domain.Unexpected(err)
	}

	s.logger.Info("feature flag updated", "key", key, "enabled", enabled)
	return nil
}

func (s *FlagService) failOpen(msg string, err error) domain.FlagSnapshot {
	s.logger.Warn(msg+", serving default snapshot", "error", err)
	if s.metrics != nil {
		s.metrics.FlagStoreFailOpen.Inc()
	}
	return domain.DefaultFlagSnapshot()
}
