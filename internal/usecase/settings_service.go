package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/plugin-gateway/internal/adapter/metrics"
	"github.com/user/plugin-gateway/internal/adapter/notifier"
	"github.com/user/plugin-gateway/internal/domain"
)

// ExportResult is the external contract of the export workflow. The "job"
// terminology is historical: rendering is synchronous, the record is
// complete by the time the caller sees this.
type ExportResult struct {
	JobID       string `json:"jobId"`
	DownloadURL string `json:"downloadUrl"`
}

// SettingsService owns the versioned preference document per user and its
// lifecycle workflows (scheduled deletion, export).
//
// Flag suppression is a view transform: it is applied to every read and to
// every write's return value, but the persisted document keeps what the
// client validly submitted. A client sending autoJoin=true while
// auto_join_v1 is disabled gets the write accepted, the value stored for
// audit, and the effect silently neutralized on the way out. Older clients
// that still send gated fields keep working; an enabled flag later makes
// the stored value take effect without a rewrite.
type SettingsService struct {
	prefs    domain.PreferencesRepository
	jobs     domain.DeletionJobRepository
	exports  domain.ExportRepository
	flags    FlagProvider
	notifier notifier.Notifier
	logger   *slog.Logger
	metrics  *metrics.GatewayMetrics

	deletionDelay time.Duration
	exportBaseURL string

	// userLocks serializes writes per user so concurrent PATCH/PUT
	// read-modify-writes cannot discard each other's changes.
	userLocks keyedMutex

	now func() time.Time
}

// NewSettingsService wires the settings lifecycle engine.
func NewSettingsService(
	prefs domain.PreferencesRepository,
	jobs domain.DeletionJobRepository,
	exports domain.ExportRepository,
	flags FlagProvider,
	n notifier.Notifier,
	logger *slog.Logger,
	m *metrics.GatewayMetrics,
	deletionDelay time.Duration,
	exportBaseURL string,
) *SettingsService {
	return &SettingsService{
		prefs:         prefs,
		jobs:          jobs,
		exports:       exports,
		flags:         flags,
		notifier:      n,
		logger:        logger,
		metrics:       m,
		deletionDelay: deletionDelay,
		exportBaseURL: exportBaseURL,
		now:           time.Now,
	}
}

// Get returns the user's document, or computed defaults when none exists
// yet. First reads never persist.
func (s *SettingsService) Get(ctx context.Context, identity domain.Identity) (*domain.UserPreferences, error) {
	flags, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}
	s.count("get")

	current, err := s.loadOrDefault(ctx, identity)
	if err != nil {
		return nil, err
	}

	suppressed := domain.EnforcePreferenceFlags(*current, flags)
	return &suppressed, nil
}

// Replace validates and persists a full document (PUT semantics).
func (s *SettingsService) Replace(ctx context.Context, identity domain.Identity, prefs domain.UserPreferences) (*domain.UserPreferences, error) {
	flags, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}
	s.count("put")

	// The user id always comes from the verified identity, never from the
	// payload, so ownership mismatches cannot be expressed.
	prefs.UserID = identity.ID

	if fields := prefs.Validate(); len(fields) > 0 {
		return nil, domain.InvalidPayload(fields)
	}

	unlock := s.userLocks.lock(identity.ID)
	defer unlock()

	prefs.UpdatedAt = s.now().UTC()
	if err := s.prefs.Save(ctx, prefs); err != nil {
		return nil, domain.Unexpected(fmt.Errorf("save preferences: %w", err))
	}

	suppressed := domain.EnforcePreferenceFlags(prefs, flags)
	return &suppressed, nil
}

// Patch shallow-merges a partial update into the current (or default)
// document, re-validates the merged whole, and persists it.
func (s *SettingsService) Patch(ctx context.Context, identity domain.Identity, patch domain.PreferencesPatch) (*domain.UserPreferences, error) {
	flags, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}
	s.count("patch")

	unlock := s.userLocks.lock(identity.ID)
	defer unlock()

	current, err := s.loadOrDefault(ctx, identity)
	if err != nil {
		return nil, err
	}

	merged := *current
	patch.Apply(&merged)
	merged.UserID = identity.ID

	if fields := merged.Validate(); len(fields) > 0 {
		return nil, domain.InvalidPayload(fields)
	}

	merged.UpdatedAt = s.now().UTC()
	if err := s.prefs.Save(ctx, merged); err != nil {
		return nil, domain.Unexpected(fmt.Errorf("save preferences: %w", err))
	}

	suppressed := domain.EnforcePreferenceFlags(merged, flags)
	return &suppressed, nil
}

// ScheduleDeletion creates a deletion job and immediately sanitizes the
// live document. The privacy-sensitive field is neutralized synchronously;
// the full erasure runs later under the external sweeper. The document row
// itself is never removed here.
func (s *SettingsService) ScheduleDeletion(ctx context.Context, identity domain.Identity) (*domain.DeletionJob, error) {
	if _, err := s.gate(ctx); err != nil {
		return nil, err
	}
	s.count("delete")

	now := s.now().UTC()
	job := domain.DeletionJob{
		ID:           uuid.NewString(),
		UserID:       identity.ID,
		ScheduledFor: now.Add(s.deletionDelay),
		Status:       domain.DeletionScheduled,
		CreatedAt:    now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, domain.Unexpected(fmt.Errorf("create deletion job: %w", err))
	}

	unlock := s.userLocks.lock(identity.ID)
	defer unlock()

	current, err := s.loadOrDefault(ctx, identity)
	if err != nil {
		return nil, err
	}
	current.LocationSharing = domain.LocationSharingOff
	current.UpdatedAt = now
	if err := s.prefs.Save(ctx, *current); err != nil {
		return nil, domain.Unexpected(fmt.Errorf("sanitize preferences: %w", err))
	}

	s.logger.Info("account deletion scheduled",
		"user_id", identity.ID, "job_id", job.ID, "scheduled_for", job.ScheduledFor)
	return &job, nil
}

// Export renders an archive of the user's flag-suppressed document and
// returns a single-use download link.
func (s *SettingsService) Export(ctx context.Context, identity domain.Identity) (*ExportResult, error) {
	flags, err := s.gate(ctx)
	if err != nil {
		return nil, err
	}
	s.count("export")

	current, err := s.loadOrDefault(ctx, identity)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	token, err := newDownloadToken()
	if err != nil {
		return nil, domain.Unexpected(fmt.Errorf("generate download token: %w", err))
	}

	record := domain.ExportRecord{
		ID:            uuid.NewString(),
		UserID:        identity.ID,
		DownloadToken: token,
		Archive: domain.ExportArchive{
			UserID:      identity.ID,
			ExportedAt:  now,
			Preferences: domain.EnforcePreferenceFlags(*current, flags),
		},
		Status:    domain.ExportCompleted,
		CreatedAt: now,
	}
	if err := s.exports.Create(ctx, record); err != nil {
		return nil, domain.Unexpected(fmt.Errorf("create export record: %w", err))
	}

	downloadURL := fmt.Sprintf("%s/api/v1/settings/export/%s", s.exportBaseURL, token)
	if identity.Email != "" {
		if err := s.notifier.ExportReady(ctx, identity.Email, downloadURL); err != nil {
			// Delivery is best effort; the link is already in the response.
			s.logger.Warn("export notification failed", "error", err, "user_id", identity.ID)
		}
	}

	return &ExportResult{JobID: record.ID, DownloadURL: downloadURL}, nil
}

// FetchExport redeems a download token. The token is the sole addressable
// capability, the fetch must additionally come from the record owner, and
// it succeeds at most once.
func (s *SettingsService) FetchExport(ctx context.Context, identity domain.Identity, token string) (*domain.ExportArchive, error) {
	s.count("export_fetch")

	record, err := s.exports.FindByToken(ctx, token)
	if err != nil {
		return nil, domain.Unexpected(fmt.Errorf("find export: %w", err))
	}
	if record == nil {
		return nil, domain.NotFound("export not found")
	}
	if record.UserID != identity.ID {
		return nil, domain.Forbidden("export belongs to a different user")
	}
	if record.ConsumedAt != nil {
		return nil, domain.NotFound("export not found")
	}

	consumed, err := s.exports.MarkConsumed(ctx, record.ID, s.now().UTC())
	if err != nil {
		return nil, domain.Unexpected(fmt.Errorf("consume export: %w", err))
	}
	if !consumed {
		// A concurrent fetch won the stamp; this one acts as if the token
		// were already spent.
		return nil, domain.NotFound("export not found")
	}

	return &record.Archive, nil
}

// gate checks the settings_ui_enabled kill switch and returns the snapshot
// used for the rest of the operation.
func (s *SettingsService) gate(ctx context.Context) (domain.FlagSnapshot, error) {
	flags := s.flags.Snapshot(ctx)
	if !flags.Enabled(domain.FlagSettingsUI) {
		return nil, domain.FeatureDisabled(string(domain.FlagSettingsUI))
	}
	return flags, nil
}

func (s *SettingsService) loadOrDefault(ctx context.Context, identity domain.Identity) (*domain.UserPreferences, error) {
	current, err := s.prefs.Get(ctx, identity.ID)
	if err != nil {
		return nil, domain.Unexpected(fmt.Errorf("load preferences: %w", err))
	}
	if current == nil {
		defaults := domain.DefaultPreferences(identity)
		return &defaults, nil
	}
	return current, nil
}

func (s *SettingsService) count(op string) {
	if s.metrics != nil {
		s.metrics.SettingsOps.WithLabelValues(op).Inc()
	}
}

// newDownloadToken returns 32 bytes of crypto-grade randomness as hex: an
// unguessable, single-purpose capability.
func newDownloadToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// keyedMutex hands out one mutex per key. Entries are retained for the
// process lifetime; the key space is the active user set.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
