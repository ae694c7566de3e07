package domain

import (
	"context"
	"time"
)

// FlagRepository persists feature flag state. Implementations bootstrap
// their backing table lazily.
type FlagRepository interface {
	// EnsureDefaults inserts any absent known keys as untoggled
	// enabled=false rows. The read layer substitutes the externally
	// visible default for every row no admin has toggled yet.
	EnsureDefaults(ctx context.Context, keys []FlagKey) error

	// List returns every persisted flag.
	List(ctx context.Context) ([]FeatureFlag, error)

	// Set upserts a flag's enabled state and payload.
	Set(ctx context.Context, flag FeatureFlag) error
}

// PreferencesRepository persists the versioned settings document.
type PreferencesRepository interface {
	// Get returns the document for userID, or nil when none exists yet.
	Get(ctx context.Context, userID string) (*UserPreferences, error)

	// Save upserts the whole document. Implementations must use a
	// server-side upsert so concurrent writers cannot interleave.
	Save(ctx context.Context, prefs UserPreferences) error
}

// DeletionJobRepository persists scheduled deletion jobs.
type DeletionJobRepository interface {
	Create(ctx context.Context, job DeletionJob) error
}

// ExportRepository persists export records keyed by their download token.
type ExportRepository interface {
	Create(ctx context.Context, record ExportRecord) error

	// FindByToken returns the record for token, or nil when unknown.
	FindByToken(ctx context.Context, token string) (*ExportRecord, error)

	// MarkConsumed stamps the record so the token cannot be used again.
	// It reports whether this call won the stamp; a false return means
	// another fetch consumed the token first.
	MarkConsumed(ctx context.Context, id string, at time.Time) (bool, error)
}

// EventRepository persists plugin events, always scoped by tenant.
type EventRepository interface {
	Store(ctx context.Context, event PluginEvent) error
	FindByID(ctx context.Context, tenantID, id string) (*PluginEvent, error)
	List(ctx context.Context, tenantID string, limit int) ([]PluginEvent, error)
	Update(ctx context.Context, event PluginEvent) (bool, error)
	Delete(ctx context.Context, tenantID, id string) (bool, error)
}

// TenantRepository loads API key to tenant mappings for the startup
// registry build. The registry is read-only at request time.
type TenantRepository interface {
	ListAPIKeys(ctx context.Context) (map[string]string, error)
}
