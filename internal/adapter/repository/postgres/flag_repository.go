package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/user/plugin-gateway/internal/domain"
)

const createFlagsTable = `
CREATE TABLE IF NOT EXISTS feature_flags (
    key        TEXT PRIMARY KEY,
    enabled    BOOLEAN NOT NULL DEFAULT FALSE,
    toggled    BOOLEAN NOT NULL DEFAULT FALSE,
    payload    JSONB,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// FlagRepository implements domain.FlagRepository on PostgreSQL. The table
// is created lazily on first use; a failed bootstrap is reported to the
// caller, which fails open at the service layer.
type FlagRepository struct {
	db     *sql.DB
	logger *slog.Logger

	bootstrap    sync.Once
	bootstrapErr error
}

// NewFlagRepository creates a new PostgreSQL flag repository.
func NewFlagRepository(db *sql.DB, logger *slog.Logger) *FlagRepository {
	return &FlagRepository{db: db, logger: logger}
}

func (r *FlagRepository) ensureTable(ctx context.Context) error {
	r.bootstrap.Do(func() {
		_, r.bootstrapErr = r.db.ExecContext(ctx, createFlagsTable)
	})
	return r.bootstrapErr
}

// EnsureDefaults inserts any absent keys as untoggled enabled=false rows.
// Existing rows, admin-written or not, are left alone.
func (r *FlagRepository) EnsureDefaults(ctx context.Context, keys []domain.FlagKey) error {
	if err := r.ensureTable(ctx); err != nil {
		return fmt.Errorf("bootstrap feature_flags: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	placeholders := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, key := range keys {
		placeholders[i] = fmt.Sprintf("($%d, FALSE, FALSE, NOW())", i+1)
		args[i] = string(key)
	}
	query := fmt.Sprintf(
		`INSERT INTO feature_flags (key, enabled, toggled, updated_at) VALUES %s ON CONFLICT (key) DO NOTHING`,
		strings.Join(placeholders, ", "),
	)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure flag defaults: %w", err)
	}
	return nil
}

// List returns every persisted flag.
func (r *FlagRepository) List(ctx context.Context) ([]domain.FeatureFlag, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap feature_flags: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT key, enabled, toggled, payload, updated_at FROM feature_flags`)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	defer rows.Close()

	var flags []domain.FeatureFlag
	for rows.Next() {
		var flag domain.FeatureFlag
		var payload sql.NullString
		if err := rows.Scan(&flag.Key, &flag.Enabled, &flag.Toggled, &payload, &flag.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan flag: %w", err)
		}
		if payload.Valid {
			flag.Payload = []byte(payload.String)
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

// Set upserts a flag.
func (r *FlagRepository) Set(ctx context.Context, flag domain.FeatureFlag) error {
	if err := r.ensureTable(ctx); err != nil {
		return fmt.Errorf("bootstrap feature_flags: %w", err)
	}

	var payload interface{}
	if len(flag.Payload) > 0 {
		payload = string(flag.Payload)
	}
	updatedAt := flag.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO feature_flags (key, enabled, toggled, payload, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (key) DO UPDATE
        SET enabled = EXCLUDED.enabled, toggled = EXCLUDED.toggled, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
    `
	if _, err := r.db.ExecContext(ctx, query, string(flag.Key), flag.Enabled, flag.Toggled, payload, updatedAt); err != nil {
		return fmt.Errorf("set flag %s: %w", flag.Key, err)
	}
	return nil
}
