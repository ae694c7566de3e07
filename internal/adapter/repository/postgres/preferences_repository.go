package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/user/plugin-gateway/internal/domain"
)

const createPreferencesTable = `
CREATE TABLE IF NOT EXISTS user_preferences (
    user_id    TEXT PRIMARY KEY,
    doc        JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

// PreferencesRepository implements domain.PreferencesRepository on
// PostgreSQL, storing the whole document as JSONB. Saves go through a
// server-side upsert so concurrent writers for the same user cannot
// interleave partial states.
type PreferencesRepository struct {
	db     *sql.DB
	logger *slog.Logger

	bootstrap    sync.Once
	bootstrapErr error
}

// NewPreferencesRepository creates a new PostgreSQL preferences repository.
func NewPreferencesRepository(db *sql.DB, logger *slog.Logger) *PreferencesRepository {
	return &PreferencesRepository{db: db, logger: logger}
}

func (r *PreferencesRepository) ensureTable(ctx context.Context) error {
	r.bootstrap.Do(func() {
		_, r.bootstrapErr = r.db.ExecContext(ctx, createPreferencesTable)
	})
	return r.bootstrapErr
}

// Get returns the stored document for userID, or nil when none exists.
func (r *PreferencesRepository) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap user_preferences: %w", err)
	}

	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT doc FROM user_preferences WHERE user_id = $1`, userID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	var prefs domain.UserPreferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences doc: %w", err)
	}
	return &prefs, nil
}

// Save upserts the whole document.
func (r *PreferencesRepository) Save(ctx context.Context, prefs domain.UserPreferences) error {
	if err := r.ensureTable(ctx); err != nil {
		return fmt.Errorf("bootstrap user_preferences: %w", err)
	}

	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences doc: %w", err)
	}

	query := `
        INSERT INTO user_preferences (user_id, doc, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE
        SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
    `
	if _, err := r.db.ExecContext(ctx, query, prefs.UserID, raw, prefs.UpdatedAt); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
