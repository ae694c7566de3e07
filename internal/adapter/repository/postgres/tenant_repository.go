package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
)

const createTenantsTable = `
CREATE TABLE IF NOT EXISTS tenants (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    api_key    TEXT UNIQUE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// TenantRepository implements domain.TenantRepository on PostgreSQL. It is
// read once at process start to build the in-memory registry; requests
// never touch it.
type TenantRepository struct {
	db     *sql.DB
	logger *slog.Logger

	bootstrap    sync.Once
	bootstrapErr error
}

// NewTenantRepository creates a new PostgreSQL tenant repository.
func NewTenantRepository(db *sql.DB, logger *slog.Logger) *TenantRepository {
	return &TenantRepository{db: db, logger: logger}
}

func (r *TenantRepository) ensureTable(ctx context.Context) error {
	r.bootstrap.Do(func() {
		_, r.bootstrapErr = r.db.ExecContext(ctx, createTenantsTable)
	})
	return r.bootstrapErr
}

// ListAPIKeys returns every api_key -> tenant id mapping.
func (r *TenantRepository) ListAPIKeys(ctx context.Context) (map[string]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap tenants: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT api_key, id FROM tenants`)
	if err != nil {
		return nil, fmt.Errorf("list tenant api keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]string)
	for rows.Next() {
		var apiKey, tenantID string
		if err := rows.Scan(&apiKey, &tenantID); err != nil {
			return nil, fmt.Errorf("scan tenant row: %w", err)
		}
		keys[apiKey] = tenantID
	}
	return keys, rows.Err()
}
