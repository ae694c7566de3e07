package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/plugin-gateway/internal/domain"
)

const createExportsTable = `
CREATE TABLE IF NOT EXISTS export_records (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    token       TEXT UNIQUE NOT NULL,
    archive     JSONB NOT NULL,
    status      TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    consumed_at TIMESTAMPTZ
)`

// ExportRepository implements domain.ExportRepository on PostgreSQL.
type ExportRepository struct {
	db     *sql.DB
	logger *slog.Logger

	bootstrap    sync.Once
	bootstrapErr error
}

// NewExportRepository creates a new PostgreSQL export repository.
func NewExportRepository(db *sql.DB, logger *slog.Logger) *ExportRepository {
	return &ExportRepository{db: db, logger: logger}
}

func (r *ExportRepository) ensureTable(ctx context.Context) error {
	r.bootstrap.Do(func() {
		_, r.bootstrapErr = r.db.ExecContext(ctx, createExportsTable)
	})
	return r.bootstrapErr
}

// Create persists a new export record with its download token.
func (r *ExportRepository) Create(ctx context.Context, record domain.ExportRecord) error {
	if err := r.ensureTable(ctx); err != nil {
		return fmt.Errorf("bootstrap export_records: %w", err)
	}

	archive, err := json.Marshal(record.Archive)
	if err != nil {
		return fmt.Errorf("encode export archive: %w", err)
	}

	query := `
        INSERT INTO export_records (id, user_id, token, archive, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	if _, err := r.db.ExecContext(ctx, query,
		record.ID, record.UserID, record.DownloadToken, archive, string(record.Status), record.CreatedAt,
	); err != nil {
		return fmt.Errorf("create export record: %w", err)
	}
	return nil
}

// FindByToken returns the record holding token, or nil when unknown.
func (r *ExportRepository) FindByToken(ctx context.Context, token string) (*domain.ExportRecord, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap export_records: %w", err)
	}

	query := `
        SELECT id, user_id, token, archive, status, created_at, consumed_at
        FROM export_records
        WHERE token = $1
    `
	var record domain.ExportRecord
	var archive []byte
	var consumedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&record.ID, &record.UserID, &record.DownloadToken,
		&archive, &record.Status, &record.CreatedAt, &consumedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find export by token: %w", err)
	}

	if err := json.Unmarshal(archive, &record.Archive); err != nil {
		return nil, fmt.Errorf("decode export archive: %w", err)
	}
	if consumedAt.Valid {
		record.ConsumedAt = &consumedAt.Time
	}
	return &record, nil
}

// MarkConsumed stamps the record so the token cannot be redeemed again. The
// consumed_at guard makes the stamp a compare-and-set: of two concurrent
// fetches, exactly one sees an affected row.
func (r *ExportRepository) MarkConsumed(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := r.ensureTable(ctx); err != nil {
		return false, fmt.Errorf("bootstrap export_records: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE export_records SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL`, id, at,
	)
	if err != nil {
		return false, fmt.Errorf("mark export consumed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark export consumed: %w", err)
	}
	return affected > 0, nil
}
