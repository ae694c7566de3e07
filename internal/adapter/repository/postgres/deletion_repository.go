package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/user/plugin-gateway/internal/domain"
)

const createDeletionJobsTable = `
CREATE TABLE IF NOT EXISTS deletion_jobs (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    scheduled_for TIMESTAMPTZ NOT NULL,
    status        TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL
)`

// DeletionJobRepository implements domain.DeletionJobRepository on
// PostgreSQL. Job rows are advisory state for the external sweeper; the
// gateway only ever inserts them.
type DeletionJobRepository struct {
	db     *sql.DB
	logger *slog.Logger

	bootstrap    sync.Once
	bootstrapErr error
}

// NewDeletionJobRepository creates a new PostgreSQL deletion job repository.
func NewDeletionJobRepository(db *sql.DB, logger *slog.Logger) *DeletionJobRepository {
	return &DeletionJobRepository{db: db, logger: logger}
}

func (r *DeletionJobRepository) ensureTable(ctx context.Context) error {
	r.bootstrap.Do(func() {
		_, r.bootstrapErr = r.db.ExecContext(ctx, createDeletionJobsTable)
	})
	return r.bootstrapErr
}

// Create persists a new scheduled deletion job.
func (r *DeletionJobRepository) Create(ctx context.Context, job domain.DeletionJob) error {
	if err := r.ensureTable(ctx); err != nil {
		return fmt.Errorf("bootstrap deletion_jobs: %w", err)
	}

	query := `
        INSERT INTO deletion_jobs (id, user_id, scheduled_for, status, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	if _, err := r.db.ExecContext(ctx, query,
		job.ID, job.UserID, job.ScheduledFor, string(job.Status), job.CreatedAt,
	); err != nil {
		return fmt.Errorf("create deletion job: %w", err)
	}
	return nil
}
