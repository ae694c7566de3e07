package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/user/plugin-gateway/internal/domain"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS plugin_events (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    location    TEXT NOT NULL DEFAULT '',
    starts_at   TIMESTAMPTZ NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
)`

// EventRepository implements domain.EventRepository on PostgreSQL. Every
// query is scoped by tenant_id so a cross-tenant id reads as absent.
type EventRepository struct {
	db     *sql.DB
	logger *slog.Logger

	bootstrap    sync.Once
	bootstrapErr error
}

// NewEventRepository creates a new PostgreSQL event repository.
func NewEventRepository(db *sql.DB, logger *slog.Logger) *EventRepository {
	return &EventRepository{db: db, logger: logger}
}

func (r *EventRepository) ensureTable(ctx context.Context) error {
	r.bootstrap.Do(func() {
		_, r.bootstrapErr = r.db.ExecContext(ctx, createEventsTable)
	})
	return r.bootstrapErr
}

// Store inserts a new event.
func (r *EventRepository) Store(ctx context.Context, event domain.PluginEvent) error {
	if err := r.ensureTable(ctx); err != nil {
		return fmt.Errorf("bootstrap plugin_events: %w", err)
	}

	query := `
        INSERT INTO plugin_events (id, tenant_id, title, description, location, starts_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	if _, err := r.db.ExecContext(ctx, query,
		event.ID, event.TenantID, event.Title, event.Description,
		event.Location, event.StartsAt, event.CreatedAt, event.UpdatedAt,
	); err != nil {
		return fmt.Errorf("store event: %w", err)
	}
	return nil
}

// FindByID returns an event owned by the tenant, or nil when absent.
func (r *EventRepository) FindByID(ctx context.Context, tenantID, id string) (*domain.PluginEvent, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap plugin_events: %w", err)
	}

	query := `
        SELECT id, tenant_id, title, description, location, starts_at, created_at, updated_at
        FROM plugin_events
        WHERE id = $1 AND tenant_id = $2
    `
	var event domain.PluginEvent
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&event.ID, &event.TenantID, &event.Title, &event.Description,
		&event.Location, &event.StartsAt, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// List returns up to limit events owned by the tenant, newest first.
func (r *EventRepository) List(ctx context.Context, tenantID string, limit int) ([]domain.PluginEvent, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap plugin_events: %w", err)
	}

	query := `
        SELECT id, tenant_id, title, description, location, starts_at, created_at, updated_at
        FROM plugin_events
        WHERE tenant_id = $1
        ORDER BY starts_at DESC
        LIMIT $2
    `
	rows, err := r.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.PluginEvent
	for rows.Next() {
		var event domain.PluginEvent
		if err := rows.Scan(
			&event.ID, &event.TenantID, &event.Title, &event.Description,
			&event.Location, &event.StartsAt, &event.CreatedAt, &event.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Update replaces an event's mutable columns; reports whether a row matched.
func (r *EventRepository) Update(ctx context.Context, event domain.PluginEvent) (bool, error) {
	if err := r.ensureTable(ctx); err != nil {
		return false, fmt.Errorf("bootstrap plugin_events: %w", err)
	}

	query := `
        UPDATE plugin_events
        SET title = $3, description = $4, location = $5, starts_at = $6, updated_at = $7
        WHERE id = $1 AND tenant_id = $2
    `
	result, err := r.db.ExecContext(ctx, query,
		event.ID, event.TenantID, event.Title, event.Description,
		event.Location, event.StartsAt, event.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update event rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete removes an event owned by the tenant; reports whether a row matched.
func (r *EventRepository) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	if err := r.ensureTable(ctx); err != nil {
		return false, fmt.Errorf("bootstrap plugin_events: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM plugin_events WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	)
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete event rows affected: %w", err)
	}
	return affected > 0, nil
}
