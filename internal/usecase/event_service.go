package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/user/plugin-gateway/internal/domain"
)

// EventInput is the payload accepted by the plugin event endpoints.
type EventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"startsAt"`
}

func (in EventInput) validate() []domain.FieldError {
	var fields []domain.FieldError
	if in.Title == "" {
		fields = append(fields, domain.FieldError{Path: "title", Message: "is required"})
	}
	if in.StartsAt.IsZero() {
		fields = append(fields, domain.FieldError{Path: "startsAt", Message: "is required"})
	}
	return fields
}

// EventService handles plugin event CRUD, always scoped to the tenant the
// middleware chain resolved. Cross-tenant ids read as absent.
type EventService struct {
	repo   domain.EventRepository
	logger *slog.Logger
}

// NewEventService creates a new EventService.
func NewEventService(repo domain.EventRepository, logger *slog.Logger) *EventService {
	return &EventService{repo: repo, logger: logger}
}

// Create stores a new event for the tenant.
func (s *EventService) Create(ctx context.Context, tenantID string, in EventInput) (*domain.PluginEvent, error) {
	if fields := in.validate(); len(fields) > 0 {
		return nil, domain.InvalidPayload(fields)
	}

	now := time.Now().UTC()
	event := domain.PluginEvent{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartsAt:    in.StartsAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Store(ctx, event); err != nil {
		return nil, domain.Unexpected(fmt.Errorf("store event: %w", err))
	}
	return &event, nil
}

// Get returns one event owned by the tenant.
func (s *EventService) Get(ctx context.Context, tenantID, id string) (*domain.PluginEvent, error) {
	event, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, domain.Unexpected(fmt.Errorf("find event: %w", err))
	}
	if event == nil {
		return nil, domain.NotFound("event not found")
	}
	return event, nil
}

// List returns up to limit events owned by the tenant.
func (s *EventService) List(ctx context.Context, tenantID string, limit int) ([]domain.PluginEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	events, err := s.repo.List(ctx, tenantID, limit)
	if err != nil {
		return nil, domain.Unexpected(fmt.Errorf("list events: %w", err))
	}
	return events, nil
}

// Update replaces an event's mutable fields.
func (s *EventService) Update(ctx context.Context, tenantID, id string, in EventInput) (*domain.PluginEvent, error) {
	if fields := in.validate(); len(fields) > 0 {
		return nil, domain.InvalidPayload(fields)
	}

	current, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	current.Title = in.Title
	current.Description = in.Description
	current.Location = in.Location
	current.StartsAt = in.StartsAt
	current.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, *current)
	if err != nil {
		return nil, domain.Unexpected(fmt.Errorf("update event: %w", err))
	}
	if !updated {
		return nil, domain.NotFound("event not found")
	}
	return current, nil
}

// Delete removes an event owned by the tenant.
func (s *EventService) Delete(ctx context.Context, tenantID, id string) error {
	deleted, err := s.repo.Delete(ctx, tenantID, id)
	if err != nil {
		return domain.Unexpected(fmt.Errorf("delete event: %w", err))
	}
	if !deleted {
		return domain.NotFound("event not found")
	}
	return nil
}
