package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/user/plugin-gateway/internal/domain"
	"github.com/user/plugin-gateway/internal/domain/mocks"
)

func TestEventServiceCreate(t *testing.T) {
	repo := mocks.NewMockEventRepository()
	svc := NewEventService(repo, testLogger())
	ctx := context.Background()

	t.Run("stores event scoped to the tenant", func(t *testing.T) {
		event, err := svc.Create(ctx, "tenant-1", EventInput{
			Title:    "Pickup football",
			Location: "Riverside park",
			StartsAt: time.Now().Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if event.ID == "" {
			t.Error("expected generated event id")
		}
		if event.TenantID != "tenant-1" {
			t.Errorf("TenantID = %q, want tenant-1", event.TenantID)
		}
	})

	t.Run("rejects missing title and start", func(t *testing.T) {
		_, err := svc.Create(ctx, "tenant-1", EventInput{})
		appErr, ok := domain.AsError(err)
		if !ok || appErr.Code != domain.CodeInvalidPayload {
			t.Fatalf("expected invalid_payload, got %v", err)
		}
		if len(appErr.Fields) != 2 {
			t.Errorf("expected 2 field errors, got %v", appErr.Fields)
		}
	})
}

func TestEventServiceTenantIsolation(t *testing.T) {
	repo := mocks.NewMockEventRepository()
	svc := NewEventService(repo, testLogger())
	ctx := context.Background()

	event, err := svc.Create(ctx, "tenant-1", EventInput{Title: "t1 event", StartsAt: time.Now()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Another tenant sees the id as absent, for read, update and delete.
	if _, err := svc.Get(ctx, "tenant-2", event.ID); !isNotFound(err) {
		t.Errorf("cross-tenant Get: expected not_found, got %v", err)
	}
	if _, err := svc.Update(ctx, "tenant-2", event.ID, EventInput{Title: "x", StartsAt: time.Now()}); !isNotFound(err) {
		t.Errorf("cross-tenant Update: expected not_found, got %v", err)
	}
	if err := svc.Delete(ctx, "tenant-2", event.ID); !isNotFound(err) {
		t.Errorf("cross-tenant Delete: expected not_found, got %v", err)
	}

	// The owner still sees it.
	if _, err := svc.Get(ctx, "tenant-1", event.ID); err != nil {
		t.Errorf("owner Get: %v", err)
	}
}

func TestEventServiceUpdateAndDelete(t *testing.T) {
	repo := mocks.NewMockEventRepository()
	svc := NewEventService(repo, testLogger())
	ctx := context.Background()

	event, _ := svc.Create(ctx, "tenant-1", EventInput{Title: "before", StartsAt: time.Now()})

	updated, err := svc.Update(ctx, "tenant-1", event.ID, EventInput{Title: "after", StartsAt: event.StartsAt})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "after" {
		t.Errorf("Title = %q, want after", updated.Title)
	}

	if err := svc.Delete(ctx, "tenant-1", event.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "tenant-1", event.ID); !isNotFound(err) {
		t.Errorf("Get after delete: expected not_found, got %v", err)
	}
}

func isNotFound(err error) bool {
	appErr, ok := domain.AsError(err)
	return ok && appErr.Code == domain.CodeNotFound
}
