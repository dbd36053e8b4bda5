package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/office-calendar/internal/persistence"
)

func testEvent(id, organizerID string) persistence.Event {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return persistence.Event{
		ID:          id,
		Title:       "Sprint planning",
		StartsAt:    time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		EndsAt:      time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC),
		OrganizerID: organizerID,
		Visibility:  "public",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestEventRepository_CreateEvent_WithRoster(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewEventRepository(pool)
	ctx := context.Background()

	mustCreateUser(t, pool, "organizer", "organizer@example.com")
	mustCreateUser(t, pool, "alice", "alice@example.com")
	mustCreateUser(t, pool, "bob", "bob@example.com")

	event := testEvent("event1", "organizer")
	event.Attendees = []persistence.Attendee{
		{UserID: "alice"},
		{UserID: "bob", Response: "accepted"},
		{UserID: "alice"}, // duplicate collapses
	}

	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	retrieved, err := repo.GetEvent(ctx, "event1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if len(retrieved.Attendees) != 2 {
		t.Fatalf("Expected 2 attendees, got %d", len(retrieved.Attendees))
	}
	if retrieved.Attendees[0].UserID != "alice" || retrieved.Attendees[0].Response != "pending" {
		t.Errorf("Unexpected first attendee: %+v", retrieved.Attendees[0])
	}
	if retrieved.Attendees[1].Response != "accepted" {
		t.Errorf("Expected bob to be accepted, got %q", retrieved.Attendees[1].Response)
	}
}

func TestEventRepository_CreateEvent_RosterFailureRollsBackEvent(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewEventRepository(pool)
	ctx := context.Background()

	mustCreateUser(t, pool, "organizer", "organizer@example.com")

	event := testEvent("event1", "organizer")
	event.Attendees = []persistence.Attendee{{UserID: "ghost"}}

	err := repo.CreateEvent(ctx, event)
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("Expected ErrForeignKeyViolation, got %v", err)
	}

	// The event row must not survive the failed roster insert.
	if _, err := repo.GetEvent(ctx, "event1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after rollback, got %v", err)
	}
}

func TestEventRepository_CreateEvent_RejectsInvertedRange(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewEventRepository(pool)

	mustCreateUser(t, pool, "organizer", "organizer@example.com")

	event := testEvent("event1", "organizer")
	event.StartsAt, event.EndsAt = event.EndsAt, event.StartsAt

	err := repo.CreateEvent(context.Background(), event)
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("Expected ErrConstraintViolation, got %v", err)
	}
}

func TestEventRepository_UpdateEvent_ReplacesRoster(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewEventRepository(pool)
	ctx := context.Background()

	mustCreateUser(t, pool, "organizer", "organizer@example.com")
	mustCreateUser(t, pool, "alice", "alice@example.com")
	mustCreateUser(t, pool, "bob", "bob@example.com")

	event := testEvent("event1", "organizer")
	event.Attendees = []persistence.Attendee{{UserID: "alice", Response: "accepted"}}
	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	event.Title = "Sprint review"
	event.Attendees = []persistence.Attendee{{UserID: "bob"}}
	event.UpdatedAt = time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := repo.UpdateEvent(ctx, event); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}

	retrieved, err := repo.GetEvent(ctx, "event1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if retrieved.Title != "Sprint review" {
		t.Errorf("Expected updated title, got %q", retrieved.Title)
	}
	if len(retrieved.Attendees) != 1 || retrieved.Attendees[0].UserID != "bob" {
		t.Fatalf("Expected roster replaced with bob, got %+v", retrieved.Attendees)
	}
}

func TestEventRepository_UpdateEvent_NotFound(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewEventRepository(pool)

	mustCreateUser(t, pool, "organizer", "organizer@example.com")

	err := repo.UpdateEvent(context.Background(), testEvent("missing", "organizer"))
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository_ListEvents_OrderedByStart(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewEventRepository(pool)
	ctx := context.Background()

	mustCreateUser(t, pool, "organizer", "organizer@example.com")

	later := testEvent("later", "organizer")
	later.StartsAt = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	later.EndsAt = time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)

	earlier := testEvent("earlier", "organizer")

	for _, event := range []persistence.Event{later, earlier} {
		if err := repo.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent(%s) failed: %v", event.ID, err)
		}
	}

	events, err := repo.ListEvents(ctx)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].ID != "earlier" || events[1].ID != "later" {
		t.Fatalf("Expected start-time order, got %s then %s", events[0].ID, events[1].ID)
	}
}

func TestEventRepository_DeleteEvent(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewEventRepository(pool)
	ctx := context.Background()

	mustCreateUser(t, pool, "organizer", "organizer@example.com")
	mustCreateUser(t, pool, "alice", "alice@example.com")

	event := testEvent("event1", "organizer")
	event.Attendees = []persistence.Attendee{{UserID: "alice"}}
	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	if err := repo.DeleteEvent(ctx, "event1"); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}

	if _, err := repo.GetEvent(ctx, "event1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	if err := repo.DeleteEvent(ctx, "event1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for repeated delete, got %v", err)
	}
}

func TestEventRepository_DeleteAllEvents(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewEventRepository(pool)
	ctx := context.Background()

	mustCreateUser(t, pool, "organizer", "organizer@example.com")

	for _, id := range []string{"event1", "event2"} {
		if err := repo.CreateEvent(ctx, testEvent(id, "organizer")); err != nil {
			t.Fatalf("CreateEvent(%s) failed: %v", id, err)
		}
	}

	if err := repo.DeleteAllEvents(ctx); err != nil {
		t.Fatalf("DeleteAllEvents failed: %v", err)
	}

	events, err := repo.ListEvents(ctx)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("Expected empty list, got %d events", len(events))
	}
}

func TestEventRepository_SetAttendeeResponse(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewEventRepository(pool)
	ctx := context.Background()

	mustCreateUser(t, pool, "organizer", "organizer@example.com")
	mustCreateUser(t, pool, "alice", "alice@example.com")

	event := testEvent("event1", "organizer")
	event.Attendees = []persistence.Attendee{{UserID: "alice"}}
	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	if err := repo.SetAttendeeResponse(ctx, "event1", "alice", "declined"); err != nil {
		t.Fatalf("SetAttendeeResponse failed: %v", err)
	}

	retrieved, err := repo.GetEvent(ctx, "event1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if retrieved.Attendees[0].Response != "declined" {
		t.Errorf("Expected declined, got %q", retrieved.Attendees[0].Response)
	}

	err = repo.SetAttendeeResponse(ctx, "event1", "organizer", "accepted")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for non-attendee, got %v", err)
	}
}
