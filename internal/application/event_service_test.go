package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type eventRepositoryStub struct {
	events map[string]Event

	createErr error
	updateErr error
}

func newEventRepositoryStub() *eventRepositoryStub {
	return &eventRepositoryStub{events: make(map[string]Event)}
}

func (s *eventRepositoryStub) CreateEvent(ctx context.Context, event Event) (Event, error) {
	if s.createErr != nil {
		return Event{}, s.createErr
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *eventRepositoryStub) GetEvent(ctx context.Context, id string) (Event, error) {
	event, ok := s.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return event, nil
}

func (s *eventRepositoryStub) UpdateEvent(ctx context.Context, event Event) (Event, error) {
	if s.updateErr != nil {
		return Event{}, s.updateErr
	}
	if _, ok := s.events[event.ID]; !ok {
		return Event{}, ErrNotFound
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *eventRepositoryStub) DeleteEvent(ctx context.Context, id string) error {
	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *eventRepositoryStub) ListEvents(ctx context.Context) ([]Event, error) {
	events := make([]Event, 0, len(s.events))
	for _, event := range s.events {
		events = append(events, event)
	}
	return events, nil
}

func (s *eventRepositoryStub) DeleteAllEvents(ctx context.Context) error {
	s.events = make(map[string]Event)
	return nil
}

func (s *eventRepositoryStub) SetAttendeeResponse(ctx context.Context, eventID, userID string, response AttendeeResponse) error {
	event, ok := s.events[eventID]
	if !ok {
		return ErrNotFound
	}
	for i, attendee := range event.Attendees {
		if attendee.UserID == userID {
			event.Attendees[i].Response = response
			s.events[eventID] = event
			return nil
		}
	}
	return ErrNotFound
}

type userDirectoryStub struct {
	known map[string]struct{}
}

func newUserDirectoryStub(ids ...string) *userDirectoryStub {
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	return &userDirectoryStub{known: known}
}

func (s *userDirectoryStub) MissingUserIDs(ctx context.Context, ids []string) ([]string, error) {
	var missing []string
	for _, id := range ids {
		if _, ok := s.known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type roomCatalogStub struct {
	known map[string]struct{}
}

func (s *roomCatalogStub) RoomExists(ctx context.Context, id string) (bool, error) {
	_, ok := s.known[id]
	return ok, nil
}

type changeNotifierStub struct {
	calls []NotificationAction
	err   error
}

func (s *changeNotifierStub) RecordEventChange(ctx context.Context, actor Principal, event Event, action NotificationAction) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, action)
	return nil
}

type publishedMessage struct {
	eventType string
	payload   any
}

type broadcasterStub struct {
	published []publishedMessage
}

func (s *broadcasterStub) Publish(eventType string, payload any) {
	s.published = append(s.published, publishedMessage{eventType: eventType, payload: payload})
}

func validEventInput() EventInput {
	return EventInput{
		Title:       "Planning",
		StartsAt:    time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		EndsAt:      time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC),
		AttendeeIDs: []string{"user-2", "user-3"},
	}
}

func TestEventService_CreateEvent(t *testing.T) {
	t.Parallel()

	organizer := Principal{UserID: "user-1", Email: "org@example.com", DisplayName: "Organizer"}

	t.Run("persists the event with a pending roster", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		notifier := &changeNotifierStub{}
		broadcaster := &broadcasterStub{}
		now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		svc := NewEventService(repo, newUserDirectoryStub("user-2", "user-3"), nil, notifier, broadcaster, sequenceIDs("event-1"), func() time.Time { return now })

		input := validEventInput()
		input.AttendeeIDs = []string{"user-3", "user-2", "user-3", " "}

		event, err := svc.CreateEvent(context.Background(), CreateEventParams{Principal: organizer, Input: input})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}

		if event.ID != "event-1" {
			t.Fatalf("expected generated id, got %q", event.ID)
		}
		if event.OrganizerID != "user-1" {
			t.Fatalf("expected organizer user-1, got %q", event.OrganizerID)
		}
		if len(event.Attendees) != 2 {
			t.Fatalf("expected deduplicated roster of 2, got %d", len(event.Attendees))
		}
		for _, attendee := range event.Attendees {
			if attendee.Response != ResponsePending {
				t.Fatalf("expected pending RSVP for %s, got %s", attendee.UserID, attendee.Response)
			}
		}

		if len(notifier.calls) != 1 || notifier.calls[0] != ActionEventCreated {
			t.Fatalf("expected one event_created notification, got %v", notifier.calls)
		}
		if len(broadcaster.published) != 1 || broadcaster.published[0].eventType != BroadcastEventCreated {
			t.Fatalf("expected one event:created broadcast, got %v", broadcaster.published)
		}
	})

	t.Run("rejects inverted time ranges", func(t *testing.T) {
		t.Parallel()

		svc := NewEventService(newEventRepositoryStub(), nil, nil, nil, nil, nil, nil)

		input := validEventInput()
		input.StartsAt, input.EndsAt = input.EndsAt, input.StartsAt

		_, err := svc.CreateEvent(context.Background(), CreateEventParams{Principal: organizer, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["time"]; !ok {
			t.Fatalf("expected time field error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects unknown attendees", func(t *testing.T) {
		t.Parallel()

		svc := NewEventService(newEventRepositoryStub(), newUserDirectoryStub("user-2"), nil, nil, nil, nil, nil)

		_, err := svc.CreateEvent(context.Background(), CreateEventParams{Principal: organizer, Input: validEventInput()})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if msg := vErr.FieldErrors["attendees"]; msg != "unknown user ids: user-3" {
			t.Fatalf("unexpected attendees error: %q", msg)
		}
	})

	t.Run("rejects unknown rooms", func(t *testing.T) {
		t.Parallel()

		rooms := &roomCatalogStub{known: map[string]struct{}{"room-1": {}}}
		svc := NewEventService(newEventRepositoryStub(), newUserDirectoryStub("user-2", "user-3"), rooms, nil, nil, nil, nil)

		input := validEventInput()
		missing := "room-9"
		input.RoomID = &missing

		_, err := svc.CreateEvent(context.Background(), CreateEventParams{Principal: organizer, Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["room_id"]; !ok {
			t.Fatalf("expected room_id field error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("still succeeds when recording the notification fails", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		notifier := &changeNotifierStub{err: fmt.Errorf("log unavailable")}
		broadcaster := &broadcasterStub{}
		svc := NewEventService(repo, nil, nil, notifier, broadcaster, sequenceIDs("event-1"), nil)

		event, err := svc.CreateEvent(context.Background(), CreateEventParams{Principal: organizer, Input: validEventInput()})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if _, ok := repo.events[event.ID]; !ok {
			t.Fatal("expected event to be persisted")
		}
		if len(broadcaster.published) != 0 {
			t.Fatalf("expected no broadcast after notification failure, got %v", broadcaster.published)
		}
	})
}

func TestEventService_UpdateEvent(t *testing.T) {
	t.Parallel()

	organizer := Principal{UserID: "user-1"}

	seed := func(t *testing.T) (*eventRepositoryStub, Event) {
		t.Helper()
		repo := newEventRepositoryStub()
		event := Event{
			ID:          "event-1",
			Title:       "Planning",
			StartsAt:    time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
			EndsAt:      time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC),
			OrganizerID: "user-1",
			Attendees: []Attendee{
				{UserID: "user-2", Response: ResponseAccepted},
				{UserID: "user-3", Response: ResponseDeclined},
			},
		}
		repo.events[event.ID] = event
		return repo, event
	}

	t.Run("preserves existing RSVP states while adding newcomers", func(t *testing.T) {
		t.Parallel()

		repo, _ := seed(t)
		svc := NewEventService(repo, newUserDirectoryStub("user-2", "user-4"), nil, nil, nil, nil, nil)

		input := validEventInput()
		input.AttendeeIDs = []string{"user-2", "user-4"}

		updated, err := svc.UpdateEvent(context.Background(), UpdateEventParams{Principal: organizer, EventID: "event-1", Input: input})
		if err != nil {
			t.Fatalf("UpdateEvent failed: %v", err)
		}

		responses := make(map[string]AttendeeResponse, len(updated.Attendees))
		for _, attendee := range updated.Attendees {
			responses[attendee.UserID] = attendee.Response
		}
		if responses["user-2"] != ResponseAccepted {
			t.Errorf("expected user-2 to keep accepted, got %s", responses["user-2"])
		}
		if responses["user-4"] != ResponsePending {
			t.Errorf("expected newcomer user-4 pending, got %s", responses["user-4"])
		}
		if _, ok := responses["user-3"]; ok {
			t.Error("expected user-3 to be removed from the roster")
		}
	})

	t.Run("refuses non-organizers", func(t *testing.T) {
		t.Parallel()

		repo, _ := seed(t)
		svc := NewEventService(repo, nil, nil, nil, nil, nil, nil)

		_, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
			Principal: Principal{UserID: "user-2"},
			EventID:   "event-1",
			Input:     validEventInput(),
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("reports missing events", func(t *testing.T) {
		t.Parallel()

		svc := NewEventService(newEventRepositoryStub(), nil, nil, nil, nil, nil, nil)

		_, err := svc.UpdateEvent(context.Background(), UpdateEventParams{Principal: organizer, EventID: "nope", Input: validEventInput()})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEventService_DeleteEvent(t *testing.T) {
	t.Parallel()

	t.Run("broadcasts the deletion without a notification", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		repo.events["event-1"] = Event{ID: "event-1", Title: "Planning", OrganizerID: "user-1"}
		notifier := &changeNotifierStub{}
		broadcaster := &broadcasterStub{}
		svc := NewEventService(repo, nil, nil, notifier, broadcaster, nil, nil)

		if err := svc.DeleteEvent(context.Background(), Principal{UserID: "user-1"}, "event-1"); err != nil {
			t.Fatalf("DeleteEvent failed: %v", err)
		}

		if len(repo.events) != 0 {
			t.Fatal("expected event to be removed")
		}
		if len(notifier.calls) != 0 {
			t.Fatalf("expected no notification on delete, got %v", notifier.calls)
		}
		if len(broadcaster.published) != 1 || broadcaster.published[0].eventType != BroadcastEventDeleted {
			t.Fatalf("expected one event:deleted broadcast, got %v", broadcaster.published)
		}
	})

	t.Run("refuses non-organizers", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		repo.events["event-1"] = Event{ID: "event-1", OrganizerID: "user-1"}
		svc := NewEventService(repo, nil, nil, nil, nil, nil, nil)

		err := svc.DeleteEvent(context.Background(), Principal{UserID: "user-2"}, "event-1")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestEventService_DeleteAllEvents(t *testing.T) {
	t.Parallel()

	repo := newEventRepositoryStub()
	repo.events["event-1"] = Event{ID: "event-1"}
	svc := NewEventService(repo, nil, nil, nil, nil, nil, nil)

	if err := svc.DeleteAllEvents(context.Background(), Principal{UserID: "user-2"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin, got %v", err)
	}
	if len(repo.events) != 1 {
		t.Fatal("expected events to survive unauthorized wipe")
	}

	if err := svc.DeleteAllEvents(context.Background(), Principal{UserID: "admin-1", IsAdmin: true}); err != nil {
		t.Fatalf("DeleteAllEvents failed: %v", err)
	}
	if len(repo.events) != 0 {
		t.Fatal("expected all events to be removed")
	}
}

func TestEventService_ListEvents(t *testing.T) {
	t.Parallel()

	repo := newEventRepositoryStub()
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	repo.events["event-b"] = Event{ID: "event-b", StartsAt: base.Add(time.Hour)}
	repo.events["event-c"] = Event{ID: "event-c", StartsAt: base}
	repo.events["event-a"] = Event{ID: "event-a", StartsAt: base}

	svc := NewEventService(repo, nil, nil, nil, nil, nil, nil)

	events, err := svc.ListEvents(context.Background(), ListEventsParams{Principal: Principal{UserID: "user-1"}})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}

	got := make([]string, 0, len(events))
	for _, event := range events {
		got = append(got, event.ID)
	}
	want := []string{"event-a", "event-c", "event-b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestEventService_ListEventsRangeFilter(t *testing.T) {
	t.Parallel()

	repo := newEventRepositoryStub()
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	repo.events["event-before"] = Event{ID: "event-before", StartsAt: base.Add(-2 * time.Hour), EndsAt: base.Add(-time.Hour)}
	repo.events["event-overlap"] = Event{ID: "event-overlap", StartsAt: base.Add(-time.Hour), EndsAt: base.Add(time.Hour)}
	repo.events["event-inside"] = Event{ID: "event-inside", StartsAt: base.Add(time.Hour), EndsAt: base.Add(2 * time.Hour)}
	repo.events["event-after"] = Event{ID: "event-after", StartsAt: base.Add(4 * time.Hour), EndsAt: base.Add(5 * time.Hour)}
	// An event touching the range boundary does not overlap it.
	repo.events["event-edge"] = Event{ID: "event-edge", StartsAt: base.Add(3 * time.Hour), EndsAt: base.Add(4 * time.Hour)}

	svc := NewEventService(repo, nil, nil, nil, nil, nil, nil)

	events, err := svc.ListEvents(context.Background(), ListEventsParams{
		Principal: Principal{UserID: "user-1"},
		From:      base,
		To:        base.Add(3 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}

	got := make([]string, 0, len(events))
	for _, event := range events {
		got = append(got, event.ID)
	}
	want := []string{"event-overlap", "event-inside"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestEventService_RespondToEvent(t *testing.T) {
	t.Parallel()

	t.Run("updates the attendee RSVP", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		repo.events["event-1"] = Event{
			ID:          "event-1",
			OrganizerID: "user-1",
			Attendees:   []Attendee{{UserID: "user-2", Response: ResponsePending}},
		}
		svc := NewEventService(repo, nil, nil, nil, nil, nil, nil)

		err := svc.RespondToEvent(context.Background(), RespondToEventParams{
			Principal: Principal{UserID: "user-2"},
			EventID:   "event-1",
			Response:  ResponseAccepted,
		})
		if err != nil {
			t.Fatalf("RespondToEvent failed: %v", err)
		}
		if got := repo.events["event-1"].Attendees[0].Response; got != ResponseAccepted {
			t.Fatalf("expected accepted, got %s", got)
		}
	})

	t.Run("rejects unknown response states", func(t *testing.T) {
		t.Parallel()

		svc := NewEventService(newEventRepositoryStub(), nil, nil, nil, nil, nil, nil)

		err := svc.RespondToEvent(context.Background(), RespondToEventParams{
			Principal: Principal{UserID: "user-2"},
			EventID:   "event-1",
			Response:  AttendeeResponse("maybe"),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("reports non-attendees as not found", func(t *testing.T) {
		t.Parallel()

		repo := newEventRepositoryStub()
		repo.events["event-1"] = Event{ID: "event-1", OrganizerID: "user-1"}
		svc := NewEventService(repo, nil, nil, nil, nil, nil, nil)

		err := svc.RespondToEvent(context.Background(), RespondToEventParams{
			Principal: Principal{UserID: "user-9"},
			EventID:   "event-1",
			Response:  ResponseDeclined,
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
