package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/office-calendar/internal/persistence"
)

// Broadcast event names delivered to connected clients.
const (
	BroadcastEventCreated        = "event:created"
	BroadcastEventUpdated        = "event:updated"
	BroadcastEventDeleted        = "event:deleted"
	BroadcastNotificationCreated = "notification:created"
	BroadcastPresenceUpdated     = "presence:updated"
)

// EventRepository captures the persistence interactions needed by the service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context) ([]Event, error)
	DeleteAllEvents(ctx context.Context) error
	SetAttendeeResponse(ctx context.Context, eventID, userID string, response AttendeeResponse) error
}

// UserDirectory exposes user lookup operations.
type UserDirectory interface {
	MissingUserIDs(ctx context.Context, ids []string) ([]string, error)
}

// RoomCatalog exposes room lookup operations.
type RoomCatalog interface {
	RoomExists(ctx context.Context, id string) (bool, error)
}

// ChangeNotifier records a notification for an event change. Recording
// failures must not fail the originating write.
type ChangeNotifier interface {
	RecordEventChange(ctx context.Context, actor Principal, event Event, action NotificationAction) error
}

// Broadcaster fans an event out to connected realtime clients. Delivery
// is best-effort.
type Broadcaster interface {
	Publish(eventType string, payload any)
}

// EventService orchestrates validation, persistence, notification and
// broadcast for event writes.
type EventService struct {
	events      EventRepository
	users       UserDirectory
	rooms       RoomCatalog
	notifier    ChangeNotifier
	broadcaster Broadcaster
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(events EventRepository, users UserDirectory, rooms RoomCatalog, notifier ChangeNotifier, broadcaster Broadcaster, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, users, rooms, notifier, broadcaster, idGenerator, now, nil)
}

// NewEventServiceWithLogger wires an EventService with a specified logger.
func NewEventServiceWithLogger(events EventRepository, users UserDirectory, rooms RoomCatalog, notifier ChangeNotifier, broadcaster Broadcaster, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		users:       users,
		rooms:       rooms,
		notifier:    notifier,
		broadcaster: broadcaster,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates the request, persists the event with its roster
// atomically, then records a notification and broadcasts the change.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	input := params.Input
	principal := params.Principal
	logger := s.loggerWith(ctx, "CreateEvent", "actor_id", principal.UserID)

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	if err := s.ensureAttendeesExist(ctx, input.AttendeeIDs); err != nil {
		return Event{}, err
	}
	if err := s.ensureRoomExists(ctx, input.RoomID); err != nil {
		return Event{}, err
	}

	createdAt := s.now()
	event := Event{
		ID:             s.idGenerator(),
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		StartsAt:       input.StartsAt,
		EndsAt:         input.EndsAt,
		OrganizerID:    principal.UserID,
		RoomID:         input.RoomID,
		RecurrenceRule: input.RecurrenceRule,
		Visibility:     "public",
		Attendees:      buildRoster(input.AttendeeIDs),
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}

	persisted, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	s.recordAndBroadcast(ctx, logger, principal, persisted, ActionEventCreated, BroadcastEventCreated)

	return persisted, nil
}

// UpdateEvent applies validation and authorization before updating
// persistence state. Only the organizer may update an event.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	principal := params.Principal
	logger := s.loggerWith(ctx, "UpdateEvent", "actor_id", principal.UserID, "event_id", params.EventID)

	existing, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	if existing.OrganizerID != principal.UserID {
		return Event{}, ErrUnauthorized
	}

	input := params.Input
	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	if err := s.ensureAttendeesExist(ctx, input.AttendeeIDs); err != nil {
		return Event{}, err
	}
	if err := s.ensureRoomExists(ctx, input.RoomID); err != nil {
		return Event{}, err
	}

	updated := existing
	updated.Title = strings.TrimSpace(input.Title)
	updated.Description = input.Description
	updated.StartsAt = input.StartsAt
	updated.EndsAt = input.EndsAt
	updated.RoomID = input.RoomID
	updated.RecurrenceRule = input.RecurrenceRule
	updated.Attendees = mergeRoster(existing.Attendees, input.AttendeeIDs)
	updated.UpdatedAt = s.now()

	persisted, err := s.events.UpdateEvent(ctx, updated)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}

	s.recordAndBroadcast(ctx, logger, principal, persisted, ActionEventUpdated, BroadcastEventUpdated)

	return persisted, nil
}

// DeleteEvent ensures authorization before delegating to persistence.
// Deletes emit no notification; connected clients only receive the
// broadcast so they can drop the row.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	existing, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return mapEventRepoError(err)
	}

	if existing.OrganizerID != principal.UserID {
		return ErrUnauthorized
	}

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		return mapEventRepoError(err)
	}

	if s.broadcaster != nil {
		s.broadcaster.Publish(BroadcastEventDeleted, existing)
	}

	return nil
}

// DeleteAllEvents wipes every event. Restricted to administrators.
func (s *EventService) DeleteAllEvents(ctx context.Context, principal Principal) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "DeleteAllEvents", "actor_id", principal.UserID)
	if err := s.events.DeleteAllEvents(ctx); err != nil {
		return mapEventRepoError(err)
	}
	logger.InfoContext(ctx, "all events deleted")

	return nil
}

// ListEvents enumerates events ordered by start time. When a range is
// given, only events overlapping it are returned.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]Event, 0, len(events))
	for _, event := range events {
		if !params.To.IsZero() && !event.StartsAt.Before(params.To) {
			continue
		}
		if !params.From.IsZero() && !event.EndsAt.After(params.From) {
			continue
		}
		ordered = append(ordered, event)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartsAt.Equal(ordered[j].StartsAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].StartsAt.Before(ordered[j].StartsAt)
	})

	return ordered, nil
}

// GetEvent returns one event by id.
func (s *EventService) GetEvent(ctx context.Context, principal Principal, eventID string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return event, nil
}

// RespondToEvent records the caller's RSVP for an event they are
// invited to.
func (s *EventService) RespondToEvent(ctx context.Context, params RespondToEventParams) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	if !ValidResponse(string(params.Response)) {
		vErr := &ValidationError{}
		vErr.add("response", "response must be one of pending, accepted, declined, tentative")
		return vErr
	}

	err := s.events.SetAttendeeResponse(ctx, params.EventID, params.Principal.UserID, params.Response)
	if err != nil {
		return mapEventRepoError(err)
	}

	return nil
}

// recordAndBroadcast runs the post-commit side effects of a write. A
// notification failure is logged and skipped so the write still
// succeeds; the broadcast only fires after a recorded notification.
func (s *EventService) recordAndBroadcast(ctx context.Context, logger *slog.Logger, actor Principal, event Event, action NotificationAction, broadcastType string) {
	if s.notifier != nil {
		if err := s.notifier.RecordEventChange(ctx, actor, event, action); err != nil {
			logger.ErrorContext(ctx, "failed to record notification", "error", err, "error_kind", ErrorKind(err))
			return
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.Publish(broadcastType, event)
	}
}

func (s *EventService) ensureAttendeesExist(ctx context.Context, ids []string) error {
	if s.users == nil {
		return nil
	}
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil
	}
	missing, err := s.users.MissingUserIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("attendees", fmt.Sprintf("unknown user ids: %s", strings.Join(sortStrings(missing), ", ")))
	return vErr
}

func (s *EventService) ensureRoomExists(ctx context.Context, roomID *string) error {
	if roomID == nil || s.rooms == nil {
		return nil
	}
	exists, err := s.rooms.RoomExists(ctx, *roomID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("room_id", "room does not exist")
	return vErr
}

func validateEventCore(input EventInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}

	if input.StartsAt.IsZero() {
		vErr.add("starts_at", "starts_at is required")
	}
	if input.EndsAt.IsZero() {
		vErr.add("ends_at", "ends_at is required")
	}
	if !input.StartsAt.IsZero() && !input.EndsAt.IsZero() && !input.StartsAt.Before(input.EndsAt) {
		vErr.add("time", "starts_at must be before ends_at")
	}
}

// buildRoster converts attendee ids into pending roster entries,
// dropping duplicates and blanks.
func buildRoster(ids []string) []Attendee {
	unique := uniqueStrings(ids)
	if len(unique) == 0 {
		return nil
	}
	roster := make([]Attendee, 0, len(unique))
	for _, id := range sortStrings(unique) {
		roster = append(roster, Attendee{UserID: id, Response: ResponsePending})
	}
	return roster
}

// mergeRoster keeps existing RSVP states for attendees that remain on
// the roster and adds newcomers as pending.
func mergeRoster(existing []Attendee, ids []string) []Attendee {
	responses := make(map[string]AttendeeResponse, len(existing))
	for _, attendee := range existing {
		responses[attendee.UserID] = attendee.Response
	}

	unique := uniqueStrings(ids)
	if len(unique) == 0 {
		return nil
	}
	roster := make([]Attendee, 0, len(unique))
	for _, id := range sortStrings(unique) {
		response, ok := responses[id]
		if !ok {
			response = ResponsePending
		}
		roster = append(roster, Attendee{UserID: id, Response: response})
	}
	return roster
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func sortStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "starts_at must be before ends_at")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("attendees", "related records are missing")
		return vErr
	}
	return err
}
