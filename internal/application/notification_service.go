package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/office-calendar/internal/persistence"
)

// Feed pagination bounds.
const (
	defaultFeedPageSize = 20
	maxFeedPageSize     = 100
)

// NotificationFeedFilter narrows queries issued to the notification repository.
type NotificationFeedFilter struct {
	UserID      string
	IncludeRead bool
	Offset      int
	Limit       int
}

// NotificationRepository captures the persistence interactions needed by the service.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) (Notification, error)
	GetNotification(ctx context.Context, id string) (Notification, error)
	ListFeed(ctx context.Context, filter NotificationFeedFilter) ([]FeedItem, error)
	Dismiss(ctx context.Context, notificationID, userID string, dismissedAt time.Time) error
}

// EventLookup resolves events for notification fan-out.
type EventLookup interface {
	GetEvent(ctx context.Context, id string) (Event, error)
}

// UserLookup resolves users for actor name fallback.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// NotificationService owns the notification log: side-effect recording,
// the per-user feed, idempotent dismissal and manual fan-out.
type NotificationService struct {
	notifications NotificationRepository
	events        EventLookup
	users         UserLookup
	broadcaster   Broadcaster
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewNotificationService wires dependencies for notification operations.
func NewNotificationService(notifications NotificationRepository, events EventLookup, users UserLookup, broadcaster Broadcaster, idGenerator func() string, now func() time.Time) *NotificationService {
	return NewNotificationServiceWithLogger(notifications, events, users, broadcaster, idGenerator, now, nil)
}

// NewNotificationServiceWithLogger wires a NotificationService with a specified logger.
func NewNotificationServiceWithLogger(notifications NotificationRepository, events EventLookup, users UserLookup, broadcaster Broadcaster, idGenerator func() string, now func() time.Time, logger *slog.Logger) *NotificationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &NotificationService{
		notifications: notifications,
		events:        events,
		users:         users,
		broadcaster:   broadcaster,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *NotificationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NotificationService", operation, attrs...)
}

// RecordEventChange appends a broadcast log entry for an event write and
// publishes it to connected clients.
func (s *NotificationService) RecordEventChange(ctx context.Context, actor Principal, event Event, action NotificationAction) error {
	if s == nil {
		return fmt.Errorf("NotificationService is nil")
	}
	if s.notifications == nil {
		return fmt.Errorf("notification repository not configured")
	}

	actorName := s.resolveActorName(ctx, actor)

	var verb string
	switch action {
	case ActionEventCreated:
		verb = "created"
	case ActionEventUpdated:
		verb = "updated"
	default:
		return fmt.Errorf("unsupported action %q", action)
	}

	eventID := event.ID
	notification := Notification{
		ID:        s.idGenerator(),
		ActorID:   actor.UserID,
		ActorName: actorName,
		Action:    action,
		Message:   fmt.Sprintf("%s %s event '%s'", actorName, verb, event.Title),
		EventID:   &eventID,
		CreatedAt: s.now(),
	}

	persisted, err := s.notifications.CreateNotification(ctx, notification)
	if err != nil {
		return mapNotificationRepoError(err)
	}

	if s.broadcaster != nil {
		s.broadcaster.Publish(BroadcastNotificationCreated, persisted)
	}

	return nil
}

// Feed returns one page of the caller's notification feed, newest first.
// Page numbers start at 1; the page size is clamped to [1, 100].
func (s *NotificationService) Feed(ctx context.Context, params FeedParams) ([]FeedItem, error) {
	if s == nil {
		return nil, fmt.Errorf("NotificationService is nil")
	}
	if s.notifications == nil {
		return nil, fmt.Errorf("notification repository not configured")
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = defaultFeedPageSize
	}
	if pageSize > maxFeedPageSize {
		pageSize = maxFeedPageSize
	}

	items, err := s.notifications.ListFeed(ctx, NotificationFeedFilter{
		UserID:      params.Principal.UserID,
		IncludeRead: params.IncludeRead,
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize,
	})
	if err != nil {
		return nil, mapNotificationRepoError(err)
	}

	return items, nil
}

// Dismiss marks a notification read for the caller. Repeating the call
// is a no-op; only a missing notification is an error.
func (s *NotificationService) Dismiss(ctx context.Context, principal Principal, notificationID string) error {
	if s == nil {
		return fmt.Errorf("NotificationService is nil")
	}
	if s.notifications == nil {
		return fmt.Errorf("notification repository not configured")
	}

	if _, err := s.notifications.GetNotification(ctx, notificationID); err != nil {
		return mapNotificationRepoError(err)
	}

	if err := s.notifications.Dismiss(ctx, notificationID, principal.UserID, s.now()); err != nil {
		return mapNotificationRepoError(err)
	}

	return nil
}

// ManualNotify fans a message out for an event: one entry per explicit
// recipient, or per roster member other than the actor, falling back to
// a single broadcast entry when the roster is empty. Returns the number
// of entries created. Only the organizer may notify.
func (s *NotificationService) ManualNotify(ctx context.Context, params ManualNotifyParams) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("NotificationService is nil")
	}
	if s.notifications == nil {
		return 0, fmt.Errorf("notification repository not configured")
	}
	if s.events == nil {
		return 0, fmt.Errorf("event lookup not configured")
	}

	principal := params.Principal
	logger := s.loggerWith(ctx, "ManualNotify", "actor_id", principal.UserID, "event_id", params.EventID)

	event, err := s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		return 0, mapNotificationRepoError(err)
	}

	if event.OrganizerID != principal.UserID {
		return 0, ErrUnauthorized
	}

	actorName := s.resolveActorName(ctx, principal)
	message := strings.TrimSpace(params.Message)
	if message == "" {
		message = fmt.Sprintf("%s sent a reminder for event '%s'", actorName, event.Title)
	}

	recipients := uniqueStrings(params.RecipientIDs)
	if len(recipients) == 0 {
		for _, attendee := range event.Attendees {
			if attendee.UserID == principal.UserID {
				continue
			}
			recipients = append(recipients, attendee.UserID)
		}
	}

	eventID := event.ID
	now := s.now()

	build := func(recipientID *string) Notification {
		return Notification{
			ID:          s.idGenerator(),
			ActorID:     principal.UserID,
			ActorName:   actorName,
			RecipientID: recipientID,
			Action:      ActionManualNotification,
			Message:     message,
			EventID:     &eventID,
			CreatedAt:   now,
		}
	}

	var created int
	if len(recipients) == 0 {
		// Empty roster degrades to a single broadcast entry.
		persisted, err := s.notifications.CreateNotification(ctx, build(nil))
		if err != nil {
			return 0, mapNotificationRepoError(err)
		}
		created = 1
		if s.broadcaster != nil {
			s.broadcaster.Publish(BroadcastNotificationCreated, persisted)
		}
	} else {
		for _, recipient := range recipients {
			recipientID := recipient
			persisted, err := s.notifications.CreateNotification(ctx, build(&recipientID))
			if err != nil {
				return created, mapNotificationRepoError(err)
			}
			created++
			if s.broadcaster != nil {
				s.broadcaster.Publish(BroadcastNotificationCreated, persisted)
			}
		}
	}

	logger.With("notified", created).InfoContext(ctx, "manual notification recorded")
	return created, nil
}

// resolveActorName follows a fixed chain: token name claim, then email
// claim, then the stored display name, then "unknown".
func (s *NotificationService) resolveActorName(ctx context.Context, actor Principal) string {
	if name := strings.TrimSpace(actor.DisplayName); name != "" {
		return name
	}
	if email := strings.TrimSpace(actor.Email); email != "" {
		return email
	}
	if s.users != nil && actor.UserID != "" {
		if user, err := s.users.GetUser(ctx, actor.UserID); err == nil {
			if name := strings.TrimSpace(user.DisplayName); name != "" {
				return name
			}
			if user.Email != "" {
				return user.Email
			}
		}
	}
	return "unknown"
}

func mapNotificationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("recipients", "related records are missing")
		return vErr
	}
	return err
}
