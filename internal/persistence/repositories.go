package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SearchUsers(ctx context.Context, query string) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// EventRepository stores events together with their attendee rosters.
// Create and Update persist the event row and the full roster atomically.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
	DeleteAllEvents(ctx context.Context) error
	SetAttendeeResponse(ctx context.Context, eventID, userID, response string) error
}

// FeedItem is a notification paired with the caller's read state.
type FeedItem struct {
	Notification Notification
	IsRead       bool
}

// FeedFilter narrows the notification feed for one recipient.
type FeedFilter struct {
	UserID      string
	IncludeRead bool
	Offset      int
	Limit       int
}

// NotificationRepository stores the append-only notification log and
// per-user dismissal rows.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) error
	GetNotification(ctx context.Context, id string) (Notification, error)
	ListFeed(ctx context.Context, filter FeedFilter) ([]FeedItem, error)
	// Dismiss inserts the dismissal row when absent and leaves an
	// existing row untouched.
	Dismiss(ctx context.Context, dismissal Dismissal) error
}

// PresenceRepository stores per-day office presence entries.
type PresenceRepository interface {
	UpsertPresence(ctx context.Context, entry PresenceEntry) error
	ListPresence(ctx context.Context, from, to time.Time) ([]PresenceEntry, error)
}
