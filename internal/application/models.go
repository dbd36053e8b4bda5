package application

import "time"

// Principal represents the authenticated user invoking a service method.
// Handlers resolve it from the verified token and pass it explicitly; no
// service reads identity from ambient state.
type Principal struct {
	UserID      string
	Email       string
	DisplayName string
	IsAdmin     bool
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RegisterParams captures the data required to register an account.
type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
}

// LoginParams captures the data required to authenticate a user.
type LoginParams struct {
	Email    string
	Password string
}

// LoginResult captures the outcome of a successful login.
type LoginResult struct {
	User      User
	Token     string
	TokenType string
	ExpiresIn int
}

// AttendeeResponse enumerates RSVP states for a roster entry.
type AttendeeResponse string

const (
	ResponsePending   AttendeeResponse = "pending"
	ResponseAccepted  AttendeeResponse = "accepted"
	ResponseDeclined  AttendeeResponse = "declined"
	ResponseTentative AttendeeResponse = "tentative"
)

// ValidResponse reports whether the value is a known RSVP state.
func ValidResponse(value string) bool {
	switch AttendeeResponse(value) {
	case ResponsePending, ResponseAccepted, ResponseDeclined, ResponseTentative:
		return true
	}
	return false
}

// Attendee is one roster entry of an event.
type Attendee struct {
	UserID   string
	Response AttendeeResponse
}

// Event represents a calendar entry with its attendee roster.
type Event struct {
	ID             string
	Title          string
	Description    string
	StartsAt       time.Time
	EndsAt         time.Time
	OrganizerID    string
	RoomID         *string
	RecurrenceRule *string
	Visibility     string
	Attendees      []Attendee
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title          string
	Description    string
	StartsAt       time.Time
	EndsAt         time.Time
	RoomID         *string
	RecurrenceRule *string
	AttendeeIDs    []string
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Input     EventInput
}

// ListEventsParams wraps an event range query. A zero From or To leaves
// that side of the range unbounded.
type ListEventsParams struct {
	Principal Principal
	From      time.Time
	To        time.Time
}

// RespondToEventParams wraps an attendee RSVP change.
type RespondToEventParams struct {
	Principal Principal
	EventID   string
	Response  AttendeeResponse
}

// NotificationAction enumerates the kinds of log entries.
type NotificationAction string

const (
	ActionEventCreated       NotificationAction = "EventCreated"
	ActionEventUpdated       NotificationAction = "EventUpdated"
	ActionManualNotification NotificationAction = "ManualNotification"
)

// Notification is one entry of the append-only notification log. A nil
// RecipientID addresses every user.
type Notification struct {
	ID          string
	ActorID     string
	ActorName   string
	RecipientID *string
	Action      NotificationAction
	Message     string
	EventID     *string
	CreatedAt   time.Time
}

// FeedItem pairs a notification with the caller's read state.
type FeedItem struct {
	Notification Notification
	IsRead       bool
}

// FeedParams wraps a notification feed request.
type FeedParams struct {
	Principal   Principal
	Page        int
	PageSize    int
	IncludeRead bool
}

// ManualNotifyParams wraps an explicit notification request for an event.
type ManualNotifyParams struct {
	Principal    Principal
	EventID      string
	Message      string
	RecipientIDs []string
}

// Room represents a catalog entry for a physical meeting room.
type Room struct {
	ID        string
	Name      string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name     string
	Capacity int
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// PresenceStatus enumerates where a user works on a given day.
type PresenceStatus string

const (
	PresenceInOffice    PresenceStatus = "in_office"
	PresenceRemote      PresenceStatus = "remote"
	PresenceOutOfOffice PresenceStatus = "out_of_office"
)

// ValidPresenceStatus reports whether the value is a known status.
func ValidPresenceStatus(value string) bool {
	switch PresenceStatus(value) {
	case PresenceInOffice, PresenceRemote, PresenceOutOfOffice:
		return true
	}
	return false
}

// PresenceEntry records one user's status for one calendar day.
type PresenceEntry struct {
	UserID    string
	Date      time.Time
	Status    PresenceStatus
	UpdatedAt time.Time
}

// SetPresenceParams wraps a presence upsert for the calling user.
type SetPresenceParams struct {
	Principal Principal
	Date      time.Time
	Status    PresenceStatus
}

// ListPresenceParams wraps a presence range query.
type ListPresenceParams struct {
	Principal Principal
	From      time.Time
	To        time.Time
}
