package persistence

import "time"

// User represents an account stored in the identity table.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	IsAdmin      bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a meeting room catalog entry.
type Room struct {
	ID        string
	Name      string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attendee links an event to an invited user with an RSVP state.
type Attendee struct {
	UserID   string
	Response string
}

// Event represents a calendar entry together with its attendee roster.
// The roster is written in the same transaction as the event row.
type Event struct {
	ID             string
	Title          string
	Description    *string
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

// Notification is an immutable log entry. A nil RecipientID means the
// entry is addressed to every user.
type Notification struct {
	ID          string
	ActorID     string
	ActorName   string
	RecipientID *string
	Action      string
	Message     string
	EventID     *string
	CreatedAt   time.Time
}

// Dismissal records that a user has read a notification. The pair
// (NotificationID, UserID) is unique.
type Dismissal struct {
	NotificationID string
	UserID         string
	IsRead         bool
	DismissedAt    time.Time
}

// PresenceEntry records where a user works on a given day. The pair
// (UserID, Date) is unique; Date is a calendar day, not an instant.
type PresenceEntry struct {
	UserID    string
	Date      time.Time
	Status    string
	UpdatedAt time.Time
}
