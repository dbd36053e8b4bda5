package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/office-calendar/internal/application"
	"github.com/example/office-calendar/internal/persistence"
)

var (
	userCounter         uint64
	roomCounter         uint64
	eventCounter        uint64
	notificationCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		IsActive:     true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserDisplayName overrides the generated display name.
func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) {
		f.DisplayName = name
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserTimestamps overrides both record timestamps.
func WithUserTimestamps(createdAt, updatedAt time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = createdAt
		f.UpdatedAt = updatedAt
	}
}

// WithUserAdmin sets the admin flag on the generated fixture.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) {
		f.IsAdmin = isAdmin
	}
}

// WithUserActive sets the active flag on the generated fixture.
func WithUserActive(isActive bool) UserOption {
	return func(f *UserFixture) {
		f.IsActive = isActive
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{
		UserID:      f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		DisplayName:  f.DisplayName,
		IsAdmin:      f.IsAdmin,
		IsActive:     f.IsActive,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic meeting room record.
type RoomFixture struct {
	ID        string
	Name      string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:        id,
		Name:      fmt.Sprintf("Room %03d", idx),
		Capacity:  int(4 + idx%4),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:        f.ID,
		Name:      f.Name,
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:        f.ID,
		Name:      f.Name,
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic calendar event with its roster.
type EventFixture struct {
	ID          string
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	OrganizerID string
	RoomID      *string
	AttendeeIDs []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic event fixture with optional
// overrides. The default roster is empty and all attendees are pending.
func NewEventFixture(organizerID string, opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	starts := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	fixture := EventFixture{
		ID:          fmt.Sprintf("event-%03d", idx),
		Title:       fmt.Sprintf("Event %03d", idx),
		StartsAt:    starts,
		EndsAt:      starts.Add(time.Hour),
		OrganizerID: organizerID,
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventTitle overrides the generated title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventTimes overrides the start and end instants.
func WithEventTimes(starts, ends time.Time) EventOption {
	return func(f *EventFixture) {
		f.StartsAt = starts
		f.EndsAt = ends
	}
}

// WithEventAttendees overrides the roster user ids.
func WithEventAttendees(ids ...string) EventOption {
	return func(f *EventFixture) {
		f.AttendeeIDs = ids
	}
}

// WithEventRoom assigns a room to the event.
func WithEventRoom(roomID string) EventOption {
	return func(f *EventFixture) {
		f.RoomID = &roomID
	}
}

// Application returns the fixture as an application.Event value.
func (f EventFixture) Application() application.Event {
	attendees := make([]application.Attendee, 0, len(f.AttendeeIDs))
	for _, id := range f.AttendeeIDs {
		attendees = append(attendees, application.Attendee{UserID: id, Response: application.ResponsePending})
	}
	return application.Event{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		StartsAt:    f.StartsAt,
		EndsAt:      f.EndsAt,
		OrganizerID: f.OrganizerID,
		RoomID:      f.RoomID,
		Visibility:  "public",
		Attendees:   attendees,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	attendees := make([]persistence.Attendee, 0, len(f.AttendeeIDs))
	for _, id := range f.AttendeeIDs {
		attendees = append(attendees, persistence.Attendee{UserID: id, Response: "pending"})
	}
	var description *string
	if f.Description != "" {
		description = &f.Description
	}
	return persistence.Event{
		ID:          f.ID,
		Title:       f.Title,
		Description: description,
		StartsAt:    f.StartsAt,
		EndsAt:      f.EndsAt,
		OrganizerID: f.OrganizerID,
		RoomID:      f.RoomID,
		Visibility:  "public",
		Attendees:   attendees,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ------------------------- Notification fixtures -------------------------

// NotificationFixture represents a deterministic notification log entry.
type NotificationFixture struct {
	ID          string
	ActorID     string
	ActorName   string
	RecipientID *string
	Action      string
	Message     string
	EventID     *string
	CreatedAt   time.Time
}

// NotificationOption configures the generated notification fixture.
type NotificationOption func(*NotificationFixture)

// NewNotificationFixture returns a deterministic notification fixture.
// Without options the entry is a broadcast.
func NewNotificationFixture(actorID string, opts ...NotificationOption) NotificationFixture {
	idx := atomic.AddUint64(&notificationCounter, 1)
	fixture := NotificationFixture{
		ID:        fmt.Sprintf("notification-%03d", idx),
		ActorID:   actorID,
		ActorName: fmt.Sprintf("Actor %03d", idx),
		Action:    string(application.ActionEventCreated),
		Message:   fmt.Sprintf("notification %03d", idx),
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithNotificationID overrides the generated notification ID.
func WithNotificationID(id string) NotificationOption {
	return func(f *NotificationFixture) {
		f.ID = id
	}
}

// WithNotificationCreatedAt overrides the generated timestamp.
func WithNotificationCreatedAt(at time.Time) NotificationOption {
	return func(f *NotificationFixture) {
		f.CreatedAt = at
	}
}

// WithNotificationRecipient targets the entry at a single user.
func WithNotificationRecipient(userID string) NotificationOption {
	return func(f *NotificationFixture) {
		f.RecipientID = &userID
	}
}

// WithNotificationEvent associates the entry with an event.
func WithNotificationEvent(eventID string) NotificationOption {
	return func(f *NotificationFixture) {
		f.EventID = &eventID
	}
}

// WithNotificationMessage overrides the generated message.
func WithNotificationMessage(message string) NotificationOption {
	return func(f *NotificationFixture) {
		f.Message = message
	}
}

// Persistence returns the fixture as a persistence.Notification value.
func (f NotificationFixture) Persistence() persistence.Notification {
	return persistence.Notification{
		ID:          f.ID,
		ActorID:     f.ActorID,
		ActorName:   f.ActorName,
		RecipientID: f.RecipientID,
		Action:      f.Action,
		Message:     f.Message,
		EventID:     f.EventID,
		CreatedAt:   f.CreatedAt,
	}
}
