package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/office-calendar/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateEvent inserts a new event and its attendee roster inside a
// single transaction.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !event.StartsAt.Before(event.EndsAt) {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO events (id, title, description, starts_at, ends_at, organizer_id, room_id, recurrence_rule, visibility, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		_, err := r.helper.ExecTx(tx, query,
			event.ID,
			event.Title,
			nullString(event.Description),
			event.StartsAt.UTC().Format(time.RFC3339),
			event.EndsAt.UTC().Format(time.RFC3339),
			event.OrganizerID,
			nullString(event.RoomID),
			nullString(event.RecurrenceRule),
			event.Visibility,
			event.CreatedAt.UTC().Format(time.RFC3339),
			event.UpdatedAt.UTC().Format(time.RFC3339),
		)

		if err != nil {
			return r.mapEventError(err)
		}

		return r.insertAttendees(tx, event.ID, event.Attendees)
	})
}

// UpdateEvent updates an existing event and replaces its roster inside
// the same transaction. The organizer column is never changed.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !event.StartsAt.Before(event.EndsAt) {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var currentOrganizerID string
		err := r.helper.QueryRowTx(tx, "SELECT organizer_id FROM events WHERE id = ?", event.ID).Scan(&currentOrganizerID)
		if err != nil {
			if err == sql.ErrNoRows {
				return persistence.ErrNotFound
			}
			return r.mapper.MapError(err)
		}

		query := `
			UPDATE events
			SET title = ?, description = ?, starts_at = ?, ends_at = ?, room_id = ?, recurrence_rule = ?, visibility = ?, updated_at = ?
			WHERE id = ?
		`

		result, err := r.helper.ExecTx(tx, query,
			event.Title,
			nullString(event.Description),
			event.StartsAt.UTC().Format(time.RFC3339),
			event.EndsAt.UTC().Format(time.RFC3339),
			nullString(event.RoomID),
			nullString(event.RecurrenceRule),
			event.Visibility,
			event.UpdatedAt.UTC().Format(time.RFC3339),
			event.ID,
		)

		if err != nil {
			return r.mapEventError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		// Replace the roster wholesale
		_, err = r.helper.ExecTx(tx, "DELETE FROM event_attendees WHERE event_id = ?", event.ID)
		if err != nil {
			return r.mapper.MapError(err)
		}

		return r.insertAttendees(tx, event.ID, event.Attendees)
	})
}

// GetEvent retrieves an event by ID together with its roster.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, title, description, starts_at, ends_at, organizer_id, room_id, recurrence_rule, visibility, created_at, updated_at
		FROM events
		WHERE id = ?
	`

	event, err := r.scanEvent(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Event{}, err
	}

	attendees, err := r.loadAttendees(ctx, id)
	if err != nil {
		return persistence.Event{}, err
	}
	event.Attendees = attendees

	return event, nil
}

// ListEvents returns all events with their rosters ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context) ([]persistence.Event, error) {
	query := `
		SELECT id, title, description, starts_at, ends_at, organizer_id, room_id, recurrence_rule, visibility, created_at, updated_at
		FROM events
		ORDER BY starts_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event

	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range events {
		attendees, err := r.loadAttendees(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].Attendees = attendees
	}

	return events, nil
}

// DeleteEvent removes an event and its roster.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(tx, "DELETE FROM event_attendees WHERE event_id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, "DELETE FROM events WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		return nil
	})
}

// DeleteAllEvents wipes every event and roster row.
func (r *EventRepository) DeleteAllEvents(ctx context.Context) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, "DELETE FROM event_attendees"); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, "DELETE FROM events"); err != nil {
			return r.mapper.MapError(err)
		}
		return nil
	})
}

// SetAttendeeResponse updates the RSVP state of one roster row.
func (r *EventRepository) SetAttendeeResponse(ctx context.Context, eventID, userID, response string) error {
	result, err := r.helper.Exec(ctx,
		"UPDATE event_attendees SET response = ? WHERE event_id = ? AND user_id = ?",
		response, eventID, userID)
	if err != nil {
		return r.mapEventError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// insertAttendees inserts roster rows for an event within a transaction.
// Duplicate user ids collapse to a single row keeping the first response.
func (r *EventRepository) insertAttendees(tx *sql.Tx, eventID string, attendees []persistence.Attendee) error {
	seen := make(map[string]struct{}, len(attendees))
	for _, attendee := range attendees {
		if attendee.UserID == "" {
			continue
		}
		if _, ok := seen[attendee.UserID]; ok {
			continue
		}
		seen[attendee.UserID] = struct{}{}

		response := attendee.Response
		if response == "" {
			response = "pending"
		}

		_, err := r.helper.ExecTx(tx,
			"INSERT INTO event_attendees (event_id, user_id, response) VALUES (?, ?, ?)",
			eventID, attendee.UserID, response)
		if err != nil {
			return r.mapEventError(err)
		}
	}

	return nil
}

// loadAttendees loads the roster for an event.
func (r *EventRepository) loadAttendees(ctx context.Context, eventID string) ([]persistence.Attendee, error) {
	query := `
		SELECT user_id, response
		FROM event_attendees
		WHERE event_id = ?
		ORDER BY user_id ASC
	`

	rows, err := r.helper.Query(ctx, query, eventID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var attendees []persistence.Attendee

	for rows.Next() {
		var attendee persistence.Attendee
		if err := rows.Scan(&attendee.UserID, &attendee.Response); err != nil {
			return nil, r.mapper.MapError(err)
		}
		attendees = append(attendees, attendee)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return attendees, nil
}

func (r *EventRepository) scanEvent(row rowScanner) (persistence.Event, error) {
	var event persistence.Event
	var startsAtStr, endsAtStr, createdAtStr, updatedAtStr string
	var description, roomID, recurrenceRule sql.NullString

	err := row.Scan(
		&event.ID,
		&event.Title,
		&description,
		&startsAtStr,
		&endsAtStr,
		&event.OrganizerID,
		&roomID,
		&recurrenceRule,
		&event.Visibility,
		&createdAtStr,
		&updatedAtStr,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, r.mapper.MapError(err)
	}

	// Handle nullable fields
	if description.Valid {
		event.Description = &description.String
	}
	if roomID.Valid {
		event.RoomID = &roomID.String
	}
	if recurrenceRule.Valid {
		event.RecurrenceRule = &recurrenceRule.String
	}

	// Parse timestamps
	if event.StartsAt, err = time.Parse(time.RFC3339, startsAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse starts_at: %w", err)
	}
	if event.EndsAt, err = time.Parse(time.RFC3339, endsAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse ends_at: %w", err)
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return event, nil
}

// mapEventError maps SQLite errors to appropriate persistence errors for event operations
func (r *EventRepository) mapEventError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	if containsAny(errStr, []string{"UNIQUE constraint failed"}) {
		return persistence.ErrDuplicate
	}

	if containsAny(errStr, []string{"FOREIGN KEY constraint failed"}) {
		return persistence.ErrForeignKeyViolation
	}

	if containsAny(errStr, []string{"CHECK constraint failed"}) {
		return persistence.ErrConstraintViolation
	}

	return r.mapper.MapError(err)
}

// nullString converts an optional string into its sql representation.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
