package sqlite

import (
	"context"
	"time"

	"github.com/example/office-calendar/internal/persistence"
)

// presenceDateLayout stores calendar days without a time component.
const presenceDateLayout = "2006-01-02"

// PresenceRepository implements persistence.PresenceRepository using SQLite
type PresenceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewPresenceRepository creates a new SQLite presence repository
func NewPresenceRepository(pool *ConnectionPool) *PresenceRepository {
	return &PresenceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// UpsertPresence inserts or replaces the entry for (user, date).
func (r *PresenceRepository) UpsertPresence(ctx context.Context, entry persistence.PresenceEntry) error {
	if entry.UserID == "" || entry.Status == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO presence_entries (user_id, date, status, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at
	`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			entry.UserID,
			entry.Date.UTC().Format(presenceDateLayout),
			entry.Status,
			entry.UpdatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return r.mapPresenceError(err)
		}
		return nil
	})
}

// ListPresence returns all entries with a date inside [from, to].
func (r *PresenceRepository) ListPresence(ctx context.Context, from, to time.Time) ([]persistence.PresenceEntry, error) {
	query := `
		SELECT user_id, date, status, updated_at
		FROM presence_entries
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, user_id ASC
	`

	rows, err := r.helper.Query(ctx, query,
		from.UTC().Format(presenceDateLayout),
		to.UTC().Format(presenceDateLayout),
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []persistence.PresenceEntry

	for rows.Next() {
		var entry persistence.PresenceEntry
		var dateStr, updatedAtStr string

		if err := rows.Scan(&entry.UserID, &dateStr, &entry.Status, &updatedAtStr); err != nil {
			return nil, r.mapper.MapError(err)
		}

		if entry.Date, err = time.Parse(presenceDateLayout, dateStr); err != nil {
			return nil, err
		}
		if entry.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return entries, nil
}

// mapPresenceError maps SQLite errors to persistence errors for presence operations
func (r *PresenceRepository) mapPresenceError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	if containsAny(errStr, []string{"FOREIGN KEY constraint failed"}) {
		return persistence.ErrForeignKeyViolation
	}

	if containsAny(errStr, []string{"CHECK constraint failed"}) {
		return persistence.ErrConstraintViolation
	}

	return r.mapper.MapError(err)
}
