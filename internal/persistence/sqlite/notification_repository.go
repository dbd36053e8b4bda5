package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/office-calendar/internal/persistence"
)

// NotificationRepository implements persistence.NotificationRepository
// using SQLite.
type NotificationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewNotificationRepository creates a new SQLite notification repository
func NewNotificationRepository(pool *ConnectionPool) *NotificationRepository {
	return &NotificationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateNotification appends a notification to the log.
func (r *NotificationRepository) CreateNotification(ctx context.Context, notification persistence.Notification) error {
	if notification.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO notifications (id, actor_id, actor_name, recipient_id, action, message, event_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		notification.ID,
		notification.ActorID,
		notification.ActorName,
		nullString(notification.RecipientID),
		notification.Action,
		notification.Message,
		nullString(notification.EventID),
		notification.CreatedAt.UTC().Format(time.RFC3339),
	)

	if err != nil {
		return r.mapNotificationError(err)
	}

	return nil
}

// GetNotification retrieves a single log entry by ID.
func (r *NotificationRepository) GetNotification(ctx context.Context, id string) (persistence.Notification, error) {
	if id == "" {
		return persistence.Notification{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, actor_id, actor_name, recipient_id, action, message, event_id, created_at
		FROM notifications
		WHERE id = ?
	`

	return r.scanNotification(r.helper.QueryRow(ctx, query, id))
}

// ListFeed returns the page of notifications visible to one user:
// broadcast rows plus rows addressed to them, newest first. Dismissed
// rows are filtered out unless the filter includes read entries.
func (r *NotificationRepository) ListFeed(ctx context.Context, filter persistence.FeedFilter) ([]persistence.FeedItem, error) {
	query := `
		SELECT n.id, n.actor_id, n.actor_name, n.recipient_id, n.action, n.message, n.event_id, n.created_at,
		       CASE WHEN d.notification_id IS NULL THEN 0 ELSE d.is_read END AS is_read
		FROM notifications n
		LEFT JOIN notification_dismissals d
		       ON d.notification_id = n.id AND d.user_id = ?
		WHERE (n.recipient_id IS NULL OR n.recipient_id = ?)
	`

	args := []interface{}{filter.UserID, filter.UserID}

	if !filter.IncludeRead {
		query += " AND d.notification_id IS NULL"
	}

	query += " ORDER BY n.created_at DESC, n.id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var items []persistence.FeedItem

	for rows.Next() {
		var notification persistence.Notification
		var recipientID, eventID sql.NullString
		var createdAtStr string
		var isRead bool

		err := rows.Scan(
			&notification.ID,
			&notification.ActorID,
			&notification.ActorName,
			&recipientID,
			&notification.Action,
			&notification.Message,
			&eventID,
			&createdAtStr,
			&isRead,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}

		if recipientID.Valid {
			notification.RecipientID = &recipientID.String
		}
		if eventID.Valid {
			notification.EventID = &eventID.String
		}

		if notification.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		items = append(items, persistence.FeedItem{Notification: notification, IsRead: isRead})
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return items, nil
}

// Dismiss inserts the dismissal row when absent. A second call for the
// same pair is a no-op, so the operation is safe to repeat.
func (r *NotificationRepository) Dismiss(ctx context.Context, dismissal persistence.Dismissal) error {
	query := `
		INSERT INTO notification_dismissals (notification_id, user_id, is_read, dismissed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (notification_id, user_id) DO NOTHING
	`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			dismissal.NotificationID,
			dismissal.UserID,
			dismissal.IsRead,
			dismissal.DismissedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return r.mapNotificationError(err)
		}
		return nil
	})
}

func (r *NotificationRepository) scanNotification(row rowScanner) (persistence.Notification, error) {
	var notification persistence.Notification
	var recipientID, eventID sql.NullString
	var createdAtStr string

	err := row.Scan(
		&notification.ID,
		&notification.ActorID,
		&notification.ActorName,
		&recipientID,
		&notification.Action,
		&notification.Message,
		&eventID,
		&createdAtStr,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Notification{}, persistence.ErrNotFound
		}
		return persistence.Notification{}, r.mapper.MapError(err)
	}

	if recipientID.Valid {
		notification.RecipientID = &recipientID.String
	}
	if eventID.Valid {
		notification.EventID = &eventID.String
	}

	if notification.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Notification{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return notification, nil
}

// mapNotificationError maps SQLite errors to persistence errors for notification operations
func (r *NotificationRepository) mapNotificationError(err error) error {
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
