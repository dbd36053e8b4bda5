package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements define the full database schema. Every statement is
// idempotent so the bootstrap can run on each startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		capacity INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		starts_at TEXT NOT NULL,
		ends_at TEXT NOT NULL,
		organizer_id TEXT NOT NULL,
		room_id TEXT,
		recurrence_rule TEXT,
		visibility TEXT NOT NULL DEFAULT 'public',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (starts_at < ends_at),
		FOREIGN KEY (organizer_id) REFERENCES users(id),
		FOREIGN KEY (room_id) REFERENCES rooms(id)
	)`,
	`CREATE TABLE IF NOT EXISTS event_attendees (
		event_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		response TEXT NOT NULL DEFAULT 'pending',
		PRIMARY KEY (event_id, user_id),
		FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		actor_name TEXT NOT NULL,
		recipient_id TEXT,
		action TEXT NOT NULL,
		message TEXT NOT NULL,
		event_id TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notification_dismissals (
		notification_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 1,
		dismissed_at TEXT NOT NULL,
		PRIMARY KEY (notification_id, user_id),
		FOREIGN KEY (notification_id) REFERENCES notifications(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS presence_entries (
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, date),
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_starts_at ON events(starts_at)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_presence_date ON presence_entries(date)`,
}

// ApplySchema creates any missing tables and indexes. Locked-database
// errors during startup races are retried.
func ApplySchema(ctx context.Context, pool *ConnectionPool) error {
	retry := NewRetryHelper(DefaultRetryConfig())
	return retry.WithRetry(ctx, func() error {
		return pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range schemaStatements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("failed to apply schema statement: %w", err)
				}
			}
			return nil
		})
	})
}
