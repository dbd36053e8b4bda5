package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/office-calendar/internal/persistence"
	"github.com/example/office-calendar/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool          *sqlite.ConnectionPool
	Users         persistence.UserRepository
	Rooms         persistence.RoomRepository
	Events        persistence.EventRepository
	Notifications persistence.NotificationRepository
	Presence      persistence.PresenceRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness backed by a temporary file with
// the schema applied. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "officecalendar.db")

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := sqlite.ApplySchema(context.Background(), pool); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to apply schema: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:          pool,
		Users:         sqlite.NewUserRepository(pool),
		Rooms:         sqlite.NewRoomRepository(pool),
		Events:        sqlite.NewEventRepository(pool),
		Notifications: sqlite.NewNotificationRepository(pool),
		Presence:      sqlite.NewPresenceRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
