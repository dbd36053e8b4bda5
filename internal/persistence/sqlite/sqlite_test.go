package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/office-calendar/internal/persistence"
)

// setupTestPool opens a fresh database file under t.TempDir and applies
// the schema.
func setupTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	pool, err := NewConnectionPool(DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := ApplySchema(context.Background(), pool); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	return pool
}

func mustCreateUser(t *testing.T, pool *ConnectionPool, id, email string) {
	t.Helper()

	repo := NewUserRepository(pool)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	err := repo.CreateUser(context.Background(), persistence.User{
		ID:           id,
		Email:        email,
		DisplayName:  email,
		PasswordHash: "hashed_password",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", id, err)
	}
}

func TestApplySchema_Idempotent(t *testing.T) {
	pool := setupTestPool(t)

	// A second run must not fail on existing tables.
	if err := ApplySchema(context.Background(), pool); err != nil {
		t.Fatalf("second ApplySchema failed: %v", err)
	}
}

func TestConnectionPool_WithTransactionRollback(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()

	mustCreateUser(t, pool, "user1", "one@example.com")

	wantErr := context.Canceled
	err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, execErr := tx.Exec("DELETE FROM users"); execErr != nil {
			t.Fatalf("delete inside tx failed: %v", execErr)
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected rollback error %v, got %v", wantErr, err)
	}

	repo := NewUserRepository(pool)
	if _, err := repo.GetUser(ctx, "user1"); err != nil {
		t.Fatalf("user should survive rolled back transaction: %v", err)
	}
}
