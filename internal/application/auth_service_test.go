package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type credentialStoreStub struct {
	users  map[string]User
	hashes map[string]string

	createErr error
}

func newCredentialStoreStub() *credentialStoreStub {
	return &credentialStoreStub{
		users:  make(map[string]User),
		hashes: make(map[string]string),
	}
}

func (s *credentialStoreStub) CreateAccount(ctx context.Context, user User, passwordHash string) (User, error) {
	if s.createErr != nil {
		return User{}, s.createErr
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return User{}, ErrAlreadyExists
		}
	}
	s.users[user.ID] = user
	s.hashes[user.ID] = passwordHash
	return user, nil
}

func (s *credentialStoreStub) GetAccountByEmail(ctx context.Context, email string) (User, string, error) {
	for id, user := range s.users {
		if user.Email == email {
			return user, s.hashes[id], nil
		}
	}
	return User{}, "", ErrNotFound
}

func (s *credentialStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *credentialStoreStub) CountAccounts(ctx context.Context) (int, error) {
	return len(s.users), nil
}

func testTokenIssuer(t *testing.T, now func() time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		Secret:   []byte("0123456789abcdef0123456789abcdef"),
		Issuer:   "office-calendar",
		Audience: "office-calendar",
		TTL:      time.Hour,
	}, now)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	return issuer
}

func sequenceIDs(ids ...string) func() string {
	i := 0
	return func() string {
		if i >= len(ids) {
			return "overflow"
		}
		id := ids[i]
		i++
		return id
	}
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates an active account with hashed password", func(t *testing.T) {
		t.Parallel()

		store := newCredentialStoreStub()
		now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		svc := NewAuthService(store, nil, sequenceIDs("user-1"), func() time.Time { return now })

		user, err := svc.Register(context.Background(), RegisterParams{
			Email:    "New.User@Example.com ",
			Password: "correct-horse",
		})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		if user.Email != "new.user@example.com" {
			t.Fatalf("expected normalized email, got %q", user.Email)
		}
		if !user.IsActive {
			t.Fatal("expected new account to be active")
		}
		if user.IsAdmin {
			t.Fatal("expected new account to be non-admin")
		}
		if user.DisplayName != "new.user@example.com" {
			t.Fatalf("expected display name to default to email, got %q", user.DisplayName)
		}

		hash := store.hashes["user-1"]
		if hash == "" || hash == "correct-horse" {
			t.Fatalf("expected stored argon2id hash, got %q", hash)
		}
		if err := VerifyPassword(hash, "correct-horse"); err != nil {
			t.Fatalf("stored hash does not verify: %v", err)
		}
	})

	t.Run("rejects invalid input with field errors", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(newCredentialStoreStub(), nil, nil, nil)

		_, err := svc.Register(context.Background(), RegisterParams{Email: "not-an-email", Password: "short"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["email"]; !ok {
			t.Fatal("expected email field error")
		}
		if _, ok := vErr.FieldErrors["password"]; !ok {
			t.Fatal("expected password field error")
		}
	})

	t.Run("keeps a provided display name", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(newCredentialStoreStub(), nil, sequenceIDs("user-1"), nil)

		user, err := svc.Register(context.Background(), RegisterParams{
			Email:       "named@example.com",
			Password:    "correct-horse",
			DisplayName: "  Dana Named  ",
		})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if user.DisplayName != "Dana Named" {
			t.Fatalf("expected trimmed display name, got %q", user.DisplayName)
		}
	})

	t.Run("surfaces duplicate emails as ErrAlreadyExists", func(t *testing.T) {
		t.Parallel()

		store := newCredentialStoreStub()
		svc := NewAuthService(store, nil, sequenceIDs("user-1", "user-2"), nil)

		if _, err := svc.Register(context.Background(), RegisterParams{Email: "dup@example.com", Password: "password1"}); err != nil {
			t.Fatalf("first Register failed: %v", err)
		}

		_, err := svc.Register(context.Background(), RegisterParams{Email: "DUP@example.com", Password: "password2"})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	registerUser := func(t *testing.T, store *credentialStoreStub, email, password string) User {
		t.Helper()
		svc := NewAuthService(store, nil, sequenceIDs("user-1"), nil)
		user, err := svc.Register(context.Background(), RegisterParams{Email: email, Password: password})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		return user
	}

	t.Run("issues a bearer token for valid credentials", func(t *testing.T) {
		t.Parallel()

		store := newCredentialStoreStub()
		registerUser(t, store, "login@example.com", "correct-horse")

		now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		issuer := testTokenIssuer(t, func() time.Time { return now })
		svc := NewAuthService(store, issuer, nil, func() time.Time { return now })

		result, err := svc.Login(context.Background(), LoginParams{Email: "Login@Example.com", Password: "correct-horse"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}

		if result.TokenType != "Bearer" {
			t.Fatalf("expected Bearer token type, got %q", result.TokenType)
		}
		if result.ExpiresIn != 3600 {
			t.Fatalf("expected 3600 second expiry, got %d", result.ExpiresIn)
		}

		claims, err := issuer.Verify(result.Token)
		if err != nil {
			t.Fatalf("issued token does not verify: %v", err)
		}
		if claims.Subject != "user-1" {
			t.Fatalf("expected subject user-1, got %q", claims.Subject)
		}
		if claims.Email != "login@example.com" {
			t.Fatalf("expected email claim, got %q", claims.Email)
		}
	})

	t.Run("rejects wrong passwords", func(t *testing.T) {
		t.Parallel()

		store := newCredentialStoreStub()
		registerUser(t, store, "login@example.com", "correct-horse")
		svc := NewAuthService(store, testTokenIssuer(t, nil), nil, nil)

		_, err := svc.Login(context.Background(), LoginParams{Email: "login@example.com", Password: "wrong-battery"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("hides unknown accounts behind ErrInvalidCredentials", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(newCredentialStoreStub(), testTokenIssuer(t, nil), nil, nil)

		_, err := svc.Login(context.Background(), LoginParams{Email: "ghost@example.com", Password: "whatever1"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects disabled accounts", func(t *testing.T) {
		t.Parallel()

		store := newCredentialStoreStub()
		user := registerUser(t, store, "off@example.com", "correct-horse")
		user.IsActive = false
		store.users[user.ID] = user

		svc := NewAuthService(store, testTokenIssuer(t, nil), nil, nil)

		_, err := svc.Login(context.Background(), LoginParams{Email: "off@example.com", Password: "correct-horse"})
		if !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})
}

func TestAuthService_EnsureSeedAdmin(t *testing.T) {
	t.Parallel()

	t.Run("seeds an admin into an empty store", func(t *testing.T) {
		t.Parallel()

		store := newCredentialStoreStub()
		svc := NewAuthService(store, nil, sequenceIDs("admin-1"), nil)

		admin, err := svc.EnsureSeedAdmin(context.Background(), "admin@example.com", "change-me-now")
		if err != nil {
			t.Fatalf("EnsureSeedAdmin failed: %v", err)
		}
		if !admin.IsAdmin {
			t.Fatal("expected seeded account to be admin")
		}
		if len(store.users) != 1 {
			t.Fatalf("expected one account, got %d", len(store.users))
		}
	})

	t.Run("skips seeding when accounts exist", func(t *testing.T) {
		t.Parallel()

		store := newCredentialStoreStub()
		svc := NewAuthService(store, nil, sequenceIDs("user-1", "admin-1"), nil)

		if _, err := svc.Register(context.Background(), RegisterParams{Email: "first@example.com", Password: "password1"}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		admin, err := svc.EnsureSeedAdmin(context.Background(), "admin@example.com", "change-me-now")
		if err != nil {
			t.Fatalf("EnsureSeedAdmin failed: %v", err)
		}
		if admin.ID != "" {
			t.Fatalf("expected zero user when seeding skipped, got %+v", admin)
		}
		if len(store.users) != 1 {
			t.Fatalf("expected one account, got %d", len(store.users))
		}
	})

	t.Run("tolerates a concurrent seeder winning the race", func(t *testing.T) {
		t.Parallel()

		store := newCredentialStoreStub()
		store.createErr = ErrAlreadyExists
		svc := NewAuthService(store, nil, sequenceIDs("admin-1"), nil)

		admin, err := svc.EnsureSeedAdmin(context.Background(), "admin@example.com", "change-me-now")
		if err != nil {
			t.Fatalf("EnsureSeedAdmin failed: %v", err)
		}
		if admin.ID != "" {
			t.Fatalf("expected zero user, got %+v", admin)
		}
	})
}
