package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/office-calendar/internal/persistence"
)

// minPasswordLength is the smallest password accepted at registration.
const minPasswordLength = 8

// CredentialStore exposes the account operations required by the auth service.
type CredentialStore interface {
	CreateAccount(ctx context.Context, user User, passwordHash string) (User, error)
	GetAccountByEmail(ctx context.Context, email string) (User, string, error)
	GetUser(ctx context.Context, id string) (User, error)
	CountAccounts(ctx context.Context) (int, error)
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// AuthService coordinates registration and login flows.
type AuthService struct {
	accounts       CredentialStore
	tokens         *TokenIssuer
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(accounts CredentialStore, tokens *TokenIssuer, idGenerator func() string, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(accounts, tokens, idGenerator, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(accounts CredentialStore, tokens *TokenIssuer, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		hashPassword: func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		},
		verifyPassword: VerifyPassword,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Register validates input and creates a new active account.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))

	logger := s.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "registration succeeded")
	}()

	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, mailErr := mail.ParseAddress(email); mailErr != nil {
		vErr.add("email", "email must be a valid address")
	}
	if len(params.Password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		displayName = email
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	candidate := User{
		ID:          s.idGenerator(),
		Email:       email,
		DisplayName: displayName,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	user, err = s.accounts.CreateAccount(ctx, candidate, hash)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) || errors.Is(err, persistence.ErrDuplicate) {
			return User{}, ErrAlreadyExists
		}
		return User{}, err
	}

	return user, nil
}

// Login validates credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}
	if s.tokens == nil {
		err = fmt.Errorf("token issuer not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))

	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "login succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var user User
	var hash string
	user, hash, err = s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if !user.IsActive {
		err = ErrAccountDisabled
		return
	}

	if err = s.verifyPassword(hash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	var token string
	token, err = s.tokens.Issue(user)
	if err != nil {
		return
	}

	result = LoginResult{
		User:      user,
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(s.tokens.TTL().Seconds()),
	}
	return
}

// EnsureSeedAdmin creates an administrator account when the store holds
// no users yet. It returns the created user, or the zero value when
// seeding was skipped.
func (s *AuthService) EnsureSeedAdmin(ctx context.Context, email, password string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("AuthService is nil")
	}
	if s.accounts == nil {
		return User{}, fmt.Errorf("credential store not configured")
	}

	logger := s.loggerWith(ctx, "EnsureSeedAdmin", "email", email)

	count, err := s.accounts.CountAccounts(ctx)
	if err != nil {
		return User{}, err
	}
	if count > 0 {
		return User{}, nil
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	admin := User{
		ID:          s.idGenerator(),
		Email:       strings.TrimSpace(strings.ToLower(email)),
		DisplayName: "Administrator",
		IsAdmin:     true,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.accounts.CreateAccount(ctx, admin, hash)
	if err != nil {
		// Another instance may have seeded concurrently.
		if errors.Is(err, ErrAlreadyExists) || errors.Is(err, persistence.ErrDuplicate) {
			return User{}, nil
		}
		logger.ErrorContext(ctx, "failed to seed admin account", "error", err, "error_kind", ErrorKind(err))
		return User{}, err
	}

	logger.With("user_id", created.ID).InfoContext(ctx, "seeded admin account")
	return created, nil
}
