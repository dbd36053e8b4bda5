package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the claim set carried by issued access tokens. The
// nameidentifier claim is a legacy identity some clients still send; it
// participates in the resolution chain after sub and email.
type TokenClaims struct {
	Email          string `json:"email,omitempty"`
	Name           string `json:"name,omitempty"`
	NameIdentifier string `json:"nameidentifier,omitempty"`
	IsAdmin        bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig collects the signing parameters for access tokens.
type TokenIssuerConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// TokenIssuer mints and verifies HS256 access tokens.
type TokenIssuer struct {
	config TokenIssuerConfig
	now    func() time.Time
}

// NewTokenIssuer wires a token issuer. A nil clock falls back to time.Now.
func NewTokenIssuer(config TokenIssuerConfig, now func() time.Time) (*TokenIssuer, error) {
	if len(config.Secret) == 0 {
		return nil, fmt.Errorf("token secret must not be empty")
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{config: config, now: now}, nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.config.TTL
}

// Issue signs a token for the given user.
func (t *TokenIssuer) Issue(user User) (string, error) {
	if t == nil {
		return "", fmt.Errorf("TokenIssuer is nil")
	}

	now := t.now()
	claims := TokenClaims{
		Email:   user.Email,
		Name:    user.DisplayName,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    t.config.Issuer,
			Audience:  jwt.ClaimStrings{t.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.config.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.config.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a signed token and returns its claims.
func (t *TokenIssuer) Verify(raw string) (TokenClaims, error) {
	if t == nil {
		return TokenClaims{}, fmt.Errorf("TokenIssuer is nil")
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TokenClaims{}, ErrTokenInvalid
	}

	var claims TokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return t.config.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.config.Issuer),
		jwt.WithAudience(t.config.Audience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return TokenClaims{}, mapTokenError(err)
	}

	return claims, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenInvalid
	default:
		return ErrTokenInvalid
	}
}

// ResolveIdentity derives the caller identity from verified claims using
// a fixed order: subject first, then email, then the legacy
// nameidentifier claim. Verification must already have happened.
func ResolveIdentity(claims TokenClaims) (Principal, error) {
	principal := Principal{
		Email:       claims.Email,
		DisplayName: claims.Name,
		IsAdmin:     claims.IsAdmin,
	}

	switch {
	case claims.Subject != "":
		principal.UserID = claims.Subject
	case claims.Email != "":
		principal.UserID = claims.Email
	case claims.NameIdentifier != "":
		principal.UserID = claims.NameIdentifier
	default:
		return Principal{}, ErrTokenInvalid
	}

	return principal, nil
}
