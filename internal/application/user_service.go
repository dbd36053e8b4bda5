package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/office-calendar/internal/persistence"
)

// UserStore captures the persistence operations needed by the user service.
type UserStore interface {
	GetUser(ctx context.Context, id string) (User, error)
	SearchUsers(ctx context.Context, query string) ([]User, error)
}

// UserService exposes the user directory backing the attendee picker.
type UserService struct {
	users UserStore
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// SearchUsers returns users matching the query ordered by display name.
// An empty query lists every user.
func (s *UserService) SearchUsers(ctx context.Context, principal Principal, query string) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return nil, fmt.Errorf("user store not configured")
	}

	users, err := s.users.SearchUsers(ctx, strings.TrimSpace(query))
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]User, len(users))
	copy(ordered, users)
	sort.SliceStable(ordered, func(i, j int) bool {
		left := strings.ToLower(ordered[i].DisplayName)
		right := strings.ToLower(ordered[j].DisplayName)
		if left == right {
			return ordered[i].ID < ordered[j].ID
		}
		return left < right
	})

	return ordered, nil
}

// GetUser returns a single user by id.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user store not configured")
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	return user, nil
}
