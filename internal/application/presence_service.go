package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/office-calendar/internal/persistence"
)

// maxPresenceRangeDays caps how wide a presence query may be.
const maxPresenceRangeDays = 62

// PresenceRepository captures the persistence operations needed by the service.
type PresenceRepository interface {
	UpsertPresence(ctx context.Context, entry PresenceEntry) error
	ListPresence(ctx context.Context, from, to time.Time) ([]PresenceEntry, error)
}

// PresenceService records and serves per-day office presence.
type PresenceService struct {
	presence    PresenceRepository
	broadcaster Broadcaster
	now         func() time.Time
	logger      *slog.Logger
}

// NewPresenceService wires dependencies for presence operations.
func NewPresenceService(presence PresenceRepository, broadcaster Broadcaster, now func() time.Time) *PresenceService {
	return NewPresenceServiceWithLogger(presence, broadcaster, now, nil)
}

// NewPresenceServiceWithLogger wires a PresenceService with a specified logger.
func NewPresenceServiceWithLogger(presence PresenceRepository, broadcaster Broadcaster, now func() time.Time, logger *slog.Logger) *PresenceService {
	if now == nil {
		now = time.Now
	}
	return &PresenceService{presence: presence, broadcaster: broadcaster, now: now, logger: defaultLogger(logger)}
}

func (s *PresenceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PresenceService", operation, attrs...)
}

// SetPresence upserts the caller's status for one day and broadcasts
// the change.
func (s *PresenceService) SetPresence(ctx context.Context, params SetPresenceParams) (PresenceEntry, error) {
	if s == nil {
		return PresenceEntry{}, fmt.Errorf("PresenceService is nil")
	}
	if s.presence == nil {
		return PresenceEntry{}, fmt.Errorf("presence repository not configured")
	}

	logger := s.loggerWith(ctx, "SetPresence", "user_id", params.Principal.UserID)

	vErr := &ValidationError{}
	if params.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !ValidPresenceStatus(string(params.Status)) {
		vErr.add("status", "status must be one of in_office, remote, out_of_office")
	}
	if vErr.HasErrors() {
		return PresenceEntry{}, vErr
	}

	entry := PresenceEntry{
		UserID:    params.Principal.UserID,
		Date:      truncateToDay(params.Date),
		Status:    params.Status,
		UpdatedAt: s.now(),
	}

	if err := s.presence.UpsertPresence(ctx, entry); err != nil {
		return PresenceEntry{}, mapPresenceRepoError(err)
	}

	logger.With("date", entry.Date.Format("2006-01-02"), "status", string(entry.Status)).
		InfoContext(ctx, "presence updated")

	if s.broadcaster != nil {
		s.broadcaster.Publish(BroadcastPresenceUpdated, entry)
	}

	return entry, nil
}

// ListPresence returns all users' entries inside the inclusive range.
func (s *PresenceService) ListPresence(ctx context.Context, params ListPresenceParams) ([]PresenceEntry, error) {
	if s == nil {
		return nil, fmt.Errorf("PresenceService is nil")
	}
	if s.presence == nil {
		return nil, fmt.Errorf("presence repository not configured")
	}

	from := truncateToDay(params.From)
	to := truncateToDay(params.To)

	vErr := &ValidationError{}
	if params.From.IsZero() {
		vErr.add("from", "from is required")
	}
	if params.To.IsZero() {
		vErr.add("to", "to is required")
	}
	if !params.From.IsZero() && !params.To.IsZero() {
		if to.Before(from) {
			vErr.add("range", "to must not be before from")
		} else if to.Sub(from) > maxPresenceRangeDays*24*time.Hour {
			vErr.add("range", fmt.Sprintf("range must not exceed %d days", maxPresenceRangeDays))
		}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	entries, err := s.presence.ListPresence(ctx, from, to)
	if err != nil {
		return nil, mapPresenceRepoError(err)
	}

	return entries, nil
}

func truncateToDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func mapPresenceRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("user_id", "user does not exist")
		return vErr
	}
	return err
}
