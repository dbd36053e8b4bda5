package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/office-calendar/internal/application"
	"github.com/example/office-calendar/internal/broadcast"
	"github.com/example/office-calendar/internal/config"
	httptransport "github.com/example/office-calendar/internal/http"
	"github.com/example/office-calendar/internal/logging"
	"github.com/example/office-calendar/internal/persistence"
	"github.com/example/office-calendar/internal/persistence/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New(os.Stderr, config.Config{}.SlogLevel())
		fallback.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.SlogLevel())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.DBPath))
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := sqlite.ApplySchema(ctx, pool); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	issuer, err := application.NewTokenIssuer(application.TokenIssuerConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	}, time.Now)
	if err != nil {
		logger.Error("failed to configure token issuer", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	userRepo := sqlite.NewUserRepository(pool)
	roomRepo := sqlite.NewRoomRepository(pool)
	eventRepo := sqlite.NewEventRepository(pool)
	notificationRepo := sqlite.NewNotificationRepository(pool)
	presenceRepo := sqlite.NewPresenceRepository(pool)

	users := newUserAdapter(userRepo)
	rooms := newRoomAdapter(roomRepo)
	events := newEventAdapter(eventRepo)
	notifications := newNotificationAdapter(notificationRepo)
	presence := newPresenceAdapter(presenceRepo)

	hub := broadcast.NewHub(logger)
	go hub.Run(ctx)

	authService := application.NewAuthServiceWithLogger(users, issuer, idGenerator, now, logger)
	notificationService := application.NewNotificationServiceWithLogger(notifications, events, users, hub, idGenerator, now, logger)
	eventService := application.NewEventServiceWithLogger(events, users, rooms, notificationService, hub, idGenerator, now, logger)
	roomService := application.NewRoomServiceWithLogger(rooms, idGenerator, now, logger)
	presenceService := application.NewPresenceServiceWithLogger(presence, hub, now, logger)
	userService := application.NewUserService(users)

	if cfg.SeedAdminPass != "" {
		if admin, err := authService.EnsureSeedAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPass); err != nil {
			logger.Error("failed to seed admin account", "error", err)
			os.Exit(1)
		} else if admin.ID != "" {
			logger.Info("seeded admin account", "email", admin.Email)
		}
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(authService, logger),
		Users:         httptransport.NewUserHandler(userService, logger),
		Events:        httptransport.NewEventHandler(eventService, notificationService, logger),
		Notifications: httptransport.NewNotificationHandler(notificationService, logger),
		Rooms:         httptransport.NewRoomHandler(roomService, logger),
		Presence:      httptransport.NewPresenceHandler(presenceService, logger),
		WS:            httptransport.NewWSHandler(hub, logger),
		Verifier:      issuer,
		Logger:        logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("office calendar API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// userAdapter bridges the persistence user repository to the application
// interfaces that consume users: credential storage, the searchable
// directory and roster validation.
type userAdapter struct {
	repo persistence.UserRepository
}

func newUserAdapter(repo persistence.UserRepository) *userAdapter {
	return &userAdapter{repo: repo}
}

func (a *userAdapter) CreateAccount(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, err
	}
	return user, nil
}

func (a *userAdapter) GetAccountByEmail(ctx context.Context, email string) (application.User, string, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.User{}, "", err
	}
	return toApplicationUser(stored), stored.PasswordHash, nil
}

func (a *userAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userAdapter) CountAccounts(ctx context.Context) (int, error) {
	return a.repo.CountUsers(ctx)
}

func (a *userAdapter) SearchUsers(ctx context.Context, query string) ([]application.User, error) {
	var (
		models []persistence.User
		err    error
	)
	if query == "" {
		models, err = a.repo.ListUsers(ctx)
	} else {
		models, err = a.repo.SearchUsers(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *userAdapter) MissingUserIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var missing []string
	for _, id := range ids {
		if _, err := a.repo.GetUser(ctx, id); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				missing = append(missing, id)
				continue
			}
			return nil, err
		}
	}
	return missing, nil
}

// roomAdapter bridges the persistence room repository to the application
// room repository and the catalog used during event validation.
type roomAdapter struct {
	repo persistence.RoomRepository
}

func newRoomAdapter(repo persistence.RoomRepository) *roomAdapter {
	return &roomAdapter{repo: repo}
}

func (a *roomAdapter) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.CreateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	return room, nil
}

func (a *roomAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

func (a *roomAdapter) RoomExists(ctx context.Context, id string) (bool, error) {
	if _, err := a.repo.GetRoom(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// eventAdapter bridges the persistence event repository to the application
// event repository and the lookup used by notification fan-out.
type eventAdapter struct {
	repo persistence.EventRepository
}

func newEventAdapter(repo persistence.EventRepository) *eventAdapter {
	return &eventAdapter{repo: repo}
}

func (a *eventAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	return event, nil
}

func (a *eventAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventAdapter) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.UpdateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	return event, nil
}

func (a *eventAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

func (a *eventAdapter) ListEvents(ctx context.Context) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func (a *eventAdapter) DeleteAllEvents(ctx context.Context) error {
	return a.repo.DeleteAllEvents(ctx)
}

func (a *eventAdapter) SetAttendeeResponse(ctx context.Context, eventID, userID string, response application.AttendeeResponse) error {
	return a.repo.SetAttendeeResponse(ctx, eventID, userID, string(response))
}

// notificationAdapter bridges the persistence notification repository to
// the application one.
type notificationAdapter struct {
	repo persistence.NotificationRepository
}

func newNotificationAdapter(repo persistence.NotificationRepository) *notificationAdapter {
	return &notificationAdapter{repo: repo}
}

func (a *notificationAdapter) CreateNotification(ctx context.Context, notification application.Notification) (application.Notification, error) {
	if err := a.repo.CreateNotification(ctx, toPersistenceNotification(notification)); err != nil {
		return application.Notification{}, err
	}
	return notification, nil
}

func (a *notificationAdapter) GetNotification(ctx context.Context, id string) (application.Notification, error) {
	stored, err := a.repo.GetNotification(ctx, id)
	if err != nil {
		return application.Notification{}, err
	}
	return toApplicationNotification(stored), nil
}

func (a *notificationAdapter) ListFeed(ctx context.Context, filter application.NotificationFeedFilter) ([]application.FeedItem, error) {
	models, err := a.repo.ListFeed(ctx, persistence.FeedFilter{
		UserID:      filter.UserID,
		IncludeRead: filter.IncludeRead,
		Offset:      filter.Offset,
		Limit:       filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]application.FeedItem, 0, len(models))
	for _, model := range models {
		items = append(items, application.FeedItem{
			Notification: toApplicationNotification(model.Notification),
			IsRead:       model.IsRead,
		})
	}
	return items, nil
}

func (a *notificationAdapter) Dismiss(ctx context.Context, notificationID, userID string, dismissedAt time.Time) error {
	return a.repo.Dismiss(ctx, persistence.Dismissal{
		NotificationID: notificationID,
		UserID:         userID,
		IsRead:         true,
		DismissedAt:    dismissedAt,
	})
}

// presenceAdapter bridges the persistence presence repository to the
// application one.
type presenceAdapter struct {
	repo persistence.PresenceRepository
}

func newPresenceAdapter(repo persistence.PresenceRepository) *presenceAdapter {
	return &presenceAdapter{repo: repo}
}

func (a *presenceAdapter) UpsertPresence(ctx context.Context, entry application.PresenceEntry) error {
	return a.repo.UpsertPresence(ctx, persistence.PresenceEntry{
		UserID:    entry.UserID,
		Date:      entry.Date,
		Status:    string(entry.Status),
		UpdatedAt: entry.UpdatedAt,
	})
}

func (a *presenceAdapter) ListPresence(ctx context.Context, from, to time.Time) ([]application.PresenceEntry, error) {
	models, err := a.repo.ListPresence(ctx, from, to)
	if err != nil {
		return nil, err
	}
	entries := make([]application.PresenceEntry, 0, len(models))
	for _, model := range models {
		entries = append(entries, application.PresenceEntry{
			UserID:    model.UserID,
			Date:      model.Date,
			Status:    application.PresenceStatus(model.Status),
			UpdatedAt: model.UpdatedAt,
		})
	}
	return entries, nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		IsAdmin:     model.IsAdmin,
		IsActive:    model.IsActive,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: passwordHash,
		IsAdmin:      user.IsAdmin,
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:        model.ID,
		Name:      model.Name,
		Capacity:  model.Capacity,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:        room.ID,
		Name:      room.Name,
		Capacity:  room.Capacity,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func toApplicationEvent(model persistence.Event) application.Event {
	description := ""
	if model.Description != nil {
		description = *model.Description
	}
	attendees := make([]application.Attendee, 0, len(model.Attendees))
	for _, attendee := range model.Attendees {
		attendees = append(attendees, application.Attendee{
			UserID:   attendee.UserID,
			Response: application.AttendeeResponse(attendee.Response),
		})
	}
	return application.Event{
		ID:             model.ID,
		Title:          model.Title,
		Description:    description,
		StartsAt:       model.StartsAt,
		EndsAt:         model.EndsAt,
		OrganizerID:    model.OrganizerID,
		RoomID:         cloneString(model.RoomID),
		RecurrenceRule: cloneString(model.RecurrenceRule),
		Visibility:     model.Visibility,
		Attendees:      attendees,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	var description *string
	if event.Description != "" {
		description = cloneString(&event.Description)
	}
	attendees := make([]persistence.Attendee, 0, len(event.Attendees))
	for _, attendee := range event.Attendees {
		attendees = append(attendees, persistence.Attendee{
			UserID:   attendee.UserID,
			Response: string(attendee.Response),
		})
	}
	return persistence.Event{
		ID:             event.ID,
		Title:          event.Title,
		Description:    description,
		StartsAt:       event.StartsAt,
		EndsAt:         event.EndsAt,
		OrganizerID:    event.OrganizerID,
		RoomID:         cloneString(event.RoomID),
		RecurrenceRule: cloneString(event.RecurrenceRule),
		Visibility:     event.Visibility,
		Attendees:      attendees,
		CreatedAt:      event.CreatedAt,
		UpdatedAt:      event.UpdatedAt,
	}
}

func toApplicationNotification(model persistence.Notification) application.Notification {
	return application.Notification{
		ID:          model.ID,
		ActorID:     model.ActorID,
		ActorName:   model.ActorName,
		RecipientID: cloneString(model.RecipientID),
		Action:      application.NotificationAction(model.Action),
		Message:     model.Message,
		EventID:     cloneString(model.EventID),
		CreatedAt:   model.CreatedAt,
	}
}

func toPersistenceNotification(notification application.Notification) persistence.Notification {
	return persistence.Notification{
		ID:          notification.ID,
		ActorID:     notification.ActorID,
		ActorName:   notification.ActorName,
		RecipientID: cloneString(notification.RecipientID),
		Action:      string(notification.Action),
		Message:     notification.Message,
		EventID:     cloneString(notification.EventID),
		CreatedAt:   notification.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
