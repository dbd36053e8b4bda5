package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig collects the handlers and middleware the router mounts.
type RouterConfig struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Events        *EventHandler
	Notifications *NotificationHandler
	Rooms         *RoomHandler
	Presence      *PresenceHandler
	WS            *WSHandler
	Verifier      TokenVerifier
	Logger        *slog.Logger
}

// NewRouter wires the HTTP surface. Everything under /api except the
// auth endpoints requires a bearer token, as does the websocket
// endpoint.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		if cfg.Auth != nil {
			r.Post("/auth/register", cfg.Auth.Register)
			r.Post("/auth/login", cfg.Auth.Login)
		}

		r.Group(func(r chi.Router) {
			if cfg.Verifier != nil {
				r.Use(RequireAuth(cfg.Verifier, cfg.Logger))
			}

			if cfg.Users != nil {
				r.Get("/users", cfg.Users.List)
				r.Get("/users/{id}", cfg.Users.Get)
			}

			if cfg.Events != nil {
				r.Get("/events", cfg.Events.List)
				r.Post("/events", cfg.Events.Create)
				r.Delete("/events/delete", cfg.Events.DeleteAll)
				r.Get("/events/{id}", cfg.Events.Get)
				r.Put("/events/{id}", cfg.Events.Update)
				r.Delete("/events/{id}", cfg.Events.Delete)
				r.Post("/events/{id}/respond", cfg.Events.Respond)
				r.Post("/events/{id}/notify", cfg.Events.Notify)
			}

			if cfg.Notifications != nil {
				r.Get("/notifications", cfg.Notifications.Feed)
				r.Delete("/notifications/{id}", cfg.Notifications.Dismiss)
			}

			if cfg.Rooms != nil {
				r.Get("/rooms", cfg.Rooms.List)
				r.Post("/rooms", cfg.Rooms.Create)
			}

			if cfg.Presence != nil {
				r.Get("/presence", cfg.Presence.List)
				r.Put("/presence", cfg.Presence.Set)
			}
		})
	})

	if cfg.WS != nil {
		r.Group(func(r chi.Router) {
			if cfg.Verifier != nil {
				r.Use(RequireAuth(cfg.Verifier, cfg.Logger))
			}
			r.Get("/ws", cfg.WS.Serve)
		})
	}

	return r
}
