package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/example/office-calendar/internal/broadcast"
)

// WSHandler upgrades authenticated requests and attaches them to the
// broadcast hub. Authentication happens in the middleware chain; the
// token travels in the token query parameter because browser websocket
// clients cannot set headers.
type WSHandler struct {
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWSHandler(hub *broadcast.Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The token already authenticated the request.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: defaultLogger(logger),
	}
}

func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hub == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	broadcast.NewClient(h.hub, conn, principal.UserID).Start()
}
