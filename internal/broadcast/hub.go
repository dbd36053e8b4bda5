// Package broadcast fans application events out to connected websocket
// clients. Delivery is best-effort: clients that cannot keep up with
// the stream are disconnected rather than allowed to block the hub.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
)

// Envelope is the wire format for every pushed message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub tracks connected clients and routes published envelopes to all
// of them. All bookkeeping happens on the Run goroutine; the exported
// methods only exchange messages over channels.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	outbound   chan []byte
	count      atomic.Int64
	logger     *slog.Logger
}

// NewHub constructs a hub. Run must be started before clients attach.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan []byte, 256),
		logger:     logger,
	}
}

// Run processes registrations and fan-out until the context is
// cancelled, then closes every remaining client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.logger.Debug("websocket client connected", "user_id", client.userID, "clients", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case message := <-h.outbound:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; disconnect instead of blocking.
					h.logger.Warn("dropping slow websocket client", "user_id", client.userID)
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	h.count.Store(int64(len(h.clients)))
	close(client.send)
}

// Publish marshals an envelope and queues it for every connected
// client. Marshal failures and a saturated hub are logged and the
// message is discarded.
func (h *Hub) Publish(eventType string, payload any) {
	if h == nil {
		return
	}
	message, err := json.Marshal(Envelope{Type: eventType, Data: payload})
	if err != nil {
		h.logger.Error("failed to marshal broadcast envelope", "type", eventType, "error", err)
		return
	}
	select {
	case h.outbound <- message:
	default:
		h.logger.Warn("broadcast queue full, discarding message", "type", eventType)
	}
}

// ClientCount reports how many clients are currently attached.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}
