package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func dialTestClient(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go NewClient(hub, conn, userID).Start()
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PublishReachesAllClients(t *testing.T) {
	hub := startHub(t)

	first := dialTestClient(t, hub, "user-1")
	second := dialTestClient(t, hub, "user-2")
	waitForClients(t, hub, 2)

	hub.Publish("event:created", map[string]string{"id": "event-1"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("failed to read broadcast: %v", err)
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			t.Fatalf("failed to decode envelope: %v", err)
		}
		if envelope.Type != "event:created" {
			t.Fatalf("expected event:created, got %q", envelope.Type)
		}
		data, ok := envelope.Data.(map[string]any)
		if !ok || data["id"] != "event-1" {
			t.Fatalf("unexpected payload: %#v", envelope.Data)
		}
	}
}

func TestHub_DetachesClosedClients(t *testing.T) {
	hub := startHub(t)

	conn := dialTestClient(t, hub, "user-1")
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Publishing with nobody attached must not block.
	hub.Publish("event:updated", map[string]string{"id": "event-1"})
}

func TestHub_PublishSkipsUnmarshalablePayloads(t *testing.T) {
	hub := startHub(t)

	conn := dialTestClient(t, hub, "user-1")
	waitForClients(t, hub, 1)

	hub.Publish("event:created", func() {})
	hub.Publish("event:updated", map[string]string{"id": "event-2"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if envelope.Type != "event:updated" {
		t.Fatalf("expected the bad payload to be skipped, got %q", envelope.Type)
	}
}
