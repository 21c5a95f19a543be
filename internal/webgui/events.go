package webgui

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one push notification broadcast to connected web UI clients:
// registry changes, data-buffer inserts, and say-pipeline steps, adapted
// from the teacher's governance.AlfredServer.WSMessage broadcast pattern.
type Event struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// Hub fans Events out to every connected /webgui/events client. It is the
// optional live-feed counterpart to polling /status/devices.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeWS upgrades the connection and keeps reading (and discarding)
// client frames until the socket closes, purely to detect disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast is best-effort: a write failure drops that client silently,
// matching spec §4.5.1's "best-effort, individual failures are logged,
// not fatal" treatment of side-channel fan-out.
func (h *Hub) Broadcast(eventType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := Event{Type: eventType, Payload: payload, Timestamp: time.Now().Unix()}
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
