package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"filedrop/server/internal/metrics"
)

// writeTimeout bounds how long a broadcast may block on a single
// unresponsive listener.
const writeTimeout = 10 * time.Second

// Event is the fixed-shape message pushed to listeners.
type Event struct {
	Event string `json:"event"`
}

// client wraps one listener connection. The mutex serializes writes so
// broadcast frames and keepalive pongs never interleave; gorilla
// connections support only one concurrent writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub is the registry of currently connected notification listeners.
// It supports concurrent register/unregister/broadcast; delivery is
// best-effort and at-most-once, and a listener whose delivery fails is
// pruned from the registry.
//
// The registry lives only in memory: after a restart every listener
// must reconnect.
type Hub struct {
	clients      map[*client]struct{}
	clientsMutex sync.RWMutex
	upgrader     websocket.Upgrader
}

// NewHub creates an empty listener registry.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow connections from any origin
			},
		},
	}
}

// HandleConnection upgrades an HTTP request to a listener channel
//
// Pre-conditions:
//   - Valid HTTP request and response writer
//   - Client supports WebSocket protocol
//
// Post-conditions:
//   - Connection is registered and eligible for broadcasts
//   - The call blocks reading keepalive frames until the peer
//     disconnects or errors, then the connection is unregistered
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] failed to upgrade connection: %v", err)
		return
	}

	c := &client{conn: conn}
	h.register(c)

	// Inbound frames carry no meaning; reading them just keeps the
	// channel alive and detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(c)
}

// Broadcast sends the event to every registered listener. Per-listener
// failures are swallowed and never reach the caller; the failing
// connections are removed after the send round, not while iterating.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}

	h.clientsMutex.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.clientsMutex.RUnlock()

	var failed []*client
	for _, c := range targets {
		if err := c.send(data); err != nil {
			failed = append(failed, c)
		}
	}

	metrics.BroadcastsTotal.Inc()

	for _, c := range failed {
		metrics.BroadcastFailuresTotal.Inc()
		h.unregister(c)
	}
	if len(failed) > 0 {
		log.Printf("[WS] pruned %d dead listener(s) during broadcast", len(failed))
	}
}

// NotifyNewFile broadcasts the new-file event to every connected
// listener.
func (h *Hub) NotifyNewFile() {
	h.Broadcast(Event{Event: "new_file"})
}

// Count returns the number of currently registered listeners.
func (h *Hub) Count() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.clientsMutex.Lock()
	h.clients[c] = struct{}{}
	h.clientsMutex.Unlock()
	metrics.ConnectedListeners.Inc()
}

// unregister removes a listener and closes its connection. Removing an
// already-absent listener is a no-op, so the explicit disconnect path
// and broadcast pruning may both fire for the same connection.
func (h *Hub) unregister(c *client) {
	h.clientsMutex.Lock()
	_, present := h.clients[c]
	if present {
		delete(h.clients, c)
	}
	h.clientsMutex.Unlock()

	if present {
		c.conn.Close()
		metrics.ConnectedListeners.Dec()
	}
}
