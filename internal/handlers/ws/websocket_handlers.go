package ws

import (
	"net/http"

	"filedrop/server/internal/websocket"
)

// New creates a new websocket handler backed by the provided hub
//
// Pre-conditions:
//   - hub is a properly initialized Hub instance
//
// Post-conditions:
//   - Returns a configured websocket Handler instance
func New(hub *websocket.Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleListener handles websocket connections for new-file notifications
//
// Pre-conditions:
//   - Valid HTTP request and response writer
//   - Client supports WebSocket protocol
//
// Post-conditions:
//   - Websocket connection established and registered for broadcasts
//   - Connection is held open until the client disconnects
//   - Resources are properly cleaned up on disconnect
func (h *Handler) HandleListener(w http.ResponseWriter, r *http.Request) {
	h.hub.HandleConnection(w, r)
}
