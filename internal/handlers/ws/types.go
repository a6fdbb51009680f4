package ws

import "filedrop/server/internal/websocket"

// Handler manages the listener channel endpoint
// It delegates connection lifecycle to the hub.
type Handler struct {
	hub *websocket.Hub
}
