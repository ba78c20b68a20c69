package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/daap14/useradmin/internal/api/middleware"
	"github.com/daap14/useradmin/internal/api/response"
)

// ConnectionAttacher takes ownership of an upgraded websocket connection.
type ConnectionAttacher interface {
	Attach(conn *websocket.Conn, userID uuid.UUID)
}

// EventsHandler upgrades GET /events to a websocket carrying the caller's toasts.
type EventsHandler struct {
	hub      ConnectionAttacher
	upgrader websocket.Upgrader
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(hub ConnectionAttacher) *EventsHandler {
	return &EventsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeHTTP handles GET /events.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key is required", requestID)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		middleware.Logger(r.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}

	h.hub.Attach(conn, identity.UserID)
}
