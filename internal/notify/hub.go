package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// MessageType identifies a frame sent to websocket clients.
type MessageType string

const MessageToast MessageType = "toast"

// Message is the JSON frame written to websocket clients.
type Message struct {
	Type      MessageType `json:"type"`
	Toast     *Toast      `json:"toast,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type directMessage struct {
	userID  uuid.UUID
	payload []byte
}

// Hub keeps the websocket connections of signed-in users and delivers toasts
// to every connection of the addressed user.
type Hub struct {
	clients map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	direct     chan directMessage
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a Hub. Run must be started before toasts are delivered.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and deliveries until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	slog.Info("notification hub started")

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			slog.Info("notification hub stopped")
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case dm := <-h.direct:
			h.deliver(dm)
		}
	}
}

// Attach registers a websocket connection for userID and starts its pumps.
// It returns immediately; the connection is closed when the peer goes away or
// the hub stops.
func (h *Hub) Attach(conn *websocket.Conn, userID uuid.UUID) {
	c := &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 16),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// Connections returns how many connections userID currently has.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ShowToast implements Sink.
func (h *Hub) ShowToast(_ context.Context, recipient uuid.UUID, t Toast) {
	payload, err := json.Marshal(Message{Type: MessageToast, Toast: &t, Timestamp: time.Now().UTC()})
	if err != nil {
		slog.Error("failed to encode toast", "error", err)
		return
	}

	select {
	case h.direct <- directMessage{userID: recipient, payload: payload}:
	default:
		slog.Warn("notification hub queue full, dropping toast", "recipient", recipient)
	}
}

// ShowError implements Sink.
func (h *Hub) ShowError(ctx context.Context, recipient uuid.UUID, title string, err error) {
	h.ShowToast(ctx, recipient, ErrorToast(title, err))
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	slog.Debug("websocket client registered", "user", c.userID)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	slog.Debug("websocket client unregistered", "user", c.userID)
}

func (h *Hub) deliver(dm directMessage) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients[dm.userID] {
		select {
		case c.send <- dm.payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.remove(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.clients {
		for c := range conns {
			close(c.send)
		}
		delete(h.clients, userID)
	}
}
