package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Domain event names carried in Message.Type. The core only produces
// events; delivery guarantees are the transport's problem.
const (
	EventTaskUpdated    = "task_updated"
	EventRoutineUpdated = "routine_updated"
	EventMemberUpdated  = "member_updated"
	EventNotification   = "notification"
)

// Message is a domain event delivered to the clients of one household.
type Message struct {
	Type    string         `json:"type"`
	ID      int64          `json:"id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NewMessage creates a Message for the given event name.
func NewMessage(eventType string, id int64, payload map[string]any) Message {
	return Message{
		Type:    eventType,
		ID:      id,
		Payload: payload,
	}
}

// Hub maintains the set of active WebSocket clients, each scoped to the
// household it authenticated under, and fans events out per household.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client scoped to the household.
func (h *Hub) Broadcast(householdID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.householdID != householdID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
