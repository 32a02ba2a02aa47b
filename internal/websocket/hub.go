package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a change notification pushed to connected consoles so
// open dashboards refresh without polling.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity
// and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Hub tracks the active WebSocket connections by authenticated user.
// Entity changes fan out to everyone; session events go only to the
// connections of the user they concern.
type Hub struct {
	mu     sync.RWMutex
	conns  map[*Client]int64 // connection -> authenticated user id
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[*Client]int64),
		logger: logger,
	}
}

// Register adds a connection under the user it authenticated as.
func (h *Hub) Register(c *Client, userID int64) {
	h.mu.Lock()
	h.conns[c] = userID
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		close(c.outbox)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every connection. Connections with a
// full outbox miss the message rather than blocking the hub.
func (h *Hub) Broadcast(msg Message) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		c.deliver(data)
	}
}

// SendToUser sends a message to the connections of a single user.
// Users with no open connection simply miss it; session state is
// always re-checked against the server on the next request.
func (h *Hub) SendToUser(userID int64, msg Message) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c, uid := range h.conns {
		if uid == userID {
			c.deliver(data)
		}
	}
}

func (h *Hub) encode(msg Message) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal hub message", "error", err)
		return nil, false
	}
	return data, true
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
