package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"devlink/internal/app/chatsync"
)

// Notice is the payload pushed to connected browsers when a message lands in
// one of their conversations. It is a refresh hint, not the message itself;
// clients pull fresh state through the HTTP API.
type Notice struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Hub keeps one active websocket per user and forwards new-message events to
// the participants of the affected conversation.
type Hub struct {
	// Members resolves a conversation to its participant user ids.
	Members func(ctx context.Context, conversationID string) ([]string, error)
	Logger  *slog.Logger

	mu    sync.RWMutex
	conns map[string]*Connection // userID -> connection
}

func NewHub(members func(ctx context.Context, conversationID string) ([]string, error), logger *slog.Logger) *Hub {
	return &Hub{
		Members: members,
		Logger:  logger,
		conns:   make(map[string]*Connection),
	}
}

// Attach registers a connection for the user, replacing and closing any
// previous one so each user holds a single active socket.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	previous := h.conns[conn.UserID]
	h.conns[conn.UserID] = conn
	h.mu.Unlock()

	conn.Start()
	if previous != nil {
		previous.Close(4001, "session replaced")
	}
}

// Detach removes the connection if it is still the user's current one.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	if current, ok := h.conns[conn.UserID]; ok && current.ID == conn.ID {
		delete(h.conns, conn.UserID)
	}
	h.mu.Unlock()
}

// HandleEvent fans a message event out to the conversation's participants.
// It is wired as a bus subscriber.
func (h *Hub) HandleEvent(ev chatsync.MessageEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	members, err := h.Members(ctx, ev.ConversationID)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("event fan-out member lookup failed", "conversation_id", ev.ConversationID, "error", err)
		}
		return
	}
	payload, err := json.Marshal(Notice{
		Type:           "message.created",
		ConversationID: ev.ConversationID,
		SenderID:       ev.SenderID,
		CreatedAt:      ev.CreatedAt,
	})
	if err != nil {
		return
	}
	for _, userID := range members {
		h.mu.RLock()
		conn := h.conns[userID]
		h.mu.RUnlock()
		if conn == nil {
			continue
		}
		if err := conn.Send(payload); err != nil && h.Logger != nil {
			h.Logger.Warn("push dropped", "user_id", userID, "error", err)
		}
	}
}

// Close terminates all tracked connections.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[string]*Connection)
	h.mu.Unlock()
	for _, conn := range conns {
		conn.Close(1001, "hub shutdown")
	}
}
