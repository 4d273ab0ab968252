package chatsync

import (
	"context"
	"time"
)

// refreshTotalUnread pulls the platform-wide unread aggregate. Counting stays
// server-authoritative; recomputing from cached message lists would be
// exposed to clock skew and pagination edges.
func (e *Engine) refreshTotalUnread(ctx context.Context) {
	total, err := e.transport.TotalUnreadCount(ctx, e.userID)
	if err != nil {
		e.logger.Warn("total unread refresh failed", "error", err)
		return
	}
	e.mu.Lock()
	e.totalUnread = total
	e.mu.Unlock()
}

// MarkConversationAsRead advances the caller's read marker to now. Read state
// is best-effort: failures are logged, never surfaced, and nothing blocks on
// this from the presentation layer's point of view.
func (e *Engine) MarkConversationAsRead(ctx context.Context, conversationID string) {
	if err := e.transport.MarkRead(ctx, conversationID, e.userID); err != nil {
		e.logger.Warn("mark read failed", "conversation_id", conversationID, "error", err)
		return
	}
	now := time.Now()
	e.mu.Lock()
	for i := range e.conversations {
		if e.conversations[i].ID == conversationID {
			e.conversations[i].UnreadCount = 0
			e.conversations[i].Self.LastReadAt = now
		}
	}
	for i := range e.filtered {
		if e.filtered[i].ID == conversationID {
			e.filtered[i].UnreadCount = 0
			e.filtered[i].Self.LastReadAt = now
		}
	}
	e.mu.Unlock()
	e.refreshTotalUnread(ctx)
}
