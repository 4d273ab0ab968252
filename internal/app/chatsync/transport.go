package chatsync

import (
	"context"
	"time"

	domainchat "devlink/internal/domain/chat"
)

// ConversationSummary is the slim listing row returned by the store before
// per-conversation enrichment.
type ConversationSummary struct {
	ConversationID string
	OtherUserID    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MessageEvent is a live notification that a message was created somewhere on
// the platform.
type MessageEvent struct {
	MessageID      string
	ConversationID string
	SenderID       string
	CreatedAt      time.Time
}

// Transport is the boundary to the persistent message store and the live
// event feed. Implementations own durability and get-or-create semantics; the
// engine only consumes them.
type Transport interface {
	ConversationSummaries(ctx context.Context, userID string) ([]ConversationSummary, error)
	LatestMessage(ctx context.Context, conversationID string) (*domainchat.Message, error)
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
	TotalUnreadCount(ctx context.Context, userID string) (int, error)
	ReadMarker(ctx context.Context, conversationID, userID string) (time.Time, error)
	Messages(ctx context.Context, conversationID string) ([]domainchat.Message, error)
	Profile(ctx context.Context, userID string) (domainchat.ProfileSnapshot, error)
	SendMessage(ctx context.Context, conversationID, senderID, content string) (domainchat.Message, error)
	MarkRead(ctx context.Context, conversationID, userID string) error
	GetOrCreateConversation(ctx context.Context, userA, userB string) (string, error)

	// SubscribeNewMessages registers fn for every message-created event until
	// the returned unsubscribe func is called. fn may be invoked from the
	// transport's own goroutine.
	SubscribeNewMessages(fn func(MessageEvent)) (unsubscribe func())
}
