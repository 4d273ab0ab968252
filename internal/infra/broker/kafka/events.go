package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"devlink/internal/app/chatsync"
	"devlink/internal/infra/broker"
)

// MessageCreatedEvent is the wire form of a new-message notification.
type MessageCreatedEvent struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// EventPublisher writes message-created events to the configured topic. It
// backs the store's publisher port in multi-instance deployments.
type EventPublisher struct {
	Producer *Producer
	Topic    string
}

func (p EventPublisher) PublishMessageCreated(ctx context.Context, ev chatsync.MessageEvent) error {
	payload, err := json.Marshal(MessageCreatedEvent{
		MessageID:      ev.MessageID,
		ConversationID: ev.ConversationID,
		SenderID:       ev.SenderID,
		CreatedAt:      ev.CreatedAt,
	})
	if err != nil {
		return err
	}
	// Keyed by conversation so per-thread ordering survives partitioning.
	return p.Producer.Publish(ctx, p.Topic, ev.ConversationID, payload)
}

// EventHandler decodes consumed events and fans them out on the local bus.
type EventHandler struct {
	Bus    *broker.Bus
	Logger *slog.Logger
}

func (h EventHandler) Handle(_ context.Context, msg *sarama.ConsumerMessage) error {
	var ev MessageCreatedEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("undecodable chat event dropped", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
		// Poison messages are dropped, not redelivered.
		return nil
	}
	h.Bus.Publish(chatsync.MessageEvent{
		MessageID:      ev.MessageID,
		ConversationID: ev.ConversationID,
		SenderID:       ev.SenderID,
		CreatedAt:      ev.CreatedAt,
	})
	return nil
}
