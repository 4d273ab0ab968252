package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"devlink/internal/app/chatsync"
	"devlink/internal/infra/broker"
)

func TestEventHandler(t *testing.T) {
	t.Run("decodes and fans out", func(t *testing.T) {
		bus := broker.NewBus()
		var got []chatsync.MessageEvent
		bus.Subscribe(func(e chatsync.MessageEvent) { got = append(got, e) })

		created := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
		payload, err := json.Marshal(MessageCreatedEvent{
			MessageID:      "m1",
			ConversationID: "c1",
			SenderID:       "u1",
			CreatedAt:      created,
		})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		h := EventHandler{Bus: bus}
		if err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: payload}); err != nil {
			t.Fatalf("handle failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("deliveries = %d, want 1", len(got))
		}
		if got[0].MessageID != "m1" || got[0].ConversationID != "c1" || !got[0].CreatedAt.Equal(created) {
			t.Fatalf("event mangled: %+v", got[0])
		}
	})

	t.Run("poison message is dropped not redelivered", func(t *testing.T) {
		bus := broker.NewBus()
		delivered := 0
		bus.Subscribe(func(chatsync.MessageEvent) { delivered++ })

		h := EventHandler{Bus: bus}
		if err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("not json")}); err != nil {
			t.Fatalf("poison message must not error: %v", err)
		}
		if delivered != 0 {
			t.Fatalf("deliveries = %d, want 0", delivered)
		}
	})
}
