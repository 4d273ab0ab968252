package kafka

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
)

type flakyHandler struct {
	failOffsets map[int64]bool
	handled     []int64
}

func (h *flakyHandler) Handle(_ context.Context, msg *sarama.ConsumerMessage) error {
	h.handled = append(h.handled, msg.Offset)
	if h.failOffsets[msg.Offset] {
		return errors.New("handler rejected")
	}
	return nil
}

type fakeSession struct {
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "test" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}
func (s *fakeSession) Context() context.Context { return context.Background() }

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c fakeClaim) Topic() string                            { return "chat.message.created" }
func (c fakeClaim) Partition() int32                         { return 0 }
func (c fakeClaim) InitialOffset() int64                     { return 0 }
func (c fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestConsumeClaim(t *testing.T) {
	claim := fakeClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	for offset := int64(0); offset < 3; offset++ {
		claim.messages <- &sarama.ConsumerMessage{Topic: "chat.message.created", Offset: offset}
	}
	close(claim.messages)

	var logged bytes.Buffer
	handler := &flakyHandler{failOffsets: map[int64]bool{1: true}}
	sess := &fakeSession{}
	group := consumerGroupHandler{
		handler: handler,
		logger:  slog.New(slog.NewTextHandler(&logged, nil)),
	}

	if err := group.ConsumeClaim(sess, claim); err != nil {
		t.Fatalf("consume claim failed: %v", err)
	}

	if len(handler.handled) != 3 {
		t.Fatalf("handled = %v, want all 3 offsets", handler.handled)
	}
	// Offset 1 failed, so it must stay unmarked for redelivery.
	want := []int64{0, 2}
	if len(sess.marked) != len(want) {
		t.Fatalf("marked = %v, want %v", sess.marked, want)
	}
	for i, offset := range want {
		if sess.marked[i] != offset {
			t.Fatalf("marked = %v, want %v", sess.marked, want)
		}
	}
	if !bytes.Contains(logged.Bytes(), []byte("offset unmarked")) {
		t.Fatal("failed handle not logged")
	}
}
