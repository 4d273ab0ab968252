package broker

import (
	"context"
	"sync"

	"devlink/internal/app/chatsync"
)

// Bus is the in-process fan-out behind the engine's live-message
// subscription. The Kafka consumer feeds it in multi-instance deployments;
// in single-process mode the store publishes straight into it.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]func(chatsync.MessageEvent)
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(chatsync.MessageEvent))}
}

// Subscribe registers fn until the returned func is called.
func (b *Bus) Subscribe(fn func(chatsync.MessageEvent)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers ev to every current subscriber. Subscribers are expected
// to hand off quickly (the engine only enqueues onto its event channel).
func (b *Bus) Publish(ev chatsync.MessageEvent) {
	b.mu.RLock()
	subs := make([]func(chatsync.MessageEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// PublishMessageCreated satisfies the store's publisher port for
// single-process deployments.
func (b *Bus) PublishMessageCreated(_ context.Context, ev chatsync.MessageEvent) error {
	b.Publish(ev)
	return nil
}
