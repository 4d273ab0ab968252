package chatsync

import "context"

// run is the engine's only push path: a single goroutine draining the event
// channel so live invalidations are serialized with respect to each other.
func (e *Engine) run(ctx context.Context) {
	defer close(e.loopDone)
	for {
		select {
		case <-e.done:
			return
		case <-ctx.Done():
			return
		case ev := <-e.events:
			e.handleEvent(ctx, ev)
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev MessageEvent) {
	if ev.ConversationID != "" && ev.ConversationID == e.CurrentConversationID() {
		if err := e.LoadMessages(ctx, ev.ConversationID); err != nil {
			e.logger.Warn("live reload failed", "conversation_id", ev.ConversationID, "error", err)
		}
	}
	// The badge refreshes on every event system-wide, not just the open
	// thread's.
	e.refreshTotalUnread(ctx)
	// Resync no-ops while one is already in flight; the in-flight guard is
	// the only debounce.
	if err := e.Resync(ctx); err != nil {
		e.logger.Warn("event-driven resync failed", "error", err)
	}
}
