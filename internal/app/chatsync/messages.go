package chatsync

import (
	"context"

	domainchat "devlink/internal/domain/chat"
)

// LoadMessages fetches the full ordered message list for a conversation and
// replaces the cached pane wholesale. There is no incremental paging; a full
// reload is what keeps ordering and dedupe trivially correct.
func (e *Engine) LoadMessages(ctx context.Context, conversationID string) error {
	e.mu.Lock()
	e.paneState = PaneLoading
	e.paneError = ""
	e.mu.Unlock()

	msgs, err := WithRetry(ctx, e.cfg.Retry, e.logger, "load messages", func(ctx context.Context) ([]domainchat.Message, error) {
		return e.transport.Messages(ctx, conversationID)
	})
	if err != nil {
		e.logger.Error("message load failed", "conversation_id", conversationID, "error", err)
		e.mu.Lock()
		e.paneState = PaneErrored
		e.paneError = err.Error()
		e.mu.Unlock()
		return err
	}

	domainchat.SortMessages(msgs)

	e.mu.Lock()
	// The user may have switched threads while the fetch was in flight; a
	// stale result must not clobber the new pane.
	if e.currentID != "" && e.currentID != conversationID {
		e.mu.Unlock()
		return nil
	}
	e.messages = msgs
	e.paneState = PaneLoaded
	e.mu.Unlock()
	return nil
}

// MessageGroups returns the cached pane partitioned by calendar day for
// display.
func (e *Engine) MessageGroups() []domainchat.DayGroup {
	e.mu.RLock()
	msgs := append([]domainchat.Message(nil), e.messages...)
	e.mu.RUnlock()
	return domainchat.GroupMessagesByDay(msgs)
}
