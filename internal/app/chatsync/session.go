package chatsync

import (
	"context"
	"errors"
	"strings"

	domainchat "devlink/internal/domain/chat"
)

var errEmptyContent = errors.New("empty content")

// SetCurrentConversation switches the open thread. An empty id means "no
// conversation selected": the pane clears and that is not an error. A
// non-empty id clears the pane, loads the thread's messages and marks it
// read. Message loads are not auto-retried beyond the transient backoff;
// only resyncs have a retry affordance.
func (e *Engine) SetCurrentConversation(ctx context.Context, conversationID string) error {
	e.mu.Lock()
	e.currentID = conversationID
	e.messages = nil
	e.paneState = PaneEmpty
	e.paneError = ""
	e.mu.Unlock()

	if conversationID == "" {
		return nil
	}
	err := e.LoadMessages(ctx, conversationID)
	e.MarkConversationAsRead(ctx, conversationID)
	return err
}

// SendMessage posts content to the open conversation. Writes are never
// wrapped in the retry controller: retrying a send risks a duplicate, so
// failure is surfaced to the caller instead. A successful send reloads the
// pane so the sender sees their message without waiting for the live event.
func (e *Engine) SendMessage(ctx context.Context, content string) (domainchat.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domainchat.Message{}, &domainchat.PersistenceError{Op: "send message", Err: errEmptyContent}
	}
	conversationID := e.CurrentConversationID()
	if conversationID == "" {
		return domainchat.Message{}, domainchat.ErrNoConversation
	}

	msg, err := e.transport.SendMessage(ctx, conversationID, e.userID, content)
	if err != nil {
		e.logger.Error("send failed", "conversation_id", conversationID, "error", err)
		return domainchat.Message{}, err
	}
	if err := e.LoadMessages(ctx, conversationID); err != nil {
		e.logger.Warn("pane refresh after send failed", "conversation_id", conversationID, "error", err)
	}
	return msg, nil
}

// StartConversation resolves the single conversation for this user pair,
// creating it when absent, then resyncs so the thread shows up in the list.
func (e *Engine) StartConversation(ctx context.Context, otherUserID string) (string, error) {
	id, err := e.transport.GetOrCreateConversation(ctx, e.userID, otherUserID)
	if err != nil {
		return "", err
	}
	if err := e.Resync(ctx); err != nil {
		e.logger.Warn("resync after start conversation failed", "error", err)
	}
	return id, nil
}
