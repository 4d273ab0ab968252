package chatsync

import (
	"context"

	domainchat "devlink/internal/domain/chat"
)

// Resync rebuilds the conversation list from the store. It is idempotent and
// safe to invoke from any trigger; a call arriving while another resync is in
// flight is a no-op and issues no transport calls. Overlap is resolved by the
// next live event, not by queueing.
func (e *Engine) Resync(ctx context.Context) error {
	if e.inFlight.Swap(true) {
		return nil
	}
	defer e.inFlight.Store(false)

	e.mu.Lock()
	e.listLoading = true
	e.mu.Unlock()

	summaries, err := WithRetry(ctx, e.cfg.Retry, e.logger, "conversation summaries", func(ctx context.Context) ([]ConversationSummary, error) {
		return e.transport.ConversationSummaries(ctx, e.userID)
	})
	if err != nil {
		fetchErr := &domainchat.FetchError{Err: err}
		e.logger.Error("conversation list fetch failed", "error", err)
		e.mu.Lock()
		e.listLoading = false
		e.listError = fetchErr.Error()
		e.mu.Unlock()
		return fetchErr
	}

	if len(summaries) == 0 {
		e.publish(nil)
		e.refreshTotalUnread(ctx)
		return nil
	}

	// Enrichment is sequential per conversation to bound memory and keep
	// pressure on the store predictable. A failed enrichment skips only that
	// conversation; partial results beat none.
	assembled := make([]domainchat.Conversation, 0, len(summaries))
	seen := make(map[string]struct{}, len(summaries))
	for _, summary := range summaries {
		if _, dup := seen[summary.ConversationID]; dup {
			continue
		}
		conv, err := e.assembleConversation(ctx, summary)
		if err != nil {
			e.logger.Warn("conversation enrichment failed, skipping",
				"conversation_id", summary.ConversationID, "error", err)
			continue
		}
		seen[summary.ConversationID] = struct{}{}
		assembled = append(assembled, conv)
	}

	domainchat.SortByRecency(assembled)
	e.publish(assembled)
	e.refreshTotalUnread(ctx)
	return nil
}

func (e *Engine) assembleConversation(ctx context.Context, summary ConversationSummary) (domainchat.Conversation, error) {
	latest, err := e.transport.LatestMessage(ctx, summary.ConversationID)
	if err != nil {
		return domainchat.Conversation{}, err
	}
	unread, err := e.transport.UnreadCount(ctx, summary.ConversationID, e.userID)
	if err != nil {
		return domainchat.Conversation{}, err
	}
	selfProfile, err := e.transport.Profile(ctx, e.userID)
	if err != nil {
		return domainchat.Conversation{}, err
	}
	otherProfile, err := e.transport.Profile(ctx, summary.OtherUserID)
	if err != nil {
		return domainchat.Conversation{}, err
	}
	marker, err := e.transport.ReadMarker(ctx, summary.ConversationID, e.userID)
	if err != nil {
		return domainchat.Conversation{}, err
	}
	return domainchat.Conversation{
		ID:        summary.ConversationID,
		CreatedAt: summary.CreatedAt,
		UpdatedAt: summary.UpdatedAt,
		Self: domainchat.Participant{
			UserID:     e.userID,
			Profile:    selfProfile,
			LastReadAt: marker,
		},
		Other: domainchat.Participant{
			UserID:  summary.OtherUserID,
			Profile: otherProfile,
		},
		LastMessage: latest,
		UnreadCount: unread,
	}, nil
}

// publish swaps in the new list atomically; a partially built list is never
// observable. The active search filter is re-applied, not reset.
func (e *Engine) publish(list []domainchat.Conversation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conversations = list
	e.filtered = filterConversations(list, e.query)
	e.listLoading = false
	e.listError = ""
	e.initialSyncDone = true
}

// Retry re-invokes Resync after a short pause. It backs the presentation
// layer's retry affordance on the fetch-error state.
func (e *Engine) Retry(ctx context.Context) error {
	sleep := e.cfg.Retry.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	if err := sleep(ctx, e.cfg.RetryDelay); err != nil {
		return err
	}
	return e.Resync(ctx)
}
