package chatsync

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	domainchat "devlink/internal/domain/chat"
)

// PaneState tracks the message pane of the open conversation.
type PaneState string

const (
	PaneEmpty   PaneState = "empty"
	PaneLoading PaneState = "loading"
	PaneLoaded  PaneState = "loaded"
	PaneErrored PaneState = "errored"
)

// Config tunes one engine instance.
type Config struct {
	Retry      RetryPolicy
	RetryDelay time.Duration // pause before a manual Retry re-invokes Resync
	EventBuf   int
}

// Engine maintains a continuously reconciled view of one user's conversations
// and messages. All mutable state is owned here and handed out only as deep
// copies; the presentation layer never aliases it.
type Engine struct {
	userID    string
	transport Transport
	logger    *slog.Logger
	cfg       Config

	inFlight atomic.Bool

	mu              sync.RWMutex
	conversations   []domainchat.Conversation
	filtered        []domainchat.Conversation
	query           string
	currentID       string
	messages        []domainchat.Message
	paneState       PaneState
	paneError       string
	listLoading     bool
	listError       string
	initialSyncDone bool
	totalUnread     int

	events      chan MessageEvent
	done        chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
	loopDone    chan struct{}
}

// NewEngine builds an engine for the given session user. The identity is
// injected explicitly; nothing here reads it from ambient context.
func NewEngine(userID string, transport Transport, logger *slog.Logger, cfg Config) *Engine {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.EventBuf <= 0 {
		cfg.EventBuf = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		userID:    userID,
		transport: transport,
		logger:    logger.With("user_id", userID),
		cfg:       cfg,
		paneState: PaneEmpty,
		events:    make(chan MessageEvent, cfg.EventBuf),
		done:      make(chan struct{}),
		loopDone:  make(chan struct{}),
	}
}

// UserID returns the session identity this engine serves.
func (e *Engine) UserID() string { return e.userID }

// Start subscribes to the live message feed and launches the event loop. It
// must be called once before events are expected.
func (e *Engine) Start(ctx context.Context) {
	e.unsubscribe = e.transport.SubscribeNewMessages(func(ev MessageEvent) {
		select {
		case e.events <- ev:
		case <-e.done:
		}
	})
	go e.run(ctx)
}

// Close unsubscribes from the live feed and stops the event loop. Safe to
// call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		if e.unsubscribe != nil {
			e.unsubscribe()
		}
		close(e.done)
	})
}

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	Conversations   []domainchat.Conversation
	Filtered        []domainchat.Conversation
	Query           string
	CurrentID       string
	Messages        []domainchat.Message
	PaneState       PaneState
	PaneError       string
	ListLoading     bool
	ListError       string
	InitialSyncDone bool
	TotalUnread     int
}

// Snapshot deep-copies the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Conversations:   copyConversations(e.conversations),
		Filtered:        copyConversations(e.filtered),
		Query:           e.query,
		CurrentID:       e.currentID,
		Messages:        append([]domainchat.Message(nil), e.messages...),
		PaneState:       e.paneState,
		PaneError:       e.paneError,
		ListLoading:     e.listLoading,
		ListError:       e.listError,
		InitialSyncDone: e.initialSyncDone,
		TotalUnread:     e.totalUnread,
	}
}

// CurrentConversationID returns the open conversation id, empty when none is
// selected.
func (e *Engine) CurrentConversationID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentID
}

// TotalUnread returns the platform-wide unread badge count.
func (e *Engine) TotalUnread() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totalUnread
}

func copyConversations(src []domainchat.Conversation) []domainchat.Conversation {
	if src == nil {
		return nil
	}
	out := make([]domainchat.Conversation, len(src))
	for i, c := range src {
		if c.LastMessage != nil {
			lm := *c.LastMessage
			c.LastMessage = &lm
		}
		out[i] = c
	}
	return out
}
