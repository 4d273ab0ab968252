package chatsync

import (
	"context"
	"log/slog"
	"sync"
)

// Manager owns one engine per authenticated user. Engines are created lazily
// on first use, live for the session, and are all torn down on shutdown.
type Manager struct {
	transport Transport
	logger    *slog.Logger
	cfg       Config

	mu      sync.Mutex
	engines map[string]*managedEngine
	closed  bool
}

// managedEngine gates startup so concurrent first callers all block until the
// subscription is live and the initial sync has run.
type managedEngine struct {
	eng  *Engine
	init sync.Once
}

func NewManager(transport Transport, logger *slog.Logger, cfg Config) *Manager {
	return &Manager{
		transport: transport,
		logger:    logger,
		cfg:       cfg,
		engines:   make(map[string]*managedEngine),
	}
}

// Engine returns the user's engine, starting a fresh one on first call. The
// initial resync runs synchronously before any caller gets the engine, so the
// first snapshot is already populated.
func (m *Manager) Engine(ctx context.Context, userID string) *Engine {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	entry, ok := m.engines[userID]
	if !ok {
		entry = &managedEngine{eng: NewEngine(userID, m.transport, m.logger, m.cfg)}
		m.engines[userID] = entry
	}
	m.mu.Unlock()

	entry.init.Do(func() {
		entry.eng.Start(context.WithoutCancel(ctx))
		if err := entry.eng.Resync(ctx); err != nil {
			m.logger.Warn("initial resync failed", "user_id", userID, "error", err)
		}
	})
	return entry.eng
}

// Release closes and forgets a single user's engine (session teardown).
func (m *Manager) Release(userID string) {
	m.mu.Lock()
	entry, ok := m.engines[userID]
	if ok {
		delete(m.engines, userID)
	}
	m.mu.Unlock()
	if ok {
		entry.eng.Close()
	}
}

// Close tears down every engine. The manager refuses new engines afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	engines := make([]*Engine, 0, len(m.engines))
	for _, entry := range m.engines {
		engines = append(engines, entry.eng)
	}
	m.engines = make(map[string]*managedEngine)
	m.mu.Unlock()
	for _, eng := range engines {
		eng.Close()
	}
}
