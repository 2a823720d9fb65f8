package shell

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"graphlens/application/ports"
	"graphlens/application/viz"
	apperrors "graphlens/pkg/errors"
	"graphlens/pkg/observability"
)

// Manager owns the live sessions, one per connected notebook cell, and
// evicts the ones that go idle.
type Manager struct {
	executor ports.QueryExecutor
	prefs    ports.PreferenceStore
	opts     SessionOptions
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session

	// IdleTTL is how long a session may sit untouched before Sweep evicts
	// it. Zero disables eviction.
	IdleTTL time.Duration
}

// NewManager builds an empty session registry.
func NewManager(executor ports.QueryExecutor, prefs ports.PreferenceStore, opts SessionOptions, logger *zap.Logger, metrics *observability.Metrics) (*Manager, error) {
	if executor == nil {
		return nil, apperrors.NewStructural("session manager requires a query executor")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}

	return &Manager{
		executor: executor,
		prefs:    prefs,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}, nil
}

// Create builds a session over the given surface and registers it.
func (m *Manager) Create(surface viz.Surface) (*Session, error) {
	s, err := NewSession(surface, m.executor, m.prefs, m.opts, m.logger, m.metrics)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, apperrors.NewNotFound("session not found: " + id)
	}
	return s, nil
}

// Remove closes and unregisters the session. Unknown ids are a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts every session idle longer than IdleTTL and returns how many
// it closed.
func (m *Manager) Sweep(now time.Time) int {
	if m.IdleTTL <= 0 {
		return 0
	}

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.IdleTTL {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		m.logger.Info("evicted idle session", zap.String("sessionID", s.ID))
	}
	return len(expired)
}

// Run sweeps on the given interval until the context ends, then closes
// every remaining session.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// CloseAll tears down every live session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
