// Package store holds the single mutable graph state and the event hub the
// views subscribe to. Views never touch the config directly; every mutation
// goes through a store method and is announced through an event.
package store

import (
	"sync"

	"go.uber.org/zap"

	"graphlens/domain/graph"
	apperrors "graphlens/pkg/errors"
	"graphlens/pkg/observability"
)

// Store wraps exactly one active graph.Config. It is replaced wholesale on
// new query results and merged into on node expansion; color continuity
// across replacements lives in the ledger, not here.
type Store struct {
	mu     sync.RWMutex
	config *graph.Config

	subsMu sync.Mutex
	subs   map[EventType][]*subscriber
	nextID uint64

	logger  *zap.Logger
	metrics *observability.Metrics
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Subscription is the opaque handle returned by Subscribe. Cancel is the
// only removal path; there is no handler-identity comparison.
type Subscription struct {
	store     *Store
	eventType EventType
	id        uint64
}

// New creates a store over an initial config.
func New(cfg *graph.Config, logger *zap.Logger, metrics *observability.Metrics) (*Store, error) {
	if cfg == nil {
		return nil, apperrors.NewStructural("store requires an initial config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}

	return &Store{
		config:  cfg,
		subs:    make(map[EventType][]*subscriber),
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Subscribe registers a handler for one event type and returns its handle.
// Registering the same function twice yields two independent subscriptions.
func (s *Store) Subscribe(eventType EventType, handler Handler) *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	s.nextID++
	sub := &subscriber{id: s.nextID, handler: handler}
	s.subs[eventType] = append(s.subs[eventType], sub)

	return &Subscription{store: s, eventType: eventType, id: sub.id}
}

// Cancel removes the subscription. Canceling twice is harmless.
func (sub *Subscription) Cancel() {
	if sub == nil || sub.store == nil {
		return
	}

	s := sub.store
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	list := s.subs[sub.eventType]
	for i, candidate := range list {
		if candidate.id == sub.id {
			s.subs[sub.eventType] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// emit dispatches synchronously in registration order. The subscriber list
// is copied first so handlers may subscribe or cancel reentrantly.
func (s *Store) emit(event Event) {
	s.subsMu.Lock()
	list := make([]*subscriber, len(s.subs[event.Type]))
	copy(list, s.subs[event.Type])
	s.subsMu.Unlock()

	s.metrics.EventsDispatched.WithLabelValues(string(event.Type)).Inc()

	for _, sub := range list {
		sub.handler(event)
	}
}

// Config returns the current config. Callers must not mutate it.
func (s *Store) Config() *graph.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// View runs fn over the current config under the read lock, giving frame
// builders a consistent snapshot while expansions merge concurrently.
// fn must not call locking store methods.
func (s *Store) View(fn func(cfg *graph.Config)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.config)
}

// SetFocusedObject sets the hover-driven highlight state and emits
// FOCUS_OBJECT with the previous and new object. Setting the same object
// twice still emits; consumers handle idempotency.
func (s *Store) SetFocusedObject(obj graph.Object) {
	s.mu.Lock()
	if obj != nil && !s.config.Contains(obj) {
		s.mu.Unlock()
		s.logger.Warn("ignoring focus on object not in current config")
		return
	}
	prev := s.config.FocusedObject
	s.config.FocusedObject = obj
	s.mu.Unlock()

	s.emit(Event{Type: EventFocusObject, Previous: prev, Current: obj})
}

// SetSelectedObject sets the click-driven highlight state and emits
// SELECT_OBJECT with the previous and new object.
func (s *Store) SetSelectedObject(obj graph.Object) {
	s.mu.Lock()
	if obj != nil && !s.config.Contains(obj) {
		s.mu.Unlock()
		s.logger.Warn("ignoring selection of object not in current config")
		return
	}
	prev := s.config.SelectedObject
	s.config.SelectedObject = obj
	s.mu.Unlock()

	s.emit(Event{Type: EventSelectObject, Previous: prev, Current: obj})
}

// SetViewMode switches the active view and emits VIEW_MODE_CHANGE.
func (s *Store) SetViewMode(mode graph.ViewMode) {
	s.mu.Lock()
	s.config.ViewMode = mode
	s.mu.Unlock()

	s.emit(Event{Type: EventViewModeChange, ViewMode: mode})
}

// SetLayoutMode switches the layout algorithm and announces it as a config
// change so the rendering surface rebuilds its simulation.
func (s *Store) SetLayoutMode(mode graph.LayoutMode) {
	s.mu.Lock()
	s.config.LayoutMode = mode
	cfg := s.config
	s.mu.Unlock()

	s.emit(Event{Type: EventConfigChange, Config: cfg})
}

// SetColorScheme switches node coloring and announces a config change.
func (s *Store) SetColorScheme(scheme graph.ColorScheme) {
	s.mu.Lock()
	s.config.ColorScheme = scheme
	cfg := s.config
	s.mu.Unlock()

	s.emit(Event{Type: EventConfigChange, Config: cfg})
}

// Replace swaps in a wholly new config (new query results) and emits
// CONFIG_CHANGE with a nil delta. Focus and selection reset with the config.
func (s *Store) Replace(cfg *graph.Config) error {
	if cfg == nil {
		return apperrors.NewStructural("cannot replace store config with nil")
	}

	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()

	s.emit(Event{Type: EventConfigChange, Config: cfg})
	return nil
}

// AppendGraphData merges new elements into the existing config by
// identifier, preserving layout state on already-rendered nodes. It returns
// nil when nothing new was added (no event fires), otherwise the delta, and
// emits CONFIG_CHANGE carrying it.
func (s *Store) AppendGraphData(nodes []*graph.Node, edges []*graph.Edge) *Delta {
	s.mu.Lock()
	addedNodes, addedEdges := s.config.Merge(nodes, edges)
	cfg := s.config
	s.mu.Unlock()

	if len(addedNodes) == 0 && len(addedEdges) == 0 {
		return nil
	}

	delta := &Delta{NewNodes: addedNodes, NewEdges: addedEdges}
	s.logger.Debug("appended graph data",
		zap.Int("newNodes", len(addedNodes)),
		zap.Int("newEdges", len(addedEdges)),
	)

	s.emit(Event{Type: EventConfigChange, Config: cfg, Delta: delta})
	return delta
}

// MergeNodeProperties overlays lazily-resolved display properties onto the
// matching nodes and returns how many were updated. Unknown ids are skipped.
// A CONFIG_CHANGE with an empty delta fires when anything changed, so
// consumers refresh labels without treating it as a graph replacement.
func (s *Store) MergeNodeProperties(props map[int64]map[string]any) int {
	if len(props) == 0 {
		return 0
	}

	s.mu.Lock()
	updated := 0
	for id, p := range props {
		if n, ok := s.config.NodeByID(id); ok {
			n.ApplyProperties(p)
			updated++
		}
	}
	cfg := s.config
	s.mu.Unlock()

	if updated == 0 {
		return 0
	}

	s.logger.Debug("merged node properties", zap.Int("nodes", updated))
	s.emit(Event{Type: EventConfigChange, Config: cfg, Delta: &Delta{}})
	return updated
}

// RequestExpansion announces that a node wants its neighborhood fetched.
// The visualization owns the actual collaborator round-trip.
func (s *Store) RequestExpansion(req ExpansionRequest) {
	s.emit(Event{Type: EventNodeExpansionRequest, Expansion: &req})
}
