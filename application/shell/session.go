// Package shell assembles one visualization session per notebook cell and
// manages the set of live sessions. A session owns its store, visualization
// and views; the color ledger lives at session scope so colors stay stable
// across every query the cell runs.
package shell

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"graphlens/application/ports"
	"graphlens/application/store"
	"graphlens/application/views"
	"graphlens/application/viz"
	"graphlens/domain/graph"
	apperrors "graphlens/pkg/errors"
	"graphlens/pkg/observability"
)

// SessionOptions tunes one session's collaborator behavior.
type SessionOptions struct {
	// QueryTimeout bounds one backend query round-trip.
	QueryTimeout time.Duration
	// ExpansionRate and ExpansionBurst throttle node expansion requests so
	// rapid double-clicks cannot flood the backend.
	ExpansionRate  rate.Limit
	ExpansionBurst int
	Viz            viz.Options
}

// DefaultSessionOptions returns the stock session tuning.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		QueryTimeout:   60 * time.Second,
		ExpansionRate:  rate.Limit(2),
		ExpansionBurst: 4,
		Viz:            viz.DefaultOptions(),
	}
}

// Session is one notebook cell's visualization instance: a store, a
// visualization bound to a rendering surface, and the secondary views.
type Session struct {
	ID string

	store   *store.Store
	viz     *viz.Visualization
	sidebar *views.Sidebar
	menu    *views.Menu
	table   *views.Table

	ledger   *graph.ColorLedger
	surface  viz.Surface
	executor ports.QueryExecutor
	limiter  *rate.Limiter
	opts     SessionOptions
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu         sync.Mutex
	lastActive time.Time
	closed     bool

	CreatedAt time.Time
}

// NewSession builds a fully wired session over an empty graph. The first
// RunQuery populates it.
func NewSession(surface viz.Surface, executor ports.QueryExecutor, prefs ports.PreferenceStore, opts SessionOptions, logger *zap.Logger, metrics *observability.Metrics) (*Session, error) {
	if surface == nil {
		return nil, apperrors.NewStructural("session requires a rendering surface")
	}
	if executor == nil {
		return nil, apperrors.NewStructural("session requires a query executor")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("sessionID", id))

	ledger := graph.NewColorLedger(nil, logger)
	cfg, err := graph.NewConfig(graph.Payload{Nodes: []any{}, Edges: []any{}}, ledger, logger)
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	v, err := viz.New(st, surface, executor, opts.Viz, logger, metrics)
	if err != nil {
		return nil, err
	}

	sidebar, err := views.NewSidebar(st, logger)
	if err != nil {
		return nil, err
	}
	menu, err := views.NewMenu(st, prefs, logger)
	if err != nil {
		return nil, err
	}
	table, err := views.NewTable(st, logger)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Session{
		ID:         id,
		store:      st,
		viz:        v,
		sidebar:    sidebar,
		menu:       menu,
		table:      table,
		ledger:     ledger,
		surface:    surface,
		executor:   executor,
		limiter:    rate.NewLimiter(opts.ExpansionRate, opts.ExpansionBurst),
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
		lastActive: now,
		CreatedAt:  now,
	}

	metrics.ActiveSessions.Inc()
	logger.Info("session created")
	return s, nil
}

// Store exposes the session's state container.
func (s *Session) Store() *store.Store { return s.store }

// Viz exposes the session's visualization for interaction routing.
func (s *Session) Viz() *viz.Visualization { return s.viz }

// Sidebar exposes the detail view.
func (s *Session) Sidebar() *views.Sidebar { return s.sidebar }

// Menu exposes the control menu.
func (s *Session) Menu() *views.Menu { return s.menu }

// Table exposes the tabular results view.
func (s *Session) Table() *views.Table { return s.table }

// Touch records activity for idle eviction.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive returns the most recent activity time.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// RunQuery executes a query and replaces the session's graph with the
// result. The color ledger persists across replacements, so labels keep
// their colors from one query to the next. Failures reach both the caller
// and the surface's error region.
func (s *Session) RunQuery(ctx context.Context, query string, params map[string]string) error {
	if query == "" {
		return apperrors.NewValidation("query must not be empty")
	}
	s.Touch()

	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	defer s.metrics.ObserveQuery(time.Now())

	resp, err := s.executor.ExecuteQuery(ctx, query, params)
	if err != nil {
		s.logger.Error("query execution failed", zap.Error(err))
		s.surface.ShowError("query failed: " + err.Error())
		return apperrors.Wrap(err, "executing query")
	}
	if resp == nil {
		s.surface.ShowError("query returned no response")
		return apperrors.NewExternal("query returned no response", nil)
	}

	cfg, err := graph.NewConfig(graph.Payload{
		Nodes:  orEmptySequence(resp.Nodes),
		Edges:  orEmptySequence(resp.Edges),
		Rows:   resp.Rows,
		Schema: resp.Schema,
	}, s.ledger, s.logger)
	if err != nil {
		s.logger.Error("query response was malformed", zap.Error(err))
		s.surface.ShowError("query returned malformed graph data")
		return err
	}

	if err := s.store.Replace(cfg); err != nil {
		return err
	}

	if props := parseNodeProperties(resp.NodeProperties); len(props) > 0 {
		s.store.MergeNodeProperties(props)
	}

	s.logger.Info("query results loaded", zap.String("graph", cfg.Describe()))
	return nil
}

// parseNodeProperties converts the backend's string-keyed node property
// overlay to node ids, dropping entries whose key does not parse.
func parseNodeProperties(raw map[string]map[string]any) map[int64]map[string]any {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[int64]map[string]any, len(raw))
	for key, props := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out[id] = props
	}
	return out
}

// RequestExpansion routes a node expansion through the session's rate
// limiter before handing it to the visualization.
func (s *Session) RequestExpansion(nodeID int64, direction, edgeLabel string, properties map[string]any) error {
	s.Touch()

	if !s.limiter.Allow() {
		s.metrics.ExpansionRequests.WithLabelValues("throttled").Inc()
		s.surface.ShowError("expansion rate limit exceeded, slow down")
		return apperrors.NewValidation("expansion rate limit exceeded")
	}

	s.viz.HandleExpandRequest(nodeID, direction, edgeLabel, properties)
	return nil
}

// Close tears the session down. Closing twice is harmless.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.viz.Close()
	s.sidebar.Close()
	s.menu.Close()
	s.table.Close()

	s.metrics.ActiveSessions.Dec()
	s.logger.Info("session closed")
}

// orEmptySequence keeps absent graph fields parseable: the model boundary
// rejects non-sequence payloads, and a missing field is not malformed data.
func orEmptySequence(v any) any {
	if v == nil {
		return []any{}
	}
	return v
}
