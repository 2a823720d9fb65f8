// Package viz binds the graph store to a force-directed rendering surface.
// It owns the selection/focus/highlight state machine and translates store
// state changes into self-contained render frames.
package viz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"graphlens/application/ports"
	"graphlens/application/store"
	"graphlens/domain/graph"
	"graphlens/pkg/colors"
	apperrors "graphlens/pkg/errors"
	"graphlens/pkg/observability"
)

// Options tunes render behavior.
type Options struct {
	// NodeRecedeAmount is how far non-highlighted nodes fade toward white
	// while something else holds focus or selection.
	NodeRecedeAmount float64
	// BadgeTTL is how long transient expansion indicators stay visible.
	BadgeTTL time.Duration
	// ExpansionTimeout bounds one collaborator round-trip.
	ExpansionTimeout time.Duration
	Simulation       SimulationParams
}

// DefaultOptions returns the stock render options.
func DefaultOptions() Options {
	return Options{
		NodeRecedeAmount: 0.6,
		BadgeTTL:         3 * time.Second,
		ExpansionTimeout: 30 * time.Second,
		Simulation:       DefaultSimulationParams(),
	}
}

// Visualization is the interaction and rendering state machine. All
// mutation flows through the store; the visualization reacts to store
// events and pushes frames to the surface.
type Visualization struct {
	store    *store.Store
	surface  Surface
	executor ports.QueryExecutor
	opts     Options
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu sync.Mutex

	// Selection and focus derived state. Node and edge selection are
	// mutually exclusive; so are node and edge focus. The derived sets are
	// recomputed on every transition.
	selectedNode          *graph.Node
	selectedEdge          *graph.Edge
	selectedNodeNeighbors []*graph.Node
	selectedNodeEdges     []*graph.Edge
	focusedNode           *graph.Node
	focusedEdge           *graph.Edge
	focusedNodeNeighbors  []*graph.Node
	focusedNodeEdges      []*graph.Edge

	positions  map[int64]Point
	zoom       float64
	expanding  map[int64]bool
	badges     map[int64]string
	anchors    []tooltipAnchor
	curvatures map[*graph.Edge]float64

	// centerOn is consumed by the next frame after a node selection.
	centerOn *int64

	subs []*store.Subscription
}

// New wires a visualization to its store and surface. Missing collaborators
// are integration bugs and fail fast.
func New(st *store.Store, surface Surface, executor ports.QueryExecutor, opts Options, logger *zap.Logger, metrics *observability.Metrics) (*Visualization, error) {
	if st == nil {
		return nil, apperrors.NewStructural("visualization requires a store")
	}
	if surface == nil {
		return nil, apperrors.NewStructural("visualization requires a rendering surface")
	}
	if executor == nil {
		return nil, apperrors.NewStructural("visualization requires a query executor")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}

	v := &Visualization{
		store:     st,
		surface:   surface,
		executor:  executor,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		positions: make(map[int64]Point),
		zoom:      1,
		expanding: make(map[int64]bool),
		badges:    make(map[int64]string),
	}

	v.subs = append(v.subs,
		st.Subscribe(store.EventConfigChange, v.onConfigChange),
		st.Subscribe(store.EventFocusObject, v.onFocusObject),
		st.Subscribe(store.EventSelectObject, v.onSelectObject),
		st.Subscribe(store.EventViewModeChange, v.onViewModeChange),
		st.Subscribe(store.EventNodeExpansionRequest, v.onExpansionRequest),
	)

	v.mu.Lock()
	v.curvatures = ComputeCurvatures(allEdges(st.Config()))
	v.mu.Unlock()

	return v, nil
}

// Close cancels the store subscriptions.
func (v *Visualization) Close() {
	for _, sub := range v.subs {
		sub.Cancel()
	}
}

func allEdges(cfg *graph.Config) []*graph.Edge {
	out := make([]*graph.Edge, 0, len(cfg.Edges)+len(cfg.SchemaEdges))
	out = append(out, cfg.Edges...)
	out = append(out, cfg.SchemaEdges...)
	return out
}

// --- store event reactions ---

func (v *Visualization) onConfigChange(e store.Event) {
	// Selection and focus are read under the store lock so a selection
	// landing between the emit and this handler is not lost.
	var selected, focused graph.Object
	v.store.View(func(cfg *graph.Config) {
		selected = cfg.SelectedObject
		focused = cfg.FocusedObject
	})

	v.mu.Lock()

	v.curvatures = ComputeCurvatures(allEdges(e.Config))

	// A wholesale replacement resets selection and focus with the config;
	// an incremental merge keeps both, but the derived sets must absorb
	// the new elements.
	v.applySelectionLocked(selected)
	v.applyFocusLocked(focused)
	v.rebuildTooltipsLocked(e.Config)

	if e.Delta == nil {
		v.positions = make(map[int64]Point)
		v.expanding = make(map[int64]bool)
		v.badges = make(map[int64]string)
	}

	v.mu.Unlock()
	v.render()
}

func (v *Visualization) onFocusObject(e store.Event) {
	v.mu.Lock()
	v.applyFocusLocked(e.Current)
	v.rebuildTooltipsLocked(v.store.Config())
	v.mu.Unlock()
	v.render()
}

func (v *Visualization) onSelectObject(e store.Event) {
	v.mu.Lock()
	v.applySelectionLocked(e.Current)

	// Center and zoom only on a selected node, never on a selected edge.
	if n, ok := e.Current.(*graph.Node); ok {
		id := n.ID
		v.centerOn = &id
	}

	v.rebuildTooltipsLocked(v.store.Config())
	v.mu.Unlock()
	v.render()
}

func (v *Visualization) onViewModeChange(store.Event) {
	v.render()
}

// applySelectionLocked clears all selection derived state, then populates
// the slice matching the new object's kind.
func (v *Visualization) applySelectionLocked(obj graph.Object) {
	v.selectedNode = nil
	v.selectedEdge = nil
	v.selectedNodeNeighbors = nil
	v.selectedNodeEdges = nil

	switch el := obj.(type) {
	case *graph.Node:
		v.selectedNode = el
		v.selectedNodeNeighbors = v.store.NeighborsOfNode(el)
		v.selectedNodeEdges = v.store.EdgesOfNode(el)
	case *graph.Edge:
		v.selectedEdge = el
	}
}

func (v *Visualization) applyFocusLocked(obj graph.Object) {
	v.focusedNode = nil
	v.focusedEdge = nil
	v.focusedNodeNeighbors = nil
	v.focusedNodeEdges = nil

	switch el := obj.(type) {
	case *graph.Node:
		v.focusedNode = el
		v.focusedNodeNeighbors = v.store.NeighborsOfNode(el)
		v.focusedNodeEdges = v.store.EdgesOfNode(el)
	case *graph.Edge:
		v.focusedEdge = el
	}
}

func (v *Visualization) rebuildTooltipsLocked(cfg *graph.Config) {
	v.anchors = buildTooltipAnchors(cfg, v.highlightLocked())
}

func (v *Visualization) highlightLocked() highlightState {
	return highlightState{
		selectedNode: v.selectedNode,
		selectedEdge: v.selectedEdge,
		focusedNode:  v.focusedNode,
		focusedEdge:  v.focusedEdge,
	}
}

// --- interaction entry points (driven by the surface transport) ---

// HandleNodeHover focuses a node. While an edge holds focus, racing node
// hovers are suppressed until the edge focus is explicitly cleared.
func (v *Visualization) HandleNodeHover(id int64) {
	v.mu.Lock()
	suppressed := v.focusedEdge != nil
	v.mu.Unlock()

	if suppressed {
		return
	}

	if n := v.lookupNode(id); n != nil {
		v.store.SetFocusedObject(n)
	}
}

// HandleEdgeHover focuses an edge by render key.
func (v *Visualization) HandleEdgeHover(key string) {
	if e := v.lookupEdge(key); e != nil {
		v.store.SetFocusedObject(e)
	}
}

// HandleHoverEnd clears focus, edge focus included.
func (v *Visualization) HandleHoverEnd() {
	v.store.SetFocusedObject(nil)
}

// HandleNodeClick selects a node.
func (v *Visualization) HandleNodeClick(id int64) {
	if n := v.lookupNode(id); n != nil {
		v.store.SetSelectedObject(n)
	}
}

// HandleEdgeClick selects an edge.
func (v *Visualization) HandleEdgeClick(key string) {
	if e := v.lookupEdge(key); e != nil {
		v.store.SetSelectedObject(e)
	}
}

// HandleBackgroundClick clears the selection.
func (v *Visualization) HandleBackgroundClick() {
	v.store.SetSelectedObject(nil)
}

// HandleEscape clears the selection.
func (v *Visualization) HandleEscape() {
	v.store.SetSelectedObject(nil)
}

// HandleZoom records the surface scale and re-evaluates label visibility.
func (v *Visualization) HandleZoom(scale float64) {
	v.mu.Lock()
	v.zoom = scale
	v.mu.Unlock()
	v.render()
}

// UpdatePositions ingests the layout engine's projected coordinates for
// this animation tick and repositions tooltips.
func (v *Visualization) UpdatePositions(positions map[int64]Point) {
	v.mu.Lock()
	for id, p := range positions {
		v.positions[id] = p
	}
	v.mu.Unlock()
	v.render()
}

// HandleExpandRequest resolves the node and routes the request through the
// store so every subscriber sees it.
func (v *Visualization) HandleExpandRequest(nodeID int64, direction, edgeLabel string, properties map[string]any) {
	n := v.lookupNode(nodeID)
	if n == nil {
		v.logger.Warn("expansion requested for unknown node", zap.Int64("nodeID", nodeID))
		return
	}

	v.store.RequestExpansion(store.ExpansionRequest{
		Node:       n,
		Direction:  direction,
		EdgeLabel:  edgeLabel,
		Properties: properties,
	})
}

func (v *Visualization) lookupNode(id int64) *graph.Node {
	var found *graph.Node
	v.store.View(func(cfg *graph.Config) {
		nodes := cfg.Nodes
		if cfg.ViewMode == graph.ViewModeSchema {
			nodes = cfg.SchemaNodes
		}
		for _, n := range nodes {
			if n.ID == id {
				found = n
				return
			}
		}
	})
	return found
}

func (v *Visualization) lookupEdge(key string) *graph.Edge {
	var found *graph.Edge
	v.store.View(func(cfg *graph.Config) {
		edges := cfg.Edges
		if cfg.ViewMode == graph.ViewModeSchema {
			edges = cfg.SchemaEdges
		}
		for _, e := range edges {
			if e.Key() == key {
				found = e
				return
			}
		}
	})
	return found
}

// --- node expansion ---

func (v *Visualization) onExpansionRequest(e store.Event) {
	req := e.Expansion
	if req == nil || req.Node == nil {
		return
	}

	v.mu.Lock()
	v.expanding[req.Node.ID] = true
	v.mu.Unlock()
	v.render()

	go v.expand(*req)
}

func (v *Visualization) expand(req store.ExpansionRequest) {
	nodeID := req.Node.ID

	// The loading indicator is cleared on every path: success, failure,
	// or a no-op response.
	defer func() {
		v.mu.Lock()
		delete(v.expanding, nodeID)
		v.mu.Unlock()
		v.render()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), v.opts.ExpansionTimeout)
	defer cancel()

	resp, err := v.executor.ExpandNode(ctx, ports.ExpansionQuery{
		NodeID:     nodeID,
		Direction:  req.Direction,
		EdgeLabel:  req.EdgeLabel,
		Properties: req.Properties,
	})
	if err != nil {
		v.logger.Error("node expansion failed",
			zap.Int64("nodeID", nodeID),
			zap.Error(err),
		)
		v.metrics.ExpansionRequests.WithLabelValues("failure").Inc()
		v.setBadge(nodeID, "expansion failed")
		return
	}
	if resp == nil {
		v.metrics.ExpansionRequests.WithLabelValues("noop").Inc()
		v.setBadge(nodeID, "no new connections")
		return
	}

	// Responses may omit either field entirely; absent is empty, while a
	// present non-sequence value is still a malformed response.
	var nodes []*graph.Node
	var edges []*graph.Edge
	if resp.Nodes != nil {
		nodes, err = graph.ParseNodes(resp.Nodes, v.logger)
		if err != nil {
			v.metrics.ExpansionRequests.WithLabelValues("failure").Inc()
			v.setBadge(nodeID, "expansion failed")
			return
		}
	}
	if resp.Edges != nil {
		edges, err = graph.ParseEdges(resp.Edges, v.logger)
		if err != nil {
			v.metrics.ExpansionRequests.WithLabelValues("failure").Inc()
			v.setBadge(nodeID, "expansion failed")
			return
		}
	}

	delta := v.store.AppendGraphData(nodes, edges)
	if delta == nil {
		v.metrics.ExpansionRequests.WithLabelValues("noop").Inc()
		v.setBadge(nodeID, "no new connections")
		return
	}

	v.metrics.ExpansionRequests.WithLabelValues("success").Inc()
	v.setBadge(nodeID, fmt.Sprintf("+%d nodes, +%d edges", len(delta.NewNodes), len(delta.NewEdges)))
}

// setBadge shows a transient per-node indicator and schedules its removal.
func (v *Visualization) setBadge(nodeID int64, text string) {
	v.mu.Lock()
	v.badges[nodeID] = text
	v.mu.Unlock()

	time.AfterFunc(v.opts.BadgeTTL, func() {
		v.mu.Lock()
		if v.badges[nodeID] == text {
			delete(v.badges, nodeID)
		}
		v.mu.Unlock()
		v.render()
	})
}

// --- frame building ---

// render assembles a full frame from the current store state and pushes it
// to the surface. Frames are defensive: elements without projected
// coordinates skip tooltip drawing rather than fail.
func (v *Visualization) render() {
	var frame Frame

	// Lock order is always visualization state first, then the store's
	// read lock; event handlers follow the same order. The frame is pushed
	// after both locks are released.
	v.mu.Lock()

	v.store.View(func(cfg *graph.Config) {
		h := v.highlightLocked()

		nodes := cfg.Nodes
		edges := cfg.Edges
		if cfg.ViewMode == graph.ViewModeSchema {
			nodes = cfg.SchemaNodes
			edges = cfg.SchemaEdges
		}

		frame = Frame{
			ViewMode:   cfg.ViewMode,
			LayoutMode: cfg.LayoutMode,
			Nodes:      make([]NodeRender, 0, len(nodes)),
			Edges:      make([]EdgeRender, 0, len(edges)),
			Simulation: v.opts.Simulation,
			CenterOn:   v.centerOn,
		}
		v.centerOn = nil

		for _, n := range nodes {
			nr := NodeRender{
				ID:      n.ID,
				Label:   n.Label,
				Display: n.DisplayName(),
				Color:   cfg.ColorForNode(n),
				Value:   n.Value,
				Loading: v.expanding[n.ID],
				Badge:   v.badges[n.ID],
			}

			highlighted := v.nodeHighlightedLocked(n, h)
			nr.LabelVisible = highlighted || h.empty()
			if !h.empty() && !highlighted {
				nr.Color = colors.Lighten(nr.Color, v.opts.NodeRecedeAmount)
			}

			frame.Nodes = append(frame.Nodes, nr)
		}

		for _, e := range edges {
			design := store.DesignEdge(cfg, e)
			er := EdgeRender{
				Key:       e.Key(),
				Source:    e.Source,
				Target:    e.Target,
				Label:     e.Label,
				Color:     design.Color,
				Width:     design.Width,
				Curvature: v.curvatures[e],
				Distance:  edgeLinkDistance(cfg, e),
			}

			if edgeLabelVisible(e, h, v.zoom) {
				er.RenderedLabel = e.Label
				if length := edgeLength(e, v.positions); length > 0 {
					er.RenderedLabel = truncateLabel(e.Label, length)
				}
			}

			frame.Edges = append(frame.Edges, er)
		}

		frame.Tooltips = positionTooltips(v.anchors, v.positions)
	})

	v.mu.Unlock()

	v.metrics.FramesRendered.Inc()
	v.surface.PushFrame(frame)
}

// nodeHighlightedLocked reports whether a node keeps its full color under
// the current highlight state.
func (v *Visualization) nodeHighlightedLocked(n *graph.Node, h highlightState) bool {
	if n == v.selectedNode || n == v.focusedNode {
		return true
	}

	for _, neighbor := range v.selectedNodeNeighbors {
		if neighbor == n {
			return true
		}
	}
	for _, neighbor := range v.focusedNodeNeighbors {
		if neighbor == n {
			return true
		}
	}

	if h.selectedEdge != nil && h.selectedEdge.Touches(n.ID) {
		return true
	}
	if h.focusedEdge != nil && h.focusedEdge.Touches(n.ID) {
		return true
	}

	return false
}

// Snapshot exposes the derived selection/focus state for views and tests.
type Snapshot struct {
	SelectedNode          *graph.Node
	SelectedEdge          *graph.Edge
	SelectedNodeNeighbors []*graph.Node
	SelectedNodeEdges     []*graph.Edge
	FocusedNode           *graph.Node
	FocusedEdge           *graph.Edge
	Expanding             map[int64]bool
	Badges                map[int64]string
}

// State returns a copy of the derived interaction state.
func (v *Visualization) State() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := Snapshot{
		SelectedNode:          v.selectedNode,
		SelectedEdge:          v.selectedEdge,
		SelectedNodeNeighbors: append([]*graph.Node(nil), v.selectedNodeNeighbors...),
		SelectedNodeEdges:     append([]*graph.Edge(nil), v.selectedNodeEdges...),
		FocusedNode:           v.focusedNode,
		FocusedEdge:           v.focusedEdge,
		Expanding:             make(map[int64]bool, len(v.expanding)),
		Badges:                make(map[int64]string, len(v.badges)),
	}
	for id, b := range v.expanding {
		snap.Expanding[id] = b
	}
	for id, b := range v.badges {
		snap.Badges[id] = b
	}
	return snap
}
