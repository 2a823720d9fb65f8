package store

import (
	"graphlens/domain/graph"
	"graphlens/pkg/colors"
)

// Derived-state queries. All of these are pure reads over the current
// config; none of them mutate or emit.

// Edge rendering constants. Non-highlighted edges recede toward white when
// something else holds focus or selection.
const (
	edgeColorDefault   = "#9aa0a6"
	edgeColorHighlight = "#3c4043"

	edgeWidthDefault     = 1.0
	edgeWidthFocused     = 2.0
	edgeWidthHighlighted = 3.0

	recededLightenAmount = 0.7
)

// EdgeDesign is the base render design of one edge under the current
// focus/selection state.
type EdgeDesign struct {
	Color       string
	Width       float64
	Highlighted bool
}

// NeighborsOfNode returns the distinct adjacent nodes, in edge order.
func (s *Store) NeighborsOfNode(n *graph.Node) []*graph.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.NeighborsOfNode(n)
}

// EdgesOfNode returns every edge touching the node.
func (s *Store) EdgesOfNode(n *graph.Node) []*graph.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.EdgesOfNode(n)
}

// ColorForNode resolves the node's display color under the active scheme.
func (s *Store) ColorForNode(n *graph.Node) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.ColorForNode(n)
}

// EdgeConnectedToFocusedNode reports whether the focused object is a node
// with this edge as one of its connections.
func (s *Store) EdgeConnectedToFocusedNode(e *graph.Edge) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return edgeConnectedTo(e, s.config.FocusedObject)
}

// EdgeConnectedToSelectedNode reports whether the selected object is a node
// with this edge as one of its connections.
func (s *Store) EdgeConnectedToSelectedNode(e *graph.Edge) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return edgeConnectedTo(e, s.config.SelectedObject)
}

func edgeConnectedTo(e *graph.Edge, obj graph.Object) bool {
	if e == nil || obj == nil {
		return false
	}
	n, ok := obj.(*graph.Node)
	if !ok {
		return false
	}
	return e.Touches(n.ID)
}

// EdgeDesign resolves the base render design for one edge: highlighted when
// it is, or connects to, the selected or focused element; receded when
// something else holds the highlight; plain otherwise.
func (s *Store) EdgeDesign(e *graph.Edge) EdgeDesign {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DesignEdge(s.config, e)
}

// DesignEdge is the lock-free form of EdgeDesign for callers already
// holding a consistent view of the config.
func DesignEdge(cfg *graph.Config, e *graph.Edge) EdgeDesign {
	if cfg.SelectedObject == e || edgeConnectedTo(e, cfg.SelectedObject) {
		return EdgeDesign{Color: edgeColorHighlight, Width: edgeWidthHighlighted, Highlighted: true}
	}

	if cfg.FocusedObject == e || edgeConnectedTo(e, cfg.FocusedObject) {
		return EdgeDesign{Color: edgeColorHighlight, Width: edgeWidthFocused, Highlighted: true}
	}

	if cfg.SelectedObject != nil || cfg.FocusedObject != nil {
		return EdgeDesign{
			Color: colors.Lighten(edgeColorDefault, recededLightenAmount),
			Width: edgeWidthDefault,
		}
	}

	return EdgeDesign{Color: edgeColorDefault, Width: edgeWidthDefault}
}
