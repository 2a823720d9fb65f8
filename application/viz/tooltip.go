package viz

import (
	"fmt"
	"sort"

	"graphlens/domain/graph"
)

// maxTooltipProperties caps the property lines in one tooltip.
const maxTooltipProperties = 5

// tooltipAnchor is a tooltip before per-frame positioning: it knows which
// element it belongs to but not where that element currently is.
type tooltipAnchor struct {
	key    string
	nodeID int64
	edge   *graph.Edge
	isEdge bool
	lines  []string
}

// buildTooltipAnchors rebuilds the tooltip set wholesale for the current
// focus/selection state: the focused element, the selected element, and the
// selected node's neighborhood. No diffing against the previous set.
func buildTooltipAnchors(cfg *graph.Config, h highlightState) []tooltipAnchor {
	var anchors []tooltipAnchor
	seen := make(map[string]struct{})

	add := func(obj graph.Object) {
		if obj == nil {
			return
		}
		if _, dup := seen[obj.Key()]; dup {
			return
		}
		seen[obj.Key()] = struct{}{}
		anchors = append(anchors, newTooltipAnchor(obj))
	}

	// The typed fields are checked individually: a nil *Node or *Edge
	// converted to Object is non-nil and would slip past add's guard.
	if h.focusedNode != nil {
		add(h.focusedNode)
	}
	if h.focusedEdge != nil {
		add(h.focusedEdge)
	}
	if h.selectedEdge != nil {
		add(h.selectedEdge)
	}

	if h.selectedNode != nil {
		add(h.selectedNode)
		for _, neighbor := range cfg.NeighborsOfNode(h.selectedNode) {
			add(neighbor)
		}
	}

	return anchors
}

func newTooltipAnchor(obj graph.Object) tooltipAnchor {
	a := tooltipAnchor{key: obj.Key()}

	switch el := obj.(type) {
	case *graph.Node:
		a.nodeID = el.ID
		a.lines = append(a.lines, el.DisplayName())
	case *graph.Edge:
		a.isEdge = true
		a.edge = el
		a.lines = append(a.lines, el.Label)
	}

	a.lines = append(a.lines, propertyLines(obj.Base().Properties)...)
	return a
}

// propertyLines renders up to maxTooltipProperties "key: value" lines in
// stable key order.
func propertyLines(props map[string]any) []string {
	if len(props) == 0 {
		return nil
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) > maxTooltipProperties {
		keys = keys[:maxTooltipProperties]
	}

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, props[k]))
	}
	return lines
}

// positionTooltips projects the anchors onto the current coordinates. An
// anchor whose coordinates are unknown mid-simulation is kept but hidden
// rather than dropped or drawn at a bogus position.
func positionTooltips(anchors []tooltipAnchor, positions map[int64]Point) []Tooltip {
	tooltips := make([]Tooltip, 0, len(anchors))

	for _, a := range anchors {
		t := Tooltip{Key: a.key, Lines: a.lines}

		if a.isEdge {
			src, okSrc := positions[a.edge.Source]
			dst, okDst := positions[a.edge.Target]
			if okSrc && okDst {
				t.X = (src.X + dst.X) / 2
				t.Y = (src.Y + dst.Y) / 2
				t.Visible = true
			}
		} else if p, ok := positions[a.nodeID]; ok {
			t.X = p.X
			t.Y = p.Y
			t.Visible = true
		}

		tooltips = append(tooltips, t)
	}

	return tooltips
}
