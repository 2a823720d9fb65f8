package viz

import (
	"math"

	"graphlens/domain/graph"
)

const (
	// labelZoomThreshold is the scale past which idle edge labels appear.
	labelZoomThreshold = 1.2
	// labelCharWidth approximates one rendered character in layout units.
	labelCharWidth = 7.0
	// labelLengthFactor is the share of the edge length available to text.
	labelLengthFactor = 0.8

	ellipsis = "…"
)

// highlightState is the snapshot of focus/selection the per-frame policies
// evaluate against.
type highlightState struct {
	selectedNode *graph.Node
	selectedEdge *graph.Edge
	focusedNode  *graph.Node
	focusedEdge  *graph.Edge
}

func (h highlightState) empty() bool {
	return h.selectedNode == nil && h.selectedEdge == nil &&
		h.focusedNode == nil && h.focusedEdge == nil
}

// edgeLabelVisible decides, per frame and in priority order, whether an
// edge shows its label:
//  1. the focused edge always shows;
//  2. an edge connected to the selected node always shows;
//  3. the selected edge always shows;
//  4. past the zoom threshold, labels show only while nothing is
//     focused or selected;
//  5. otherwise hidden.
func edgeLabelVisible(e *graph.Edge, h highlightState, zoom float64) bool {
	if h.focusedEdge == e {
		return true
	}

	if h.selectedNode != nil && e.Touches(h.selectedNode.ID) {
		return true
	}

	if h.selectedEdge == e {
		return true
	}

	if zoom >= labelZoomThreshold && h.empty() {
		return true
	}

	return false
}

// truncateLabel fits a label into the available edge-length budget,
// shrinking one character at a time and appending an ellipsis. An
// exhausted budget hides the label entirely.
func truncateLabel(label string, edgeLength float64) string {
	budget := int(edgeLength * labelLengthFactor / labelCharWidth)
	runes := []rune(label)

	if len(runes) <= budget {
		return label
	}

	for len(runes) > 0 {
		if len(runes)+1 <= budget {
			return string(runes) + ellipsis
		}
		runes = runes[:len(runes)-1]
	}

	return ""
}

// edgeLength measures the straight-line distance between the projected
// endpoint positions. Unknown positions yield zero.
func edgeLength(e *graph.Edge, positions map[int64]Point) float64 {
	src, okSrc := positions[e.Source]
	dst, okDst := positions[e.Target]
	if !okSrc || !okDst {
		return 0
	}

	return math.Hypot(dst.X-src.X, dst.Y-src.Y)
}
