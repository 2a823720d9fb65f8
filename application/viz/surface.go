package viz

import (
	"graphlens/domain/graph"
)

// Point is a screen-projected coordinate supplied by the layout engine.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeRender is the per-frame render state of one node.
type NodeRender struct {
	ID           int64   `json:"id"`
	Label        string  `json:"label"`
	Display      string  `json:"display"`
	Color        string  `json:"color"`
	Value        float64 `json:"value"`
	LabelVisible bool    `json:"label_visible"`
	// Loading marks the per-node expansion indicator.
	Loading bool `json:"loading,omitempty"`
	// Badge is a transient per-node indicator: expansion success counts or
	// a short error notice.
	Badge string `json:"badge,omitempty"`
}

// EdgeRender is the per-frame render state of one edge.
type EdgeRender struct {
	Key    string `json:"key"`
	Source int64  `json:"source"`
	Target int64  `json:"target"`
	Label  string `json:"label"`
	// RenderedLabel is empty when the label is hidden this frame, and may
	// be truncated to the edge-length budget.
	RenderedLabel string  `json:"rendered_label,omitempty"`
	Color         string  `json:"color"`
	Width         float64 `json:"width"`
	Curvature     float64 `json:"curvature"`
	// Distance is the desired link distance for the physical simulation.
	Distance float64 `json:"distance"`
}

// Tooltip anchors a floating detail box to an element's projected position.
type Tooltip struct {
	Key     string   `json:"key"`
	Lines   []string `json:"lines"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Visible bool     `json:"visible"`
}

// Frame is one complete render state pushed to the surface. Frames are
// self-contained; the surface never diffs against store state.
type Frame struct {
	ViewMode   graph.ViewMode   `json:"view_mode"`
	LayoutMode graph.LayoutMode `json:"layout_mode"`
	Nodes      []NodeRender     `json:"nodes"`
	Edges      []EdgeRender     `json:"edges"`
	Tooltips   []Tooltip        `json:"tooltips"`
	// CenterOn asks the surface to center and zoom on a node, set for the
	// frame immediately following a node selection.
	CenterOn *int64 `json:"center_on,omitempty"`
	// Simulation carries the layout cooldown parameters.
	Simulation SimulationParams `json:"simulation"`
}

// Surface is the rendering side of the visualization: typically the browser
// canvas on the far end of a websocket. Implementations must tolerate
// frames arriving at any point mid-simulation.
type Surface interface {
	PushFrame(frame Frame)
	// ShowError surfaces a visible, non-fatal error region.
	ShowError(message string)
}
