package websocket

import (
	"graphlens/application/viz"
)

// Outbound message types.
const (
	MessageConnectionEstablished = "CONNECTION_ESTABLISHED"
	MessageFrame                 = "FRAME"
	MessageViews                 = "VIEWS"
	MessageError                 = "ERROR"
)

// Inbound interaction message types. The widget sends exactly one of these
// per user gesture.
const (
	actionNodeHover       = "node_hover"
	actionEdgeHover       = "edge_hover"
	actionHoverEnd        = "hover_end"
	actionNodeClick       = "node_click"
	actionEdgeClick       = "edge_click"
	actionBackgroundClick = "background_click"
	actionEscape          = "escape"
	actionZoom            = "zoom"
	actionPositions       = "positions"
	actionExpand          = "expand"
	actionSelectNeighbor  = "select_neighbor"
	actionViewMode        = "view_mode"
	actionLayoutMode      = "layout_mode"
	actionColorScheme     = "color_scheme"
	actionPong            = "pong"
)

// inboundMessage is the union of every interaction the widget can send.
// Only the fields matching Type are read.
type inboundMessage struct {
	Type string `json:"type"`

	NodeID  int64  `json:"nodeId,omitempty"`
	EdgeKey string `json:"edgeKey,omitempty"`

	Scale float64 `json:"scale,omitempty"`

	// Positions is keyed by the node id rendered as a string, the way
	// JSON objects arrive from the layout engine.
	Positions map[string]viz.Point `json:"positions,omitempty"`

	Direction  string         `json:"direction,omitempty"`
	EdgeLabel  string         `json:"edgeLabel,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`

	Mode   string `json:"mode,omitempty"`
	Scheme string `json:"scheme,omitempty"`
}
