package store

import (
	"graphlens/domain/graph"
)

// EventType identifies the store events views can subscribe to.
type EventType string

const (
	EventConfigChange         EventType = "CONFIG_CHANGE"
	EventFocusObject          EventType = "FOCUS_OBJECT"
	EventSelectObject         EventType = "SELECT_OBJECT"
	EventViewModeChange       EventType = "VIEW_MODE_CHANGE"
	EventNodeExpansionRequest EventType = "NODE_EXPANSION_REQUEST"
)

// Event is the payload delivered synchronously to subscribers. Only the
// fields relevant to the event type are set.
type Event struct {
	Type EventType

	// FOCUS_OBJECT and SELECT_OBJECT carry the previous and new object.
	// Either may be nil.
	Previous graph.Object
	Current  graph.Object

	// VIEW_MODE_CHANGE
	ViewMode graph.ViewMode

	// CONFIG_CHANGE always carries the current config. Delta is set for
	// incremental merges and nil for wholesale replacement, so consumers
	// cannot conflate the two.
	Config *graph.Config
	Delta  *Delta

	// NODE_EXPANSION_REQUEST
	Expansion *ExpansionRequest
}

// Delta describes the elements an incremental merge actually added.
type Delta struct {
	NewNodes []*graph.Node
	NewEdges []*graph.Edge
}

// ExpansionRequest asks for the neighbors of a node to be fetched and
// merged into the current config.
type ExpansionRequest struct {
	Node       *graph.Node
	Direction  string
	EdgeLabel  string
	Properties map[string]any
}

// Handler consumes store events. Handlers run to completion, in
// registration order, before the mutating store call returns.
type Handler func(Event)
