package graph

import (
	"fmt"
	"strconv"
)

// Node is a single graph vertex.
type Node struct {
	GraphObject

	ID int64 `json:"id"`
	// Value is a physical mass/size hint for the layout engine.
	Value float64 `json:"value"`
	// Neighborhood is the cluster id used for clustering-aware layout
	// distance and optional coloring. Defaults to 0.
	Neighborhood int `json:"neighborhood"`
	// Color is the resolved display color. Empty when the palette was
	// exhausted before this node's label was first seen.
	Color string `json:"color,omitempty"`
	// Identifiers holds the values of the key properties, in key order,
	// read at construction. Missing keys are skipped.
	Identifiers []any `json:"identifiers,omitempty"`
}

// NewNode constructs a Node from a raw record. A record without a numeric
// id yields an inert node (Instantiated unset, reason recorded) rather than
// an error: individually malformed records are a data problem, not a
// programmer error.
func NewNode(raw map[string]any) *Node {
	n := &Node{GraphObject: newGraphObject(KindNode, raw)}

	if raw == nil {
		n.fail("node record is not an object")
		return n
	}

	id, ok := toNumber(raw["id"])
	if !ok {
		n.fail("node requires a numeric id")
		return n
	}
	n.ID = int64(id)

	n.Value = 1
	if v, ok := toNumber(raw["value"]); ok {
		n.Value = v
	}

	if nb, ok := toNumber(raw["neighborhood"]); ok {
		n.Neighborhood = int(nb)
	}

	for _, key := range n.KeyPropertyNames {
		if v, ok := n.Properties[key]; ok {
			n.Identifiers = append(n.Identifiers, v)
		}
	}

	n.Instantiated = true
	return n
}

// ApplyProperties overlays lazily-resolved property values onto the node
// and recomputes Identifiers, so display names pick up values that were
// absent from the original record.
func (n *Node) ApplyProperties(props map[string]any) {
	if len(props) == 0 {
		return
	}
	if n.Properties == nil {
		n.Properties = make(map[string]any, len(props))
	}
	for k, v := range props {
		n.Properties[k] = v
	}
	n.recomputeIdentifiers()
}

func (n *Node) recomputeIdentifiers() {
	n.Identifiers = n.Identifiers[:0]
	for _, key := range n.KeyPropertyNames {
		if v, ok := n.Properties[key]; ok {
			n.Identifiers = append(n.Identifiers, v)
		}
	}
}

// Key returns the node's stable render identity.
func (n *Node) Key() string {
	return "n:" + strconv.FormatInt(n.ID, 10)
}

// DisplayName returns a human-readable identifier: the key property values
// when present, otherwise the label, otherwise the raw id.
func (n *Node) DisplayName() string {
	if len(n.Identifiers) > 0 {
		parts := make([]string, len(n.Identifiers))
		for i, id := range n.Identifiers {
			parts[i] = fmt.Sprintf("%v", id)
		}
		return joinIdentifiers(parts)
	}
	if n.Label != "" {
		return n.Label
	}
	return strconv.FormatInt(n.ID, 10)
}

func joinIdentifiers(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += " | " + p
	}
	return out
}
