package graph

import (
	"fmt"
	"strconv"
)

// Edge is a directed connection between two nodes. Source and Target are
// node ids; the rendering layer resolves them to live node references
// before the physical simulation begins, so code touching edges must not
// assume either representation without checking context.
type Edge struct {
	GraphObject

	Source int64 `json:"source"`
	Target int64 `json:"target"`
}

// NewEdge constructs an Edge from a raw record. Records without numeric
// source and target endpoints yield an inert edge rather than an error.
func NewEdge(raw map[string]any) *Edge {
	e := &Edge{GraphObject: newGraphObject(KindEdge, raw)}

	if raw == nil {
		e.fail("edge record is not an object")
		return e
	}

	src, ok := toNumber(firstPresent(raw, "source", "from"))
	if !ok {
		e.fail("edge requires a numeric source")
		return e
	}

	dst, ok := toNumber(firstPresent(raw, "target", "to"))
	if !ok {
		e.fail("edge requires a numeric target")
		return e
	}

	e.Source = int64(src)
	e.Target = int64(dst)
	e.Instantiated = true
	return e
}

// Key returns the edge's stable render identity. Direction and label are
// part of the identity so parallel edges stay distinct.
func (e *Edge) Key() string {
	return fmt.Sprintf("e:%d_%d_%s", e.Source, e.Target, e.Label)
}

// NodePairID returns the canonical unordered endpoint key, used to group
// parallel edges for curvature assignment.
func (e *Edge) NodePairID() string {
	lo, hi := e.Source, e.Target
	if lo > hi {
		lo, hi = hi, lo
	}
	return strconv.FormatInt(lo, 10) + "_" + strconv.FormatInt(hi, 10)
}

// IsLoop reports whether the edge connects a node to itself.
func (e *Edge) IsLoop() bool {
	return e.Source == e.Target
}

// Touches reports whether the edge has the given node id as an endpoint.
func (e *Edge) Touches(id int64) bool {
	return e.Source == id || e.Target == id
}

func firstPresent(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			return v
		}
	}
	return nil
}
