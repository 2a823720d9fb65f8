// Package graph holds the in-memory graph model: nodes, edges, schema and
// the per-query configuration the store and views operate on.
package graph

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind discriminates graph element types. All dispatch (selection handling,
// rendering, tooltips) switches on this tag instead of type inspection.
type Kind string

const (
	KindNode Kind = "node"
	KindEdge Kind = "edge"
)

// Object is the tagged union over Node and Edge.
type Object interface {
	// Base returns the shared element fields.
	Base() *GraphObject
	// Key returns a stable identity usable as a map key across render frames.
	Key() string
}

// GraphObject carries the fields shared by every graph element. Constructing
// an element from malformed data never fails; it produces an inert object
// with Instantiated unset and the reason recorded. Callers must check
// Instantiated before adding the element to a collection.
type GraphObject struct {
	Kind               Kind           `json:"kind"`
	Label              string         `json:"label"`
	Properties         map[string]any `json:"properties"`
	KeyPropertyNames   []string       `json:"key_property_names,omitempty"`
	Instantiated       bool           `json:"-"`
	InstantiationError string         `json:"-"`
}

// Base returns the shared element fields.
func (o *GraphObject) Base() *GraphObject { return o }

func (o *GraphObject) fail(reason string) {
	o.Instantiated = false
	o.InstantiationError = reason
}

// newGraphObject pulls the shared fields out of a raw record.
func newGraphObject(kind Kind, raw map[string]any) GraphObject {
	o := GraphObject{
		Kind:       kind,
		Properties: map[string]any{},
	}

	if raw == nil {
		return o
	}

	if label, ok := raw["label"].(string); ok {
		o.Label = label
	} else if labels := toStringSlice(raw["labels"]); len(labels) > 0 {
		o.Label = strings.Join(labels, "|")
	}

	if props := toMap(raw["properties"]); props != nil {
		o.Properties = props
	}

	o.KeyPropertyNames = toStringSlice(raw["key_property_names"])

	return o
}

// toNumber coerces the numeric representations JSON and notebook payloads
// produce. Numeric strings are accepted; anything else is rejected.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toMap returns v as a string-keyed map, or nil.
func toMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// toStringSlice returns v as a string slice, tolerating []any payloads.
func toStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// asSequence returns the raw records of a sequence payload. The second
// return reports whether the payload actually was a sequence.
func asSequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}
