package graph

import (
	"fmt"

	"go.uber.org/zap"

	apperrors "graphlens/pkg/errors"
)

// ColorScheme selects what drives node coloring.
type ColorScheme string

const (
	ColorSchemeNeighborhood ColorScheme = "neighborhood"
	ColorSchemeLabel        ColorScheme = "label"
)

// ViewMode selects which view renders the current config.
type ViewMode string

const (
	ViewModeDefault ViewMode = "default"
	ViewModeTable   ViewMode = "table"
	ViewModeSchema  ViewMode = "schema"
)

// LayoutMode selects the physical layout algorithm.
type LayoutMode string

const (
	LayoutModeForce   LayoutMode = "force"
	LayoutModeTopDown LayoutMode = "top-down"
)

// Payload carries one query response's raw graph data into a Config.
// The fields are untyped on purpose: shape validation happens here, at the
// boundary where data enters the model, and nowhere upstream.
type Payload struct {
	Nodes  any
	Edges  any
	Rows   any
	Schema any
}

// Config owns the graph elements and view state for one query response.
// A fresh Config is built per response; incremental node expansion mutates
// it in place through Merge. Color continuity across rebuilds comes from
// the injected ledger, not from the Config itself.
type Config struct {
	Nodes    []*Node
	Edges    []*Edge
	RowsData []map[string]any

	Schema      *Schema
	SchemaNodes []*Node
	SchemaEdges []*Edge

	// NodeColors is this config's view of the ledger: label -> color for
	// every label seen by this config, schema-only labels included.
	NodeColors map[string]string

	ColorScheme ColorScheme
	ViewMode    ViewMode
	LayoutMode  LayoutMode

	// At most one of each at any time; both reference an element present
	// in this config, or are nil.
	FocusedObject  Object
	SelectedObject Object

	ledger *ColorLedger
	logger *zap.Logger
}

// NewConfig parses a raw payload into a Config. It fails only structurally:
// nodes or edges data that is not a sequence. Individually malformed
// records are dropped and logged; a missing schema is fine.
func NewConfig(p Payload, ledger *ColorLedger, logger *zap.Logger) (*Config, error) {
	if ledger == nil {
		return nil, apperrors.NewStructural("color ledger is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	nodes, err := ParseNodes(p.Nodes, logger)
	if err != nil {
		return nil, err
	}

	edges, err := ParseEdges(p.Edges, logger)
	if err != nil {
		return nil, err
	}

	c := &Config{
		Nodes:       nodes,
		Edges:       edges,
		RowsData:    parseRows(p.Rows),
		NodeColors:  make(map[string]string),
		ColorScheme: ColorSchemeLabel,
		ViewMode:    ViewModeDefault,
		LayoutMode:  LayoutModeForce,
		ledger:      ledger,
		logger:      logger,
	}

	c.Schema = ParseSchema(p.Schema, logger)
	c.buildSchemaElements()
	c.backfillKeyProperties(c.Nodes)

	c.assignColors(c.Nodes)
	c.assignColors(c.SchemaNodes)

	return c, nil
}

// backfillKeyProperties resolves key property names through the schema for
// nodes whose records carried none, so display identifiers work even when
// the backend omits per-node key_property_names. Labels claimed by several
// node tables stay unresolved.
func (c *Config) backfillKeyProperties(nodes []*Node) {
	if c.Schema == nil {
		return
	}

	for _, n := range nodes {
		if len(n.KeyPropertyNames) > 0 {
			continue
		}
		names := c.Schema.KeyPropertyNames(n)
		if len(names) == 0 {
			continue
		}
		n.KeyPropertyNames = names
		n.recomputeIdentifiers()
	}
}

// ParseNodes maps raw records through Node construction, discarding and
// logging individually invalid records. It returns a structural error only
// when the payload itself is not a sequence.
func ParseNodes(data any, logger *zap.Logger) ([]*Node, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	items, ok := asSequence(data)
	if !ok {
		return nil, apperrors.NewStructural("nodes data must be a sequence")
	}

	nodes := make([]*Node, 0, len(items))
	for i, item := range items {
		n := NewNode(toMap(item))
		if !n.Instantiated {
			logger.Warn("dropping invalid node record",
				zap.Int("index", i),
				zap.String("reason", n.InstantiationError),
			)
			continue
		}
		nodes = append(nodes, n)
	}

	return nodes, nil
}

// ParseEdges is the edge counterpart of ParseNodes.
func ParseEdges(data any, logger *zap.Logger) ([]*Edge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	items, ok := asSequence(data)
	if !ok {
		return nil, apperrors.NewStructural("edges data must be a sequence")
	}

	edges := make([]*Edge, 0, len(items))
	for i, item := range items {
		e := NewEdge(toMap(item))
		if !e.Instantiated {
			logger.Warn("dropping invalid edge record",
				zap.Int("index", i),
				zap.String("reason", e.InstantiationError),
			)
			continue
		}
		edges = append(edges, e)
	}

	return edges, nil
}

func parseRows(raw any) []map[string]any {
	items, ok := asSequence(raw)
	if !ok {
		return nil
	}

	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m := toMap(item); m != nil {
			rows = append(rows, m)
		}
	}
	return rows
}

// buildSchemaElements creates one synthetic Node per node table and one
// synthetic Edge per edge table, so the schema view renders table-level
// entities with the same machinery as data rows.
func (c *Config) buildSchemaElements() {
	if c.Schema == nil {
		return
	}

	for i, t := range c.Schema.NodeTables {
		props := make(map[string]any, len(t.PropertyNames))
		for _, name := range t.PropertyNames {
			props[name] = nil
		}

		n := NewNode(map[string]any{
			"id":                 i,
			"label":              t.Name,
			"properties":         props,
			"key_property_names": t.KeyColumns,
		})
		if n.Instantiated {
			c.SchemaNodes = append(c.SchemaNodes, n)
		}
	}

	for _, t := range c.Schema.EdgeTables {
		src, okSrc := c.Schema.nodeTableIndex(t.SourceTable)
		dst, okDst := c.Schema.nodeTableIndex(t.DestinationTable)
		if !okSrc || !okDst {
			c.logger.Warn("dropping schema edge with unknown endpoint table",
				zap.String("table", t.Name),
			)
			continue
		}

		e := NewEdge(map[string]any{
			"label":  t.Name,
			"source": src,
			"target": dst,
		})
		if e.Instantiated {
			c.SchemaEdges = append(c.SchemaEdges, e)
		}
	}
}

// assignColors binds a palette color to every label in first-seen node
// order. Assignment is delegated to the ledger, so the mapping is stable
// for the ledger's lifetime even across reconstructed configs. Palette
// exhaustion leaves nodes colorless.
func (c *Config) assignColors(nodes []*Node) {
	for _, n := range nodes {
		color, ok := c.ledger.ColorFor(n.Label)
		if !ok {
			continue
		}
		n.Color = color
		c.NodeColors[n.Label] = color
	}
}

// Merge appends new elements in place, skipping nodes whose id is already
// present and edges whose identity already exists. It returns the newly
// added elements; both slices empty means the merge was a no-op.
func (c *Config) Merge(nodes []*Node, edges []*Edge) (addedNodes []*Node, addedEdges []*Edge) {
	seenNodes := make(map[int64]struct{}, len(c.Nodes))
	for _, n := range c.Nodes {
		seenNodes[n.ID] = struct{}{}
	}

	for _, n := range nodes {
		if n == nil || !n.Instantiated {
			continue
		}
		if _, dup := seenNodes[n.ID]; dup {
			continue
		}
		seenNodes[n.ID] = struct{}{}
		c.Nodes = append(c.Nodes, n)
		addedNodes = append(addedNodes, n)
	}

	seenEdges := make(map[string]struct{}, len(c.Edges))
	for _, e := range c.Edges {
		seenEdges[e.Key()] = struct{}{}
	}

	for _, e := range edges {
		if e == nil || !e.Instantiated {
			continue
		}
		if _, dup := seenEdges[e.Key()]; dup {
			continue
		}
		seenEdges[e.Key()] = struct{}{}
		c.Edges = append(c.Edges, e)
		addedEdges = append(addedEdges, e)
	}

	c.backfillKeyProperties(addedNodes)
	c.assignColors(addedNodes)

	return addedNodes, addedEdges
}

// NodeByID returns the node with the given id from the data elements.
func (c *Config) NodeByID(id int64) (*Node, bool) {
	for _, n := range c.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// EdgesOfNode returns every edge touching the node, in edge order.
func (c *Config) EdgesOfNode(n *Node) []*Edge {
	if n == nil {
		return nil
	}

	var out []*Edge
	for _, e := range c.Edges {
		if e.Touches(n.ID) {
			out = append(out, e)
		}
	}
	return out
}

// NeighborsOfNode returns the distinct nodes adjacent to n, in the order
// their connecting edges appear. Self-loops do not make a node its own
// neighbor.
func (c *Config) NeighborsOfNode(n *Node) []*Node {
	if n == nil {
		return nil
	}

	seen := make(map[int64]struct{})
	var out []*Node
	for _, e := range c.EdgesOfNode(n) {
		otherID := e.Target
		if e.Target == n.ID {
			otherID = e.Source
		}
		if otherID == n.ID {
			continue
		}
		if _, dup := seen[otherID]; dup {
			continue
		}
		if other, ok := c.NodeByID(otherID); ok {
			seen[otherID] = struct{}{}
			out = append(out, other)
		}
	}
	return out
}

// ColorForNode resolves the display color under the active color scheme.
func (c *Config) ColorForNode(n *Node) string {
	if n == nil {
		return ""
	}
	if c.ColorScheme == ColorSchemeNeighborhood {
		return c.ledger.PaletteColor(n.Neighborhood)
	}
	return n.Color
}

// Contains reports whether the object is an element of this config,
// schema elements included.
func (c *Config) Contains(obj Object) bool {
	switch el := obj.(type) {
	case *Node:
		for _, n := range c.Nodes {
			if n == el {
				return true
			}
		}
		for _, n := range c.SchemaNodes {
			if n == el {
				return true
			}
		}
	case *Edge:
		for _, e := range c.Edges {
			if e == el {
				return true
			}
		}
		for _, e := range c.SchemaEdges {
			if e == el {
				return true
			}
		}
	}
	return false
}

// Describe returns a short human-readable summary, used in logs.
func (c *Config) Describe() string {
	return fmt.Sprintf("%d nodes, %d edges, %d rows", len(c.Nodes), len(c.Edges), len(c.RowsData))
}
