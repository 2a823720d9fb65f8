package graph

import (
	"go.uber.org/zap"
)

// SchemaTable describes one node or edge table definition from the backend
// schema payload.
type SchemaTable struct {
	Name          string
	LabelNames    []string
	KeyColumns    []string
	PropertyNames []string

	// Edge tables only: names of the endpoint node tables.
	SourceTable      string
	DestinationTable string
}

// Schema holds the parsed node/edge table definitions of a query response.
type Schema struct {
	NodeTables []SchemaTable
	EdgeTables []SchemaTable
}

// ParseSchema converts a raw schema payload into table definitions. A nil
// or absent schema is tolerated and yields nil; a malformed table is
// dropped and logged, never fatal.
func ParseSchema(raw any, logger *zap.Logger) *Schema {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := toMap(raw)
	if m == nil {
		return nil
	}

	s := &Schema{
		NodeTables: parseSchemaTables(m["nodeTables"], false, logger),
		EdgeTables: parseSchemaTables(m["edgeTables"], true, logger),
	}

	if len(s.NodeTables) == 0 && len(s.EdgeTables) == 0 {
		return nil
	}
	return s
}

func parseSchemaTables(raw any, edge bool, logger *zap.Logger) []SchemaTable {
	items, ok := asSequence(raw)
	if !ok {
		return nil
	}

	var tables []SchemaTable
	for i, item := range items {
		rec := toMap(item)
		if rec == nil {
			logger.Warn("dropping malformed schema table", zap.Int("index", i))
			continue
		}

		name, _ := rec["name"].(string)
		if name == "" {
			logger.Warn("dropping schema table without a name", zap.Int("index", i))
			continue
		}

		t := SchemaTable{
			Name:       name,
			LabelNames: toStringSlice(rec["labelNames"]),
			KeyColumns: toStringSlice(rec["keyColumns"]),
		}

		if defs, ok := asSequence(rec["propertyDefinitions"]); ok {
			for _, def := range defs {
				if dm := toMap(def); dm != nil {
					if pn, ok := dm["propertyDeclarationName"].(string); ok && pn != "" {
						t.PropertyNames = append(t.PropertyNames, pn)
					}
				}
			}
		}

		if edge {
			if src := toMap(rec["sourceNodeTable"]); src != nil {
				t.SourceTable, _ = src["nodeTableName"].(string)
			}
			if dst := toMap(rec["destinationNodeTable"]); dst != nil {
				t.DestinationTable, _ = dst["nodeTableName"].(string)
			}
		}

		tables = append(tables, t)
	}

	return tables
}

// UniqueNodeLabels returns the labels claimed by exactly one node table.
// Only these labels can resolve key property names unambiguously.
func (s *Schema) UniqueNodeLabels() map[string]struct{} {
	counts := make(map[string]int)
	for _, t := range s.NodeTables {
		for _, label := range t.LabelNames {
			counts[label]++
		}
	}

	unique := make(map[string]struct{})
	for label, n := range counts {
		if n == 1 {
			unique[label] = struct{}{}
		}
	}
	return unique
}

// KeyPropertyNames returns the key property names for a node, resolved
// through its label. A label owned by zero or several node tables yields
// nothing.
func (s *Schema) KeyPropertyNames(n *Node) []string {
	if n == nil || n.Label == "" {
		return nil
	}

	unique := s.UniqueNodeLabels()
	if _, ok := unique[n.Label]; !ok {
		return nil
	}

	for _, t := range s.NodeTables {
		for _, label := range t.LabelNames {
			if label == n.Label {
				return t.KeyColumns
			}
		}
	}
	return nil
}

// nodeTableIndex returns the position of a node table by name.
func (s *Schema) nodeTableIndex(name string) (int, bool) {
	for i, t := range s.NodeTables {
		if t.Name == name {
			return i, true
		}
	}
	return 0, false
}
