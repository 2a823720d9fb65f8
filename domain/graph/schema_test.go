package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleSchema() map[string]any {
	return map[string]any{
		"nodeTables": []any{
			map[string]any{
				"name":       "Person",
				"labelNames": []any{"Person"},
				"keyColumns": []any{"id"},
				"propertyDefinitions": []any{
					map[string]any{"propertyDeclarationName": "id"},
					map[string]any{"propertyDeclarationName": "name"},
				},
			},
			map[string]any{
				"name":       "Account",
				"labelNames": []any{"Account"},
				"keyColumns": []any{"account_id"},
			},
			map[string]any{
				"name":       "BankAccount",
				"labelNames": []any{"Account"},
				"keyColumns": []any{"id"},
			},
		},
		"edgeTables": []any{
			map[string]any{
				"name":                 "PersonOwnsAccount",
				"labelNames":           []any{"OWNS"},
				"keyColumns":           []any{"id"},
				"sourceNodeTable":      map[string]any{"nodeTableName": "Person"},
				"destinationNodeTable": map[string]any{"nodeTableName": "Account"},
			},
		},
	}
}

func TestParseSchemaNil(t *testing.T) {
	assert.Nil(t, ParseSchema(nil, zap.NewNop()))
	assert.Nil(t, ParseSchema(map[string]any{}, zap.NewNop()))
	assert.Nil(t, ParseSchema("not a schema", zap.NewNop()))
}

func TestParseSchemaTables(t *testing.T) {
	s := ParseSchema(sampleSchema(), zap.NewNop())
	require.NotNil(t, s)

	require.Len(t, s.NodeTables, 3)
	require.Len(t, s.EdgeTables, 1)

	assert.Equal(t, "Person", s.NodeTables[0].Name)
	assert.Equal(t, []string{"id", "name"}, s.NodeTables[0].PropertyNames)
	assert.Equal(t, "Person", s.EdgeTables[0].SourceTable)
	assert.Equal(t, "Account", s.EdgeTables[0].DestinationTable)
}

func TestSchemaUniqueNodeLabels(t *testing.T) {
	s := ParseSchema(sampleSchema(), zap.NewNop())
	require.NotNil(t, s)

	unique := s.UniqueNodeLabels()
	_, hasPerson := unique["Person"]
	_, hasAccount := unique["Account"]

	assert.True(t, hasPerson)
	// Account is claimed by two tables, so it is not unique.
	assert.False(t, hasAccount)
}

func TestSchemaKeyPropertyNames(t *testing.T) {
	s := ParseSchema(sampleSchema(), zap.NewNop())
	require.NotNil(t, s)

	tests := []struct {
		name  string
		label string
		want  []string
	}{
		{name: "uniquely owned label", label: "Person", want: []string{"id"}},
		{name: "label owned by two tables", label: "Account", want: nil},
		{name: "unknown label", label: "Nothing", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNode(map[string]any{"id": 1, "label": tt.label})
			require.True(t, n.Instantiated)
			assert.Equal(t, tt.want, s.KeyPropertyNames(n))
		})
	}

	assert.Nil(t, s.KeyPropertyNames(nil))
}

func TestConfigSchemaElements(t *testing.T) {
	cfg, err := NewConfig(Payload{
		Nodes:  []any{},
		Edges:  []any{},
		Schema: sampleSchema(),
	}, newTestLedger(), zap.NewNop())
	require.NoError(t, err)

	require.Len(t, cfg.SchemaNodes, 3)
	require.Len(t, cfg.SchemaEdges, 1)

	// One synthetic node per table, colored like data nodes.
	assert.Equal(t, "Person", cfg.SchemaNodes[0].Label)
	assert.NotEmpty(t, cfg.SchemaNodes[0].Color)
	assert.NotEmpty(t, cfg.NodeColors["Person"])

	// The synthetic edge connects the table indexes.
	e := cfg.SchemaEdges[0]
	assert.Equal(t, int64(0), e.Source)
	assert.Equal(t, int64(1), e.Target)
	assert.Equal(t, "PersonOwnsAccount", e.Label)
}
