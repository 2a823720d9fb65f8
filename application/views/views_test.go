package views

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"graphlens/application/store"
	"graphlens/domain/graph"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	cfg, err := graph.NewConfig(graph.Payload{
		Nodes: []any{
			map[string]any{
				"id":                 1,
				"label":              "Person",
				"properties":         map[string]any{"name": "Ada", "born": 1815},
				"key_property_names": []any{"name"},
			},
			map[string]any{"id": 2, "label": "City", "properties": map[string]any{"name": "London"}},
		},
		Edges: []any{
			map[string]any{
				"source":     1,
				"target":     2,
				"label":      "LIVES_IN",
				"properties": map[string]any{"since": 1835},
			},
		},
		Rows: []any{
			map[string]any{"name": "Ada", "born": 1815},
			map[string]any{"name": "London", "country": "UK"},
		},
	}, graph.NewColorLedger(nil, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	st, err := store.New(cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	return st
}

type fakePrefStore struct {
	saved map[string]string
	err   error
}

func (f *fakePrefStore) SavePreference(_ context.Context, label, propertyName string) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[string]string)
	}
	f.saved[label] = propertyName
	return nil
}

func (f *fakePrefStore) Preferences(context.Context) (map[string]string, error) {
	return f.saved, f.err
}

func TestSidebarShowsSelectedNode(t *testing.T) {
	st := newTestStore(t)
	sb, err := NewSidebar(st, zap.NewNop())
	require.NoError(t, err)
	defer sb.Close()

	assert.False(t, sb.Model().Visible)

	n1, _ := st.Config().NodeByID(1)
	st.SetSelectedObject(n1)

	model := sb.Model()
	assert.True(t, model.Visible)
	assert.Equal(t, graph.KindNode, model.Kind)
	assert.Equal(t, "Ada", model.Title)

	// Properties in stable name order.
	require.Len(t, model.Properties, 2)
	assert.Equal(t, PropertyRow{Name: "born", Value: "1815"}, model.Properties[0])
	assert.Equal(t, PropertyRow{Name: "name", Value: "Ada"}, model.Properties[1])

	require.Len(t, model.Neighbors, 1)
	assert.Equal(t, int64(2), model.Neighbors[0].ID)
	assert.Equal(t, "City", model.Neighbors[0].Display)
}

func TestSidebarShowsSelectedEdgeWithoutNeighbors(t *testing.T) {
	st := newTestStore(t)
	sb, err := NewSidebar(st, zap.NewNop())
	require.NoError(t, err)
	defer sb.Close()

	n1, _ := st.Config().NodeByID(1)
	edges := st.EdgesOfNode(n1)
	require.Len(t, edges, 1)
	st.SetSelectedObject(edges[0])

	model := sb.Model()
	assert.True(t, model.Visible)
	assert.Equal(t, graph.KindEdge, model.Kind)
	assert.Equal(t, "LIVES_IN", model.Title)
	assert.Empty(t, model.Neighbors)
}

func TestSidebarClearsOnDeselection(t *testing.T) {
	st := newTestStore(t)
	sb, err := NewSidebar(st, zap.NewNop())
	require.NoError(t, err)
	defer sb.Close()

	n1, _ := st.Config().NodeByID(1)
	st.SetSelectedObject(n1)
	st.SetSelectedObject(nil)

	assert.False(t, sb.Model().Visible)
}

func TestSidebarSelectNeighborWalksTheGraph(t *testing.T) {
	st := newTestStore(t)
	sb, err := NewSidebar(st, zap.NewNop())
	require.NoError(t, err)
	defer sb.Close()

	sb.SelectNeighbor(2)

	model := sb.Model()
	assert.True(t, model.Visible)
	assert.Equal(t, "City", model.Title)

	// Unknown ids leave the selection untouched.
	sb.SelectNeighbor(99)
	assert.Equal(t, "City", sb.Model().Title)
}

func TestMenuReflectsModes(t *testing.T) {
	st := newTestStore(t)
	m, err := NewMenu(st, nil, zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	model := m.Model()
	assert.Equal(t, graph.ViewModeDefault, model.ViewMode)
	assert.Equal(t, graph.LayoutModeForce, model.LayoutMode)
	assert.Equal(t, graph.ColorSchemeLabel, model.ColorScheme)

	// Legend in stable label order, one entry per colored label.
	require.Len(t, model.Labels, 2)
	assert.Equal(t, "City", model.Labels[0].Label)
	assert.Equal(t, "Person", model.Labels[1].Label)
	assert.NotEmpty(t, model.Labels[0].Color)

	m.SetViewMode(graph.ViewModeTable)
	m.SetLayoutMode(graph.LayoutModeTopDown)
	m.SetColorScheme(graph.ColorSchemeNeighborhood)

	model = m.Model()
	assert.Equal(t, graph.ViewModeTable, model.ViewMode)
	assert.Equal(t, graph.LayoutModeTopDown, model.LayoutMode)
	assert.Equal(t, graph.ColorSchemeNeighborhood, model.ColorScheme)
}

func TestMenuSubmitLabelPreference(t *testing.T) {
	st := newTestStore(t)
	prefs := &fakePrefStore{}
	m, err := NewMenu(st, prefs, zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()

	require.NoError(t, m.SubmitLabelPreference(ctx, "Person", "name"))
	assert.Equal(t, "name", prefs.saved["Person"])

	assert.Error(t, m.SubmitLabelPreference(ctx, "", "name"))
	assert.Error(t, m.SubmitLabelPreference(ctx, "Person", ""))
	assert.Error(t, m.SubmitLabelPreference(ctx, "Unknown", "name"))

	prefs.err = errors.New("disk full")
	assert.Error(t, m.SubmitLabelPreference(ctx, "Person", "name"))
}

func TestMenuWithoutPreferenceStore(t *testing.T) {
	st := newTestStore(t)
	m, err := NewMenu(st, nil, zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	assert.Error(t, m.SubmitLabelPreference(context.Background(), "Person", "name"))
}

func TestTableUnionsColumnsAcrossRows(t *testing.T) {
	st := newTestStore(t)
	tbl, err := NewTable(st, zap.NewNop())
	require.NoError(t, err)
	defer tbl.Close()

	model := tbl.Model()
	assert.Equal(t, []string{"born", "country", "name"}, model.Columns)

	require.Len(t, model.Rows, 2)
	assert.Equal(t, []string{"1815", "", "Ada"}, model.Rows[0])
	assert.Equal(t, []string{"", "UK", "London"}, model.Rows[1])
}

func TestTableRebuildsOnReplace(t *testing.T) {
	st := newTestStore(t)
	tbl, err := NewTable(st, zap.NewNop())
	require.NoError(t, err)
	defer tbl.Close()

	next, err := graph.NewConfig(graph.Payload{
		Nodes: []any{},
		Edges: []any{},
		Rows:  []any{map[string]any{"answer": 42}},
	}, graph.NewColorLedger(nil, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, st.Replace(next))

	model := tbl.Model()
	assert.Equal(t, []string{"answer"}, model.Columns)
	require.Len(t, model.Rows, 1)
	assert.Equal(t, []string{"42"}, model.Rows[0])
}
