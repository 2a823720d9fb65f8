package viz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"graphlens/application/ports"
	"graphlens/application/store"
	"graphlens/domain/graph"
)

type fakeSurface struct {
	mu     sync.Mutex
	frames []Frame
	errs   []string
}

func (f *fakeSurface) PushFrame(frame Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
}

func (f *fakeSurface) ShowError(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, message)
}

func (f *fakeSurface) last(t *testing.T) Frame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.frames)
	return f.frames[len(f.frames)-1]
}

type fakeExecutor struct {
	resp *ports.QueryResponse
	err  error
}

func (f *fakeExecutor) ExecuteQuery(context.Context, string, map[string]string) (*ports.QueryResponse, error) {
	return f.resp, f.err
}

func (f *fakeExecutor) ExpandNode(context.Context, ports.ExpansionQuery) (*ports.QueryResponse, error) {
	return f.resp, f.err
}

func newVizConfig(t *testing.T) *graph.Config {
	t.Helper()

	cfg, err := graph.NewConfig(graph.Payload{
		Nodes: []any{
			map[string]any{"id": 1, "label": "A"},
			map[string]any{"id": 2, "label": "B"},
			map[string]any{"id": 3, "label": "C"},
		},
		Edges: []any{
			map[string]any{"source": 1, "target": 2, "label": "X"},
			map[string]any{"source": 2, "target": 3, "label": "Y"},
		},
	}, graph.NewColorLedger(nil, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	return cfg
}

func newTestViz(t *testing.T, exec ports.QueryExecutor) (*store.Store, *Visualization, *fakeSurface) {
	t.Helper()

	st, err := store.New(newVizConfig(t), zap.NewNop(), nil)
	require.NoError(t, err)

	surf := &fakeSurface{}
	opts := DefaultOptions()
	opts.BadgeTTL = time.Minute

	v, err := New(st, surf, exec, opts, zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(v.Close)

	return st, v, surf
}

func TestNewRequiresCollaborators(t *testing.T) {
	st, err := store.New(newVizConfig(t), zap.NewNop(), nil)
	require.NoError(t, err)
	surf := &fakeSurface{}
	exec := &fakeExecutor{}

	_, err = New(nil, surf, exec, DefaultOptions(), nil, nil)
	assert.Error(t, err)
	_, err = New(st, nil, exec, DefaultOptions(), nil, nil)
	assert.Error(t, err)
	_, err = New(st, surf, nil, DefaultOptions(), nil, nil)
	assert.Error(t, err)
}

func TestNodeClickSelectsAndCenters(t *testing.T) {
	st, v, surf := newTestViz(t, &fakeExecutor{})

	v.HandleNodeClick(1)

	snap := v.State()
	require.NotNil(t, snap.SelectedNode)
	assert.Equal(t, int64(1), snap.SelectedNode.ID)
	require.Len(t, snap.SelectedNodeNeighbors, 1)
	assert.Equal(t, int64(2), snap.SelectedNodeNeighbors[0].ID)

	frame := surf.last(t)
	require.NotNil(t, frame.CenterOn)
	assert.Equal(t, int64(1), *frame.CenterOn)

	// CenterOn is consumed by its frame.
	v.HandleZoom(1.0)
	assert.Nil(t, surf.last(t).CenterOn)

	obj := st.Config().SelectedObject
	require.NotNil(t, obj)
}

func TestSelectionRecedesUnrelatedNodes(t *testing.T) {
	_, v, surf := newTestViz(t, &fakeExecutor{})

	v.HandleNodeClick(1)

	frame := surf.last(t)
	require.Len(t, frame.Nodes, 3)

	byID := make(map[int64]NodeRender)
	for _, n := range frame.Nodes {
		byID[n.ID] = n
	}

	// Node 3 is neither selected nor adjacent: hidden label, faded color.
	assert.True(t, byID[1].LabelVisible)
	assert.True(t, byID[2].LabelVisible)
	assert.False(t, byID[3].LabelVisible)
	assert.NotEqual(t, byID[1].Color, byID[3].Color)
}

func TestEdgeSelectionClearsNodeDerivedState(t *testing.T) {
	st, v, surf := newTestViz(t, &fakeExecutor{})

	v.HandleNodeClick(2)
	require.NotNil(t, v.State().SelectedNode)

	edges := st.Config().Edges
	require.Len(t, edges, 2)
	v.HandleEdgeClick(edges[0].Key())

	snap := v.State()
	assert.Nil(t, snap.SelectedNode)
	assert.Empty(t, snap.SelectedNodeNeighbors)
	assert.Empty(t, snap.SelectedNodeEdges)
	require.NotNil(t, snap.SelectedEdge)
	assert.Equal(t, edges[0].Key(), snap.SelectedEdge.Key())

	// Edge selections never recenter the viewport.
	assert.Nil(t, surf.last(t).CenterOn)
}

func TestEscapeAndBackgroundClickClearSelection(t *testing.T) {
	st, v, _ := newTestViz(t, &fakeExecutor{})

	v.HandleNodeClick(1)
	v.HandleEscape()
	assert.Nil(t, st.Config().SelectedObject)
	assert.Nil(t, v.State().SelectedNode)

	v.HandleNodeClick(1)
	v.HandleBackgroundClick()
	assert.Nil(t, st.Config().SelectedObject)
}

func TestNodeHoverSuppressedWhileEdgeFocused(t *testing.T) {
	st, v, _ := newTestViz(t, &fakeExecutor{})

	edgeKey := st.Config().Edges[0].Key()
	v.HandleEdgeHover(edgeKey)
	require.NotNil(t, v.State().FocusedEdge)

	// Racing node hovers lose to the held edge focus.
	v.HandleNodeHover(1)
	snap := v.State()
	assert.Nil(t, snap.FocusedNode)
	require.NotNil(t, snap.FocusedEdge)

	v.HandleHoverEnd()
	v.HandleNodeHover(1)
	snap = v.State()
	require.NotNil(t, snap.FocusedNode)
	assert.Equal(t, int64(1), snap.FocusedNode.ID)
	assert.Nil(t, snap.FocusedEdge)
}

func TestSelectedNodeTooltipsFollowPositions(t *testing.T) {
	_, v, surf := newTestViz(t, &fakeExecutor{})

	v.HandleNodeClick(1)

	// Before any layout tick the anchors exist but stay hidden.
	frame := surf.last(t)
	require.Len(t, frame.Tooltips, 2) // node 1 and its neighbor 2
	for _, tip := range frame.Tooltips {
		assert.False(t, tip.Visible)
	}

	v.UpdatePositions(map[int64]Point{
		1: {X: 10, Y: 20},
		2: {X: 30, Y: 40},
	})

	frame = surf.last(t)
	require.Len(t, frame.Tooltips, 2)
	for _, tip := range frame.Tooltips {
		assert.True(t, tip.Visible)
	}
}

func TestExpansionMergesNewNeighborhood(t *testing.T) {
	exec := &fakeExecutor{resp: &ports.QueryResponse{
		Nodes: []any{
			map[string]any{"id": 4, "label": "D"},
			map[string]any{"id": 5, "label": "E"},
		},
		Edges: []any{
			map[string]any{"source": 1, "target": 4, "label": "Z"},
		},
	}}
	st, v, _ := newTestViz(t, exec)

	v.HandleExpandRequest(1, "OUTGOING", "", nil)

	require.Eventually(t, func() bool {
		return len(st.Config().Nodes) == 5
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		snap := v.State()
		return len(snap.Expanding) == 0 && snap.Badges[1] == "+2 nodes, +1 edges"
	}, time.Second, 5*time.Millisecond)
}

func TestExpansionFailureClearsLoading(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("backend unavailable")}
	st, v, _ := newTestViz(t, exec)

	v.HandleExpandRequest(1, "", "", nil)

	assert.Eventually(t, func() bool {
		snap := v.State()
		return len(snap.Expanding) == 0 && snap.Badges[1] == "expansion failed"
	}, time.Second, 5*time.Millisecond)

	// The graph is untouched on failure.
	assert.Len(t, st.Config().Nodes, 3)
}

func TestExpansionWithNoNewData(t *testing.T) {
	exec := &fakeExecutor{resp: &ports.QueryResponse{
		Nodes: []any{map[string]any{"id": 2, "label": "B"}},
	}}
	st, v, _ := newTestViz(t, exec)

	v.HandleExpandRequest(1, "", "", nil)

	assert.Eventually(t, func() bool {
		snap := v.State()
		return len(snap.Expanding) == 0 && snap.Badges[1] == "no new connections"
	}, time.Second, 5*time.Millisecond)

	assert.Len(t, st.Config().Nodes, 3)
}

func TestExpandRequestForUnknownNodeIsIgnored(t *testing.T) {
	st, v, _ := newTestViz(t, &fakeExecutor{})

	received := 0
	sub := st.Subscribe(store.EventNodeExpansionRequest, func(store.Event) { received++ })
	defer sub.Cancel()

	v.HandleExpandRequest(99, "", "", nil)
	assert.Equal(t, 0, received)
}

func TestConfigChangeKeepsSelectionOverStaleEvent(t *testing.T) {
	st, v, _ := newTestViz(t, &fakeExecutor{})

	v.HandleNodeClick(1)
	require.NotNil(t, st.Config().SelectedObject)

	// An event built before the selection landed carries no selection; the
	// handler must resolve highlight state from the store, not the event.
	stale := newVizConfig(t)
	v.onConfigChange(store.Event{
		Type:   store.EventConfigChange,
		Config: stale,
		Delta:  &store.Delta{},
	})

	snap := v.State()
	require.NotNil(t, snap.SelectedNode)
	assert.Equal(t, int64(1), snap.SelectedNode.ID)
}

func TestSchemaViewRendersSchemaElements(t *testing.T) {
	cfg, err := graph.NewConfig(graph.Payload{
		Nodes: []any{map[string]any{"id": 1, "label": "Person"}},
		Edges: []any{},
		Schema: map[string]any{
			"nodeTables": []any{
				map[string]any{"name": "Person", "labelNames": []any{"Person"}},
				map[string]any{"name": "City", "labelNames": []any{"City"}},
			},
			"edgeTables": []any{
				map[string]any{
					"name":                 "LivesIn",
					"labelNames":           []any{"LIVES_IN"},
					"sourceNodeTable":      map[string]any{"nodeTableName": "Person"},
					"destinationNodeTable": map[string]any{"nodeTableName": "City"},
				},
			},
		},
	}, graph.NewColorLedger(nil, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	st, err := store.New(cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	surf := &fakeSurface{}
	v, err := New(st, surf, &fakeExecutor{}, DefaultOptions(), zap.NewNop(), nil)
	require.NoError(t, err)
	defer v.Close()

	st.SetViewMode(graph.ViewModeSchema)

	frame := surf.last(t)
	assert.Equal(t, graph.ViewModeSchema, frame.ViewMode)
	assert.Len(t, frame.Nodes, 2)
	assert.Len(t, frame.Edges, 1)
}
