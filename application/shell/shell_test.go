package shell

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"graphlens/application/ports"
	"graphlens/application/viz"
)

type fakeSurface struct {
	mu     sync.Mutex
	frames int
	errs   []string
}

func (f *fakeSurface) PushFrame(viz.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames++
}

func (f *fakeSurface) ShowError(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, message)
}

func (f *fakeSurface) errorCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errs)
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

func graphResponse() *ports.QueryResponse {
	return &ports.QueryResponse{
		Nodes: []any{
			map[string]any{"id": 1, "label": "Person"},
			map[string]any{"id": 2, "label": "City"},
		},
		Edges: []any{
			map[string]any{"source": 1, "target": 2, "label": "LIVES_IN"},
		},
	}
}

func newTestSession(t *testing.T, exec ports.QueryExecutor) (*Session, *fakeSurface) {
	t.Helper()

	surf := &fakeSurface{}
	s, err := NewSession(surf, exec, nil, DefaultSessionOptions(), zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, surf
}

func TestNewSessionRequiresCollaborators(t *testing.T) {
	_, err := NewSession(nil, &fakeExecutor{}, nil, DefaultSessionOptions(), nil, nil)
	assert.Error(t, err)

	_, err = NewSession(&fakeSurface{}, nil, nil, DefaultSessionOptions(), nil, nil)
	assert.Error(t, err)
}

func TestRunQueryReplacesGraph(t *testing.T) {
	s, _ := newTestSession(t, &fakeExecutor{resp: graphResponse()})

	require.NoError(t, s.RunQuery(context.Background(), "MATCH (n) RETURN n", nil))

	cfg := s.Store().Config()
	assert.Len(t, cfg.Nodes, 2)
	assert.Len(t, cfg.Edges, 1)
}

func TestRunQueryKeepsColorsAcrossReplacements(t *testing.T) {
	s, _ := newTestSession(t, &fakeExecutor{resp: graphResponse()})
	ctx := context.Background()

	require.NoError(t, s.RunQuery(ctx, "first", nil))
	first := s.Store().Config().NodeColors["Person"]
	require.NotEmpty(t, first)

	require.NoError(t, s.RunQuery(ctx, "second", nil))
	assert.Equal(t, first, s.Store().Config().NodeColors["Person"])
}

func TestRunQueryAppliesNodePropertyOverlay(t *testing.T) {
	resp := &ports.QueryResponse{
		Nodes: []any{
			map[string]any{"id": 1, "label": "Person", "key_property_names": []any{"name"}},
		},
		Edges: []any{},
		NodeProperties: map[string]map[string]any{
			"1":    {"name": "Ada"},
			"junk": {"name": "dropped"},
			"99":   {"name": "unknown id"},
		},
	}
	s, _ := newTestSession(t, &fakeExecutor{resp: resp})

	require.NoError(t, s.RunQuery(context.Background(), "MATCH (n) RETURN n", nil))

	n, ok := s.Store().Config().NodeByID(1)
	require.True(t, ok)
	assert.Equal(t, "Ada", n.Properties["name"])
	assert.Equal(t, "Ada", n.DisplayName())
}

func TestRunQueryRejectsEmptyQuery(t *testing.T) {
	s, _ := newTestSession(t, &fakeExecutor{resp: graphResponse()})
	assert.Error(t, s.RunQuery(context.Background(), "", nil))
}

func TestRunQuerySurfacesExecutionErrors(t *testing.T) {
	s, surf := newTestSession(t, &fakeExecutor{err: errors.New("backend down")})

	err := s.RunQuery(context.Background(), "MATCH (n) RETURN n", nil)
	assert.Error(t, err)
	assert.Equal(t, 1, surf.errorCount())

	// The empty graph stays in place on failure.
	assert.Empty(t, s.Store().Config().Nodes)
}

func TestRunQuerySurfacesMalformedResponses(t *testing.T) {
	s, surf := newTestSession(t, &fakeExecutor{resp: &ports.QueryResponse{
		Nodes: "not a sequence",
	}})

	assert.Error(t, s.RunQuery(context.Background(), "q", nil))
	assert.Equal(t, 1, surf.errorCount())
}

func TestRunQueryToleratesAbsentGraphFields(t *testing.T) {
	s, _ := newTestSession(t, &fakeExecutor{resp: &ports.QueryResponse{
		Rows: []any{map[string]any{"count": 7}},
	}})

	require.NoError(t, s.RunQuery(context.Background(), "q", nil))
	assert.Empty(t, s.Store().Config().Nodes)
	assert.Len(t, s.Store().Config().RowsData, 1)
}

func TestRequestExpansionThrottles(t *testing.T) {
	exec := &fakeExecutor{resp: graphResponse()}
	surf := &fakeSurface{}

	opts := DefaultSessionOptions()
	opts.ExpansionRate = rate.Limit(0)
	opts.ExpansionBurst = 1

	s, err := NewSession(surf, exec, nil, opts, zap.NewNop(), nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RunQuery(context.Background(), "q", nil))

	assert.NoError(t, s.RequestExpansion(1, "", "", nil))
	assert.Error(t, s.RequestExpansion(1, "", "", nil))
	assert.Equal(t, 1, surf.errorCount())
}

func TestManagerLifecycle(t *testing.T) {
	m, err := NewManager(&fakeExecutor{}, nil, DefaultSessionOptions(), zap.NewNop(), nil)
	require.NoError(t, err)

	s, err := m.Create(&fakeSurface{})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = m.Get("nope")
	assert.Error(t, err)

	m.Remove(s.ID)
	assert.Equal(t, 0, m.Len())
	m.Remove(s.ID) // second remove is harmless
}

func TestManagerSweepEvictsIdleSessions(t *testing.T) {
	m, err := NewManager(&fakeExecutor{}, nil, DefaultSessionOptions(), zap.NewNop(), nil)
	require.NoError(t, err)
	m.IdleTTL = time.Minute

	idle, err := m.Create(&fakeSurface{})
	require.NoError(t, err)
	active, err := m.Create(&fakeSurface{})
	require.NoError(t, err)

	idle.mu.Lock()
	idle.lastActive = time.Now().Add(-2 * time.Minute)
	idle.mu.Unlock()

	evicted := m.Sweep(time.Now())
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, m.Len())

	_, err = m.Get(active.ID)
	assert.NoError(t, err)
}

func TestManagerCloseAll(t *testing.T) {
	m, err := NewManager(&fakeExecutor{}, nil, DefaultSessionOptions(), zap.NewNop(), nil)
	require.NoError(t, err)

	_, err = m.Create(&fakeSurface{})
	require.NoError(t, err)
	_, err = m.Create(&fakeSurface{})
	require.NoError(t, err)

	m.CloseAll()
	assert.Equal(t, 0, m.Len())
}
