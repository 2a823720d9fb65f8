package viz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every highlight state leaves most typed fields nil; anchor building must
// tolerate each combination without touching the nil elements.
func TestBuildTooltipAnchorsPartialHighlightStates(t *testing.T) {
	cfg := newVizConfig(t)
	n1, ok := cfg.NodeByID(1)
	require.True(t, ok)
	e12 := cfg.Edges[0]

	tests := []struct {
		name string
		h    highlightState
		want int
	}{
		{"idle", highlightState{}, 0},
		{"focused node only", highlightState{focusedNode: n1}, 1},
		{"focused edge only", highlightState{focusedEdge: e12}, 1},
		{"selected edge only", highlightState{selectedEdge: e12}, 1},
		{"selected node with neighborhood", highlightState{selectedNode: n1}, 2},
		{"focused edge over selected node", highlightState{focusedEdge: e12, selectedNode: n1}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anchors := buildTooltipAnchors(cfg, tt.h)
			assert.Len(t, anchors, tt.want)
		})
	}
}

func TestBuildTooltipAnchorsDeduplicates(t *testing.T) {
	cfg := newVizConfig(t)
	n1, ok := cfg.NodeByID(1)
	require.True(t, ok)

	anchors := buildTooltipAnchors(cfg, highlightState{focusedNode: n1, selectedNode: n1})

	// Node 1 appears once even though it is both focused and selected.
	assert.Len(t, anchors, 2)
}
