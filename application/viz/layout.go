package viz

import (
	"math"

	"graphlens/domain/graph"
)

// SimulationParams bounds the physical layout loop. The simulation runs on
// an animation-frame cadence until either cooldown condition halts it.
type SimulationParams struct {
	CooldownTicks  int `json:"cooldown_ticks"`
	CooldownTimeMs int `json:"cooldown_time_ms"`
	WarmupTicks    int `json:"warmup_ticks"`
}

// DefaultSimulationParams returns the stock cooldown configuration.
func DefaultSimulationParams() SimulationParams {
	return SimulationParams{
		CooldownTicks:  100,
		CooldownTimeMs: 15000,
		WarmupTicks:    0,
	}
}

const (
	linkDistanceScale  = 15.0
	sameClusterFactor  = 0.5
	crossClusterFactor = 0.8
)

// LinkDistance returns the desired rest length of one edge. The base
// distance grows with the log of the node count; under force-directed
// layout, same-cluster pairs pull closer and cross-cluster pairs push
// apart, producing visual clustering by neighborhood.
func LinkDistance(nodeCount int, sameCluster bool, layout graph.LayoutMode) float64 {
	if nodeCount < 1 {
		nodeCount = 1
	}

	base := math.Log10(float64(nodeCount)) * linkDistanceScale

	if layout != graph.LayoutModeForce {
		return base
	}

	if sameCluster {
		return base * sameClusterFactor
	}
	return base * crossClusterFactor
}

// edgeLinkDistance resolves the cluster relation of an edge's endpoints.
func edgeLinkDistance(cfg *graph.Config, e *graph.Edge) float64 {
	src, okSrc := cfg.NodeByID(e.Source)
	dst, okDst := cfg.NodeByID(e.Target)

	same := okSrc && okDst && src.Neighborhood == dst.Neighborhood
	return LinkDistance(len(cfg.Nodes), same, cfg.LayoutMode)
}
