package viz

import (
	"graphlens/domain/graph"
)

// Curvature constants. Self-loops bow across a fixed positive range;
// parallel edges between distinct nodes fan out symmetrically around the
// straight line.
const (
	selfLoopCurvatureMin = 0.5
	selfLoopCurvatureMax = 1.5
	maxPairCurvature     = 0.5
)

// ComputeCurvatures assigns a curvature to every edge so parallel edges and
// self-loops render without overlapping. Edges are grouped by canonical
// unordered node-pair key; within a group, self-loops get values evenly
// spaced across the loop range, and multi-edges get values evenly spaced
// across a symmetric range centered at zero, with the sign flipped for
// edges running opposite to the group's first edge.
func ComputeCurvatures(edges []*graph.Edge) map[*graph.Edge]float64 {
	out := make(map[*graph.Edge]float64, len(edges))

	groups := make(map[string][]*graph.Edge)
	var order []string
	for _, e := range edges {
		key := e.NodePairID()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	for _, key := range order {
		group := groups[key]
		n := len(group)

		if group[0].IsLoop() {
			span := selfLoopCurvatureMax - selfLoopCurvatureMin
			for i, e := range group {
				if n == 1 {
					out[e] = selfLoopCurvatureMin
					continue
				}
				out[e] = selfLoopCurvatureMin + span*float64(i)/float64(n-1)
			}
			continue
		}

		if n == 1 {
			out[group[0]] = 0
			continue
		}

		first := group[0]
		for i, e := range group {
			c := -maxPairCurvature + 2*maxPairCurvature*float64(i)/float64(n-1)
			if e.Source != first.Source {
				c = -c
			}
			out[e] = c
		}
	}

	return out
}
