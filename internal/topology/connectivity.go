package topology

import "github.com/bits-and-blooms/bitset"

// ReachableForward returns the set of nodes reachable from seeds by
// following edges forward (source -> destination).
func ReachableForward(spec *Spec, seeds []int) *bitset.BitSet {
	return bfs(spec, seeds, func(e Edge) (int, int) { return e.Source, e.Destination })
}

// ReachableBackward returns the set of nodes reachable from sinks by
// following edges backward (destination -> source).
func ReachableBackward(spec *Spec, sinks []int) *bitset.BitSet {
	return bfs(spec, sinks, func(e Edge) (int, int) { return e.Destination, e.Source })
}

func bfs(spec *Spec, start []int, step func(Edge) (from, to int)) *bitset.BitSet {
	visited := bitset.New(uint(spec.TotalNodes))
	queue := make([]int, 0, len(start))
	for _, s := range start {
		if !visited.Test(uint(s)) {
			visited.Set(uint(s))
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range spec.Edges {
			from, to := step(e)
			if from == n && !visited.Test(uint(to)) {
				visited.Set(uint(to))
				queue = append(queue, to)
			}
		}
	}
	return visited
}

// inputSeeds returns every node index in the input row (row 1).
func inputSeeds(spec *Spec) []int {
	rp := spec.RowPlans[1]
	seeds := make([]int, rp.NodeCount)
	for i := range seeds {
		seeds[i] = rp.NodeStart + i
	}
	return seeds
}

// outputSinks returns every node index in the output row.
func outputSinks(spec *Spec) []int {
	rp := spec.RowPlans[spec.OutputRow()]
	sinks := make([]int, rp.NodeCount)
	for i := range sinks {
		sinks[i] = rp.NodeStart + i
	}
	return sinks
}

// ActiveNodes returns the nodes lying on at least one input->output path:
// the intersection of forward-reachable-from-inputs and
// backward-reachable-from-outputs.
func ActiveNodes(spec *Spec) *bitset.BitSet {
	fwd := ReachableForward(spec, inputSeeds(spec))
	bwd := ReachableBackward(spec, outputSinks(spec))
	return fwd.Intersection(bwd)
}

// CanDeleteEdge reports whether removing the edge at edgeIdx would leave
// every output row node still forward-reachable from the input row.
func CanDeleteEdge(spec *Spec, edgeIdx int) bool {
	remaining := make([]Edge, 0, len(spec.Edges)-1)
	for i, e := range spec.Edges {
		if i != edgeIdx {
			remaining = append(remaining, e)
		}
	}
	probe := &Spec{
		RowCounts:          spec.RowCounts,
		AllowedActivations: spec.AllowedActivations,
		MaxInDegree:        spec.MaxInDegree,
		Edges:              remaining,
		RowPlans:           spec.RowPlans,
		TotalNodes:         spec.TotalNodes,
	}
	fwd := ReachableForward(probe, inputSeeds(probe))
	for _, sink := range outputSinks(probe) {
		if !fwd.Test(uint(sink)) {
			return false
		}
	}
	return true
}
