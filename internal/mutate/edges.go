package mutate

import (
	"math"
	"math/rand"
	"sort"

	"github.com/zachbeta/neuroevo/internal/genome"
	"github.com/zachbeta/neuroevo/internal/topology"
)

// EdgeRates holds the per-species trigger probabilities for the edge
// topology operators plus the weak-edge-pruning configuration.
type EdgeRates struct {
	EdgeAdd          float64
	EdgeDeleteRandom float64
	EdgeSplit        float64
	EdgeRedirect     float64
	EdgeSwap         float64

	WeakEdgePruning WeakEdgePruningRates
}

// WeakEdgePruningRates configures the mean-|weight|-based pruning pass.
type WeakEdgePruningRates struct {
	Enabled               bool
	Threshold             float64
	BaseRate              float64
	ApplyDuringEvolution bool
}

// splitWeight is the small magnitude assigned to the four new edges
// wired in by SplitSmart so the network's behavior is approximately
// unchanged immediately after the split.
const splitWeight = 0.01

// insertEdgeAcrossSpecies inserts e into spec and opens a matching weight
// slot in every individual in lockstep, maintaining the weight-slot
// bookkeeping invariant.
func insertEdgeAcrossSpecies(spec *topology.Spec, individuals []*genome.Individual, e topology.Edge, weight float64) {
	spec.InsertEdge(e)
	// Compile re-sorts the edge list; the new edge is the last occurrence of
	// e, so the weight slot is opened at that index rather than at the end.
	pos := len(spec.Edges) - 1
	for pos > 0 && spec.Edges[pos] != e {
		pos--
	}
	for _, ind := range individuals {
		ind.Weights = append(ind.Weights, 0)
		copy(ind.Weights[pos+1:], ind.Weights[pos:])
		ind.Weights[pos] = weight
	}
}

// removeEdgeAcrossSpecies removes the edge at idx from spec and drops the
// matching weight slot from every individual in lockstep.
func removeEdgeAcrossSpecies(spec *topology.Spec, individuals []*genome.Individual, idx int) {
	spec.RemoveEdge(idx)
	for _, ind := range individuals {
		ind.Weights = append(ind.Weights[:idx:idx], ind.Weights[idx+1:]...)
	}
}

// glorot samples a Glorot-uniform weight for an edge with the given
// fan-in/fan-out, mirroring genome.New's initialization.
func glorot(rng *rand.Rand, fanIn, fanOut int) float64 {
	denom := fanIn + fanOut
	if denom <= 0 {
		denom = 1
	}
	limit := math.Sqrt(6.0 / float64(denom))
	return (rng.Float64()*2 - 1) * limit
}

// AddEdge chooses a destination row uniformly from rows >= 2, then a
// destination node uniformly in that row, and rejects if it is already
// at the in-degree cap. It enumerates candidate sources from all earlier
// rows, shuffles them, and inserts the first pair not already present.
// Returns false if no legal edge could be added.
func AddEdge(spec *topology.Spec, individuals []*genome.Individual, rng *rand.Rand) bool {
	if len(spec.RowPlans) < 3 {
		return false
	}
	destRow := 2 + rng.Intn(len(spec.RowPlans)-2)
	rp := spec.RowPlans[destRow]
	if rp.NodeCount == 0 {
		return false
	}
	dest := rp.NodeStart + rng.Intn(rp.NodeCount)
	if spec.InDegree(dest) >= spec.MaxInDegree {
		return false
	}

	var candidates []int
	for r := 0; r < destRow; r++ {
		srp := spec.RowPlans[r]
		for n := srp.NodeStart; n < srp.NodeStart+srp.NodeCount; n++ {
			candidates = append(candidates, n)
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	existing := make(map[topology.Edge]bool, len(spec.Edges))
	for _, e := range spec.Edges {
		existing[e] = true
	}

	for _, src := range candidates {
		e := topology.Edge{Source: src, Destination: dest}
		if existing[e] {
			continue
		}
		fanIn := spec.InDegree(dest) + 1
		fanOut := countFanOut(spec, src) + 1
		insertEdgeAcrossSpecies(spec, individuals, e, glorot(rng, fanIn, fanOut))
		return true
	}
	return false
}

func countFanOut(spec *topology.Spec, source int) int {
	n := 0
	for _, e := range spec.Edges {
		if e.Source == source {
			n++
		}
	}
	return n
}

// DeleteRandomEdge samples up to 10 random edges and deletes the first
// one for which CanDeleteEdge holds. Returns false if none qualified.
func DeleteRandomEdge(spec *topology.Spec, individuals []*genome.Individual, rng *rand.Rand) bool {
	if len(spec.Edges) == 0 {
		return false
	}
	for attempt := 0; attempt < 10; attempt++ {
		idx := rng.Intn(len(spec.Edges))
		if topology.CanDeleteEdge(spec, idx) {
			removeEdgeAcrossSpecies(spec, individuals, idx)
			return true
		}
	}
	return false
}

// SplitEdge picks a random edge whose endpoints span at least two rows,
// chooses an intermediate row between them, picks a node there with
// in-degree headroom, and replaces the edge with two edges passing
// through that node.
func SplitEdge(spec *topology.Spec, individuals []*genome.Individual, rng *rand.Rand) bool {
	candidates := splittableEdgeIndices(spec)
	if len(candidates) == 0 {
		return false
	}
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	for _, idx := range candidates {
		e := spec.Edges[idx]
		srcRow := spec.NodeRowOf(e.Source)
		dstRow := spec.NodeRowOf(e.Destination)
		mid, ok := pickIntermediateNode(spec, srcRow, dstRow, rng, func(int) bool { return true })
		if !ok {
			continue
		}
		weight := glorot(rng, 1, 1)
		performSplit(spec, individuals, idx, e, mid, weight, weight)
		return true
	}
	return false
}

// SplitSmart behaves like SplitEdge but restricts the intermediate node
// to one currently inactive (off every input->output path) with room for
// two extra edges, and additionally wires in one extra edge from an
// active source above the intermediate row and one extra edge to an
// active sink below it; each of those two extra edges is added only when
// its destination still has in-degree headroom. All new edges get a small
// initial weight so the network's behavior is approximately unchanged
// immediately after the split.
func SplitSmart(spec *topology.Spec, individuals []*genome.Individual, rng *rand.Rand) bool {
	active := topology.ActiveNodes(spec)
	candidates := splittableEdgeIndices(spec)
	if len(candidates) == 0 {
		return false
	}
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	for _, idx := range candidates {
		e := spec.Edges[idx]
		srcRow := spec.NodeRowOf(e.Source)
		dstRow := spec.NodeRowOf(e.Destination)
		mid, ok := pickIntermediateNode(spec, srcRow, dstRow, rng, func(n int) bool {
			return !active.Test(uint(n)) && spec.InDegree(n)+2 <= spec.MaxInDegree
		})
		if !ok {
			continue
		}
		midRow := spec.NodeRowOf(mid)

		activeSource, hasSource := pickActiveNode(spec, active, 0, midRow, rng)
		activeSink, hasSink := pickActiveNode(spec, active, midRow+1, len(spec.RowPlans), rng)
		if !hasSource || !hasSink {
			continue
		}

		performSplit(spec, individuals, idx, e, mid, splitWeight, splitWeight)
		if spec.InDegree(mid) < spec.MaxInDegree {
			insertEdgeAcrossSpecies(spec, individuals, topology.Edge{Source: activeSource, Destination: mid}, splitWeight)
		}
		if spec.InDegree(activeSink) < spec.MaxInDegree {
			insertEdgeAcrossSpecies(spec, individuals, topology.Edge{Source: mid, Destination: activeSink}, splitWeight)
		}
		return true
	}
	return false
}

func splittableEdgeIndices(spec *topology.Spec) []int {
	var out []int
	for i, e := range spec.Edges {
		if spec.NodeRowOf(e.Destination)-spec.NodeRowOf(e.Source) >= 2 {
			out = append(out, i)
		}
	}
	return out
}

func pickIntermediateNode(spec *topology.Spec, srcRow, dstRow int, rng *rand.Rand, accept func(int) bool) (int, bool) {
	rows := make([]int, 0, dstRow-srcRow-1)
	for r := srcRow + 1; r < dstRow; r++ {
		rows = append(rows, r)
	}
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	for _, r := range rows {
		rp := spec.RowPlans[r]
		nodes := make([]int, rp.NodeCount)
		for i := range nodes {
			nodes[i] = rp.NodeStart + i
		}
		rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
		for _, n := range nodes {
			if spec.InDegree(n) < spec.MaxInDegree && accept(n) {
				return n, true
			}
		}
	}
	return 0, false
}

func pickActiveNode(spec *topology.Spec, active interface{ Test(uint) bool }, rowStart, rowEnd int, rng *rand.Rand) (int, bool) {
	var nodes []int
	for r := rowStart; r < rowEnd && r < len(spec.RowPlans); r++ {
		rp := spec.RowPlans[r]
		for n := rp.NodeStart; n < rp.NodeStart+rp.NodeCount; n++ {
			if active.Test(uint(n)) {
				nodes = append(nodes, n)
			}
		}
	}
	if len(nodes) == 0 {
		return 0, false
	}
	return nodes[rng.Intn(len(nodes))], true
}

// performSplit replaces the edge at idx with source->mid and mid->dest,
// in that order: idx's weight slot is removed and each new edge's slot is
// opened at the index Compile sorts that edge to.
func performSplit(spec *topology.Spec, individuals []*genome.Individual, idx int, original topology.Edge, mid int, wIn, wOut float64) {
	removeEdgeAcrossSpecies(spec, individuals, idx)
	insertEdgeAcrossSpecies(spec, individuals, topology.Edge{Source: original.Source, Destination: mid}, wIn)
	insertEdgeAcrossSpecies(spec, individuals, topology.Edge{Source: mid, Destination: original.Destination}, wOut)
}

// Redirect picks a random edge and either rewires its source to a
// different earlier-row node (no duplicates) or rewires its destination
// to a different later-row node with in-degree headroom, chosen by a
// coin flip.
func Redirect(spec *topology.Spec, rng *rand.Rand) bool {
	if len(spec.Edges) == 0 {
		return false
	}
	idx := rng.Intn(len(spec.Edges))
	e := spec.Edges[idx]

	existing := make(map[topology.Edge]bool, len(spec.Edges))
	for _, other := range spec.Edges {
		existing[other] = true
	}

	if rng.Float64() < 0.5 {
		destRow := spec.NodeRowOf(e.Destination)
		var sources []int
		for r := 0; r < destRow; r++ {
			rp := spec.RowPlans[r]
			for n := rp.NodeStart; n < rp.NodeStart+rp.NodeCount; n++ {
				if n == e.Source {
					continue
				}
				if !existing[topology.Edge{Source: n, Destination: e.Destination}] {
					sources = append(sources, n)
				}
			}
		}
		if len(sources) == 0 {
			return false
		}
		spec.Edges[idx].Source = sources[rng.Intn(len(sources))]
		spec.Compile()
		return true
	}

	srcRow := spec.NodeRowOf(e.Source)
	var dests []int
	for r := srcRow + 1; r < len(spec.RowPlans); r++ {
		rp := spec.RowPlans[r]
		for n := rp.NodeStart; n < rp.NodeStart+rp.NodeCount; n++ {
			if n == e.Destination {
				continue
			}
			if spec.InDegree(n) >= spec.MaxInDegree {
				continue
			}
			if !existing[topology.Edge{Source: e.Source, Destination: n}] {
				dests = append(dests, n)
			}
		}
	}
	if len(dests) == 0 {
		return false
	}
	spec.Edges[idx].Destination = dests[rng.Intn(len(dests))]
	spec.Compile()
	return true
}

// Swap picks two distinct edges and swaps their destinations iff doing
// so preserves layering and does not create a duplicate or an in-degree
// overflow.
func Swap(spec *topology.Spec, rng *rand.Rand) bool {
	if len(spec.Edges) < 2 {
		return false
	}
	i := rng.Intn(len(spec.Edges))
	j := rng.Intn(len(spec.Edges) - 1)
	if j >= i {
		j++
	}

	a, b := spec.Edges[i], spec.Edges[j]
	if spec.NodeRowOf(a.Source) >= spec.NodeRowOf(b.Destination) || spec.NodeRowOf(b.Source) >= spec.NodeRowOf(a.Destination) {
		return false
	}
	newA := topology.Edge{Source: a.Source, Destination: b.Destination}
	newB := topology.Edge{Source: b.Source, Destination: a.Destination}
	for k, e := range spec.Edges {
		if k == i || k == j {
			continue
		}
		if e == newA || e == newB {
			return false
		}
	}
	// Swapping destinations never changes either destination's in-degree
	// count (each keeps exactly one incoming edge from the pair, just from
	// a different source), so no in-degree recheck is needed here.
	spec.Edges[i].Destination, spec.Edges[j].Destination = b.Destination, a.Destination
	spec.Compile()
	return true
}

// PruneWeakEdges computes the mean |weight| for each edge across
// individuals, and for every edge whose mean falls below rates.Threshold
// probabilistically deletes it (subject to CanDeleteEdge) with
// p = min(BaseRate * (1 - mean/threshold), 0.9). Deletions happen in
// descending index order so earlier indices stay valid; row plans are
// rebuilt once at the end. Returns the number of edges removed.
func PruneWeakEdges(spec *topology.Spec, individuals []*genome.Individual, rates WeakEdgePruningRates, rng *rand.Rand) int {
	if !rates.Enabled || len(individuals) == 0 {
		return 0
	}
	toRemove := make([]int, 0)
	for i := range spec.Edges {
		var sum float64
		for _, ind := range individuals {
			sum += absf(ind.Weights[i])
		}
		mean := sum / float64(len(individuals))
		if mean >= rates.Threshold {
			continue
		}
		p := rates.BaseRate * (1 - mean/rates.Threshold)
		if p > 0.9 {
			p = 0.9
		}
		if rng.Float64() < p && topology.CanDeleteEdge(spec, i) {
			toRemove = append(toRemove, i)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(toRemove)))
	for _, idx := range toRemove {
		spec.Edges = append(spec.Edges[:idx:idx], spec.Edges[idx+1:]...)
		for _, ind := range individuals {
			ind.Weights = append(ind.Weights[:idx:idx], ind.Weights[idx+1:]...)
		}
	}
	if len(toRemove) > 0 {
		spec.Compile()
	}
	return len(toRemove)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
