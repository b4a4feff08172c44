package species

import (
	"math"
	"math/rand"

	"github.com/zachbeta/neuroevo/internal/activation"
	"github.com/zachbeta/neuroevo/internal/genome"
	"github.com/zachbeta/neuroevo/internal/topology"
)

// Fixed clamps for diversification's structural perturbations. These are
// spec constants, not configuration: a hidden row always stays within
// [2, 16] nodes and max_in_degree always stays within [4, 12], regardless
// of EvolutionConfig.
const (
	minHiddenRowSize = 2
	maxHiddenRowSize = 16
	minInDegree      = 4
	maxInDegree      = 12
)

// DiversifyConfig sizes the replacement colony built when a culled
// species is replaced. The structural perturbation bounds are the fixed
// consts above, not fields of this struct.
type DiversifyConfig struct {
	IndividualsPerSpecies int
}

// topTwoByMedian returns the indices of the top-2 colonies by median
// fitness. If fewer than two colonies are given, the single available
// index is returned twice.
func topTwoByMedian(colonies []*Colony) (int, int) {
	first, second := -1, -1
	for i, c := range colonies {
		if first == -1 || c.Stats.MedianFitness > colonies[first].Stats.MedianFitness {
			second = first
			first = i
		} else if second == -1 || c.Stats.MedianFitness > colonies[second].Stats.MedianFitness {
			second = i
		}
	}
	if second == -1 {
		second = first
	}
	return first, second
}

// Diversify builds a replacement Colony for a freshly culled species. It
// picks one of the top-2 colonies by median fitness as the topology
// donor, clones and structurally perturbs the donor's topology, then
// repopulates individuals from the donor, inheriting weights for edges
// and nodes that survive unchanged and Glorot/random-initializing
// whatever is new.
func Diversify(colonies []*Colony, specs []*topology.Spec, cfg DiversifyConfig, rng *rand.Rand) (*topology.Spec, *Colony) {
	first, second := topTwoByMedian(colonies)
	donorIdx := first
	if rng.Intn(2) == 1 {
		donorIdx = second
	}
	donorSpec := specs[donorIdx]
	donorColony := colonies[donorIdx]

	newSpec := donorSpec.Clone()
	perturbTopology(newSpec, rng)

	individuals := make([]*genome.Individual, cfg.IndividualsPerSpecies)
	structurallyIdentical := sameStructure(donorSpec, newSpec)
	for i := range individuals {
		if structurallyIdentical {
			donor := donorColony.Individuals[i%len(donorColony.Individuals)]
			individuals[i] = donor.Clone()
			continue
		}
		donor := donorColony.Individuals[i%len(donorColony.Individuals)]
		individuals[i] = inherit(donorSpec, donor, newSpec, rng)
	}

	return newSpec, &Colony{Individuals: individuals, Age: 0, Stats: NewStats()}
}

func sameStructure(a, b *topology.Spec) bool {
	if len(a.RowCounts) != len(b.RowCounts) || len(a.Edges) != len(b.Edges) {
		return false
	}
	for i := range a.RowCounts {
		if a.RowCounts[i] != b.RowCounts[i] {
			return false
		}
	}
	return true
}

// perturbTopology resizes each hidden row by a random delta in
// {-2,-1,0,1,2} clamped to [min,max], flips 1-3 random allowed-activation
// bits (refusing empty-mask results), shifts max_in_degree by {-1,0,1}
// clamped to [min,max], and recompiles row plans.
func perturbTopology(spec *topology.Spec, rng *rand.Rand) {
	for r := 2; r < len(spec.RowPlans)-1; r++ {
		delta := rng.Intn(5) - 2
		spec.ResizeHiddenRow(r, delta, minHiddenRowSize, maxHiddenRowSize)
	}

	hiddenRows := len(spec.RowPlans) - 3 // excludes bias row, input row, output row
	if hiddenRows > 0 {
		flips := 1 + rng.Intn(3)
		for i := 0; i < flips; i++ {
			r := 2 + rng.Intn(hiddenRows)
			t := activation.Tag(rng.Intn(activation.NumTags))
			spec.FlipActivationBit(r, t)
		}
	}

	delta := rng.Intn(3) - 1
	spec.SetMaxInDegree(spec.MaxInDegree+delta, minInDegree, maxInDegree)
	spec.Compile()
}

// inherit builds a fresh individual sized to newSpec: for every edge
// present (by source+destination) in both oldSpec and newSpec, the
// parent's weight is copied; for every new edge, Glorot-initialized. For
// every node present in both, the parent's activation tag and
// parameters are copied; for every new node, a random allowed activation
// and default parameters are assigned.
func inherit(oldSpec *topology.Spec, parent *genome.Individual, newSpec *topology.Spec, rng *rand.Rand) *genome.Individual {
	oldEdgeWeight := make(map[topology.Edge]float64, len(oldSpec.Edges))
	for i, e := range oldSpec.Edges {
		oldEdgeWeight[e] = parent.Weights[i]
	}

	fanIn := make([]int, newSpec.TotalNodes)
	fanOut := make([]int, newSpec.TotalNodes)
	for _, e := range newSpec.Edges {
		fanOut[e.Source]++
		fanIn[e.Destination]++
	}

	child := &genome.Individual{
		Weights:     make([]float64, len(newSpec.Edges)),
		Activations: make([]activation.Tag, newSpec.TotalNodes),
		NodeParams:  make([]float64, newSpec.TotalNodes*4),
	}
	for i, e := range newSpec.Edges {
		if w, ok := oldEdgeWeight[e]; ok {
			child.Weights[i] = w
		} else {
			child.Weights[i] = glorotLike(rng, fanIn[e.Destination], fanOut[e.Source])
		}
	}

	oldNodeCount := oldSpec.TotalNodes
	for n := 0; n < newSpec.TotalNodes; n++ {
		row := newSpec.NodeRowOf(n)
		if n < oldNodeCount && oldSpec.NodeRowOf(n) == row {
			child.Activations[n] = parent.Activations[n]
			copy(child.NodeParams[n*4:(n+1)*4], parent.NodeParamSlots(n))
			continue
		}
		tag := activation.RandomAllowed(newSpec.AllowedActivations[row], rng)
		child.Activations[n] = tag
		params := activation.DefaultParams(tag)
		copy(child.NodeParams[n*4:(n+1)*4], params[:])
	}
	return child
}

func glorotLike(rng *rand.Rand, fanIn, fanOut int) float64 {
	denom := fanIn + fanOut
	if denom <= 0 {
		denom = 1
	}
	limit := math.Sqrt(6.0 / float64(denom))
	return (rng.Float64()*2 - 1) * limit
}
