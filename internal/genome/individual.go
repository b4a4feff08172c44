// Package genome defines Individual, the per-candidate parameter set
// (weights, activation choices, activation parameters, fitness, age)
// evaluated against a shared Species topology.
package genome

import (
	"math"
	"math/rand"

	"github.com/zachbeta/neuroevo/internal/activation"
	"github.com/zachbeta/neuroevo/internal/topology"
)

const paramSlotsPerNode = 4

// Individual is one candidate solution: weights parallel to the owning
// topology's edge list, and an activation tag and parameter block per node.
// Per-node biases are NOT a separate array: they are realized as the
// weights of edges sourced from the bias node (row 0, node 0), so the
// weight jitter/reset/shrink operators apply to them automatically and
// BiasEdgeIndices is the only extra bookkeeping required (see DESIGN.md's
// resolution of the spec's bias-storage Open Question).
type Individual struct {
	Weights     []float64
	Activations []activation.Tag
	NodeParams  []float64 // len == totalNodes * paramSlotsPerNode
	Fitness     float64
	Age         int
}

// New initializes a random individual for spec: Glorot-uniform weights
// (which includes the bias-node edges), a random allowed activation per
// node with default parameters.
func New(spec *topology.Spec, rng *rand.Rand) *Individual {
	ind := &Individual{
		Weights:     make([]float64, len(spec.Edges)),
		Activations: make([]activation.Tag, spec.TotalNodes),
		NodeParams:  make([]float64, spec.TotalNodes*paramSlotsPerNode),
	}

	fanIn := make([]int, spec.TotalNodes)
	fanOut := make([]int, spec.TotalNodes)
	for _, e := range spec.Edges {
		fanOut[e.Source]++
		fanIn[e.Destination]++
	}
	for i, e := range spec.Edges {
		ind.Weights[i] = glorotSample(rng, fanIn[e.Destination], fanOut[e.Source])
	}

	for n := 0; n < spec.TotalNodes; n++ {
		row := spec.NodeRowOf(n)
		tag := activation.RandomAllowed(spec.AllowedActivations[row], rng)
		ind.Activations[n] = tag
		params := activation.DefaultParams(tag)
		copy(ind.NodeParams[n*paramSlotsPerNode:(n+1)*paramSlotsPerNode], params[:])
	}
	return ind
}

// BiasNode is the single node of row 0, whose value is always 1.0.
const BiasNode = 0

// BiasEdgeIndices returns the indices into spec.Edges (and therefore into
// any individual's Weights) whose source is the bias node.
func BiasEdgeIndices(spec *topology.Spec) []int {
	var out []int
	for i, e := range spec.Edges {
		if e.Source == BiasNode {
			out = append(out, i)
		}
	}
	return out
}

// glorotSample draws U(-limit, limit) with limit = sqrt(6/(fanIn+fanOut)).
func glorotSample(rng *rand.Rand, fanIn, fanOut int) float64 {
	denom := fanIn + fanOut
	if denom <= 0 {
		denom = 1
	}
	limit := math.Sqrt(6.0 / float64(denom))
	return (rng.Float64()*2 - 1) * limit
}

// Clone deep-copies the individual.
func (ind *Individual) Clone() *Individual {
	return &Individual{
		Weights:     append([]float64(nil), ind.Weights...),
		Activations: append([]activation.Tag(nil), ind.Activations...),
		NodeParams:  append([]float64(nil), ind.NodeParams...),
		Fitness:     ind.Fitness,
		Age:         ind.Age,
	}
}

// NodeParamSlots returns node n's 4-slot parameter block.
func (ind *Individual) NodeParamSlots(n int) []float64 {
	return ind.NodeParams[n*paramSlotsPerNode : (n+1)*paramSlotsPerNode]
}

// NodeParamArray returns node n's parameter block copied into a fixed-size
// array, the shape activation.Apply expects.
func (ind *Individual) NodeParamArray(n int) [4]float64 {
	var arr [4]float64
	copy(arr[:], ind.NodeParamSlots(n))
	return arr
}
