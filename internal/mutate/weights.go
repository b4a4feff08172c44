// Package mutate implements the weight-level and edge-topology mutation
// operators applied to offspring during a generation step.
package mutate

import (
	"math"
	"math/rand"

	"github.com/zachbeta/neuroevo/internal/activation"
	"github.com/zachbeta/neuroevo/internal/genome"
	"github.com/zachbeta/neuroevo/internal/topology"
)

// WeightRates holds the per-individual trigger probabilities and
// magnitudes for every weight-level operator. The config surface has no
// separate bias_jitter/bias_reset/bias_l1_shrink rates because bias
// storage is just the subset of Weights sourced from the bias node (see
// internal/genome): running these operators over the full Weights slice
// already mutates biases identically to ordinary weights, satisfying the
// "bias variants are identical to weight variants" requirement with no
// special-casing.
type WeightRates struct {
	JitterProbability float64
	JitterStddev      float64

	ResetProbability float64

	L1ShrinkProbability float64
	L1ShrinkFactor       float64

	ActivationSwapProbability float64

	NodeParamMutateProbability float64
	NodeParamStddev             float64
}

// JitterWeights adds Gaussian noise with σ = JitterStddev * |w| to every
// weight, gated by a single per-individual coin flip.
func JitterWeights(ind *genome.Individual, rates WeightRates, rng *rand.Rand) {
	if rng.Float64() >= rates.JitterProbability {
		return
	}
	for i, w := range ind.Weights {
		sigma := rates.JitterStddev * math.Abs(w)
		ind.Weights[i] = w + rng.NormFloat64()*sigma
	}
}

// ResetWeight replaces a single uniformly chosen weight with a sample
// from U(-1, 1), gated by a per-individual coin flip.
func ResetWeight(ind *genome.Individual, rates WeightRates, rng *rand.Rand) {
	if rng.Float64() >= rates.ResetProbability || len(ind.Weights) == 0 {
		return
	}
	idx := rng.Intn(len(ind.Weights))
	ind.Weights[idx] = rng.Float64()*2 - 1
}

// ShrinkWeights multiplies every weight by (1 - L1ShrinkFactor), gated by
// a per-individual coin flip.
func ShrinkWeights(ind *genome.Individual, rates WeightRates, rng *rand.Rand) {
	if rng.Float64() >= rates.L1ShrinkProbability {
		return
	}
	factor := 1 - rates.L1ShrinkFactor
	for i := range ind.Weights {
		ind.Weights[i] *= factor
	}
}

// SwapActivation picks a uniformly random non-bias node and replaces its
// activation with a uniformly chosen tag from its row's allowed mask,
// resetting the node's parameters to the new tag's defaults. Gated by a
// per-individual coin flip.
func SwapActivation(ind *genome.Individual, spec *topology.Spec, rates WeightRates, rng *rand.Rand) {
	if rng.Float64() >= rates.ActivationSwapProbability {
		return
	}
	n := nonBiasNode(spec, rng)
	row := spec.NodeRowOf(n)
	tag := activation.RandomAllowed(spec.AllowedActivations[row], rng)
	ind.Activations[n] = tag
	params := activation.DefaultParams(tag)
	copy(ind.NodeParamSlots(n), params[:])
}

// JitterNodeParams adds N(0, NodeParamStddev) to each in-use parameter
// slot of every non-bias node whose activation takes at least one
// parameter, clamping to [-10, 10]. Gated by a per-individual coin flip.
func JitterNodeParams(ind *genome.Individual, spec *topology.Spec, rates WeightRates, rng *rand.Rand) {
	if rng.Float64() >= rates.NodeParamMutateProbability {
		return
	}
	for n := 1; n < spec.TotalNodes; n++ {
		tag := ind.Activations[n]
		count := activation.RequiredParamCount(tag)
		if count == 0 {
			continue
		}
		slots := ind.NodeParamSlots(n)
		for i := 0; i < count; i++ {
			v := slots[i] + rng.NormFloat64()*rates.NodeParamStddev
			slots[i] = clamp(v, -10, 10)
		}
	}
}

func nonBiasNode(spec *topology.Spec, rng *rand.Rand) int {
	// Node 0 is always the sole bias node (row 0 has exactly one node).
	return 1 + rng.Intn(spec.TotalNodes-1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
