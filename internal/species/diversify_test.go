package species

import (
	"math/rand"
	"testing"

	"github.com/zachbeta/neuroevo/internal/activation"
	"github.com/zachbeta/neuroevo/internal/genome"
	"github.com/zachbeta/neuroevo/internal/topology"
)

func buildDonorSpec(t *testing.T) *topology.Spec {
	t.Helper()
	spec, err := topology.NewBuilder().
		AddInputRow(3).
		AddHiddenRow(6, activation.AllMask()).
		AddOutputRow(2, activation.LinearTanhMask()).
		WithMaxInDegree(8).
		WithDenseEdges().
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return spec
}

func TestDiversifyProducesValidReplacementTopology(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	specA := buildDonorSpec(t)
	specB := buildDonorSpec(t)

	makeColony := func(spec *topology.Spec, best float64) *Colony {
		individuals := make([]*genome.Individual, 4)
		for i := range individuals {
			individuals[i] = genome.New(spec, rng)
			individuals[i].Fitness = best
		}
		stats := NewStats()
		stats.Update(individuals)
		return &Colony{Individuals: individuals, Age: 3, Stats: stats}
	}

	colonies := []*Colony{makeColony(specA, 10), makeColony(specB, 8)}
	specs := []*topology.Spec{specA, specB}

	cfg := DiversifyConfig{IndividualsPerSpecies: 4}

	newSpec, newColony := Diversify(colonies, specs, cfg, rng)
	if err := newSpec.Validate(); err != nil {
		t.Fatalf("diversified spec invalid: %v", err)
	}
	if newColony.Age != 0 {
		t.Fatalf("expected fresh colony age 0, got %d", newColony.Age)
	}
	if len(newColony.Individuals) != cfg.IndividualsPerSpecies {
		t.Fatalf("expected %d individuals, got %d", cfg.IndividualsPerSpecies, len(newColony.Individuals))
	}
	for i, ind := range newColony.Individuals {
		if len(ind.Weights) != len(newSpec.Edges) {
			t.Fatalf("individual %d weight count %d != edge count %d", i, len(ind.Weights), len(newSpec.Edges))
		}
		if len(ind.Activations) != newSpec.TotalNodes {
			t.Fatalf("individual %d activation count %d != node count %d", i, len(ind.Activations), newSpec.TotalNodes)
		}
	}
}

// TestPerturbTopologyNeverFlipsBiasOrOutputRow sweeps many seeds so the
// activation-bit-flip step can't get lucky: with a single hidden row, a
// flip loop that ever picked row 0 or the output row would eventually
// produce an invalid spec (row 0 must stay exactly {Linear}, the output
// row must stay a subset of {Linear, Tanh}).
func TestPerturbTopologyNeverFlipsBiasOrOutputRow(t *testing.T) {
	for seed := int64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		spec := buildDonorSpec(t)
		perturbTopology(spec, rng)
		if err := spec.Validate(); err != nil {
			t.Fatalf("seed %d: perturbed spec invalid: %v", seed, err)
		}
	}
}
