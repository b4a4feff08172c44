package evolve

import (
	"math/rand"
	"testing"

	"github.com/zachbeta/neuroevo/internal/activation"
	"github.com/zachbeta/neuroevo/internal/genome"
	"github.com/zachbeta/neuroevo/internal/mutate"
	"github.com/zachbeta/neuroevo/internal/species"
	"github.com/zachbeta/neuroevo/internal/topology"
)

func buildColony(t *testing.T, n int, rng *rand.Rand) (*topology.Spec, *species.Colony) {
	t.Helper()
	spec, err := topology.NewBuilder().
		AddInputRow(2).
		AddHiddenRow(4, activation.AllMask()).
		AddOutputRow(1, activation.LinearTanhMask()).
		WithMaxInDegree(6).
		WithDenseEdges().
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	individuals := make([]*genome.Individual, n)
	for i := range individuals {
		individuals[i] = genome.New(spec, rng)
		individuals[i].Fitness = float64(i)
	}
	stats := species.NewStats()
	stats.Update(individuals)
	return spec, &species.Colony{Individuals: individuals, Age: 1, Stats: stats}
}

func defaultRates(individualsPerSpecies int) Rates {
	return Rates{
		Weight: mutate.WeightRates{
			JitterProbability: 0.5, JitterStddev: 0.1,
			ResetProbability: 0.05,
			L1ShrinkProbability: 0.0, L1ShrinkFactor: 0.01,
			ActivationSwapProbability: 0.05,
			NodeParamMutateProbability: 0.1, NodeParamStddev: 0.1,
		},
		Edge: mutate.EdgeRates{
			EdgeAdd: 0.1, EdgeDeleteRandom: 0.1, EdgeSplit: 0.05, EdgeRedirect: 0.05, EdgeSwap: 0.05,
			WeakEdgePruning: mutate.WeakEdgePruningRates{Enabled: false},
		},
		Culler: species.CullerConfig{
			GraceGenerations: 3, StagnationThreshold: 5, DiversityThreshold: 0.001,
			RelativePerformanceThreshold: 0.9, MinSpeciesCount: 1,
		},
		Diversify: species.DiversifyConfig{
			IndividualsPerSpecies: individualsPerSpecies,
		},
		ElitePerSpecies: 1, TournamentSize: 3, ParentPoolPercentage: 0.6,
		IndividualsPerSpecies: individualsPerSpecies,
	}
}

func TestStepGenerationKeepsPopulationSizeAndAdvancesAge(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	spec1, colony1 := buildColony(t, 6, rng)
	spec2, colony2 := buildColony(t, 6, rng)

	colonies := []*species.Colony{colony1, colony2}
	specs := []*topology.Spec{spec1, spec2}

	orch := NewOrchestrator(nil, nil)
	orch.StepGeneration(colonies, specs, defaultRates(6), rng)

	for i, c := range colonies {
		if len(c.Individuals) != 6 {
			t.Fatalf("species %d: expected 6 individuals, got %d", i, len(c.Individuals))
		}
		if c.Age != 2 {
			t.Fatalf("species %d: expected age 2, got %d", i, c.Age)
		}
		if len(c.Individuals[0].Weights) != len(specs[i].Edges) {
			t.Fatalf("species %d: weight/edge count mismatch after step", i)
		}
	}
}

func TestStepGenerationIsDeterministicGivenSameSeed(t *testing.T) {
	run := func(seed int64) []float64 {
		rng := rand.New(rand.NewSource(seed))
		spec, colony := buildColony(t, 5, rng)
		colonies := []*species.Colony{colony}
		specs := []*topology.Spec{spec}
		orch := NewOrchestrator(nil, nil)
		orch.StepGeneration(colonies, specs, defaultRates(5), rng)
		weights := make([]float64, 0)
		for _, ind := range colonies[0].Individuals {
			weights = append(weights, ind.Weights...)
		}
		return weights
	}

	a := run(7)
	b := run(7)
	if len(a) != len(b) {
		t.Fatalf("mismatched lengths: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic output at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}
