package species

import "testing"

func colonyWithStats(best float64, age, generationsSinceImprovement int, variance float64, individuals []float64) *Colony {
	inds := withFitness(individuals...)
	return &Colony{
		Individuals: inds,
		Age:         age,
		Stats: &Stats{
			BestFitnessEver:              best,
			GenerationsSinceImprovement:  generationsSinceImprovement,
			FitnessVariance:              variance,
		},
	}
}

func TestSelectForCullingExemptsBestSpecies(t *testing.T) {
	colonies := []*Colony{
		colonyWithStats(100, 10, 10, 0.0, []float64{100}), // best individual overall, exempt
		colonyWithStats(1, 10, 10, 0.0, []float64{1}),     // stagnant, low diversity, eligible
		colonyWithStats(2, 10, 10, 0.0, []float64{2}),     // stagnant, low diversity, eligible
	}
	cfg := CullerConfig{
		GraceGenerations:             5,
		StagnationThreshold:          3,
		DiversityThreshold:            0.5,
		RelativePerformanceThreshold: 0.9,
		MinSpeciesCount:              1,
	}
	idx, ok := SelectForCulling(colonies, cfg)
	if !ok {
		t.Fatalf("expected a species to be selected for culling")
	}
	if idx == 0 {
		t.Fatalf("exempt (best) species must never be culled")
	}
	if colonies[idx].Stats.BestFitnessEver != 1 {
		t.Fatalf("expected the worst eligible species (best-ever=1) to be culled, got best-ever=%v", colonies[idx].Stats.BestFitnessEver)
	}
}

func TestSelectForCullingSkipsAtMinSpeciesCount(t *testing.T) {
	colonies := []*Colony{
		colonyWithStats(100, 10, 10, 0.0, []float64{100}),
		colonyWithStats(1, 10, 10, 0.0, []float64{1}),
	}
	cfg := CullerConfig{MinSpeciesCount: 2, GraceGenerations: 0, StagnationThreshold: 1, DiversityThreshold: 0.5, RelativePerformanceThreshold: 0.9}
	if _, ok := SelectForCulling(colonies, cfg); ok {
		t.Fatalf("expected no culling at min species count")
	}
}

func TestSelectForCullingSkipsWhenOnlyOneEligible(t *testing.T) {
	colonies := []*Colony{
		colonyWithStats(100, 10, 10, 0.0, []float64{100}),
		colonyWithStats(1, 10, 10, 0.0, []float64{1}),
		colonyWithStats(90, 0, 0, 10.0, []float64{90}), // not past grace, not eligible
	}
	cfg := CullerConfig{MinSpeciesCount: 1, GraceGenerations: 5, StagnationThreshold: 3, DiversityThreshold: 0.5, RelativePerformanceThreshold: 0.01}
	if _, ok := SelectForCulling(colonies, cfg); ok {
		t.Fatalf("expected no culling when fewer than 2 species are eligible")
	}
}
