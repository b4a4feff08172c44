package neuroevo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zachbeta/neuroevo/internal/activation"
	"github.com/zachbeta/neuroevo/internal/topology"
)

func buildDefaultTopology(t *testing.T) *topology.Spec {
	t.Helper()
	spec, err := topology.NewBuilder().
		AddInputRow(3).
		AddHiddenRow(5, activation.AllMask()).
		AddOutputRow(2, activation.LinearTanhMask()).
		WithMaxInDegree(8).
		WithDenseEdges().
		Build()
	require.NoError(t, err)
	return spec
}

func TestInitializePopulationShapesMatchConfig(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	config := DefaultEvolutionConfig()
	config.SpeciesCount = 3
	config.IndividualsPerSpecies = 7

	pop := InitializePopulation(config, buildDefaultTopology(t), rng)

	require.Len(t, pop.Specs, 3)
	require.Len(t, pop.Colonies, 3)
	for i, c := range pop.Colonies {
		require.Lenf(t, c.Individuals, 7, "species %d", i)
		for _, ind := range c.Individuals {
			require.Equal(t, len(pop.Specs[i].Edges), len(ind.Weights))
		}
	}
	require.Equal(t, 0, pop.Generation)
}

func TestStepGenerationAdvancesGenerationAndPreservesPopulationSize(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	config := DefaultEvolutionConfig()
	config.SpeciesCount = 2
	config.IndividualsPerSpecies = 6
	config.MinSpeciesCount = 2

	evolver := NewEvolver(rng, nil, nil)
	pop := InitializePopulation(config, buildDefaultTopology(t), rng)
	for _, c := range pop.Colonies {
		for i, ind := range c.Individuals {
			ind.Fitness = float64(i)
		}
	}

	next := evolver.StepGeneration(pop)

	require.Same(t, pop, next)
	require.Equal(t, 1, next.Generation)
	for _, c := range next.Colonies {
		require.Len(t, c.Individuals, config.IndividualsPerSpecies)
	}
}

func TestBestIndividualReturnsFittest(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	config := DefaultEvolutionConfig()
	config.SpeciesCount = 2
	config.IndividualsPerSpecies = 4

	pop := InitializePopulation(config, buildDefaultTopology(t), rng)
	pop.Colonies[0].Individuals[2].Fitness = 99
	pop.Colonies[1].Individuals[1].Fitness = 5

	best, speciesIdx, ok := BestIndividual(pop)

	require.True(t, ok)
	require.Equal(t, 0, speciesIdx)
	require.Equal(t, 99.0, best.Fitness)
}

func TestBestIndividualOnEmptyPopulation(t *testing.T) {
	_, _, ok := BestIndividual(&Population{})
	require.False(t, ok)
}

func TestComputeStatisticsAggregatesAcrossSpecies(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	config := DefaultEvolutionConfig()
	config.SpeciesCount = 2
	config.IndividualsPerSpecies = 3

	pop := InitializePopulation(config, buildDefaultTopology(t), rng)
	fitnesses := [][]float64{{1, 2, 3}, {4, 5, 6}}
	for i, c := range pop.Colonies {
		for j, ind := range c.Individuals {
			ind.Fitness = fitnesses[i][j]
		}
	}

	stats := ComputeStatistics(pop)

	require.Equal(t, 6.0, stats.Best)
	require.Equal(t, 1.0, stats.Worst)
	require.InDelta(t, 3.5, stats.Mean, 1e-9)
	require.InDelta(t, 3.5, stats.Median, 1e-9)
}

func TestLoadEvolutionConfigFallsBackToDefaultsOnMissingFile(t *testing.T) {
	config, err := LoadEvolutionConfig("/nonexistent/path/neuroevo.toml")
	require.NoError(t, err)
	require.Equal(t, DefaultEvolutionConfig(), config)
}
