package neuroevo

import (
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/zachbeta/neuroevo/internal/evolve"
	"github.com/zachbeta/neuroevo/internal/genome"
	"github.com/zachbeta/neuroevo/internal/species"
	"github.com/zachbeta/neuroevo/internal/telemetry"
	"github.com/zachbeta/neuroevo/internal/topology"
)

// Evolver runs the generation loop over a Population, exposing exactly
// the contract described by the core: initialize, step, inspect.
type Evolver struct {
	orchestrator *evolve.Orchestrator
	rng          *rand.Rand
}

// NewEvolver returns an Evolver seeded by rng. logger and metrics may be
// nil to disable those surfaces.
func NewEvolver(rng *rand.Rand, logger *zap.Logger, metrics *telemetry.Metrics) *Evolver {
	return &Evolver{
		orchestrator: evolve.NewOrchestrator(logger, metrics),
		rng:          rng,
	}
}

// InitializePopulation builds species_count species, each a clone of
// defaultTopology stocked with individuals_per_species random
// individuals.
func InitializePopulation(config EvolutionConfig, defaultTopology *topology.Spec, rng *rand.Rand) *Population {
	specs := make([]*topology.Spec, config.SpeciesCount)
	colonies := make([]*species.Colony, config.SpeciesCount)
	for i := 0; i < config.SpeciesCount; i++ {
		spec := defaultTopology.Clone()
		individuals := make([]*genome.Individual, config.IndividualsPerSpecies)
		for j := range individuals {
			individuals[j] = genome.New(spec, rng)
		}
		specs[i] = spec
		colonies[i] = &species.Colony{Individuals: individuals, Age: 0, Stats: species.NewStats()}
	}
	return &Population{
		Specs:    specs,
		Colonies: colonies,
		Config:   config,
	}
}

// ratesFor projects a Population's EvolutionConfig into the orchestrator's
// Rates shape.
func ratesFor(config EvolutionConfig) evolve.Rates {
	return evolve.Rates{
		Weight: config.MutationRates.toWeightRates(),
		Edge:   config.EdgeMutations.toEdgeRates(),
		Culler: species.CullerConfig{
			GraceGenerations:             config.GraceGenerations,
			StagnationThreshold:          config.StagnationThreshold,
			DiversityThreshold:            config.SpeciesDiversityThreshold,
			RelativePerformanceThreshold: config.RelativePerformanceThreshold,
			MinSpeciesCount:              config.MinSpeciesCount,
		},
		Diversify: species.DiversifyConfig{
			IndividualsPerSpecies: config.IndividualsPerSpecies,
		},
		ElitePerSpecies:       config.Elites,
		TournamentSize:        config.TournamentSize,
		ParentPoolPercentage:  config.ParentPoolPercentage,
		IndividualsPerSpecies: config.IndividualsPerSpecies,
	}
}

// StepGeneration advances pop by exactly one generation in place and
// returns the same handle, per the Evolver contract. Preconditions:
// every individual's fitness has already been assigned (see
// internal/evolve.FitnessDriver).
func (e *Evolver) StepGeneration(pop *Population) *Population {
	diversified := e.orchestrator.StepGeneration(pop.Colonies, pop.Specs, ratesFor(pop.Config), e.rng)
	pop.Generation++
	if diversified {
		pop.TotalSpeciesCreated++
	}
	return pop
}

// BestIndividual returns the fittest individual in pop and the index of
// its owning species, or ok=false if pop has no individuals at all.
func BestIndividual(pop *Population) (ind *genome.Individual, speciesIdx int, ok bool) {
	speciesIdx = -1
	var best *genome.Individual
	for i, c := range pop.Colonies {
		for _, candidate := range c.Individuals {
			if best == nil || candidate.Fitness > best.Fitness {
				best = candidate
				speciesIdx = i
			}
		}
	}
	return best, speciesIdx, best != nil
}

// PopulationStatistics holds the best/mean/median/worst fitness across
// every individual in a Population.
type PopulationStatistics struct {
	Best   float64
	Mean    float64
	Median float64
	Worst  float64
}

// ComputeStatistics aggregates fitness across every individual in pop.
func ComputeStatistics(pop *Population) PopulationStatistics {
	var fitnesses []float64
	for _, c := range pop.Colonies {
		for _, ind := range c.Individuals {
			fitnesses = append(fitnesses, ind.Fitness)
		}
	}
	if len(fitnesses) == 0 {
		return PopulationStatistics{}
	}
	sort.Float64s(fitnesses)

	var sum float64
	for _, f := range fitnesses {
		sum += f
	}
	mid := len(fitnesses) / 2
	median := fitnesses[mid]
	if len(fitnesses)%2 == 0 {
		median = (fitnesses[mid-1] + fitnesses[mid]) / 2
	}

	return PopulationStatistics{
		Best:   fitnesses[len(fitnesses)-1],
		Worst:  fitnesses[0],
		Mean:   sum / float64(len(fitnesses)),
		Median: median,
	}
}

