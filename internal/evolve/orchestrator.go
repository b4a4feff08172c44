package evolve

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/zachbeta/neuroevo/internal/genome"
	"github.com/zachbeta/neuroevo/internal/mutate"
	"github.com/zachbeta/neuroevo/internal/selection"
	"github.com/zachbeta/neuroevo/internal/species"
	"github.com/zachbeta/neuroevo/internal/telemetry"
	"github.com/zachbeta/neuroevo/internal/topology"
)

// Rates bundles the weight, edge and culling/diversification rate
// configuration the orchestrator threads through each generation step.
type Rates struct {
	Weight      mutate.WeightRates
	Edge        mutate.EdgeRates
	Culler      species.CullerConfig
	Diversify   species.DiversifyConfig
	ElitePerSpecies       int
	TournamentSize        int
	ParentPoolPercentage  float64
	IndividualsPerSpecies int
}

// Orchestrator steps a population forward one generation: stats update,
// at-most-one culling decision, per-species selection plus mutation,
// and age bookkeeping. Construction mirrors the teacher's
// SequentialPopulationEpochExecutor-style prepare/reproduce/finalize
// ordering, generalized from NEAT compatibility-distance speciation to
// the spec's fixed-species-count model.
type Orchestrator struct {
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewOrchestrator returns an orchestrator that logs to logger and
// records metrics to metrics. Either may be nil to disable that surface.
func NewOrchestrator(logger *zap.Logger, metrics *telemetry.Metrics) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{logger: logger, metrics: metrics}
}

// StepGeneration mutates colonies and specs in place. Preconditions:
// every individual's Fitness has already been assigned (see
// FitnessDriver). The same seed plus the same fitness values produce
// bit-identical next populations.
func (o *Orchestrator) StepGeneration(colonies []*species.Colony, specs []*topology.Spec, rates Rates, rng *rand.Rand) bool {
	start := time.Now()
	diversified := false

	for _, c := range colonies {
		c.Stats.Update(c.Individuals)
	}

	if idx, ok := species.SelectForCulling(colonies, rates.Culler); ok {
		newSpec, newColony := species.Diversify(colonies, specs, rates.Diversify, rng)
		specs[idx] = newSpec
		colonies[idx] = newColony
		diversified = true
		o.logger.Info("culled and replaced species", zap.Int("species_index", idx))
	}

	for i, c := range colonies {
		spec := specs[i]
		next := selection.NextGeneration(c.Individuals, rates.IndividualsPerSpecies, rates.ElitePerSpecies, rates.TournamentSize, rates.ParentPoolPercentage, rng)

		for j := rates.ElitePerSpecies; j < len(next); j++ {
			ind := next[j]
			mutate.JitterWeights(ind, rates.Weight, rng)
			mutate.ResetWeight(ind, rates.Weight, rng)
			mutate.ShrinkWeights(ind, rates.Weight, rng)
			mutate.SwapActivation(ind, spec, rates.Weight, rng)
			mutate.JitterNodeParams(ind, spec, rates.Weight, rng)
		}
		c.Individuals = next

		applyEdgeMutations(spec, c.Individuals, rates.Edge, rng)
		c.Age++
	}

	if o.metrics != nil {
		o.metrics.Generations.Inc()
		o.metrics.SpeciesCount.Set(float64(len(colonies)))
		o.metrics.GenerationSeconds.Observe(time.Since(start).Seconds())
		var edges int
		for _, s := range specs {
			edges += len(s.Edges)
		}
		o.metrics.EdgeCount.Set(float64(edges))
	}

	return diversified
}

// applyEdgeMutations fires each edge-topology operator at its own
// per-generation, per-species probability, then runs weak-edge pruning
// if it is configured to apply during evolution.
func applyEdgeMutations(spec *topology.Spec, individuals []*genome.Individual, rates mutate.EdgeRates, rng *rand.Rand) {
	if rng.Float64() < rates.EdgeAdd {
		mutate.AddEdge(spec, individuals, rng)
	}
	if rng.Float64() < rates.EdgeDeleteRandom {
		mutate.DeleteRandomEdge(spec, individuals, rng)
	}
	if rng.Float64() < rates.EdgeSplit {
		mutate.SplitEdge(spec, individuals, rng)
	}
	if rng.Float64() < rates.EdgeRedirect {
		mutate.Redirect(spec, rng)
	}
	if rng.Float64() < rates.EdgeSwap {
		mutate.Swap(spec, rng)
	}
	if rates.WeakEdgePruning.Enabled && rates.WeakEdgePruning.ApplyDuringEvolution {
		mutate.PruneWeakEdges(spec, individuals, rates.WeakEdgePruning, rng)
	}
}
