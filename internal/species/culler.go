package species

import (
	"math"

	"github.com/zachbeta/neuroevo/internal/genome"
)

var negInf = math.Inf(-1)

// Colony is the minimal view of a species the culler and diversification
// need: its individuals (to find the population's single best
// individual and each species' median fitness), its age, and its stats.
type Colony struct {
	Individuals []*genome.Individual
	Age         int
	Stats       *Stats
}

// CullerConfig mirrors the configuration surface's grace/stagnation/
// diversity/relative-performance thresholds plus the minimum species
// count guard.
type CullerConfig struct {
	GraceGenerations             int
	StagnationThreshold          int
	DiversityThreshold            float64
	RelativePerformanceThreshold float64
	MinSpeciesCount              int
}

// SelectForCulling identifies, at most, one species to remove this
// generation, returning its index into colonies and true, or (-1, false)
// if nothing should be culled. The species containing the single best
// individual in the population is always exempt.
func SelectForCulling(colonies []*Colony, cfg CullerConfig) (int, bool) {
	if len(colonies) <= cfg.MinSpeciesCount {
		return -1, false
	}

	exempt := bestIndividualSpecies(colonies)
	populationBest := populationBestEver(colonies)

	eligible := make([]int, 0, len(colonies))
	for i, c := range colonies {
		if i == exempt {
			continue
		}
		if !c.Stats.PastGrace(c.Age, cfg.GraceGenerations) {
			continue
		}
		if c.Stats.Stagnant(cfg.StagnationThreshold) ||
			c.Stats.BelowRelativePerformance(populationBest, cfg.RelativePerformanceThreshold) ||
			c.Stats.LowDiversity(cfg.DiversityThreshold) {
			eligible = append(eligible, i)
		}
	}

	if len(eligible) < 2 {
		return -1, false
	}

	worst := eligible[0]
	for _, idx := range eligible[1:] {
		if colonies[idx].Stats.BestFitnessEver < colonies[worst].Stats.BestFitnessEver {
			worst = idx
		}
	}
	return worst, true
}

func bestIndividualSpecies(colonies []*Colony) int {
	bestSpecies := -1
	bestFitness := negInf
	for i, c := range colonies {
		for _, ind := range c.Individuals {
			if ind.Fitness > bestFitness {
				bestFitness = ind.Fitness
				bestSpecies = i
			}
		}
	}
	return bestSpecies
}

func populationBestEver(colonies []*Colony) float64 {
	best := negInf
	for _, c := range colonies {
		if c.Stats.BestFitnessEver > best {
			best = c.Stats.BestFitnessEver
		}
	}
	return best
}
