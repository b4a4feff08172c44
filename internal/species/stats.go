// Package species implements per-species fitness statistics, stagnation
// tracking, adaptive culling, and topology diversification.
package species

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/zachbeta/neuroevo/internal/genome"
)

const fitnessHistoryLength = 10

// Stats tracks one species' rolling fitness history, its best-ever
// fitness and the stagnation counter the culler reads.
type Stats struct {
	BestFitnessEver             float64
	GenerationsSinceImprovement int
	FitnessHistory               []float64 // ring buffer, oldest first, capped at fitnessHistoryLength
	MedianFitness                float64
	FitnessVariance               float64
}

// NewStats returns a Stats ready for a freshly created species.
func NewStats() *Stats {
	return &Stats{BestFitnessEver: math.Inf(-1)}
}

// Update recomputes median and variance from individuals' current
// fitness, advances best_fitness_ever / generations_since_improvement,
// and shifts median_fitness into the rolling history.
func (s *Stats) Update(individuals []*genome.Individual) {
	fitnesses := make([]float64, len(individuals))
	for i, ind := range individuals {
		fitnesses[i] = ind.Fitness
	}
	sort.Float64s(fitnesses)

	s.MedianFitness = stat.Quantile(0.5, stat.Empirical, fitnesses, nil)
	s.FitnessVariance = populationVariance(fitnesses)

	best := fitnesses[len(fitnesses)-1]
	if best > s.BestFitnessEver {
		s.BestFitnessEver = best
		s.GenerationsSinceImprovement = 0
	} else {
		s.GenerationsSinceImprovement++
	}

	s.FitnessHistory = append(s.FitnessHistory, s.MedianFitness)
	if len(s.FitnessHistory) > fitnessHistoryLength {
		s.FitnessHistory = s.FitnessHistory[len(s.FitnessHistory)-fitnessHistoryLength:]
	}
}

// populationVariance computes the (biased, divide-by-n) population
// variance, as opposed to gonum/stat's sample (n-1) Variance.
func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := stat.Mean(values, nil)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(values))
}

// PastGrace reports whether age exceeds gracePeriod.
func (s *Stats) PastGrace(age, gracePeriod int) bool {
	return age > gracePeriod
}

// Stagnant reports whether generations_since_improvement has reached
// stagnationThreshold.
func (s *Stats) Stagnant(stagnationThreshold int) bool {
	return s.GenerationsSinceImprovement >= stagnationThreshold
}

// LowDiversity reports whether fitness variance has fallen below
// diversityThreshold.
func (s *Stats) LowDiversity(diversityThreshold float64) bool {
	return s.FitnessVariance < diversityThreshold
}

// BelowRelativePerformance reports whether the normalized performance
// gap between s and the population's best species exceeds
// (1 - relativePerformanceThreshold). The normalization is ratio-based
// for non-negative populationBest and gap-based for negative
// populationBest (the difference divided by |populationBest| + 1, not
// clamped to any range), so the predicate behaves symmetrically for
// loss-like objectives.
func (s *Stats) BelowRelativePerformance(populationBest, relativePerformanceThreshold float64) bool {
	var normalizedGap float64
	if populationBest >= 0 {
		if populationBest == 0 {
			normalizedGap = 0
		} else {
			normalizedGap = (populationBest - s.BestFitnessEver) / populationBest
		}
	} else {
		gap := populationBest - s.BestFitnessEver // >= 0 since populationBest is the population max
		normalizedGap = gap / (math.Abs(populationBest) + 1)
	}
	return normalizedGap > (1 - relativePerformanceThreshold)
}
