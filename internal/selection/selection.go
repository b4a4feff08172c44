// Package selection implements fitness ranking, the tournament-sampled
// parent pool, elitism and offspring generation for one species.
package selection

import (
	"math/rand"
	"sort"

	"github.com/zachbeta/neuroevo/internal/genome"
)

// Rank sorts individuals by fitness descending, stably so ties keep
// their original (insertion) order, and returns the sorted slice. The
// input slice is not mutated in place; a new slice of the same pointers
// is returned.
func Rank(individuals []*genome.Individual) []*genome.Individual {
	ranked := append([]*genome.Individual(nil), individuals...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})
	return ranked
}

// ParentPool returns the top parentPoolPercentage fraction of a ranked
// slice, rounded down, at least one.
func ParentPool(ranked []*genome.Individual, parentPoolPercentage float64) []*genome.Individual {
	n := int(float64(len(ranked)) * parentPoolPercentage)
	if n < 1 {
		n = 1
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// Tournament samples tournamentSize individuals uniformly with
// replacement from pool (which must already be ranked best-first) and
// returns the fittest; on ties the earlier-ranked (lower index) one
// wins, since pool is ranked.
func Tournament(pool []*genome.Individual, tournamentSize int, rng *rand.Rand) *genome.Individual {
	best := -1
	for i := 0; i < tournamentSize; i++ {
		idx := rng.Intn(len(pool))
		if best == -1 || idx < best {
			best = idx
		}
	}
	return pool[best]
}

// Elites returns deep clones of the top eliteCount individuals of a
// ranked slice. Elites are never mutated by the caller.
func Elites(ranked []*genome.Individual, eliteCount int) []*genome.Individual {
	if eliteCount > len(ranked) {
		eliteCount = len(ranked)
	}
	elites := make([]*genome.Individual, eliteCount)
	for i := 0; i < eliteCount; i++ {
		elites[i] = ranked[i].Clone()
	}
	return elites
}

// Offspring produces count deep clones of tournament winners drawn from
// pool, one winner per offspring slot. Mutation is the caller's
// responsibility (see internal/mutate); this only performs selection and
// cloning.
func Offspring(pool []*genome.Individual, count, tournamentSize int, rng *rand.Rand) []*genome.Individual {
	children := make([]*genome.Individual, count)
	for i := 0; i < count; i++ {
		winner := Tournament(pool, tournamentSize, rng)
		children[i] = winner.Clone()
	}
	return children
}

// NextGeneration assembles a species' next-generation individual list:
// eliteCount elites verbatim followed by individualsPerSpecies-eliteCount
// freshly selected (but not yet mutated) offspring.
func NextGeneration(individuals []*genome.Individual, individualsPerSpecies, eliteCount, tournamentSize int, parentPoolPercentage float64, rng *rand.Rand) []*genome.Individual {
	ranked := Rank(individuals)
	pool := ParentPool(ranked, parentPoolPercentage)
	elites := Elites(ranked, eliteCount)
	offspringCount := individualsPerSpecies - eliteCount
	if offspringCount < 0 {
		offspringCount = 0
	}
	children := Offspring(pool, offspringCount, tournamentSize, rng)
	return append(elites, children...)
}
