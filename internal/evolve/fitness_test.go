package evolve

import (
	"math"
	"math/rand"
	"testing"

	"github.com/zachbeta/neuroevo/internal/activation"
	"github.com/zachbeta/neuroevo/internal/genome"
	"github.com/zachbeta/neuroevo/internal/species"
	"github.com/zachbeta/neuroevo/internal/topology"
)

// countingEnv is a deterministic stub environment: it runs for a fixed
// number of steps and returns reward 1.0 per step, ignoring actions.
type countingEnv struct {
	steps     int
	maxSteps  int
	nInputs   int
	nOutputs  int
}

func (e *countingEnv) InputCount() int  { return e.nInputs }
func (e *countingEnv) OutputCount() int { return e.nOutputs }
func (e *countingEnv) MaxSteps() int    { return e.maxSteps }
func (e *countingEnv) Reset(seed int64) { e.steps = 0 }
func (e *countingEnv) Observations(buffer []float64) {
	for i := range buffer {
		buffer[i] = 1.0
	}
}
func (e *countingEnv) Step(actions []float64) float64 {
	e.steps++
	return 1.0
}
func (e *countingEnv) IsTerminal() bool           { return e.steps >= e.maxSteps }
func (e *countingEnv) FinalFitness() (float64, bool) { return 0, false }

func buildSpeciesForFitness(t *testing.T, n int, rng *rand.Rand) (*topology.Spec, *species.Colony) {
	t.Helper()
	spec, err := topology.NewBuilder().
		AddInputRow(2).
		AddHiddenRow(3, activation.AllMask()).
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
	}
	return spec, &species.Colony{Individuals: individuals, Age: 0, Stats: species.NewStats()}
}

func TestEvaluatePopulationAssignsFitness(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	spec, colony := buildSpeciesForFitness(t, 4, rng)

	driver := NewFitnessDriver(func() Environment {
		return &countingEnv{maxSteps: 5, nInputs: 2, nOutputs: 1}
	})
	driver.EvaluatePopulation([]*species.Colony{colony}, []*topology.Spec{spec}, 1)

	for i, ind := range colony.Individuals {
		if ind.Fitness != 5 {
			t.Fatalf("individual %d fitness = %v, want 5", i, ind.Fitness)
		}
	}
}

// nanEnv produces a NaN reward to exercise the sentinel-fitness path.
type nanEnv struct{ steps int }

func (e *nanEnv) InputCount() int  { return 2 }
func (e *nanEnv) OutputCount() int { return 1 }
func (e *nanEnv) MaxSteps() int    { return 3 }
func (e *nanEnv) Reset(seed int64) { e.steps = 0 }
func (e *nanEnv) Observations(buffer []float64) {
	for i := range buffer {
		buffer[i] = 0
	}
}
func (e *nanEnv) Step(actions []float64) float64 {
	e.steps++
	return math.NaN()
}
func (e *nanEnv) IsTerminal() bool              { return e.steps >= 3 }
func (e *nanEnv) FinalFitness() (float64, bool) { return 0, false }

func TestEvaluatePopulationCollapsesNaNToSentinel(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	spec, colony := buildSpeciesForFitness(t, 2, rng)

	driver := NewFitnessDriver(func() Environment { return &nanEnv{} })
	driver.EvaluatePopulation([]*species.Colony{colony}, []*topology.Spec{spec}, 1)

	for i, ind := range colony.Individuals {
		if ind.Fitness != nanSentinelFitness {
			t.Fatalf("individual %d fitness = %v, want sentinel %v", i, ind.Fitness, nanSentinelFitness)
		}
	}
}
