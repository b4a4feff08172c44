package evolve

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/zachbeta/neuroevo/internal/eval"
	"github.com/zachbeta/neuroevo/internal/genome"
	"github.com/zachbeta/neuroevo/internal/species"
	"github.com/zachbeta/neuroevo/internal/topology"
)

// nanSentinelFitness is assigned to any individual whose evaluator
// output contains NaN or Inf, collapsing it to a strong negative score.
const nanSentinelFitness = -1000

// Environment is the contract an evaluation task must satisfy. An
// implementation owns its own internal state; FitnessDriver gives each
// worker goroutine a private instance via EnvironmentFactory so
// concurrent evaluation never shares mutable environment state.
type Environment interface {
	InputCount() int
	OutputCount() int
	MaxSteps() int
	Reset(seed int64)
	Observations(buffer []float64)
	Step(actions []float64) float64
	IsTerminal() bool
	FinalFitness() (value float64, ok bool)
}

// EnvironmentFactory constructs a fresh Environment instance, one per
// worker goroutine.
type EnvironmentFactory func() Environment

// evalTask names one individual to evaluate: its species index and
// position within that species' individual slice.
type evalTask struct {
	speciesIdx    int
	individualIdx int
}

// FitnessDriver runs every individual in every species against an
// environment instance and writes the resulting fitness back onto the
// individual. Individuals are mutually independent, so workers evaluate
// them concurrently; each worker owns its own Environment and its own
// eval.Evaluator scratch buffer (see SPEC concurrency model), following
// the teacher's channel + WaitGroup + atomic-counter worker pool shape.
type FitnessDriver struct {
	envFactory EnvironmentFactory
}

// NewFitnessDriver returns a driver that builds one Environment per
// worker via envFactory.
func NewFitnessDriver(envFactory EnvironmentFactory) *FitnessDriver {
	return &FitnessDriver{envFactory: envFactory}
}

// EvaluatePopulation runs one episode per individual across every
// colony, writing fitness back onto each genome.Individual in place.
// generation seeds each episode's environment reset deterministically.
func (d *FitnessDriver) EvaluatePopulation(colonies []*species.Colony, specs []*topology.Spec, generation int) {
	var tasks []evalTask
	for si, c := range colonies {
		for ii := range c.Individuals {
			tasks = append(tasks, evalTask{speciesIdx: si, individualIdx: ii})
		}
	}
	if len(tasks) == 0 {
		return
	}

	numWorkers := runtime.NumCPU() - 1
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}

	workCh := make(chan evalTask, len(tasks))
	var wg sync.WaitGroup
	var completed int32

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env := d.envFactory()
			evaluator := eval.NewEvaluator()
			for task := range workCh {
				spec := specs[task.speciesIdx]
				ind := colonies[task.speciesIdx].Individuals[task.individualIdx]
				ind.Fitness = runEpisode(spec, ind, env, evaluator, generation)
				atomic.AddInt32(&completed, 1)
			}
		}()
	}

	for _, task := range tasks {
		workCh <- task
	}
	close(workCh)
	wg.Wait()
}

// runEpisode resets env with a seed derived from generation, then steps
// it with the evaluator's forward-pass output until terminal or
// max_steps, accumulating reward. A forward-pass error, a NaN/Inf output
// or a NaN/Inf reward collapses fitness to nanSentinelFitness;
// observations are not checked directly.
func runEpisode(spec *topology.Spec, ind *genome.Individual, env Environment, evaluator *eval.Evaluator, generation int) float64 {
	env.Reset(int64(generation))

	obs := make([]float64, env.InputCount())
	var cumulative float64

	for step := 0; step < env.MaxSteps() && !env.IsTerminal(); step++ {
		env.Observations(obs)
		actions, err := evaluator.Forward(spec, ind, obs)
		if err != nil || containsNonFinite(actions) {
			return nanSentinelFitness
		}
		reward := env.Step(actions)
		if math.IsNaN(reward) || math.IsInf(reward, 0) {
			return nanSentinelFitness
		}
		cumulative += reward
	}

	if final, ok := env.FinalFitness(); ok {
		return final
	}
	return cumulative
}

func containsNonFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
