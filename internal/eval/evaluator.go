// Package eval implements the row-synchronous forward pass that turns a
// topology and an individual's parameters into output-row values for a
// given input vector.
package eval

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/zachbeta/neuroevo/internal/activation"
	"github.com/zachbeta/neuroevo/internal/genome"
	"github.com/zachbeta/neuroevo/internal/topology"
)

// ErrInputLengthMismatch is returned when the supplied input vector's
// length does not equal the topology's input-row size.
var ErrInputLengthMismatch = errors.New("eval: input length mismatch")

// Evaluator holds reusable scratch sized to the largest topology it has
// seen, avoiding a fresh allocation on every forward pass.
type Evaluator struct {
	nodeValues []float64
}

// NewEvaluator returns a ready-to-use Evaluator with no scratch allocated
// yet; the first call to Forward sizes it.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// scratch returns a zeroed node-value buffer of length n, reusing the
// evaluator's backing array when it is already large enough.
func (e *Evaluator) scratch(n int) []float64 {
	if cap(e.nodeValues) < n {
		e.nodeValues = make([]float64, n)
	}
	buf := e.nodeValues[:n]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// Forward runs the row-synchronous forward pass described by spec's
// compiled row plans, using ind's weights, activations and node
// parameters, over input. It returns a freshly allocated copy of the
// output row (safe for the caller to retain across future Forward
// calls on the same evaluator).
func (e *Evaluator) Forward(spec *topology.Spec, ind *genome.Individual, input []float64) ([]float64, error) {
	inputRow := spec.RowPlans[1]
	if len(input) != inputRow.NodeCount {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputLengthMismatch, len(input), inputRow.NodeCount)
	}

	nodeValues := e.scratch(spec.TotalNodes)
	nodeValues[genome.BiasNode] = 1.0
	copy(nodeValues[inputRow.NodeStart:inputRow.NodeStart+inputRow.NodeCount], input)

	for r := 2; r < len(spec.RowPlans); r++ {
		rp := spec.RowPlans[r]
		rowSlice := nodeValues[rp.NodeStart : rp.NodeStart+rp.NodeCount]
		for i := range rowSlice {
			rowSlice[i] = 0
		}

		accumulateRow(nodeValues, spec.Edges, ind.Weights, rp, spec.TotalNodes)

		for n := rp.NodeStart; n < rp.NodeStart+rp.NodeCount; n++ {
			tag := ind.Activations[n]
			params := ind.NodeParamArray(n)
			nodeValues[n] = activation.Apply(tag, nodeValues[n], params)
		}
	}

	outRow := spec.RowPlans[spec.OutputRow()]
	out := make([]float64, outRow.NodeCount)
	copy(out, nodeValues[outRow.NodeStart:outRow.NodeStart+outRow.NodeCount])
	return out, nil
}

// accumulateRow computes rp's pre-activation values as a real dense
// matrix-vector product: a NodeCount-by-totalNodes weight sub-matrix
// (row i, column j holding the edge weight from node j to rp's i-th
// node, zero where no such edge exists) times the full node-value
// vector, the way the teacher's network.go builds a weight matrix and
// calls MulVec. The sub-matrix is rebuilt every call since edges are
// mutated between generations; TopologySpec keeps the canonical
// representation sparse (see internal/mutate), this is scratch only.
func accumulateRow(nodeValues []float64, edges []topology.Edge, weights []float64, rp topology.RowPlan, totalNodes int) {
	if rp.EdgeCount == 0 {
		return
	}
	rowWeights := mat.NewDense(rp.NodeCount, totalNodes, nil)
	for i := rp.EdgeStart; i < rp.EdgeStart+rp.EdgeCount; i++ {
		edge := edges[i]
		localDest := edge.Destination - rp.NodeStart
		rowWeights.Set(localDest, edge.Source, rowWeights.At(localDest, edge.Source)+weights[i])
	}
	input := mat.NewVecDense(totalNodes, nodeValues)
	var out mat.VecDense
	out.MulVec(rowWeights, input)
	for i := 0; i < rp.NodeCount; i++ {
		nodeValues[rp.NodeStart+i] = out.AtVec(i)
	}
}
