package genome

import (
	"math/rand"
	"testing"

	"github.com/zachbeta/neuroevo/internal/activation"
	"github.com/zachbeta/neuroevo/internal/topology"
)

func smallSpec(t *testing.T) *topology.Spec {
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
	return spec
}

func TestNewIndividualInvariants(t *testing.T) {
	spec := smallSpec(t)
	rng := rand.New(rand.NewSource(7))
	ind := New(spec, rng)

	if len(ind.Weights) != len(spec.Edges) {
		t.Fatalf("weights length %d != edges %d", len(ind.Weights), len(spec.Edges))
	}
	if len(ind.Activations) != spec.TotalNodes {
		t.Fatalf("activations length %d != total nodes %d", len(ind.Activations), spec.TotalNodes)
	}
	for n, tag := range ind.Activations {
		row := spec.NodeRowOf(n)
		if !spec.AllowedActivations[row].Has(tag) {
			t.Fatalf("node %d activation %v not allowed in row %d", n, tag, row)
		}
	}
	for _, w := range ind.Weights {
		if w != w { // NaN check
			t.Fatalf("weight is NaN")
		}
	}
}

func TestBiasEdgeIndicesAllOriginateAtBiasNode(t *testing.T) {
	spec := smallSpec(t)
	for _, idx := range BiasEdgeIndices(spec) {
		if spec.Edges[idx].Source != BiasNode {
			t.Fatalf("edge %d does not originate at the bias node", idx)
		}
	}
}

func TestCloneIsDeepAndIndependent(t *testing.T) {
	spec := smallSpec(t)
	rng := rand.New(rand.NewSource(1))
	ind := New(spec, rng)
	clone := ind.Clone()

	clone.Weights[0] = 12345
	if ind.Weights[0] == 12345 {
		t.Fatalf("mutating clone weights affected original")
	}
	clone.Activations[0] = activation.Sin
	if ind.Activations[0] == activation.Sin {
		t.Fatalf("mutating clone activations affected original")
	}
}
