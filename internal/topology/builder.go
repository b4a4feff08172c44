package topology

import (
	"math/rand"

	"github.com/zachbeta/neuroevo/internal/activation"
)

type edgeGenMode int

const (
	edgeGenNone edgeGenMode = iota
	edgeGenDense
	edgeGenSparse
	edgeGenExplicit
)

type hiddenRow struct {
	size int
	mask activation.Mask
}

// Builder fluently assembles a TopologySpec: one input row, any number of
// hidden rows, and one output row, with the bias row (row 0) inserted
// automatically. Mirrors the exposed topology-builder contract.
type Builder struct {
	inputSize   int
	hidden      []hiddenRow
	outputSize  int
	outputMask  activation.Mask
	maxInDegree int

	edgeMode      edgeGenMode
	sparseRNG     *rand.Rand
	sparseDensity float64
	explicitEdges []Edge
}

// NewBuilder starts a new topology builder with a reasonable default
// in-degree cap; callers typically override it with WithMaxInDegree.
func NewBuilder() *Builder {
	return &Builder{
		maxInDegree: 8,
		outputMask:  activation.LinearTanhMask(),
	}
}

// AddInputRow sets the input row's width (row 1).
func (b *Builder) AddInputRow(n int) *Builder {
	b.inputSize = n
	return b
}

// AddHiddenRow appends one hidden row with the given width and allowed
// activation mask. May be called any number of times.
func (b *Builder) AddHiddenRow(n int, mask activation.Mask) *Builder {
	b.hidden = append(b.hidden, hiddenRow{size: n, mask: mask})
	return b
}

// AddOutputRow sets the output row's width and mask; mask must be a subset
// of {Linear, Tanh} or Build will fail validation.
func (b *Builder) AddOutputRow(n int, mask activation.Mask) *Builder {
	b.outputSize = n
	b.outputMask = mask
	return b
}

// WithMaxInDegree overrides the default in-degree cap.
func (b *Builder) WithMaxInDegree(k int) *Builder {
	b.maxInDegree = k
	return b
}

// WithDenseEdges requests full row-to-row connectivity: every row r from 1
// to the second-to-last connects fully to row r+1, and the bias row (row 0)
// connects fully to every row from 2 onward so each computed layer has its
// own bias term.
func (b *Builder) WithDenseEdges() *Builder {
	b.edgeMode = edgeGenDense
	return b
}

// WithSparseEdges requests randomly sampled edges at the given density
// (fraction of possible earlier-row sources wired to each destination
// node, rounded down, at least one source per node where possible).
func (b *Builder) WithSparseEdges(rng *rand.Rand, density float64) *Builder {
	b.edgeMode = edgeGenSparse
	b.sparseRNG = rng
	b.sparseDensity = density
	return b
}

// WithEdges supplies an explicit initial edge list verbatim.
func (b *Builder) WithEdges(edges []Edge) *Builder {
	b.edgeMode = edgeGenExplicit
	b.explicitEdges = append([]Edge(nil), edges...)
	return b
}

// Build assembles and validates the TopologySpec.
func (b *Builder) Build() (*Spec, error) {
	rowCounts := make([]int, 0, len(b.hidden)+3)
	masks := make([]activation.Mask, 0, len(b.hidden)+3)

	rowCounts = append(rowCounts, 1, b.inputSize)
	masks = append(masks, activation.LinearOnlyMask(), activation.LinearOnlyMask())
	for _, h := range b.hidden {
		rowCounts = append(rowCounts, h.size)
		masks = append(masks, h.mask)
	}
	rowCounts = append(rowCounts, b.outputSize)
	masks = append(masks, b.outputMask)

	spec := &Spec{
		RowCounts:          rowCounts,
		AllowedActivations: masks,
		MaxInDegree:        b.maxInDegree,
	}
	spec.computeNodeLayout()

	switch b.edgeMode {
	case edgeGenDense:
		spec.Edges = b.buildDenseEdges(spec)
	case edgeGenSparse:
		spec.Edges = b.buildSparseEdges(spec)
	case edgeGenExplicit:
		spec.Edges = append([]Edge(nil), b.explicitEdges...)
	default:
		spec.Edges = nil
	}

	spec.Compile()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func (b *Builder) buildDenseEdges(spec *Spec) []Edge {
	var edges []Edge
	lastRow := len(spec.RowCounts) - 1

	// Row0 (bias) feeds every computed row (every row from 2 on).
	bias := spec.RowPlans[0]
	for r := 2; r <= lastRow; r++ {
		rp := spec.RowPlans[r]
		for dn := rp.NodeStart; dn < rp.NodeStart+rp.NodeCount; dn++ {
			edges = append(edges, Edge{Source: bias.NodeStart, Destination: dn})
		}
	}

	// Consecutive non-bias rows fully connect.
	for r := 1; r < lastRow; r++ {
		src := spec.RowPlans[r]
		dst := spec.RowPlans[r+1]
		for sn := src.NodeStart; sn < src.NodeStart+src.NodeCount; sn++ {
			for dn := dst.NodeStart; dn < dst.NodeStart+dst.NodeCount; dn++ {
				edges = append(edges, Edge{Source: sn, Destination: dn})
			}
		}
	}
	return edges
}

func (b *Builder) buildSparseEdges(spec *Spec) []Edge {
	var edges []Edge
	lastRow := len(spec.RowCounts) - 1
	rng := b.sparseRNG

	for r := 2; r <= lastRow; r++ {
		rp := spec.RowPlans[r]
		// candidate sources: bias row plus every earlier row.
		var sources []int
		for pr := 0; pr < r; pr++ {
			prp := spec.RowPlans[pr]
			for n := prp.NodeStart; n < prp.NodeStart+prp.NodeCount; n++ {
				sources = append(sources, n)
			}
		}
		for dn := rp.NodeStart; dn < rp.NodeStart+rp.NodeCount; dn++ {
			count := int(float64(len(sources)) * b.sparseDensity)
			if count < 1 && len(sources) > 0 {
				count = 1
			}
			if count > b.maxInDegree {
				count = b.maxInDegree
			}
			if count > len(sources) {
				count = len(sources)
			}
			shuffled := append([]int(nil), sources...)
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			for _, sn := range shuffled[:count] {
				edges = append(edges, Edge{Source: sn, Destination: dn})
			}
		}
	}
	return edges
}
