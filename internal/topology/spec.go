// Package topology implements the fixed-structure layered graph that a
// Species evolves against: row layout, allowed-activation masks, the edge
// list, and the derived row-plan compilation used by the forward evaluator.
package topology

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zachbeta/neuroevo/internal/activation"
)

var (
	ErrTooFewRows            = errors.New("topology: need at least two rows (input and output)")
	ErrNonPositiveRowCount   = errors.New("topology: every row must have a positive node count")
	ErrBiasRowSize           = errors.New("topology: row 0 must have exactly one node")
	ErrMaskRowMismatch       = errors.New("topology: allowed-activation masks must align one-to-one with rows")
	ErrBiasRowMask           = errors.New("topology: row 0's allowed mask must be exactly {Linear}")
	ErrOutputRowMask         = errors.New("topology: output row's allowed mask must be a subset of {Linear, Tanh}")
	ErrEmptyRowMask          = errors.New("topology: a row's allowed-activation mask must not be empty")
	ErrNonPositiveMaxInDeg   = errors.New("topology: max in-degree must be positive")
	ErrEdgeEndpointRange     = errors.New("topology: edge endpoint out of node range")
	ErrEdgeNotStrictlyLayered = errors.New("topology: edge source row must be strictly less than destination row")
	ErrParallelEdgeOverflow  = errors.New("topology: at most two parallel edges are permitted between a node pair")
	ErrInDegreeOverflow      = errors.New("topology: node in-degree exceeds max in-degree")
)

// Edge is a directed connection, globally indexed by its position in
// Spec.Edges, from Source to Destination (both row-major node indices).
type Edge struct {
	Source      int
	Destination int
}

// RowPlan is the compiled, contiguous-range view of one row: the nodes it
// owns and the slice of Edges whose destination lies in this row.
type RowPlan struct {
	NodeStart int
	NodeCount int
	EdgeStart int
	EdgeCount int
}

// Spec is the shared, species-wide topology: row sizes, per-row allowed
// activations, the edge list and its compiled row plans. It is mutated only
// through the primitives in mutate.go (InsertEdge/RemoveEdge/...) so that
// callers mutating the shared structure can keep every individual's weight
// vector in lockstep.
type Spec struct {
	RowCounts          []int
	AllowedActivations []activation.Mask
	MaxInDegree        int
	Edges              []Edge
	RowPlans           []RowPlan
	TotalNodes         int
}

// NodeRowOf returns the row index owning node, or -1 if out of range.
// RowPlans' NodeStart/NodeCount are derived purely from RowCounts, so this
// is valid immediately after computeNodeLayout, independent of edge state.
func (s *Spec) NodeRowOf(node int) int {
	lo, hi := 0, len(s.RowPlans)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		rp := s.RowPlans[mid]
		switch {
		case node < rp.NodeStart:
			hi = mid - 1
		case node >= rp.NodeStart+rp.NodeCount:
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

// InDegree counts the edges whose destination is node. O(E); fine for the
// small, species-scale graphs this package targets.
func (s *Spec) InDegree(node int) int {
	n := 0
	for _, e := range s.Edges {
		if e.Destination == node {
			n++
		}
	}
	return n
}

// computeNodeLayout fills RowPlans' NodeStart/NodeCount from RowCounts and
// sets TotalNodes. It does not touch edge-derived fields.
func (s *Spec) computeNodeLayout() {
	if len(s.RowPlans) != len(s.RowCounts) {
		s.RowPlans = make([]RowPlan, len(s.RowCounts))
	}
	start := 0
	for r, cnt := range s.RowCounts {
		s.RowPlans[r].NodeStart = start
		s.RowPlans[r].NodeCount = cnt
		start += cnt
	}
	s.TotalNodes = start
}

// Compile re-sorts Edges by (destination row, destination node), breaking
// ties by original index, and rebuilds RowPlans' edge ranges so that each
// row's incoming edges occupy a contiguous slice. Must be called after any
// mutation that alters edges or row sizes, and is idempotent.
func (s *Spec) Compile() {
	s.computeNodeLayout()

	type indexed struct {
		e   Edge
		idx int
	}
	tmp := make([]indexed, len(s.Edges))
	for i, e := range s.Edges {
		tmp[i] = indexed{e, i}
	}
	sort.SliceStable(tmp, func(i, j int) bool {
		di, dj := s.NodeRowOf(tmp[i].e.Destination), s.NodeRowOf(tmp[j].e.Destination)
		if di != dj {
			return di < dj
		}
		if tmp[i].e.Destination != tmp[j].e.Destination {
			return tmp[i].e.Destination < tmp[j].e.Destination
		}
		return tmp[i].idx < tmp[j].idx
	})
	sorted := make([]Edge, len(tmp))
	for i, ie := range tmp {
		sorted[i] = ie.e
	}
	s.Edges = sorted

	idx := 0
	for r := range s.RowCounts {
		start := idx
		for idx < len(s.Edges) && s.NodeRowOf(s.Edges[idx].Destination) == r {
			idx++
		}
		s.RowPlans[r].EdgeStart = start
		s.RowPlans[r].EdgeCount = idx - start
	}
}

// Validate checks every TopologySpec invariant from the spec. It never
// mutates the receiver.
func (s *Spec) Validate() error {
	if len(s.RowCounts) < 2 {
		return ErrTooFewRows
	}
	for _, c := range s.RowCounts {
		if c <= 0 {
			return ErrNonPositiveRowCount
		}
	}
	if s.RowCounts[0] != 1 {
		return ErrBiasRowSize
	}
	if len(s.AllowedActivations) != len(s.RowCounts) {
		return ErrMaskRowMismatch
	}
	if s.AllowedActivations[0] != activation.LinearOnlyMask() {
		return ErrBiasRowMask
	}
	lastRow := len(s.RowCounts) - 1
	if s.AllowedActivations[lastRow]&^activation.LinearTanhMask() != 0 {
		return ErrOutputRowMask
	}
	for _, m := range s.AllowedActivations {
		if m == 0 {
			return ErrEmptyRowMask
		}
	}
	if s.MaxInDegree <= 0 {
		return ErrNonPositiveMaxInDeg
	}

	inDegree := make(map[int]int, s.TotalNodes)
	parallel := make(map[[2]int]int, len(s.Edges))
	for _, e := range s.Edges {
		if e.Source < 0 || e.Source >= s.TotalNodes || e.Destination < 0 || e.Destination >= s.TotalNodes {
			return ErrEdgeEndpointRange
		}
		if s.NodeRowOf(e.Source) >= s.NodeRowOf(e.Destination) {
			return ErrEdgeNotStrictlyLayered
		}
		key := [2]int{e.Source, e.Destination}
		parallel[key]++
		if parallel[key] > 2 {
			return ErrParallelEdgeOverflow
		}
		inDegree[e.Destination]++
		if inDegree[e.Destination] > s.MaxInDegree {
			return ErrInDegreeOverflow
		}
	}
	return nil
}

// Clone deep-copies the spec, including edges and row plans.
func (s *Spec) Clone() *Spec {
	out := &Spec{
		RowCounts:   append([]int(nil), s.RowCounts...),
		MaxInDegree: s.MaxInDegree,
		TotalNodes:  s.TotalNodes,
	}
	out.AllowedActivations = append([]activation.Mask(nil), s.AllowedActivations...)
	out.Edges = append([]Edge(nil), s.Edges...)
	out.RowPlans = append([]RowPlan(nil), s.RowPlans...)
	return out
}

// String renders a short human-readable summary, useful in log lines.
func (s *Spec) String() string {
	return fmt.Sprintf("topology.Spec{rows=%v edges=%d maxInDegree=%d}", s.RowCounts, len(s.Edges), s.MaxInDegree)
}

// InputSize returns the width of row 1 (the input row).
func (s *Spec) InputSize() int { return s.RowCounts[1] }

// OutputSize returns the width of the last row (the output row).
func (s *Spec) OutputSize() int { return s.RowCounts[len(s.RowCounts)-1] }

// OutputRow returns the index of the output row.
func (s *Spec) OutputRow() int { return len(s.RowCounts) - 1 }
