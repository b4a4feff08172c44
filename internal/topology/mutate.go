package topology

import "github.com/zachbeta/neuroevo/internal/activation"

// InsertEdge appends e to the spec's edge list and recompiles row plans.
// Compile re-sorts the list, so e ends up after any existing edges with the
// same destination rather than necessarily at the end. Callers
// (EdgeMutations) are responsible for extending every individual's weight
// vector with a matching new slot at e's new index in the same step.
func (s *Spec) InsertEdge(e Edge) {
	s.Edges = append(s.Edges, e)
	s.Compile()
}

// RemoveEdge deletes the edge at position idx (pre-compile index into the
// current, already-compiled Edges slice) and recompiles row plans. Returns
// the removed edge so callers can drop the matching per-individual weight
// slot at the same index.
func (s *Spec) RemoveEdge(idx int) Edge {
	removed := s.Edges[idx]
	s.Edges = append(s.Edges[:idx:idx], s.Edges[idx+1:]...)
	s.Compile()
	return removed
}

// ResizeHiddenRow changes the node count of hidden row r (must not be the
// bias, input, or output row) by delta, clamped to [minSize, maxSize]. Any
// edge whose endpoint index is now out of range for the row's new width is
// dropped. The dropped edges' original (pre-resize) indices are not
// returned; callers needing weight-slot bookkeeping should diff the edge
// list before/after.
func (s *Spec) ResizeHiddenRow(r, delta, minSize, maxSize int) {
	newSize := s.RowCounts[r] + delta
	if newSize < minSize {
		newSize = minSize
	}
	if newSize > maxSize {
		newSize = maxSize
	}
	if newSize == s.RowCounts[r] {
		return
	}

	oldPlan := s.RowPlans[r]
	oldEnd := oldPlan.NodeStart + oldPlan.NodeCount
	newEnd := oldPlan.NodeStart + newSize
	shift := newSize - s.RowCounts[r]

	s.RowCounts[r] = newSize

	// Drop edges touching removed nodes (only relevant when shrinking),
	// then shift every node index at or beyond the old row-end by shift so
	// later rows stay contiguous.
	kept := s.Edges[:0:0]
	for _, e := range s.Edges {
		if shift < 0 {
			if (e.Source >= newEnd && e.Source < oldEnd) || (e.Destination >= newEnd && e.Destination < oldEnd) {
				continue // endpoint fell inside the removed tail of row r
			}
		}
		if e.Source >= oldEnd {
			e.Source += shift
		}
		if e.Destination >= oldEnd {
			e.Destination += shift
		}
		kept = append(kept, e)
	}
	s.Edges = kept
	s.Compile()
}

// SetMaxInDegree overrides the in-degree cap, clamped to [min, max].
func (s *Spec) SetMaxInDegree(v, min, max int) {
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	s.MaxInDegree = v
}

// FlipActivationBit toggles bit t of row r's allowed mask, refusing any
// flip that would leave the row with an empty mask. Returns false (no
// change) if the flip was refused.
func (s *Spec) FlipActivationBit(r int, t activation.Tag) bool {
	candidate := s.AllowedActivations[r] ^ t.Bit()
	if candidate == 0 {
		return false
	}
	s.AllowedActivations[r] = candidate
	return true
}
