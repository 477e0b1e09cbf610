package ecs

import (
	"slices"

	"github.com/isle-engine/isle/pkg/assert"
)

// rowIndex maps entity indices to rows of a column's dense arrays. Indices without a row hold
// noRow.
type rowIndex []int

const (
	noRow              = -1
	initialRowIndexLen = 128
)

func newRowIndex() rowIndex {
	return growTo(rowIndex(nil), initialRowIndexLen, noRow)
}

// row returns the row bound to an entity index.
func (r rowIndex) row(idx uint32) (int, bool) {
	if int(idx) >= len(r) || r[idx] == noRow {
		return 0, false
	}
	return r[idx], true
}

// bind points an entity index at a row. The index at least doubles when it has to grow.
func (r *rowIndex) bind(idx uint32, row int) {
	assert.That(row >= 0, "row must be non-negative, got %d", row)
	if int(idx) >= len(*r) {
		*r = growTo(*r, max(2*len(*r), int(idx)+1), noRow)
	}
	(*r)[idx] = row
}

// unbind clears an entity index. Returns true if it had a row.
func (r rowIndex) unbind(idx uint32) bool {
	if _, ok := r.row(idx); !ok {
		return false
	}
	r[idx] = noRow
	return true
}

// growTo extends s to length n and sets every new element to fill. It never shrinks s.
func growTo[S ~[]E, E any](s S, n int, fill E) S {
	old := len(s)
	if n <= old {
		return s
	}
	s = slices.Grow(s, n-old)[:n]
	for i := old; i < n; i++ {
		s[i] = fill
	}
	return s
}
