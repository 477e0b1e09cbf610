package testutils

import "github.com/isle-engine/isle/pkg/assert"

// maxChoices is how many choices a single exhaustive iteration may make.
const maxChoices = 32

// choice is one recorded decision: the value picked and the largest value allowed.
type choice struct{ value, bound uint32 }

// Gen enumerates every combination of the choices a test makes. The test body runs once per
// combination:
//
//	g := NewGen()
//	for !g.Done() {
//		a, b := g.Bool(), g.Intn(3)
//		...
//	}
//
// Each iteration records its choices with their bounds. Done advances to the next sequence by
// incrementing the rightmost choice that is still below its bound and resetting everything after
// it. See https://matklad.github.io/2021/11/07/generate-all-the-things.html.
type Gen struct {
	started bool
	choices [maxChoices]choice
	pos     int // Index of the next choice in the current iteration
	depth   int // Number of choices recorded by the previous iteration
}

// NewGen creates a new exhaustive generator.
func NewGen() *Gen {
	return &Gen{}
}

// Done reports whether every combination has been visited. Call it once per iteration.
func (g *Gen) Done() bool {
	if !g.started {
		g.started = true
		return false
	}
	for i := g.depth - 1; i >= 0; i-- {
		if g.choices[i].value < g.choices[i].bound {
			g.choices[i].value++
			g.depth = i + 1
			g.pos = 0
			return false
		}
	}
	return true
}

func (g *Gen) next(bound uint32) uint32 {
	assert.That(g.pos < maxChoices, "exhaustive generator exceeded %d choices", maxChoices)
	if g.pos == g.depth {
		g.choices[g.pos] = choice{}
		g.depth++
	}
	g.choices[g.pos].bound = bound
	g.pos++
	return g.choices[g.pos-1].value
}

// Intn returns an int in [0, bound].
func (g *Gen) Intn(bound int) int {
	return int(g.next(uint32(bound))) //nolint:gosec // bound is expected to be small in tests
}

// Bool returns both booleans across iterations.
func (g *Gen) Bool() bool {
	return g.Intn(1) == 1
}

// Subset returns every subset of items across iterations, keeping the original order.
func Subset[T any](g *Gen, items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if g.Bool() {
			out = append(out, item)
		}
	}
	return out
}
