//go:build !release

// Package assert checks structural invariants. A failed check is a defect in the library itself
// and panics.
package assert

import "fmt"

// That panics with the formatted message when cond is false.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}
