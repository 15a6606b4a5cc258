// Package variadic covers spec.md §8's unknown-variadic scenario: an
// unmodeled call with a configured ToReturn propagation rule whose
// last parameter is a reference-like variadic slice must still see the
// individual folded actuals, not just the opaque synthetic slice value
// go/ssa builds for them.
package variadic

import "taintcheck_analysistest/example/core"

func runLog() {
	r := core.Log(core.Source())
	core.Sink(r) // want "a source has reached a sink"
}
