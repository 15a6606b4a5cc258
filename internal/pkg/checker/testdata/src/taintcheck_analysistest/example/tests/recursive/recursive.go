// Package recursive exercises the reentrancy guard (spec.md §5):
// analyzing recurse must not loop forever when recurse calls itself
// while its own summary is still being constructed.
package recursive

import "taintcheck_analysistest/example/core"

func recurse(n int, a interface{}) interface{} {
	core.Sink(a) // no report here: a's only provenance is a footprint source
	if n <= 0 {
		return a
	}
	return recurse(n-1, a)
}

func callRecurse() {
	recurse(3, core.Source()) // want "a source has reached a sink"
}
