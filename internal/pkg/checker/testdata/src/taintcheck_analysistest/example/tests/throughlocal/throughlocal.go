// Package throughlocal covers spec.md §8's "through local identity"
// scenario: a source's return value is assigned into a local variable
// before reaching a sink, exercising Store/Load tracking rather than a
// direct same-expression flow.
package throughlocal

import "taintcheck_analysistest/example/core"

func throughLocalIdentity() {
	x := core.Source()
	var y interface{}
	y = x
	core.Sink(y) // want "a source has reached a sink"
}
