// Package returnfootprint covers spec.md §8's "return-carried taint
// via footprint" scenario: a function that returns one of its formals
// unchanged carries the caller's actual forward through its summary's
// return-indexed footprint entry.
package returnfootprint

import "taintcheck_analysistest/example/core"

func passthrough(a interface{}) interface{} {
	return a
}

func callPassthrough() {
	core.Sink(passthrough(core.Source())) // want "a source has reached a sink"
}
