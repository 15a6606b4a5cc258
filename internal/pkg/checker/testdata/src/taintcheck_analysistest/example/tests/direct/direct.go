// Package direct covers spec.md §8's direct-flow scenario: a source's
// return value flows straight into a sink's argument in the same call
// expression.
package direct

import "taintcheck_analysistest/example/core"

func directFlow() {
	core.Sink(core.Source()) // want "a source has reached a sink"
}
