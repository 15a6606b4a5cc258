// Package throughformal covers spec.md §8's "through formal" scenario:
// a sink call on an unconstrained formal parameter only reports once a
// caller is shown to pass a real source into it — analyzing
// sinkFormal on its own must not produce a report from the footprint
// source footprint synthesis manufactures for its formal.
package throughformal

import "taintcheck_analysistest/example/core"

func sinkFormal(a interface{}) {
	core.Sink(a) // no report here: a's only provenance is a footprint source
}

func callSinkFormal() {
	sinkFormal(core.Source()) // want "a source has reached a sink"
}
