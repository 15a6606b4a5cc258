// Package endpoint covers spec.md §8's endpoint-annotation scenario: a
// source whose declaring function is listed in the configured
// endpoints set gets an extra note on its report message.
package endpoint

import "taintcheck_analysistest/example/core"

func callEndpointSource() {
	core.Sink(core.EndpointSource()) // want "source is an externally-callable endpoint"
}
