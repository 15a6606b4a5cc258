// Package core is the fake source/sink library every checker_test.go
// scenario calls into, mirroring the teacher's own testdata "example/core"
// package.
package core

// Source is configured as a source: its return value is tainted.
func Source() interface{} { return "tainted" }

// EndpointSource is a second source, additionally listed in the test
// config's endpoints set.
func EndpointSource() interface{} { return "tainted" }

// Sink is configured as a sink on its first (only) argument.
func Sink(x interface{}) {}

// Id returns its argument unchanged; not itself matched as a source,
// sink, or propagation rule, so calls to it fall through to
// unknown-call handling with no configured propagation. No scenario
// under tests/ calls it.
func Id(x interface{}) interface{} { return x }

// Log is configured with a ToReturn propagation rule and is variadic
// over a reference-like element type, exercising the variadic actual
// expansion unknown-call handling relies on.
func Log(args ...interface{}) interface{} { return nil }
