// Package polymorphism covers spec.md §8's polymorphism-cap scenario:
// an interface call site with more dynamic dispatch targets than the
// configured cap (4 implementations against the default cap of 3)
// falls back to the static callee — nil for a true interface
// invocation — so the call contributes no flow at all, rather than
// conservatively joining every implementation.
package polymorphism

import "taintcheck_analysistest/example/core"

type Dispatcher interface {
	Handle(x interface{})
}

type one struct{}

func (one) Handle(x interface{}) { core.Sink(x) }

type two struct{}

func (two) Handle(x interface{}) { core.Sink(x) }

type three struct{}

func (three) Handle(x interface{}) { core.Sink(x) }

type four struct{}

func (four) Handle(x interface{}) { core.Sink(x) }

func dispatch(d Dispatcher) {
	d.Handle(core.Source()) // no report: 4 dynamic targets exceeds the cap
}

func callDispatch() {
	dispatch(one{})
	dispatch(two{})
	dispatch(three{})
	dispatch(four{})
}
