// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package trace provides the trace domain: the lattice of sources and
// sinks that the transfer function threads through
// the access tree. spec.md treats Trace as opaque, supplied by the
// taint specification; this package is the concrete default that
// ships with the module so it is runnable end to end, in the same
// spirit as the teacher's source/sink matching living in a concrete
// package rather than behind an interface no one implements.
package trace

import (
	"fmt"
	"go/token"
	"sort"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"golang.org/x/tools/go/ssa"
)

// CallSite identifies where a call-related event (a source read, a
// sink write, a summary instantiation) took place.
type CallSite struct {
	Caller *ssa.Function
	Pos    token.Pos
}

// Source marks the origin of tainted data.
type Source struct {
	// Kind names the taint-spec rule that introduced this source (e.g.
	// "os.Getenv", or "" for a footprint source).
	Kind string
	Site CallSite
	// FootprintPath is set iff this source is symbolic input provenance
	// manufactured by footprint synthesis (C4); Source.get_footprint_access_path
	// returns it.
	FootprintPath *accesspath.Path
	// Endpoint is an endpoint flag carried through summary encoding
	// (summarycodec). The analysis does not set it, and report text
	// does not read it: report looks Kind up in the endpoint set from
	// taintspec.Spec.Endpoints instead.
	Endpoint bool
}

// GetFootprintAccessPath implements spec.md's
// "Source.get_footprint_access_path(src) — Some(ap) iff the source is
// a symbolic input".
func (s Source) GetFootprintAccessPath() (accesspath.Path, bool) {
	if s.FootprintPath == nil {
		return accesspath.Path{}, false
	}
	return *s.FootprintPath, true
}

// IsFootprint reports whether s was manufactured by footprint
// synthesis rather than a named source call site.
func (s Source) IsFootprint() bool {
	return s.FootprintPath != nil
}

func (s Source) key() string {
	if s.IsFootprint() {
		return "fp:" + s.FootprintPath.String()
	}
	return fmt.Sprintf("%s@%d", s.Kind, s.Site.Pos)
}

// Sink marks a call-site argument that must not receive a Source.
type Sink struct {
	Kind string
	Site CallSite
}

func (s Sink) key() string {
	return fmt.Sprintf("%s@%d", s.Kind, s.Site.Pos)
}

// Trace is the lattice element attached to every access-tree node: the
// set of sources that may have reached it, the set of sinks it may
// have reached, and whether it has been sanitized (SUPPLEMENTED
// FEATURES: sanitizers, per SPEC_FULL.md).
//
// Trace is an immutable value; every mutating-looking method returns a
// new Trace, matching the data model's "traces inside a tree are
// mutated only by replacement" lifecycle rule.
type Trace struct {
	sources    map[string]Source
	sinks      map[string]Sink
	sanitized  bool
	passCount  int // number of append() hops this trace has gone through; diagnostic only
}

// Empty is the bottom element of the lattice.
var Empty = Trace{}

// OfSource builds a singleton trace holding a single source.
func OfSource(src Source) Trace {
	return Trace{sources: map[string]Source{src.key(): src}}
}

// IsEmpty reports whether t carries neither sources nor sinks.
func (t Trace) IsEmpty() bool {
	return len(t.sources) == 0 && len(t.sinks) == 0
}

// Sources returns the sources t has accumulated, sorted for
// deterministic iteration (needed so report output and tests are
// stable across map iteration order).
func (t Trace) Sources() []Source {
	out := make([]Source, 0, len(t.sources))
	for _, s := range t.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// Sinks returns the sinks t has accumulated, sorted for determinism.
func (t Trace) Sinks() []Sink {
	out := make([]Sink, 0, len(t.sinks))
	for _, s := range t.sinks {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// AddSource returns t with src added to its source set.
func (t Trace) AddSource(src Source) Trace {
	return Trace{sources: mergeSources(t.sources, map[string]Source{src.key(): src}), sinks: t.sinks, sanitized: t.sanitized}
}

// AddSink returns t with sink added to its sink set.
func (t Trace) AddSink(sink Sink) Trace {
	sinks := make(map[string]Sink, len(t.sinks)+1)
	for k, v := range t.sinks {
		sinks[k] = v
	}
	sinks[sink.key()] = sink
	return Trace{sources: t.sources, sinks: sinks, sanitized: t.sanitized}
}

// UpdateSources returns t with its source set replaced wholesale.
func (t Trace) UpdateSources(newSources []Source) Trace {
	m := make(map[string]Source, len(newSources))
	for _, s := range newSources {
		m[s.key()] = s
	}
	return Trace{sources: m, sinks: t.sinks, sanitized: t.sanitized}
}

// Sanitize clears the source set, breaking the taint chain at this
// node. A sanitized trace can still accumulate sinks (so a later
// reachable un-sanitized source elsewhere still reports), but it no
// longer carries forward any source of its own.
func (t Trace) Sanitize() Trace {
	return Trace{sources: nil, sinks: t.sinks, sanitized: true}
}

// Join is the lattice join: union of sources, union of sinks. Join
// must be associative, commutative, and idempotent for fixpoint
// convergence (invariant 2 of the data model, testable property 1).
func Join(a, b Trace) Trace {
	return Trace{
		sources:   mergeSources(a.sources, b.sources),
		sinks:     mergeSinks(a.sinks, b.sinks),
		sanitized: a.sanitized && b.sanitized,
	}
}

func mergeSources(a, b map[string]Source) map[string]Source {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]Source, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func mergeSinks(a, b map[string]Sink) map[string]Sink {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]Sink, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Append extends a caller trace with a callee trace at a call site, as
// used by summary application (C6). The callee's sources and sinks
// are joined into the caller's and the pass count is incremented;
// site is not recorded on the result.
func Append(caller, callee Trace, site CallSite) Trace {
	joined := Join(caller, callee)
	joined.passCount = caller.passCount + 1
	return joined
}

// ReportablePath is one complete source-to-sink flow.
type ReportablePath struct {
	Source Source
	Sink   Sink
}

// PathResolver looks up the trace known for a procedure, with the
// self-reentry guard of C4.6 / testable property 4. GetReportablePaths
// takes a resolver but does not call it.
type PathResolver interface {
	// TraceOfProcedure returns the accumulated trace for the
	// currently-analyzed procedure named pname, or Empty if pname is
	// the procedure presently being analyzed (self-reentry guard).
	TraceOfProcedure(pname *ssa.Function) Trace
}

// GetReportablePaths enumerates every (source, sink) pair recorded on
// t: a flow is reportable whenever both a source and a sink have
// reached the same node, independent of order, since access trees do
// not track per-source reachability to per-sink - instead sinks are
// attached to nodes already holding source taint, so every sink on a
// tainted node pairs with every source that tainted it.
//
// A footprint source (C4's synthetic "some caller might pass a source
// here" placeholder) never pairs with a sink here: it is not yet a
// confirmed flow, only a symbolic one, and summary construction (C7)
// records the sink-on-footprint fact in the procedure's own summary
// for callers to instantiate. Reporting it directly from the callee's
// own analysis would flag every function with a sink on an
// unconstrained formal regardless of whether any caller ever passes a
// real source. Substitution (C6's substituteFootprints) replaces a
// footprint source with whatever real trace the caller has at the
// corresponding actual before this function runs again at the call
// site, so a confirmed flow still surfaces once a real source reaches
// it - just at the call site that supplies it, not at the sink's own
// declaration.
func GetReportablePaths(site CallSite, t Trace, resolver PathResolver) []ReportablePath {
	if len(t.sinks) == 0 || len(t.sources) == 0 {
		return nil
	}
	var out []ReportablePath
	for _, src := range t.Sources() {
		if src.IsFootprint() {
			continue
		}
		for _, sink := range t.Sinks() {
			out = append(out, ReportablePath{Source: src, Sink: sink})
		}
	}
	return out
}

// PP renders t for debug logging.
func (t Trace) PP() string {
	return fmt.Sprintf("sources=%v sinks=%v sanitized=%v", t.Sources(), t.Sinks(), t.sanitized)
}

// ToLocTrace renders a reportable path as positions, for tooling that
// wants locations rather than formatted text.
func (p ReportablePath) ToLocTrace() (srcPos, sinkPos token.Pos) {
	return p.Source.Site.Pos, p.Sink.Site.Pos
}

func (s Source) String() string {
	return s.Kind
}

func (s Sink) String() string {
	return s.Kind
}
