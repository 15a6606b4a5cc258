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

package summary

import (
	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/hil"
	"github.com/apflow/taint/internal/pkg/trace"
)

// ReportFunc is invoked with every reportable path found while
// grafting a summary; nil disables reporting.
type ReportFunc func(trace.CallSite, []trace.ReportablePath)

// Apply implements spec.md §4.3: grafts callee (itself an access tree
// over formal-indexed footprint bases, the return base, and globals)
// onto caller at the given call site, substituting footprint sources
// with the caller-side traces they stand for and reporting every
// resulting source-to-sink path.
func Apply(caller accesstree.Tree, call hil.Call, callee accesstree.Tree, site trace.CallSite, resolver trace.PathResolver, report ReportFunc) (accesstree.Tree, error) {
	tree := caller
	var failure error

	accesstree.TraceFold(callee, func(ap accesspath.Path, calleeTrace trace.Trace) {
		if failure != nil {
			return
		}
		instantiated, err := substituteFootprints(calleeTrace, call, caller)
		if err != nil {
			failure = err
			return
		}

		translated, ok, err := toCaller(ap, call)
		if err != nil {
			failure = err
			return
		}
		if !ok {
			// Undefined mapping (e.g. a missing footprint actual): still
			// run the reporter against the instantiated trace with the
			// caller contribution defaulted to empty, but leave the tree
			// untouched (spec.md §4.3, grafting step 1).
			if report != nil {
				report(site, trace.GetReportablePaths(site, instantiated, resolver))
			}
			return
		}

		existing, ok := accesstree.GetNode(translated, tree)
		callerTrace := trace.Empty
		if ok {
			callerTrace = existing.Trace
		}
		appended := trace.Append(callerTrace, instantiated, site)
		if report != nil {
			report(site, trace.GetReportablePaths(site, appended, resolver))
		}
		tree = accesstree.AddTrace(translated, appended, tree)
	})

	if failure != nil {
		return caller, failure
	}
	return tree, nil
}

// substituteFootprints replaces every footprint source in calleeTrace
// with the caller-side trace its footprint access path resolves to
// (default empty), keeping every non-footprint source as-is and
// leaving sinks untouched.
func substituteFootprints(calleeTrace trace.Trace, call hil.Call, caller accesstree.Tree) (trace.Trace, error) {
	sources := calleeTrace.Sources()
	if len(sources) == 0 {
		return calleeTrace, nil
	}
	var resolved []trace.Source
	for _, src := range sources {
		fp, ok := src.GetFootprintAccessPath()
		if !ok {
			resolved = append(resolved, src)
			continue
		}
		translated, ok, err := toCaller(fp, call)
		if err != nil {
			return trace.Trace{}, err
		}
		if !ok {
			continue
		}
		if node, ok := accesstree.GetNode(translated, caller); ok {
			resolved = append(resolved, node.Trace.Sources()...)
		}
	}
	return calleeTrace.UpdateSources(resolved), nil
}

// toCaller implements spec.md §4.3's to_caller(formal_ap) mapping.
// ok is false for an undefined mapping that should drop its
// contribution silently (spec.md §7, "Missing footprint actual"); err
// is non-nil only for the fail-fast "Return binding missing" case.
func toCaller(formalAp accesspath.Path, call hil.Call) (accesspath.Path, bool, error) {
	base, steps := accesspath.Extract(formalAp)

	switch {
	case base.IsReturn:
		if call.RetPath == nil {
			return accesspath.Path{}, false, ErrReturnBindingMissing
		}
		result := accesspath.Append(*call.RetPath, steps).WithExactness(formalAp.IsExact())
		return result, true, nil

	case base.IsFootprint:
		i := base.Stamp
		if i < 0 || i >= len(call.Actuals) {
			return accesspath.Path{}, false, nil
		}
		result := accesspath.Append(call.Actuals[i], steps).WithExactness(formalAp.IsExact())
		return result, true, nil

	case base.IsGlobal:
		return formalAp, true, nil

	default:
		// A local appearing in a summary violates invariant 5; treat as
		// an undefined mapping rather than panicking on a malformed
		// upstream summary.
		return accesspath.Path{}, false, nil
	}
}
