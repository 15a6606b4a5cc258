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

package transfer

import (
	"fmt"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/footprint"
	"github.com/apflow/taint/internal/pkg/hil"
	"github.com/apflow/taint/internal/pkg/trace"
	"github.com/apflow/taint/internal/pkg/utils"
	"golang.org/x/tools/go/ssa"
)

// sinkInject implements spec.md §4.2 step 2: every sink the taint spec
// matches at a call to target is resolved to an access path, looked up
// (with footprint fallback), and — if present — has the sink attached,
// reported, and written back. matched reports whether any sink fired,
// which gates step 4's summary-application decision.
func sinkInject(tree accesstree.Tree, call hil.Call, target *ssa.Function, ctx Context) (accesstree.Tree, bool, error) {
	path, recv, name := utils.DecomposeFunction(target)
	sinks := ctx.Spec.Sinks(path, recv, name)
	if len(sinks) == 0 {
		return tree, false, nil
	}

	site := ctx.siteOf(call.Pos)
	matched := false
	for _, sk := range sinks {
		if sk.ActualIndex < 0 || sk.ActualIndex >= len(call.Actuals) {
			return tree, matched, fmt.Errorf("%w: sink %q wants actual %d, call has %d", ErrBadSinkIndex, sk.Kind, sk.ActualIndex, len(call.Actuals))
		}
		actualPath := call.Actuals[sk.ActualIndex]
		actualVal := call.ActualValues[sk.ActualIndex]

		exact := !sk.ReportReachable && !accesspath.IsArrayLike(actualVal.Type())
		ap := actualPath.WithExactness(exact)

		node, ok := footprint.Lookup(ap, tree, ctx.Footprint)
		if !ok {
			continue
		}
		matched = true

		newTrace := node.Trace.AddSink(trace.Sink{Kind: sk.Kind, Site: site})
		reportable := trace.GetReportablePaths(site, newTrace, ctx.Resolver)
		ctx.report(site, reportable)
		tree = accesstree.AddTrace(ap, newTrace, tree)
	}
	return tree, matched, nil
}
