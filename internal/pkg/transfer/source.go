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
	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/hil"
	"github.com/apflow/taint/internal/pkg/taintspec"
	"github.com/apflow/taint/internal/pkg/trace"
	"github.com/apflow/taint/internal/pkg/utils"
	"golang.org/x/tools/go/ssa"
)

// sourceInject implements spec.md §4.2 step 3. matched reports whether
// any source fired, which (together with sinkInject's result) gates
// step 4's summary-application decision.
func sourceInject(tree accesstree.Tree, call hil.Call, target *ssa.Function, ctx Context) (accesstree.Tree, bool) {
	path, recv, name := utils.DecomposeFunction(target)
	matches := ctx.Spec.Sources(path, recv, name)
	if isFieldPropagator(target, ctx.Spec) {
		matches = append(matches, taintspec.SourceMatch{Kind: "fieldpropagator:" + name})
	}
	if len(matches) == 0 {
		return tree, false
	}

	site := ctx.siteOf(call.Pos)
	matched := false
	for _, m := range matches {
		switch {
		case m.ArgIndex == nil && call.RetPath != nil:
			ap := *call.RetPath
			node, _ := accesstree.GetNode(ap, tree)
			newTrace := node.Trace.AddSource(trace.Source{Kind: m.Kind, Site: site})
			tree = accesstree.AddTrace(ap, newTrace, tree)
			matched = true

		case m.ArgIndex != nil:
			i := *m.ArgIndex
			if i < 0 || i >= len(call.Actuals) {
				continue
			}
			ap := call.Actuals[i]
			node, _ := accesstree.GetNode(ap, tree)
			newTrace := node.Trace.AddSource(trace.Source{Kind: m.Kind, Site: site})
			tree = accesstree.AddTrace(ap, newTrace, tree)
			matched = true

		default: // m.ArgIndex == nil && call.RetPath == nil
			var ok bool
			tree, ok = sourceWithNoReturnSlot(tree, call, m, site, ctx)
			matched = matched || ok
		}
	}
	return tree, matched
}

// sourceWithNoReturnSlot implements the third subcase of spec.md §4.2
// step 3: a callee is a source with no return slot at all (a go or
// defer statement, which hil.LowerCall gives no RetPath). The heuristic
// inspects the last actual: if it looks like a pass-by-reference
// out-temp, treat it as the return slot; otherwise log a warning and
// skip (spec.md §7, "Invalid source declaration": recoverable).
func sourceWithNoReturnSlot(tree accesstree.Tree, call hil.Call, m taintspec.SourceMatch, site trace.CallSite, ctx Context) (accesstree.Tree, bool) {
	if len(call.Actuals) == 0 {
		ctx.warnf("taint: source %q has no return slot and no actuals to treat as one", m.Kind)
		return tree, false
	}
	last := call.Actuals[len(call.Actuals)-1]
	base, _ := accesspath.Extract(last)
	if !base.IsFrontendTmp {
		ctx.warnf("taint: source %q declared with no index on a call with no usable return slot", m.Kind)
		return tree, false
	}
	node, _ := accesstree.GetNode(last, tree)
	newTrace := node.Trace.AddSource(trace.Source{Kind: m.Kind, Site: site})
	tree = accesstree.AddTrace(last, newTrace, tree)
	return tree, true
}
