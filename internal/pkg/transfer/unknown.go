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
	"go/types"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/config"
	"github.com/apflow/taint/internal/pkg/footprint"
	"github.com/apflow/taint/internal/pkg/hil"
	"github.com/apflow/taint/internal/pkg/trace"
	"github.com/apflow/taint/internal/pkg/utils"
	"golang.org/x/tools/go/ssa"
)

// handleUnknownCall implements spec.md §4.4: a call to a callee with
// no known summary and no matched source/sink. Go has no operator
// overloading, so the operator= shortcut (a C++-specific workaround,
// called out in spec.md §9's open questions as language-specific and
// better expressed as a dedicated taint-spec hook) never fires for
// this lowering; hil.IsOperatorAssign always answers false and the
// propagation-rule fold below is the only path actually taken.
func handleUnknownCall(tree accesstree.Tree, call hil.Call, target *ssa.Function, ctx Context) (accesstree.Tree, error) {
	path, recv, name := utils.DecomposeFunction(target)

	if hil.IsOperatorAssign(target) {
		if len(call.Actuals) != 2 {
			return tree, fmt.Errorf("%w: %s.%s.%s has %d actuals", ErrBadOperatorAssign, path, recv, name, len(call.Actuals))
		}
		node, ok := footprint.Lookup(call.Actuals[1], tree, ctx.Footprint)
		if !ok {
			node = accesstree.EmptyNode()
		}
		return accesstree.AddNode(call.Actuals[0], node, tree), nil
	}

	rules := ctx.Spec.HandleUnknownCall(path, recv, name)
	if len(rules) == 0 {
		return tree, nil
	}

	taintAll := isVariadicReferenceLike(target)
	hasRecv := target != nil && target.Signature.Recv() != nil
	actuals := expandVariadicActual(call, ctx)

	for _, r := range rules {
		switch r.Kind {
		case config.PropagateToReturn:
			if call.RetPath == nil {
				continue
			}
			tree = propagate(tree, actuals, *call.RetPath, taintAll, ctx)

		case config.PropagateToReceiver:
			if !hasRecv || len(actuals) < 1 {
				continue
			}
			receiver := actuals[0]
			rest := actuals[1:]
			tree = propagate(tree, rest, receiver, taintAll, ctx)

		case config.PropagateToActual:
			if r.ActualIndex < 0 || r.ActualIndex >= len(actuals) {
				continue
			}
			tree = propagate(tree, actuals, actuals[r.ActualIndex], taintAll, ctx)
		}
	}
	return tree, nil
}

// expandVariadicActual folds a variadic call's trailing slice actual
// into the individual access paths stored into it at the call site
// (hil.VariadicActuals), so propagate sees each folded argument rather
// than the opaque synthetic slice go/ssa builds for it. Leading
// (non-variadic) actuals are left untouched; non-variadic calls are
// returned as-is.
func expandVariadicActual(call hil.Call, ctx Context) []accesspath.Path {
	if call.Instr == nil {
		return call.Actuals
	}
	expanded := hil.VariadicActuals(call, hil.Context{Proc: ctx.Footprint.Proc, FormalIndex: ctx.Footprint.FormalIndex})
	if expanded == nil {
		return call.Actuals
	}
	if len(call.Actuals) == 0 {
		return expanded
	}
	out := append([]accesspath.Path{}, call.Actuals[:len(call.Actuals)-1]...)
	return append(out, expanded...)
}

// propagate aggregates the sources reachable (with footprint
// fallback) from each of srcActuals, filters them per
// should_taint_type unless taintAll short-circuits the filter, and —
// if any sources survive — joins them into dest's trace. Sinks are
// deliberately not carried along: propagation only moves provenance
// forward, never relocates a consumption point.
func propagate(tree accesstree.Tree, srcActuals []accesspath.Path, dest accesspath.Path, taintAll bool, ctx Context) accesstree.Tree {
	var aggregated []trace.Source
	for _, ap := range srcActuals {
		node, ok := footprint.Lookup(ap, tree, ctx.Footprint)
		if !ok {
			continue
		}
		aggregated = append(aggregated, node.Trace.Sources()...)
	}
	filtered := filterTaintable(aggregated, taintAll, ctx)
	if len(filtered) == 0 {
		return tree
	}
	destNode, _ := accesstree.GetNode(dest, tree)
	newTrace := destNode.Trace
	for _, s := range filtered {
		newTrace = newTrace.AddSource(s)
	}
	return accesstree.AddTrace(dest, newTrace, tree)
}

// filterTaintable implements spec.md §4.4's footprint-type filter: a
// footprint source survives only if its footprint access path's
// static type is taintable or cannot be resolved; a non-footprint
// source always survives.
func filterTaintable(srcs []trace.Source, taintAll bool, ctx Context) []trace.Source {
	if taintAll {
		return srcs
	}
	var out []trace.Source
	for _, s := range srcs {
		fp, ok := s.GetFootprintAccessPath()
		if !ok {
			out = append(out, s)
			continue
		}
		t, ok := accesspath.TypeOf(fp)
		if !ok || ctx.Spec.IsTaintableType(t) {
			out = append(out, s)
		}
	}
	return out
}

// isVariadicReferenceLike implements spec.md §4.4's variadic-aware
// filter: the callee's last parameter is a variadic slice whose
// element type is reference-like (an interface, pointer, or other
// non-basic type — "e.g. a reference Object[]"), so every actual
// folded into it is considered taintable for this call regardless of
// type.
func isVariadicReferenceLike(fn *ssa.Function) bool {
	if fn == nil || !fn.Signature.Variadic() {
		return false
	}
	params := fn.Signature.Params()
	if params.Len() == 0 {
		return false
	}
	last := params.At(params.Len() - 1)
	sl, ok := last.Type().Underlying().(*types.Slice)
	if !ok {
		return false
	}
	_, isBasic := sl.Elem().Underlying().(*types.Basic)
	return !isBasic
}
