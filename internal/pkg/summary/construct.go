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
	"github.com/apflow/taint/internal/pkg/footprint"
	"github.com/apflow/taint/internal/pkg/trace"
)

// Construct implements spec.md §4.5: compresses a procedure's final
// access tree into a summary expressed only over globals, the return
// base, and footprint-indexed formals (invariant 2 of the testable
// properties), suitable for instantiation at any call site via Apply.
func Construct(final accesstree.Tree, ctx footprint.Context) accesstree.Tree {
	return stageB(stageA(final), ctx)
}

// stageA re-attaches footprint sources: every node with a non-empty
// sink set contributes itself (joined) to the node presently at each
// footprint source's access path, so a sink reachable from an unknown
// input F has its trace recorded at F for a future caller to find.
func stageA(t accesstree.Tree) accesstree.Tree {
	result := t
	accesstree.TraceFold(t, func(ap accesspath.Path, tr trace.Trace) {
		if len(tr.Sinks()) == 0 {
			return
		}
		node, ok := accesstree.GetNode(ap, t)
		if !ok {
			return
		}
		for _, src := range tr.Sources() {
			fp, ok := src.GetFootprintAccessPath()
			if !ok {
				continue
			}
			existing, _ := accesstree.GetNode(fp, result)
			result = accesstree.AddNode(fp, accesstree.NodeJoin(existing, node), result)
		}
	})
	return result
}

// stageB re-keys every root by the rules of spec.md §4.5: globals and
// the return base are kept as-is, footprint bases are pruned if
// empty, formals are re-expressed as footprint bases indexed by
// parameter position, and locals are dropped (summaries must never
// refer to a local, per invariant 2).
func stageB(t accesstree.Tree, ctx footprint.Context) accesstree.Tree {
	var entries []accesstree.Entry
	for _, e := range accesstree.Roots(t) {
		base := e.Base
		switch {
		case base.IsGlobal, base.IsReturn:
			entries = append(entries, e)

		case base.IsFootprint:
			if isEmptyNode(e.Node) {
				continue
			}
			node := e.Node
			if len(node.Trace.Sinks()) == 0 {
				node = accesstree.Node{Trace: trace.Empty, Subtree: node.Subtree}
			}
			entries = append(entries, accesstree.Entry{Base: base, Node: node})

		default:
			if idx, ok := ctx.IndexOfFormal(base.Ref); ok {
				fpBase := accesspath.Footprint(ctx.Proc, idx, base.Type)
				entries = append(entries, accesstree.Entry{Base: fpBase, Node: e.Node})
			}
			// Any other local base is dropped.
		}
	}
	return accesstree.WithRoots(entries)
}

// isEmptyNode implements spec.md §4.5's emptiness test for a managed
// language (this module's target): a node is empty iff its trace has
// no sinks and its subtree has no reachable children.
func isEmptyNode(n accesstree.Node) bool {
	return len(n.Trace.Sinks()) == 0 && accesstree.NodeHasNoReachableChildren(n)
}
