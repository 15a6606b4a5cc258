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

// Package footprint manufactures symbolic input traces for unseen
// reads of formals and globals (spec.md §4.1), the mechanism by which
// reads of unknown input acquire a symbolic provenance that later
// callers can instantiate against the actual arguments they passed.
package footprint

import (
	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/trace"
	"golang.org/x/tools/go/ssa"
)

// Context supplies the information footprint synthesis and lookup
// need beyond the tree itself: which procedure is being analyzed and
// how to recognize a formal parameter's index.
type Context struct {
	Proc *ssa.Function
	// FormalIndex maps a formal's SSA value to its 0-based parameter
	// index (receiver included, per go/ssa's own numbering).
	FormalIndex map[ssa.Value]int
}

// IndexOfFormal implements "ctx.formal_map at index i": it returns the
// formal index of ref if ref is one of Proc's parameters.
func (c Context) IndexOfFormal(ref ssa.Value) (int, bool) {
	i, ok := c.FormalIndex[ref]
	return i, ok
}

// MakeFootprint builds the footprint Source for a manufactured access
// path. The Source records only that path; proc is not stored in it.
func MakeFootprint(ap accesspath.Path, proc *ssa.Function) trace.Source {
	path := ap
	return trace.Source{FootprintPath: &path}
}

// Lookup implements spec.md §4.1's lookup(ap, tree, ctx) -> option<node>:
//
//  1. If tree has a node at ap, return it.
//  2. Else, if ap's base is a formal, manufacture a footprint access
//     path (replace the base with a freshly stamped footprint
//     variable, keep the trailing steps) and return a leaf node
//     whose trace is of_source(make_footprint(that_path, proc)).
//  3. Else if ap's base is a global, manufacture a leaf with a
//     footprint source over the original ap.
//  4. Else return false (no fallback for locals/temporaries).
func Lookup(ap accesspath.Path, tree accesstree.Tree, ctx Context) (accesstree.Node, bool) {
	if n, ok := accesstree.GetNode(ap, tree); ok {
		return n, true
	}

	base, steps := accesspath.Extract(ap)

	if idx, ok := ctx.IndexOfFormal(base.Ref); ok && base.Kind == accesspath.ProgramVar && !base.IsGlobal && !base.IsReturn {
		fpBase := accesspath.Footprint(ctx.Proc, idx, base.Type)
		fpPath := accesspath.ExactPath(fpBase, steps...)
		src := MakeFootprint(fpPath, ctx.Proc)
		return accesstree.Node{Trace: trace.OfSource(src), Subtree: accesstree.Subtree{}}, true
	}

	if base.IsGlobal {
		src := MakeFootprint(ap, ctx.Proc)
		return accesstree.Node{Trace: trace.OfSource(src), Subtree: accesstree.Subtree{}}, true
	}

	return accesstree.Node{}, false
}
