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
	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/hil"
	"github.com/apflow/taint/internal/pkg/utils"
	"golang.org/x/tools/go/ssa"
)

// sanitizerApply implements the sanitizer supplement to spec.md §4.2:
// a call matching a configured Sanitizer pattern clears the source set
// of its return slot, breaking the taint chain the way the teacher's
// propagation.Dfs halts traversal at a sanitizing call. matched
// reports whether target was a sanitizer, which (like a sink or
// source match) keeps step 4 from also applying a summary.
func sanitizerApply(tree accesstree.Tree, call hil.Call, target *ssa.Function, ctx Context) (accesstree.Tree, bool) {
	path, recv, name := utils.DecomposeFunction(target)
	if !ctx.Spec.IsSanitizer(path, recv, name) {
		return tree, false
	}
	if call.RetPath == nil {
		return tree, true
	}
	node, _ := accesstree.GetNode(*call.RetPath, tree)
	tree = accesstree.AddTrace(*call.RetPath, node.Trace.Sanitize(), tree)
	return tree, true
}
