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
	"github.com/apflow/taint/internal/pkg/footprint"
	"github.com/apflow/taint/internal/pkg/hil"
)

// Assign implements spec.md §4.2's Assign(lhs, rhs) instruction: three
// cases evaluated in order, the first two being frontend-specific
// workarounds exposed as predicates of the hil lowering collaborator
// rather than baked in here, per spec.md §9.
func Assign(pre accesstree.Tree, a hil.Assign, ctx Context) accesstree.Tree {
	if a.IsReturnAssign && hil.IsExceptionBearing(a.RHS) {
		return pre
	}
	if a.IsReturnAssign && hil.IsNullLiteralVoidReturn(a.LHS, a.RHS, a.RetType) {
		return pre
	}
	node, ok := footprint.Lookup(a.RHS, pre, ctx.Footprint)
	if !ok {
		node = accesstree.EmptyNode()
	}
	return accesstree.AddNode(a.LHS, node, pre)
}
