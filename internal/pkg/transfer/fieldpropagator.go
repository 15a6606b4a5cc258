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
	"github.com/apflow/taint/internal/pkg/taintspec"
	"github.com/apflow/taint/internal/pkg/utils"
	"golang.org/x/tools/go/ssa"
)

// isFieldPropagator reports whether fn is a getter-like method whose
// body does nothing but return one of its receiver's source fields
// (SUPPLEMENTED FEATURES, adapted from the teacher's fieldpropagator
// analyzer: there it is a separate go/analysis pass exporting a fact
// per object; here, since the check is a pure structural property of
// fn's own body, it is computed directly at the call site without a
// facts round-trip).
func isFieldPropagator(fn *ssa.Function, spec taintspec.Spec) bool {
	if fn == nil || fn.Signature.Results() == nil || fn.Signature.Results().Len() == 0 {
		return false
	}
	for _, b := range fn.Blocks {
		if len(b.Instrs) == 0 {
			continue
		}
		ret, ok := b.Instrs[len(b.Instrs)-1].(*ssa.Return)
		if !ok {
			continue
		}
		for _, r := range ret.Results {
			if fieldAddr, ok := unwrapFieldAddr(r); ok {
				xt, field := fieldAddr.X.Type(), fieldAddr.Field
				_, _, fieldName := utils.DecomposeField(xt, field)
				if fieldName != "" && spec.IsSourceField(utils.Dereference(xt), field, fieldName) {
					return true
				}
			}
		}
	}
	return false
}

// unwrapFieldAddr looks through the single level of indirection a
// dereferenced field read goes through in SSA form (*ssa.UnOp wrapping
// a *ssa.FieldAddr) to find the underlying field access, if any.
func unwrapFieldAddr(v ssa.Value) (*ssa.FieldAddr, bool) {
	switch t := v.(type) {
	case *ssa.FieldAddr:
		return t, true
	case *ssa.Field:
		return nil, false
	case *ssa.UnOp:
		return unwrapFieldAddr(t.X)
	}
	return nil, false
}
