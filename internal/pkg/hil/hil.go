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

// Package hil lowers golang.org/x/tools/go/ssa instructions into the
// two HIL instruction shapes the transfer function (C5) understands,
// Assign and Call, so that the transfer function itself stays
// instruction-shape-agnostic as spec.md §9 recommends: frontend-
// specific quirks belong here, not baked into the transfer function.
package hil

import (
	"go/token"
	"go/types"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"golang.org/x/tools/go/ssa"
)

// Context carries the per-procedure information needed to turn SSA
// values into access paths: which ssa.Value is which formal.
type Context struct {
	Proc        *ssa.Function
	FormalIndex map[ssa.Value]int
}

// NewContext builds a Context for fn, numbering parameters exactly as
// go/ssa does (a receiver, when present, occupies index 0).
func NewContext(fn *ssa.Function) Context {
	idx := make(map[ssa.Value]int, len(fn.Params))
	for i, p := range fn.Params {
		idx[p] = i
	}
	return Context{Proc: fn, FormalIndex: idx}
}

// ValuePath computes the access path naming an arbitrary SSA value.
// Field/array addressing instructions are unwrapped recursively so
// that `p.A.B` and `&p.A.B` collapse onto the same access path (taking
// the address of a field does not create a new variable); every other
// SSA value is treated as its own atomic, self-named location, which
// is what lets a call's result register serve directly as the Exact
// path written by source injection.
func ValuePath(v ssa.Value, ctx Context) accesspath.Path {
	switch val := v.(type) {
	case *ssa.Parameter:
		return accesspath.ExactPath(accesspath.Formal(val))
	case *ssa.Global:
		return accesspath.ExactPath(accesspath.Global(val))
	case *ssa.FieldAddr:
		base := ValuePath(val.X, ctx)
		_, name := fieldNameOf(val.X.Type(), val.Field)
		b, steps := accesspath.Extract(base)
		return accesspath.ExactPath(b, append(append([]accesspath.Step{}, steps...), accesspath.Field(val.Field, name))...)
	case *ssa.Field:
		base := ValuePath(val.X, ctx)
		_, name := fieldNameOf(val.X.Type(), val.Field)
		b, steps := accesspath.Extract(base)
		return accesspath.ExactPath(b, append(append([]accesspath.Step{}, steps...), accesspath.Field(val.Field, name))...)
	case *ssa.IndexAddr:
		base := ValuePath(val.X, ctx)
		b, steps := accesspath.Extract(base)
		return accesspath.ExactPath(b, append(append([]accesspath.Step{}, steps...), accesspath.Index())...)
	case *ssa.Index:
		base := ValuePath(val.X, ctx)
		b, steps := accesspath.Extract(base)
		return accesspath.ExactPath(b, append(append([]accesspath.Step{}, steps...), accesspath.Index())...)
	case *ssa.UnOp:
		if val.Op == token.MUL {
			// Dereferencing a pointer-to-location does not change the
			// access path it denotes.
			return ValuePath(val.X, ctx)
		}
	case *ssa.MakeInterface:
		return ValuePath(val.X, ctx)
	case *ssa.ChangeType:
		return ValuePath(val.X, ctx)
	case *ssa.Convert:
		return ValuePath(val.X, ctx)
	}
	frontendTmp := isFrontendTmp(v)
	return accesspath.ExactPath(accesspath.Local(v, frontendTmp))
}

func fieldNameOf(structType types.Type, index int) (int, string) {
	t := structType
	for {
		if p, ok := t.Underlying().(*types.Pointer); ok {
			t = p.Elem()
			continue
		}
		break
	}
	if st, ok := t.Underlying().(*types.Struct); ok && index >= 0 && index < st.NumFields() {
		return index, st.Field(index).Name()
	}
	return index, ""
}

// isFrontendTmp approximates spec.md's ProgramVar.is_frontend_tmp flag
// for values go/ssa introduces that don't correspond to a user-written
// name, e.g. register temporaries used to build a varargs slice.
func isFrontendTmp(v ssa.Value) bool {
	if a, ok := v.(*ssa.Alloc); ok {
		return a.Comment == "varargs" || a.Comment == "slicelit"
	}
	return v.Name() != "" && v.Name()[0] == 't'
}

// Assign is the lowered Assign(lhs, rhs) instruction shape of spec.md §4.2.
type Assign struct {
	LHS accesspath.Path
	RHS accesspath.Path
	// IsReturnAssign is true when LHS is the procedure's return slot.
	IsReturnAssign bool
	// RetType is the declared return type governing the null-as-return
	// skip case.
	RetType types.Type
}

// LowerStore turns an *ssa.Store into an Assign instruction.
func LowerStore(s *ssa.Store, ctx Context) Assign {
	return Assign{LHS: ValuePath(s.Addr, ctx), RHS: ValuePath(s.Val, ctx)}
}

// LowerReturn turns an *ssa.Return into one Assign per result, onto
// the synthetic return base. A multi-result return addresses each
// result with a Field step carrying its tuple index, so multi-value
// functions still get per-slot summaries rather than collapsing them.
func LowerReturn(r *ssa.Return, ctx Context) []Assign {
	retType := ctx.Proc.Signature.Results()
	out := make([]Assign, 0, len(r.Results))
	for i, res := range r.Results {
		var retBase accesspath.Path
		var fieldType types.Type
		if retType.Len() > 1 {
			fieldType = retType.At(i).Type()
			retBase = accesspath.ExactPath(accesspath.Return(retType.At(i).Type()), accesspath.Field(i, retType.At(i).Name()))
		} else if retType.Len() == 1 {
			fieldType = retType.At(0).Type()
			retBase = accesspath.ExactPath(accesspath.Return(fieldType))
		} else {
			continue
		}
		out = append(out, Assign{LHS: retBase, RHS: ValuePath(res, ctx), IsReturnAssign: true, RetType: fieldType})
	}
	return out
}

// IsExceptionBearing implements the first Assign skip-case of §4.2: a
// frontend that encodes `throw e` as `return e` in a void function.
// go/ssa has no such encoding (Go's panic/recover is not expressed as
// a return), so this predicate is always false for this lowering; it
// exists, per spec.md §9, so a different HIL-lowering collaborator can
// supply a real answer without touching the transfer function.
func IsExceptionBearing(rhs accesspath.Path) bool {
	return false
}

// IsNullLiteralVoidReturn implements the second Assign skip-case: a
// `return nil` written into a void function's return slot. Again,
// go/ssa's *ssa.Return for a no-result function carries zero Results,
// so LowerReturn never produces an Assign for it in the first place;
// this predicate exists for symmetry with spec.md §4.2 and always
// answers false here.
func IsNullLiteralVoidReturn(lhs, rhs accesspath.Path, retType types.Type) bool {
	return false
}
