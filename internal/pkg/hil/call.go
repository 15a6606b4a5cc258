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

package hil

import (
	"go/token"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"golang.org/x/tools/go/ssa"
)

// Call is the lowered Call(ret_opt, callee, actuals, flags, loc)
// instruction shape of spec.md §4.2.
type Call struct {
	Instr        ssa.CallInstruction
	RetPath      *accesspath.Path
	StaticCallee *ssa.Function
	Actuals      []accesspath.Path
	// ActualValues mirrors Actuals but keeps the underlying ssa.Value,
	// which summary application and the variadic filter need for type
	// queries that access-path-only information can't answer (e.g. "is
	// the last parameter's type a variadic Object[]").
	ActualValues []ssa.Value
	Pos          token.Pos
	IsGo         bool
	IsDefer      bool
}

// LowerCall turns any ssa.CallInstruction (*ssa.Call, *ssa.Go, or
// *ssa.Defer) into a Call.
func LowerCall(instr ssa.CallInstruction, ctx Context) Call {
	common := instr.Common()
	c := Call{
		Instr:        instr,
		StaticCallee: common.StaticCallee(),
		Pos:          instr.Pos(),
	}
	if call, ok := instr.(*ssa.Call); ok {
		p := ValuePath(call, ctx)
		c.RetPath = &p
	}
	if _, ok := instr.(*ssa.Go); ok {
		c.IsGo = true
	}
	if _, ok := instr.(*ssa.Defer); ok {
		c.IsDefer = true
	}
	for _, a := range common.Args {
		c.Actuals = append(c.Actuals, ValuePath(a, ctx))
		c.ActualValues = append(c.ActualValues, a)
	}
	return c
}

// IsOperatorAssign implements spec.md §4.4's "callee's short method
// name is operator= and the callee is not from a managed language"
// check. go/ssa's program model has no operator-overloading callee
// shape (Go has no user-definable operator=), so this predicate always
// answers false for this lowering; it exists, per spec.md §9, so a
// different HIL-lowering collaborator targeting a language that does
// have such an operator could supply a real answer without touching
// the transfer function.
func IsOperatorAssign(target *ssa.Function) bool {
	return false
}

// VariadicActuals expands the final variadic slice argument of a call
// into the individual values stored into it at the call site,
// adapting the teacher's varargs package: go/ssa represents a variadic
// call's trailing arguments as an *ssa.Slice built from an *ssa.Alloc
// tagged with Comment "varargs", populated by one *ssa.IndexAddr +
// *ssa.Store pair per element. Returns nil if call is not variadic or
// the trailing argument isn't a literal slice built this way (e.g. an
// explicit `s...` spread, which already has its own access path and
// needs no expansion).
func VariadicActuals(call Call, ctx Context) []accesspath.Path {
	cc := call.Instr.Common()
	if !cc.Signature.Variadic() || len(cc.Args) == 0 {
		return nil
	}
	last := cc.Args[len(cc.Args)-1]
	sl, ok := last.(*ssa.Slice)
	if !ok {
		return nil
	}
	alloc, ok := sl.X.(*ssa.Alloc)
	if !ok || (alloc.Comment != "varargs" && alloc.Comment != "slicelit") {
		return nil
	}
	var out []accesspath.Path
	refs := alloc.Referrers()
	if refs == nil {
		return nil
	}
	for _, r := range *refs {
		idx, ok := r.(*ssa.IndexAddr)
		if !ok || idx.Referrers() == nil {
			continue
		}
		for _, ir := range *idx.Referrers() {
			if store, ok := ir.(*ssa.Store); ok {
				out = append(out, ValuePath(store.Val, ctx))
			}
		}
	}
	return out
}
