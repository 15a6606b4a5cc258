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

// Package accesspath represents symbolic, variable-rooted locations
// (access paths) and classifies the program variables that root them.
// It plays the role of the "access path & base classifier" component:
// a root Base plus an ordered sequence of Steps (field selection or
// array/slice indexing), wrapped as either an Exact or an Abstracted
// Path.
package accesspath

import (
	"go/types"

	"github.com/apflow/taint/internal/pkg/utils"
	"golang.org/x/exp/typeparams"
	"golang.org/x/tools/go/ssa"
)

// Kind distinguishes the two flavors of variable base named in the
// data model: a named program variable versus a synthetic logical
// variable manufactured by footprint synthesis.
type Kind int

const (
	// ProgramVar is a named program variable: a global, the return slot,
	// a formal parameter, or a local.
	ProgramVar Kind = iota
	// LogicalVar is a compiler-internal temporary, most commonly a
	// footprint variable standing in for an unseen input.
	LogicalVar
)

// Base is the root of an access path: a (kind, type) pair together
// with the classification flags the transfer function and summary
// machinery need. Base is a plain value type so it is safe to use as
// a map key and compares structurally, as access paths require.
type Base struct {
	Kind Kind
	Type types.Type

	// ProgramVar fields.
	//
	// Ref identifies the variable within its owning function: for a
	// local, a formal, or a return-flavored temporary it is the SSA
	// value that names it; for a global it is the *ssa.Global, which is
	// a single stable object shared by every function that references
	// it. Ref is nil for the synthetic return base (Go's SSA has no
	// reified "return variable"; IsReturn stands in for it).
	Ref           ssa.Value
	IsGlobal      bool
	IsReturn      bool
	IsFrontendTmp bool
	// Name disambiguates a global base reconstructed from a persisted
	// summary (store.Postgres), where Ref is unavailable because no
	// live *ssa.Global survives a process boundary. Unused (empty) for
	// any Base built from a live ssa.Value, where Ref's identity is
	// already enough.
	Name string

	// LogicalVar fields.
	Stamp       int
	IsFootprint bool
	// Owner names the procedure a footprint base's stamp is relative
	// to. It has no bearing on equality of two footprint bases from
	// the same procedure, but lets callers sanity-check invariant 3
	// (stamp equals the index of a real formal of that procedure).
	Owner *ssa.Function
}

// Global constructs the Base for a package-level variable.
func Global(g *ssa.Global) Base {
	return Base{Kind: ProgramVar, Type: utils.Dereference(g.Type()), Ref: g, IsGlobal: true}
}

// Return constructs the Base standing for a function's return slot.
func Return(retType types.Type) Base {
	return Base{Kind: ProgramVar, Type: retType, IsReturn: true}
}

// Formal constructs the Base for the i-th SSA parameter (a receiver,
// when present, is Params[0], matching how go/ssa numbers parameters).
func Formal(p *ssa.Parameter) Base {
	return Base{Kind: ProgramVar, Type: p.Type(), Ref: p}
}

// Local constructs the Base for any other named SSA value (a plain
// local, or a frontend-introduced temporary).
func Local(v ssa.Value, frontendTmp bool) Base {
	return Base{Kind: ProgramVar, Type: v.Type(), Ref: v, IsFrontendTmp: frontendTmp}
}

// GlobalFromName reconstructs a global Base from a persisted summary
// (store.Postgres), where no live *ssa.Global survives the process
// boundary. name disambiguates it from every other decoded global the
// same way Ref's pointer identity does for a live Base.
func GlobalFromName(name string, typ types.Type) Base {
	return Base{Kind: ProgramVar, Type: typ, IsGlobal: true, Name: name}
}

// Footprint constructs a LogicalVar base with the given stamp. A
// stamp is the 0-based index of the formal the footprint stands for.
// footprint.Lookup builds footprint bases for formals only; the
// footprint source it makes for a global keeps the global's own path.
func Footprint(owner *ssa.Function, stamp int, typ types.Type) Base {
	return Base{Kind: LogicalVar, Type: typ, IsFootprint: true, Stamp: stamp, Owner: owner}
}

// StepKind distinguishes field selection from array/slice/map indexing.
type StepKind int

const (
	FieldStep StepKind = iota
	IndexStep
)

// Step is one element of an access path: either selection of a named
// struct field (by both index and name, so steps remain meaningful
// even when only one of the two is available) or an index into an
// array, slice, or map.
type Step struct {
	Kind       StepKind
	FieldIndex int
	FieldName  string
}

func Field(index int, name string) Step {
	return Step{Kind: FieldStep, FieldIndex: index, FieldName: name}
}

func Index() Step {
	return Step{Kind: IndexStep}
}

func (s Step) String() string {
	if s.Kind == FieldStep {
		return "." + s.FieldName
	}
	return "[*]"
}

// Path is a root Base plus an ordered sequence of Steps, tagged Exact
// or Abstracted. Exact denotes the concrete location; Abstracted
// denotes that location and everything reachable below it.
type Path struct {
	Base   Base
	Steps  []Step
	Exact_ bool
}

// ExactPath builds an Exact access path.
func ExactPath(base Base, steps ...Step) Path {
	return Path{Base: base, Steps: steps, Exact_: true}
}

// AbstractedPath builds an Abstracted access path.
func AbstractedPath(base Base, steps ...Step) Path {
	return Path{Base: base, Steps: steps, Exact_: false}
}

// IsExact reports whether ap is the Exact flavor.
func (ap Path) IsExact() bool {
	return ap.Exact_
}

// Extract returns the base and steps of an access path.
func Extract(ap Path) (Base, []Step) {
	return ap.Base, ap.Steps
}

// WithBase returns ap re-rooted at base, keeping its steps and flavor.
func WithBase(ap Path, base Base) Path {
	return Path{Base: base, Steps: ap.Steps, Exact_: ap.Exact_}
}

// WithExactness returns ap with its Exact/Abstracted flavor set to exact.
func (ap Path) WithExactness(exact bool) Path {
	return Path{Base: ap.Base, Steps: ap.Steps, Exact_: exact}
}

// Append extends prefix with suffix's steps, keeping prefix's flavor.
// This is the operation summary application (C6) uses to rebase a
// callee-side access path onto a caller-side actual: prefix is the
// caller access path standing in for the actual, suffix is the tail of
// steps recorded past the formal in the callee's summary.
func Append(prefix Path, suffix []Step) Path {
	steps := make([]Step, 0, len(prefix.Steps)+len(suffix))
	steps = append(steps, prefix.Steps...)
	steps = append(steps, suffix...)
	return Path{Base: prefix.Base, Steps: steps, Exact_: prefix.Exact_}
}

// String renders ap for diagnostics and report text.
func (ap Path) String() string {
	s := baseString(ap.Base)
	for _, step := range ap.Steps {
		s += step.String()
	}
	if !ap.Exact_ {
		s += "*"
	}
	return s
}

func baseString(b Base) string {
	switch {
	case b.IsReturn:
		return "$ret"
	case b.IsGlobal:
		if g, ok := b.Ref.(*ssa.Global); ok {
			return g.Object().Pkg().Path() + "." + g.Object().Name()
		}
		if b.Name != "" {
			return b.Name
		}
		return "$global"
	case b.IsFootprint:
		return footprintName(b)
	case b.Ref != nil:
		return b.Ref.Name()
	default:
		return "$base"
	}
}

func footprintName(b Base) string {
	if b.Stamp < 0 {
		return "$footprint[global]"
	}
	return "$footprint[" + itoa(b.Stamp) + "]"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// TypeOf answers spec.md's "static type_of(path) query against a type
// environment". It walks ap's steps against ap.Base.Type, dereferencing
// pointers between steps and resolving generic instantiations via
// typeparams.CoreType so a type-parameterized field or element type
// still resolves to something field/array-shaped.
func TypeOf(ap Path) (types.Type, bool) {
	t := ap.Base.Type
	for _, step := range ap.Steps {
		t = utils.Dereference(t)
		if core := typeparams.CoreType(t); core != nil {
			t = core
		}
		switch step.Kind {
		case FieldStep:
			st, ok := t.Underlying().(*types.Struct)
			if !ok || step.FieldIndex < 0 || step.FieldIndex >= st.NumFields() {
				return nil, false
			}
			t = st.Field(step.FieldIndex).Type()
		case IndexStep:
			switch elem := t.Underlying().(type) {
			case *types.Array:
				t = elem.Elem()
			case *types.Slice:
				t = elem.Elem()
			case *types.Map:
				t = elem.Elem()
			case *types.Pointer:
				t = elem.Elem()
			default:
				return nil, false
			}
		}
	}
	return t, true
}

// IsArrayLike reports whether t is one of the pointer/array-ish shapes
// spec.md's sink-injection step (4.2, Step 2) treats as always
// Abstracted: T*[], T**, T[].
func IsArrayLike(t types.Type) bool {
	switch u := t.Underlying().(type) {
	case *types.Slice:
		return true
	case *types.Array:
		return true
	case *types.Pointer:
		_, isPtr := u.Elem().Underlying().(*types.Pointer)
		return isPtr
	}
	return false
}
