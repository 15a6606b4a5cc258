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
	"go/token"
	"go/types"

	"github.com/apflow/taint/internal/pkg/taintspec"
	"golang.org/x/tools/go/ssa"
)

// fakeValue is a minimal ssa.Value stand-in with a controllable static
// type, so a test can exercise a real (non-nil) types.Type without
// building actual SSA.
type fakeValue struct {
	typ types.Type
}

func (f *fakeValue) Name() string                 { return "fakeValue" }
func (f *fakeValue) String() string                { return "fakeValue" }
func (f *fakeValue) Type() types.Type              { return f.typ }
func (f *fakeValue) Parent() *ssa.Function         { return nil }
func (f *fakeValue) Referrers() *[]ssa.Instruction { return nil }
func (f *fakeValue) Pos() token.Pos                { return token.NoPos }

var _ ssa.Value = (*fakeValue)(nil)

// fakeSpec is a taintspec.Spec test double: each test sets only the
// fields it cares about, every other query answers its zero value (no
// sources, no sinks, not a sanitizer, ...).
type fakeSpec struct {
	sources       []taintspec.SourceMatch
	sinks         []taintspec.SinkMatch
	sanitizer     bool
	excluded      bool
	propagations  []taintspec.Propagation
	taintableType func(types.Type) bool
	sourceField   bool
	endpoints     map[string]bool
}

func (s fakeSpec) Sources(path, recv, name string) []taintspec.SourceMatch { return s.sources }
func (s fakeSpec) TaintedFormals(fn *ssa.Function) []int                   { return nil }
func (s fakeSpec) Sinks(path, recv, name string) []taintspec.SinkMatch     { return s.sinks }
func (s fakeSpec) IsSanitizer(path, recv, name string) bool                { return s.sanitizer }
func (s fakeSpec) IsExcluded(path, recv, name string) bool                 { return s.excluded }
func (s fakeSpec) HandleUnknownCall(path, recv, name string) []taintspec.Propagation {
	return s.propagations
}
func (s fakeSpec) IsTaintableType(t types.Type) bool {
	if s.taintableType != nil {
		return s.taintableType(t)
	}
	return true
}
func (s fakeSpec) IsSourceField(structType types.Type, fieldIndex int, fieldName string) bool {
	return s.sourceField
}
func (s fakeSpec) Endpoints() map[string]bool { return s.endpoints }

var _ taintspec.Spec = fakeSpec{}

// emptySignature is a signature with no receiver, params, or results:
// enough for utils.DecomposeFunction to run without touching a nil
// *types.Signature.
func emptySignature() *types.Signature {
	return types.NewSignature(nil, types.NewTuple(), types.NewTuple(), false)
}

// fn builds a minimal *ssa.Function carrying sig, the only field the
// functions under test here (DecomposeFunction, the variadic check,
// the receiver check) ever read.
func fn(sig *types.Signature) *ssa.Function {
	return &ssa.Function{Signature: sig}
}
