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

// Package configspec adapts a config.Document into a taintspec.Spec,
// in the style of the teacher's internal/pkg/source and
// internal/pkg/fieldtags packages, folded into a single capability
// bundle so the transfer function has one thing to ask instead of
// three.
package configspec

import (
	"go/types"
	"sync"

	"github.com/apflow/taint/internal/pkg/config"
	"github.com/apflow/taint/internal/pkg/taintspec"
	"golang.org/x/tools/go/ssa"
)

// Spec wraps a *config.Document to implement taintspec.Spec.
type Spec struct {
	doc *config.Document

	endpointsOnce sync.Once
	endpoints     map[string]bool
}

// New builds a Spec from a parsed taint specification document.
func New(doc *config.Document) *Spec {
	return &Spec{doc: doc}
}

func (s *Spec) Sources(path, recv, name string) []taintspec.SourceMatch {
	var out []taintspec.SourceMatch
	for _, sr := range s.doc.Sources {
		if !sr.IsFunc {
			continue
		}
		if sr.MatchFunc(path, recv, name) {
			out = append(out, taintspec.SourceMatch{Kind: path + "." + recv + "." + name, ArgIndex: sr.ArgIndex})
		}
	}
	return out
}

// TaintedFormals reports which parameters of fn have a source type,
// per spec.md §4.1's "a formal whose declared type is a source type is
// tainted on entry" rule (SUPPLEMENTED: the teacher's analogous
// "taint propagates from a parameter of a source type" behavior).
func (s *Spec) TaintedFormals(fn *ssa.Function) []int {
	var out []int
	for i, p := range fn.Params {
		if s.isSourceType(p.Type()) {
			out = append(out, i)
		}
	}
	return out
}

func (s *Spec) isSourceType(t types.Type) bool {
	named, ok := derefNamed(t)
	if !ok {
		return false
	}
	obj := named.Obj()
	path := ""
	if pkg := obj.Pkg(); pkg != nil {
		path = pkg.Path()
	}
	for _, sr := range s.doc.Sources {
		if !sr.IsFunc && sr.MatchType(path, obj.Name()) {
			return true
		}
	}
	return false
}

func derefNamed(t types.Type) (*types.Named, bool) {
	for {
		switch u := t.(type) {
		case *types.Pointer:
			t = u.Elem()
		case *types.Named:
			return u, true
		default:
			return nil, false
		}
	}
}

func (s *Spec) Sinks(path, recv, name string) []taintspec.SinkMatch {
	var out []taintspec.SinkMatch
	for _, sk := range s.doc.Sinks {
		if sk.Match(path, recv, name) {
			out = append(out, taintspec.SinkMatch{
				Kind:            path + "." + recv + "." + name,
				ActualIndex:     sk.ArgIndex,
				ReportReachable: sk.ReportReachable,
			})
		}
	}
	return out
}

func (s *Spec) IsSanitizer(path, recv, name string) bool {
	return s.doc.IsSanitizer(path, recv, name)
}

func (s *Spec) IsExcluded(path, recv, name string) bool {
	return s.doc.IsExcluded(path, recv, name)
}

func (s *Spec) HandleUnknownCall(path, recv, name string) []taintspec.Propagation {
	var out []taintspec.Propagation
	for _, pr := range s.doc.Propagation {
		if pr.Match(path, recv, name) {
			out = append(out, taintspec.Propagation{Kind: pr.Kind, ActualIndex: pr.ActualIndex})
		}
	}
	return out
}

// IsTaintableType excludes bool (and invalid) types, looking through
// pointers; every other type, including numeric and string kinds, is
// taintable.
func (s *Spec) IsTaintableType(t types.Type) bool {
	for {
		if p, ok := t.Underlying().(*types.Pointer); ok {
			t = p.Elem()
			continue
		}
		break
	}
	switch u := t.Underlying().(type) {
	case *types.Basic:
		switch u.Kind() {
		case types.Bool, types.Invalid:
			return false
		}
		return true
	default:
		return true
	}
}

// IsSourceField checks the field-tags configuration (SUPPLEMENTED
// FEATURES, adapted from the teacher's fieldtags package) against the
// struct tag of fieldIndex within structType.
func (s *Spec) IsSourceField(structType types.Type, fieldIndex int, fieldName string) bool {
	st, ok := structType.Underlying().(*types.Struct)
	if !ok || fieldIndex >= st.NumFields() {
		return false
	}
	tag := st.Tag(fieldIndex)
	if s.doc.IsSourceFieldTag(tag) {
		return true
	}
	named, ok := derefNamed(structType)
	if !ok {
		return false
	}
	path := ""
	if pkg := named.Obj().Pkg(); pkg != nil {
		path = pkg.Path()
	}
	for _, sr := range s.doc.Sources {
		if !sr.IsFunc && sr.MatchField(path, named.Obj().Name(), fieldName) {
			return true
		}
	}
	return false
}

func (s *Spec) Endpoints() map[string]bool {
	s.endpointsOnce.Do(func() {
		s.endpoints = make(map[string]bool, len(s.doc.Endpoints))
		for _, e := range s.doc.Endpoints {
			s.endpoints[e] = true
		}
	})
	return s.endpoints
}
