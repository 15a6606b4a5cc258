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

// Package taintspec defines the capability-bundle interface spec.md
// calls "the taint specification": what is a source, what is a sink,
// how an unmodeled call propagates, and how a summary tree is encoded
// for storage. spec.md treats this as an external collaborator; it is
// passed as a parameter object (per spec.md §9's re-architecture
// guidance: "pass it as a parameter object... rather than
// subclassing"), not an interface the transfer function is coupled to
// by inheritance.
package taintspec

import (
	"go/types"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/config"
	"github.com/apflow/taint/internal/pkg/trace"
	"golang.org/x/tools/go/ssa"
)

// SinkMatch is one sink triggered at a call site, per spec.md §4.2 step 2.
type SinkMatch struct {
	Kind            string
	ActualIndex     int
	ReportReachable bool
}

// SourceMatch is the (at most one) source triggered at a call site,
// per spec.md §4.2 step 3.
type SourceMatch struct {
	Kind string
	// ArgIndex is nil for "source is the return value", non-nil for
	// "source taints the i-th actual in place".
	ArgIndex *int
}

// Propagation is one fold step of spec.md §4.4's unknown-call handling.
type Propagation struct {
	Kind        config.PropagationKind
	ActualIndex int
}

// Spec is the capability bundle the transfer function, summary
// application, and summary construction consult. Every method is a
// pure query against call-site shape; nothing here touches the access
// tree directly; that is deliberately the transfer function's job.
type Spec interface {
	// Sources returns every source matched at a call to (path, recv,
	// name), e.g. both a type-based and a field-tag-based match can
	// coexist.
	Sources(path, recv, name string) []SourceMatch
	// TaintedFormals returns the indices of fn's parameters that are
	// tainted simply by being a formal of this procedure (C8's initial
	// state construction), e.g. because their type matches a
	// configured source type.
	TaintedFormals(fn *ssa.Function) []int
	// Sinks returns every sink matched at a call to (path, recv, name).
	Sinks(path, recv, name string) []SinkMatch
	// IsSanitizer reports whether a call to (path, recv, name) breaks
	// the taint chain.
	IsSanitizer(path, recv, name string) bool
	// IsExcluded reports whether fn should be skipped entirely by the
	// top-level driver (C8).
	IsExcluded(path, recv, name string) bool
	// HandleUnknownCall folds spec.md §4.4's propagation rules for an
	// unmodeled call to (path, recv, name).
	HandleUnknownCall(path, recv, name string) []Propagation
	// IsTaintableType implements §4.4's footprint-type filter: keep a
	// footprint source iff its type should be considered taintable at
	// all (e.g. exclude bare numeric/bool types that can't meaningfully
	// carry PII).
	IsTaintableType(t types.Type) bool
	// IsSourceField reports whether a struct field is a source
	// independent of its declaring type (field tags, SUPPLEMENTED
	// FEATURES).
	IsSourceField(structType types.Type, fieldIndex int, fieldName string) bool
	// Endpoints returns the configured endpoint class names
	// (spec.md §5, lazily initialized, process-wide, read-only).
	Endpoints() map[string]bool
}

// SummaryCodec serializes and deserializes a procedure summary tree to
// and from the taint specification's chosen wire format, per spec.md
// §6's of_summary_access_tree / to_summary_access_tree.
type SummaryCodec interface {
	Encode(ap []accesspath.Path, tr []trace.Trace) ([]byte, error)
	Decode(data []byte) ([]accesspath.Path, []trace.Trace, error)
}
