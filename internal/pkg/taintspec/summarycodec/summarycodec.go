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

// Package summarycodec is the default taintspec.SummaryCodec: a plain
// JSON encoding of a summary's (access path, trace) pairs, sized to
// carry exactly what spec.md §4.5 guarantees a summary ever contains —
// a global, the return base, or a footprint-indexed formal — so
// store.Postgres can round-trip a summary across process boundaries
// without needing a live *ssa.Program to decode against.
//
// Base.Type and CallSite.Caller are deliberately not round-tripped:
// summary application (internal/pkg/summary) never consults either, so
// a decoded summary is fully usable for Apply even though its bases
// carry only a types.Invalid placeholder type and its sources/sinks
// carry no caller function pointer (only the source position, kept for
// diagnostics).
package summarycodec

import (
	"encoding/json"
	"fmt"
	"go/token"
	"go/types"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/trace"
	"golang.org/x/tools/go/ssa"
)

// JSON is the default taintspec.SummaryCodec implementation.
type JSON struct{}

type wireBase struct {
	IsGlobal    bool   `json:"isGlobal,omitempty"`
	IsReturn    bool   `json:"isReturn,omitempty"`
	IsFootprint bool   `json:"isFootprint,omitempty"`
	Stamp       int    `json:"stamp,omitempty"`
	GlobalName  string `json:"globalName,omitempty"`
}

type wireStep struct {
	Index bool   `json:"index,omitempty"`
	Field int    `json:"field,omitempty"`
	Name  string `json:"name,omitempty"`
}

type wirePath struct {
	Base  wireBase   `json:"base"`
	Steps []wireStep `json:"steps,omitempty"`
	Exact bool       `json:"exact"`
}

type wireSource struct {
	Kind     string    `json:"kind"`
	Pos      int       `json:"pos"`
	Endpoint bool      `json:"endpoint,omitempty"`
	Footprint *wirePath `json:"footprint,omitempty"`
}

type wireSink struct {
	Kind string `json:"kind"`
	Pos  int    `json:"pos"`
}

type wireEntry struct {
	Path    wirePath     `json:"path"`
	Sources []wireSource `json:"sources,omitempty"`
	Sinks   []wireSink   `json:"sinks,omitempty"`
}

// Encode implements taintspec.SummaryCodec.
func (JSON) Encode(ap []accesspath.Path, tr []trace.Trace) ([]byte, error) {
	entries := make([]wireEntry, 0, len(ap))
	for i, p := range ap {
		wp, err := encodePath(p)
		if err != nil {
			return nil, fmt.Errorf("encoding summary entry %d: %w", i, err)
		}
		entries = append(entries, wireEntry{
			Path:    wp,
			Sources: encodeSources(tr[i].Sources()),
			Sinks:   encodeSinks(tr[i].Sinks()),
		})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshaling summary: %w", err)
	}
	return data, nil
}

// Decode implements taintspec.SummaryCodec.
func (JSON) Decode(data []byte) ([]accesspath.Path, []trace.Trace, error) {
	var entries []wireEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling summary: %w", err)
	}
	paths := make([]accesspath.Path, 0, len(entries))
	traces := make([]trace.Trace, 0, len(entries))
	for i, e := range entries {
		p, err := decodePath(e.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding summary entry %d: %w", i, err)
		}
		t, err := decodeTrace(e)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding summary entry %d: %w", i, err)
		}
		paths = append(paths, p)
		traces = append(traces, t)
	}
	return paths, traces, nil
}

func encodePath(p accesspath.Path) (wirePath, error) {
	base, steps := accesspath.Extract(p)
	wb, err := encodeBase(base)
	if err != nil {
		return wirePath{}, err
	}
	wp := wirePath{Base: wb, Exact: p.IsExact()}
	for _, s := range steps {
		wp.Steps = append(wp.Steps, encodeStep(s))
	}
	return wp, nil
}

func encodeBase(b accesspath.Base) (wireBase, error) {
	switch {
	case b.IsReturn:
		return wireBase{IsReturn: true}, nil
	case b.IsFootprint:
		return wireBase{IsFootprint: true, Stamp: b.Stamp}, nil
	case b.IsGlobal:
		name := b.Name
		if name == "" {
			if g, ok := b.Ref.(*ssa.Global); ok {
				name = g.Object().Pkg().Path() + "." + g.Object().Name()
			}
		}
		if name == "" {
			return wireBase{}, fmt.Errorf("global base has no recoverable name")
		}
		return wireBase{IsGlobal: true, GlobalName: name}, nil
	default:
		return wireBase{}, fmt.Errorf("base is not a global, return, or footprint base (invariant 2 violation)")
	}
}

func encodeStep(s accesspath.Step) wireStep {
	if s.Kind == accesspath.IndexStep {
		return wireStep{Index: true}
	}
	return wireStep{Field: s.FieldIndex, Name: s.FieldName}
}

func encodeSources(srcs []trace.Source) []wireSource {
	if len(srcs) == 0 {
		return nil
	}
	out := make([]wireSource, 0, len(srcs))
	for _, s := range srcs {
		ws := wireSource{Kind: s.Kind, Pos: int(s.Site.Pos), Endpoint: s.Endpoint}
		if fp, ok := s.GetFootprintAccessPath(); ok {
			if wp, err := encodePath(fp); err == nil {
				ws.Footprint = &wp
			}
		}
		out = append(out, ws)
	}
	return out
}

func encodeSinks(sinks []trace.Sink) []wireSink {
	if len(sinks) == 0 {
		return nil
	}
	out := make([]wireSink, 0, len(sinks))
	for _, s := range sinks {
		out = append(out, wireSink{Kind: s.Kind, Pos: int(s.Site.Pos)})
	}
	return out
}

func decodePath(wp wirePath) (accesspath.Path, error) {
	base, err := decodeBase(wp.Base)
	if err != nil {
		return accesspath.Path{}, err
	}
	steps := make([]accesspath.Step, 0, len(wp.Steps))
	for _, ws := range wp.Steps {
		steps = append(steps, decodeStep(ws))
	}
	if wp.Exact {
		return accesspath.ExactPath(base, steps...), nil
	}
	return accesspath.AbstractedPath(base, steps...), nil
}

func decodeBase(wb wireBase) (accesspath.Base, error) {
	switch {
	case wb.IsReturn:
		return accesspath.Return(types.Typ[types.Invalid]), nil
	case wb.IsFootprint:
		return accesspath.Footprint(nil, wb.Stamp, types.Typ[types.Invalid]), nil
	case wb.IsGlobal:
		if wb.GlobalName == "" {
			return accesspath.Base{}, fmt.Errorf("global base entry has no name")
		}
		return accesspath.GlobalFromName(wb.GlobalName, types.Typ[types.Invalid]), nil
	default:
		return accesspath.Base{}, fmt.Errorf("wire base names none of global, return, or footprint")
	}
}

func decodeStep(ws wireStep) accesspath.Step {
	if ws.Index {
		return accesspath.Index()
	}
	return accesspath.Field(ws.Field, ws.Name)
}

func decodeTrace(e wireEntry) (trace.Trace, error) {
	t := trace.Empty
	for _, ws := range e.Sources {
		src := trace.Source{Kind: ws.Kind, Site: trace.CallSite{Pos: token.Pos(ws.Pos)}, Endpoint: ws.Endpoint}
		if ws.Footprint != nil {
			fp, err := decodePath(*ws.Footprint)
			if err != nil {
				return trace.Trace{}, err
			}
			src.FootprintPath = &fp
		}
		t = t.AddSource(src)
	}
	for _, wk := range e.Sinks {
		t = t.AddSink(trace.Sink{Kind: wk.Kind, Site: trace.CallSite{Pos: token.Pos(wk.Pos)}})
	}
	return t, nil
}
