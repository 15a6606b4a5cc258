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

// Package transfer is the transfer function (C5): it interprets one
// lowered HIL instruction against a pre-state access tree and produces
// a post-state, delegating to footprint synthesis (C4) on unseen
// reads and to summary application (C6) or unknown-call handling on
// calls with or without a known callee summary.
package transfer

import (
	"go/token"

	"github.com/apflow/taint/internal/pkg/footprint"
	"github.com/apflow/taint/internal/pkg/store"
	"github.com/apflow/taint/internal/pkg/taintspec"
	"github.com/apflow/taint/internal/pkg/trace"
	"golang.org/x/tools/go/ssa"
)

// defaultMaxCalls bounds the number of dynamic-dispatch targets a call
// site will analyze before the polymorphism cap discards them all in
// favor of the static callee (spec.md §4.2 step 1).
const defaultMaxCalls = 3

// Context carries everything the transfer function needs beyond the
// pre-state and the instruction itself.
type Context struct {
	Proc     *ssa.Function
	Spec     taintspec.Spec
	Store    store.Store
	Resolver trace.PathResolver
	Footprint footprint.Context
	// Report is invoked with every reportable path found while
	// processing a call; nil disables reporting (useful for tests that
	// only care about the resulting tree).
	Report func(trace.CallSite, []trace.ReportablePath)
	// MaxCalls overrides defaultMaxCalls when non-zero.
	MaxCalls int
	// Warnf receives recoverable-gap diagnostics (spec.md §7's "log
	// warning, skip" disposition), e.g. log.Printf from a caller that
	// only wants them under -v.
	Warnf func(format string, args ...interface{})
}

func (c Context) maxCalls() int {
	if c.MaxCalls > 0 {
		return c.MaxCalls
	}
	return defaultMaxCalls
}

func (c Context) warnf(format string, args ...interface{}) {
	if c.Warnf != nil {
		c.Warnf(format, args...)
	}
}

func (c Context) report(site trace.CallSite, paths []trace.ReportablePath) {
	if c.Report != nil && len(paths) > 0 {
		c.Report(site, paths)
	}
}

// siteOf builds the CallSite for an instruction position within Proc.
func (c Context) siteOf(pos token.Pos) trace.CallSite {
	return trace.CallSite{Caller: c.Proc, Pos: pos}
}
