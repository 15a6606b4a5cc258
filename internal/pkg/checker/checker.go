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

// Package checker is the top-level per-procedure driver (C8): it
// builds the initial access tree from a procedure's tainted formals,
// drives the external fixpoint engine, compresses the result into a
// summary, and persists it, per spec.md §4.7. It also implements the
// demand-driven analysis spec.md §5 describes for the summary store:
// a read_summary miss analyzes the callee on demand before answering,
// guarded by a reentrancy check against recursing into a procedure
// still being analyzed higher up the same call chain.
package checker

import (
	"log"
	"sync"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/engine"
	"github.com/apflow/taint/internal/pkg/footprint"
	"github.com/apflow/taint/internal/pkg/hil"
	"github.com/apflow/taint/internal/pkg/report"
	"github.com/apflow/taint/internal/pkg/store"
	"github.com/apflow/taint/internal/pkg/summary"
	"github.com/apflow/taint/internal/pkg/taintspec"
	"github.com/apflow/taint/internal/pkg/trace"
	"github.com/apflow/taint/internal/pkg/transfer"
	"github.com/apflow/taint/internal/pkg/utils"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

// Checker drives spec.md §4.7 across every procedure it is asked to
// analyze, sharing one summary store and one reentrancy guard across
// the whole run so on-demand callee analysis (triggered from inside a
// caller's own Analyze) converges rather than loops.
type Checker struct {
	Spec      taintspec.Spec
	Store     store.Store
	CallGraph *callgraph.Graph
	// MaxCalls overrides transfer's default polymorphism cap when non-zero.
	MaxCalls int
	// Warnf receives recoverable-gap diagnostics; nil defaults to log.Printf.
	Warnf func(format string, args ...interface{})

	inFlight sync.Map // *ssa.Function -> struct{}

	mu     sync.Mutex
	issues []report.Issue
}

// New builds a Checker over spec, persisting and reading summaries
// through st and resolving dynamic-dispatch targets through cg.
func New(spec taintspec.Spec, st store.Store, cg *callgraph.Graph) *Checker {
	return &Checker{Spec: spec, Store: st, CallGraph: cg}
}

// Issues returns every issue collected by every Analyze call made on c
// so far.
func (c *Checker) Issues() []report.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]report.Issue, len(c.issues))
	copy(out, c.issues)
	return out
}

func (c *Checker) warnf(format string, args ...interface{}) {
	if c.Warnf != nil {
		c.Warnf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Analyze implements spec.md §4.7 for fn, returning its summary, or
// (Tree{}, false) if fn is excluded, has no reachable exit, or is
// already being analyzed by any caller of c (the reentrancy guard of
// spec.md §5; it is shared by every goroutine using c, not only the
// current call chain).
func (c *Checker) Analyze(fn *ssa.Function) (accesstree.Tree, bool) {
	path, recv, name := utils.DecomposeFunction(fn)
	if c.Spec.IsExcluded(path, recv, name) {
		return accesstree.Tree{}, false
	}
	if sum, ok := c.Store.ReadSummary(fn, fn); ok {
		return sum, true
	}
	if _, already := c.inFlight.LoadOrStore(fn, struct{}{}); already {
		return accesstree.Tree{}, false
	}
	defer c.inFlight.Delete(fn)

	hilCtx := hil.NewContext(fn)
	fpCtx := footprint.Context{Proc: fn, FormalIndex: hilCtx.FormalIndex}
	txCtx := transfer.Context{
		Proc:      fn,
		Spec:      c.Spec,
		Store:     demandStore{c},
		Resolver:  pathResolver{c},
		Footprint: fpCtx,
		Report:    c.collect,
		MaxCalls:  c.MaxCalls,
		Warnf:     c.warnf,
	}

	eng := engine.Engine[accesstree.Tree]{
		Transfer: func(pre accesstree.Tree, instr ssa.Instruction) accesstree.Tree {
			return c.step(pre, instr, hilCtx, txCtx)
		},
		Join:  accesstree.Join,
		Equal: accesstree.Equal,
	}

	post, ok := eng.Run(fn, c.initialState(fn, hilCtx))
	if !ok {
		if len(fn.Blocks) > 0 && len(fn.Blocks[0].Succs) > 0 {
			c.warnf("taint: %s.%s.%s has a non-trivial CFG but no reachable exit (spec step 4's fatal case)", path, recv, name)
		}
		return accesstree.Tree{}, false
	}

	sum := summary.Construct(post, fpCtx)
	if err := c.Store.WriteSummary(fn, sum); err != nil {
		c.warnf("taint: writing summary for %s.%s.%s: %v", path, recv, name, err)
	}
	return sum, true
}

// initialState implements spec.md §4.7 step 2: seed the access tree
// with of_source(src) at the base path of every tainted formal.
func (c *Checker) initialState(fn *ssa.Function, hilCtx hil.Context) accesstree.Tree {
	tree := accesstree.Empty()
	for _, idx := range c.Spec.TaintedFormals(fn) {
		if idx < 0 || idx >= len(fn.Params) {
			continue
		}
		p := fn.Params[idx]
		site := trace.CallSite{Caller: fn, Pos: fn.Pos()}
		src := trace.Source{Kind: "formal:" + p.Name(), Site: site}
		ap := accesspath.ExactPath(accesspath.Formal(p))
		tree = accesstree.AddTrace(ap, trace.OfSource(src), tree)
	}
	return tree
}

// step lowers a single ssa.Instruction into the HIL shape the
// transfer function understands and applies it.
func (c *Checker) step(pre accesstree.Tree, instr ssa.Instruction, hilCtx hil.Context, txCtx transfer.Context) accesstree.Tree {
	switch v := instr.(type) {
	case *ssa.Store:
		return transfer.Assign(pre, hil.LowerStore(v, hilCtx), txCtx)

	case *ssa.Return:
		tree := pre
		for _, a := range hil.LowerReturn(v, hilCtx) {
			tree = transfer.Assign(tree, a, txCtx)
		}
		return tree

	case ssa.CallInstruction:
		call := hil.LowerCall(v, hilCtx)
		targets := c.dynamicTargetsFor(v)
		post, err := transfer.Call(pre, call, targets, txCtx)
		if err != nil {
			c.warnf("taint: %v", err)
			return pre
		}
		return post

	default:
		return pre
	}
}

// dynamicTargetsFor resolves the call-graph targets of instr via CHA,
// per spec.md §4.2 step 1.
func (c *Checker) dynamicTargetsFor(instr ssa.CallInstruction) []*ssa.Function {
	if c.CallGraph == nil {
		return nil
	}
	node, ok := c.CallGraph.Nodes[instr.Parent()]
	if !ok {
		return nil
	}
	var out []*ssa.Function
	for _, e := range node.Out {
		if e.Site == instr && e.Callee != nil && e.Callee.Func != nil {
			out = append(out, e.Callee.Func)
		}
	}
	return out
}

// collect implements the transfer.Context.Report hook: it turns every
// reportable path found during analysis into a report.Issue.
func (c *Checker) collect(site trace.CallSite, paths []trace.ReportablePath) {
	issues := report.Collect(site, paths, c.Spec.Endpoints())
	if len(issues) == 0 {
		return
	}
	c.mu.Lock()
	c.issues = append(c.issues, issues...)
	c.mu.Unlock()
}

// demandStore wraps Checker.Store so that a miss triggers on-demand
// analysis of the callee (spec.md §5: "read_summary... may trigger
// on-demand analysis of a callee and is the only operation that can
// transitively call back into this module").
type demandStore struct{ c *Checker }

func (d demandStore) ReadSummary(caller, callee *ssa.Function) (accesstree.Tree, bool) {
	if sum, ok := d.c.Store.ReadSummary(caller, callee); ok {
		return sum, true
	}
	if callee == nil || len(callee.Blocks) == 0 {
		return accesstree.Tree{}, false
	}
	return d.c.Analyze(callee)
}

func (d demandStore) WriteSummary(fn *ssa.Function, sum accesstree.Tree) error {
	return d.c.Store.WriteSummary(fn, sum)
}

// pathResolver implements trace.PathResolver for the reentrancy guard:
// a procedure presently in flight (being analyzed anywhere in this
// Checker) reports an empty trace rather than its partial state.
type pathResolver struct{ c *Checker }

func (r pathResolver) TraceOfProcedure(pname *ssa.Function) trace.Trace {
	if _, inFlight := r.c.inFlight.Load(pname); inFlight {
		return trace.Empty
	}
	sum, ok := r.c.Store.ReadSummary(nil, pname)
	if !ok {
		return trace.Empty
	}
	out := trace.Empty
	first := true
	accesstree.TraceFold(sum, func(_ accesspath.Path, tr trace.Trace) {
		if first {
			out, first = tr, false
			return
		}
		out = trace.Join(out, tr)
	})
	return out
}
