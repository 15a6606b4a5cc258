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

// Package engine is the "external fixpoint engine" spec.md treats as
// a collaborator: a forward worklist dataflow solver over
// *ssa.Function.Blocks, parameterized by a transfer function and a
// join, generic over the state type so it has no dependency on
// internal/pkg/accesstree and stays genuinely swappable.
package engine

import "golang.org/x/tools/go/ssa"

// Transfer interprets one instruction against a pre-state, returning
// the post-state. Implementations must be pure in their state
// argument (spec.md §9's "fixpoint coupling" guidance) so the engine
// can freely re-join and re-run a block.
type Transfer[S any] func(pre S, instr ssa.Instruction) S

// Join computes the lattice join of two states. Must be associative,
// commutative, and idempotent for the worklist to converge (spec.md
// §3 invariant 2).
type Join[S any] func(a, b S) S

// Equal reports whether two states are identical, used to detect that
// a block's out-state has stopped changing.
type Equal[S any] func(a, b S) bool

// Engine bundles the three functions a Run needs.
type Engine[S any] struct {
	Transfer Transfer[S]
	Join     Join[S]
	Equal    Equal[S]
}

// Run iterates Transfer over fn's basic blocks, in forward worklist
// order, from an initial state seeded on the entry block, until every
// block's out-state stops changing. It returns the join of every
// terminal block's (a block with no successors) out-state, or
// (zero value, false) if fn has no blocks or no terminal block ever
// produced an out-state (an unreachable-exit CFG).
func (e Engine[S]) Run(fn *ssa.Function, initial S) (S, bool) {
	var zero S
	if len(fn.Blocks) == 0 {
		return zero, false
	}

	entry := fn.Blocks[0]
	out := make(map[*ssa.BasicBlock]S, len(fn.Blocks))

	queued := make(map[*ssa.BasicBlock]bool, len(fn.Blocks))
	worklist := make([]*ssa.BasicBlock, 0, len(fn.Blocks))
	push := func(b *ssa.BasicBlock) {
		if !queued[b] {
			worklist = append(worklist, b)
			queued[b] = true
		}
	}
	push(entry)

	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]
		queued[b] = false

		in := e.blockIn(b, entry, initial, out)

		state := in
		for _, instr := range b.Instrs {
			state = e.Transfer(state, instr)
		}

		prev, had := out[b]
		if had && e.Equal(prev, state) {
			continue
		}
		out[b] = state
		for _, s := range b.Succs {
			push(s)
		}
	}

	return e.joinTerminalStates(fn, out)
}

// blockIn computes a block's in-state as the join of its
// already-computed predecessors' out-states, joined with initial for
// the entry block. A predecessor not yet processed is skipped.
func (e Engine[S]) blockIn(b, entry *ssa.BasicBlock, initial S, out map[*ssa.BasicBlock]S) S {
	var in S
	first := true
	if b == entry {
		in, first = initial, false
	}
	for _, p := range b.Preds {
		ps, ok := out[p]
		if !ok {
			continue
		}
		if first {
			in, first = ps, false
		} else {
			in = e.Join(in, ps)
		}
	}
	return in
}

// joinTerminalStates joins the out-state of every block with no
// successors (a procedure's exit points; a CFG may have several, one
// per early return or panic).
func (e Engine[S]) joinTerminalStates(fn *ssa.Function, out map[*ssa.BasicBlock]S) (S, bool) {
	var result S
	found := false
	for _, b := range fn.Blocks {
		if len(b.Succs) != 0 {
			continue
		}
		st, ok := out[b]
		if !ok {
			continue
		}
		if !found {
			result, found = st, true
		} else {
			result = e.Join(result, st)
		}
	}
	return result, found
}
