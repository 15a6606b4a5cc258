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

// Package store is the summary store spec.md §6 treats as an external
// collaborator: read_summary(proc, callee) -> option<Summary>,
// write-on-completion. Two implementations ship: Memory (the default,
// sync.Map-backed, scoped to a single process run) and Postgres (for
// persisting summaries across analysis runs of the same codebase).
package store

import (
	"sync"

	"github.com/apflow/taint/internal/pkg/accesstree"
	"golang.org/x/tools/go/ssa"
)

// Store reads and writes per-procedure summaries. Implementations must
// be safe for concurrent use: spec.md §5 requires the store be safe to
// read concurrently, and this module's checker writes summaries from
// multiple goroutines (one per analyzed procedure).
type Store interface {
	// ReadSummary returns the summary for callee if one has been
	// written, or (Tree{}, false) if callee has not been analyzed yet
	// (an unknown call) or was excluded. caller is passed through for
	// backends that want to log or key on it; implementations that
	// don't need it may ignore it.
	ReadSummary(caller, callee *ssa.Function) (accesstree.Tree, bool)
	// WriteSummary records fn's summary, making it visible to any
	// subsequent ReadSummary (read-your-writes, per spec.md §5).
	WriteSummary(fn *ssa.Function, summary accesstree.Tree) error
}

// key identifies a procedure uniquely enough for a single analysis
// run: its *ssa.Function pointer is already a stable, comparable
// identity within one ssa.Program.
type key = *ssa.Function

// Memory is the default Store: an in-memory map guarded by a
// sync.Map, matching the teacher's own preference for sync.Once/plain
// concurrency primitives over a third-party cache.
type Memory struct {
	m sync.Map // key -> accesstree.Tree
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) ReadSummary(caller, callee *ssa.Function) (accesstree.Tree, bool) {
	v, ok := s.m.Load(key(callee))
	if !ok {
		return accesstree.Tree{}, false
	}
	return v.(accesstree.Tree), true
}

func (s *Memory) WriteSummary(fn *ssa.Function, summary accesstree.Tree) error {
	s.m.Store(key(fn), summary)
	return nil
}
