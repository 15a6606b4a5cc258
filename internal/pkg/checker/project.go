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

package checker

import (
	"context"
	"fmt"
	"runtime"

	"github.com/apflow/taint/internal/pkg/report"
	"github.com/apflow/taint/internal/pkg/store"
	"github.com/apflow/taint/internal/pkg/taintspec"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

// Project is the concurrent multi-package driver spec.md §5 calls "the
// surrounding framework": it analyzes many procedures in parallel,
// sharing one Checker (and so one summary store and reentrancy guard)
// across the whole fan-out, bounded by runtime.GOMAXPROCS.
type Project struct {
	Spec      taintspec.Spec
	Store     store.Store
	CallGraph *callgraph.Graph
	MaxCalls  int
	Warnf     func(format string, args ...interface{})
}

// Analyze analyzes every function in funcs concurrently and returns
// every issue found across the whole run. Per-procedure analysis
// itself stays sequential (spec.md §5); only the fan-out across
// distinct procedures runs in parallel.
func (p *Project) Analyze(ctx context.Context, funcs []*ssa.Function) ([]report.Issue, error) {
	c := New(p.Spec, p.Store, p.CallGraph)
	c.MaxCalls = p.MaxCalls
	c.Warnf = p.Warnf

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, fn := range funcs {
		fn := fn
		g.Go(func() error {
			c.Analyze(fn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyzing project: %w", err)
	}
	return c.Issues(), nil
}
