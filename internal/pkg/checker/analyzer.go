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
	"flag"
	"fmt"
	"log"
	"sync"

	"github.com/apflow/taint/internal/pkg/config"
	"github.com/apflow/taint/internal/pkg/store"
	"github.com/apflow/taint/internal/pkg/taintspec/configspec"
	"github.com/google/uuid"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"
	"golang.org/x/tools/go/callgraph/cha"
)

// Analyzer is the go/analysis entry point, mirroring the teacher's
// package-level Analyzer (internal/levee.go's Analyzer) and meant to
// be driven the same way, via singlechecker.Main in cmd/taintcheck.
var Analyzer = &analysis.Analyzer{
	Name:     "taintcheck",
	Doc:      "reports interprocedural source-to-sink taint flows",
	Run:      run,
	Requires: []*analysis.Analyzer{buildssa.Analyzer},
}

func init() {
	// Re-registers internal/pkg/config's already-defined -config flag
	// onto Analyzer.Flags, so a single taint specification document
	// configures both the library and the command-line entry point,
	// the same way the teacher wires its own -config flag directly
	// onto its Analyzer.
	config.FlagSet.VisitAll(func(f *flag.Flag) {
		Analyzer.Flags.Var(f.Value, f.Name, f.Usage)
	})
}

var (
	sharedStoreOnce sync.Once
	sharedStoreVal  store.Store
)

// sharedStore returns the process-wide default summary store so that
// summaries computed while analyzing one package are reused when a
// later package's analysis calls into it, consistent with spec.md §5
// treating the store as shared across the whole run.
func sharedStore() store.Store {
	sharedStoreOnce.Do(func() { sharedStoreVal = store.NewMemory() })
	return sharedStoreVal
}

func run(pass *analysis.Pass) (interface{}, error) {
	doc, err := config.ReadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading taint specification: %w", err)
	}
	spec := configspec.New(doc)

	ssaInput := pass.ResultOf[buildssa.Analyzer].(*buildssa.SSA)
	cg := cha.CallGraph(ssaInput.Pkg.Prog)

	c := New(spec, sharedStore(), cg)
	c.Warnf = func(format string, args ...interface{}) { log.Printf(format, args...) }

	for _, fn := range ssaInput.SrcFuncs {
		c.Analyze(fn)
	}

	seen := make(map[uuid.UUID]bool)
	for _, issue := range c.Issues() {
		if seen[issue.ID] {
			continue
		}
		seen[issue.ID] = true
		pass.Reportf(issue.Site.Pos, "%s", issue.Message)
	}
	return nil, nil
}
