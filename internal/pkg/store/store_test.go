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

package store

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// buildSSA mirrors the teacher's internal/pkg/call and internal/pkg/EAR
// test pattern: type-check and lower an in-memory source string into a
// real *ssa.Package, giving procedureKey/decomposeFunction a genuine
// *ssa.Function rather than a hand-built stand-in.
func buildSSA(t *testing.T, source string) *ssa.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "store_test.go", source, parser.ParseComments)
	require.NoError(t, err)

	pkg := types.NewPackage("example.com/widget", "widget")
	ssaPkg, _, err := ssautil.BuildPackage(&types.Config{Importer: importer.Default()}, fset, pkg, []*ast.File{f}, ssa.SanityCheckFunctions)
	require.NoError(t, err)
	return ssaPkg
}

const storeTestSource = `package widget

func Plain() {}
`

// storeContract exercises the read-your-writes contract spec.md §5
// requires of any Store implementation: an unwritten procedure reads
// as absent, and a written summary reads back equal to what was
// written, visible to every subsequent read.
func storeContract(t *testing.T, s Store, fn *ssa.Function) {
	t.Helper()

	_, ok := s.ReadSummary(nil, fn)
	assert.False(t, ok, "unwritten procedure must read as absent")

	ap := accesspath.ExactPath(accesspath.Return(types.Typ[types.Int]))
	summary := accesstree.AddTrace(ap, trace.OfSource(trace.Source{Kind: "src"}), accesstree.Empty())

	require.NoError(t, s.WriteSummary(fn, summary))

	got, ok := s.ReadSummary(nil, fn)
	require.True(t, ok, "a written summary must read back as present")
	assert.True(t, accesstree.Equal(summary, got))

	got2, ok := s.ReadSummary(nil, fn)
	require.True(t, ok, "a second read must still observe the earlier write")
	assert.True(t, accesstree.Equal(summary, got2))
}

func TestMemoryReadYourWrites(t *testing.T) {
	pkg := buildSSA(t, storeTestSource)
	fn := pkg.Func("Plain")
	require.NotNil(t, fn)

	storeContract(t, NewMemory(), fn)
}

func TestMemoryReadSummaryDoesNotConfuseDistinctProcedures(t *testing.T) {
	pkg := buildSSA(t, storeTestSource)
	plain := pkg.Func("Plain")
	require.NotNil(t, plain)

	s := NewMemory()
	ap := accesspath.ExactPath(accesspath.Return(types.Typ[types.Int]))
	summary := accesstree.AddTrace(ap, trace.OfSource(trace.Source{Kind: "plain"}), accesstree.Empty())
	require.NoError(t, s.WriteSummary(plain, summary))

	_, ok := s.ReadSummary(nil, pkg.Func("Plain"))
	assert.True(t, ok)

	otherFn := &ssa.Function{}
	_, ok = s.ReadSummary(nil, otherFn)
	assert.False(t, ok, "a distinct *ssa.Function identity must not see another procedure's summary")
}

func TestProcedureKeyIncludesPackageReceiverAndName(t *testing.T) {
	pkg := buildSSA(t, storeTestSource)
	plain := pkg.Func("Plain")
	require.NotNil(t, plain)

	key := procedureKey(plain)
	assert.Contains(t, key, "widget")
	assert.Contains(t, key, "Plain")
}

func TestDecomposeFunctionSplitsPathReceiverAndName(t *testing.T) {
	pkg := buildSSA(t, storeTestSource)
	plain := pkg.Func("Plain")
	require.NotNil(t, plain)

	path, recv, name := decomposeFunction(plain)
	assert.Equal(t, "example.com/widget", path)
	assert.Equal(t, "", recv)
	assert.Equal(t, "Plain", name)
}

func TestRebuildTreeRestoresEveryEncodedTrace(t *testing.T) {
	base := accesspath.Footprint(nil, 0, types.Typ[types.Int])
	apA := accesspath.ExactPath(base, accesspath.Field(0, "X"))
	apB := accesspath.ExactPath(base, accesspath.Field(1, "Y"))
	trA := trace.OfSource(trace.Source{Kind: "a"})
	trB := trace.OfSource(trace.Source{Kind: "b"})

	tree := rebuildTree([]accesspath.Path{apA, apB}, []trace.Trace{trA, trB})

	gotA, ok := accesstree.GetNode(apA, tree)
	require.True(t, ok)
	assert.ElementsMatch(t, trA.Sources(), gotA.Trace.Sources())

	gotB, ok := accesstree.GetNode(apB, tree)
	require.True(t, ok)
	assert.ElementsMatch(t, trB.Sources(), gotB.Trace.Sources())
}
