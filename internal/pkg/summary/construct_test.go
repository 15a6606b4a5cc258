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

package summary

import (
	"go/types"
	"testing"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/footprint"
	"github.com/apflow/taint/internal/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
)

var intType = types.Typ[types.Int]

func TestConstructKeepsGlobalAndReturnBases(t *testing.T) {
	global := accesspath.GlobalFromName("pkg.Var", intType)
	final := accesstree.AddTrace(accesspath.ExactPath(global), trace.OfSource(trace.Source{Kind: "g"}), accesstree.Empty())
	final = accesstree.AddTrace(accesspath.ExactPath(accesspath.Return(intType)), trace.OfSource(trace.Source{Kind: "r"}), final)

	sum := Construct(final, footprint.Context{})

	_, ok := accesstree.GetNode(accesspath.ExactPath(global), sum)
	assert.True(t, ok)
	_, ok = accesstree.GetNode(accesspath.ExactPath(accesspath.Return(intType)), sum)
	assert.True(t, ok)
}

func TestConstructDropsLocalBases(t *testing.T) {
	local := accesspath.Local(&ssa.Parameter{}, false)
	final := accesstree.AddTrace(accesspath.ExactPath(local), trace.OfSource(trace.Source{Kind: "local"}), accesstree.Empty())

	sum := Construct(final, footprint.Context{})
	assert.True(t, accesstree.IsEmpty(sum))
}

func TestConstructReKeysFormalToFootprint(t *testing.T) {
	formalRef := &ssa.Parameter{}
	formalBase := accesspath.Base{Kind: accesspath.ProgramVar, Type: intType, Ref: formalRef}
	ap := accesspath.ExactPath(formalBase, accesspath.Field(0, "X"))

	sinkTrace := trace.Trace{}.AddSink(trace.Sink{Kind: "sink"})
	final := accesstree.AddTrace(ap, sinkTrace, accesstree.Empty())

	ctx := footprint.Context{FormalIndex: map[ssa.Value]int{formalRef: 1}}
	sum := Construct(final, ctx)

	fpAp := accesspath.ExactPath(accesspath.Footprint(nil, 1, intType), accesspath.Field(0, "X"))
	node, ok := accesstree.GetNode(fpAp, sum)
	require.True(t, ok)
	assert.Len(t, node.Trace.Sinks(), 1)
}

func TestConstructDropsEmptyFootprintRoots(t *testing.T) {
	fpBase := accesspath.Footprint(nil, 0, intType)
	final := accesstree.AddTrace(accesspath.ExactPath(fpBase), trace.Empty, accesstree.Empty())

	sum := Construct(final, footprint.Context{})
	assert.True(t, accesstree.IsEmpty(sum))
}

func TestConstructStageAReattachesSinksToFootprintSources(t *testing.T) {
	fpPath := accesspath.ExactPath(accesspath.Footprint(nil, 0, intType))
	fpSrc := trace.Source{FootprintPath: &fpPath}

	sinkAp := accesspath.ExactPath(accesspath.Local(&ssa.Parameter{}, false))
	sinkTrace := trace.OfSource(fpSrc).AddSink(trace.Sink{Kind: "sink"})
	final := accesstree.AddTrace(sinkAp, sinkTrace, accesstree.Empty())

	sum := Construct(final, footprint.Context{})

	node, ok := accesstree.GetNode(fpPath, sum)
	require.True(t, ok)
	assert.Len(t, node.Trace.Sinks(), 1)
}
