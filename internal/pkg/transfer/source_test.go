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

package transfer

import (
	"go/types"
	"testing"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/hil"
	"github.com/apflow/taint/internal/pkg/taintspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceInjectTagsReturnPathWhenNoArgIndex(t *testing.T) {
	target := fn(emptySignature())
	spec := fakeSpec{sources: []taintspec.SourceMatch{{Kind: "os.Getenv"}}}

	retPath := accesspath.ExactPath(accesspath.Return(types.Typ[types.String]))
	call := hil.Call{RetPath: &retPath}

	tree, matched := sourceInject(accesstree.Empty(), call, target, Context{Spec: spec})
	assert.True(t, matched)

	node, ok := accesstree.GetNode(retPath, tree)
	require.True(t, ok)
	require.Len(t, node.Trace.Sources(), 1)
	assert.Equal(t, "os.Getenv", node.Trace.Sources()[0].Kind)
}

func TestSourceInjectTagsActualByArgIndex(t *testing.T) {
	target := fn(emptySignature())
	idx := 0
	spec := fakeSpec{sources: []taintspec.SourceMatch{{Kind: "fill-arg", ArgIndex: &idx}}}

	actual := accesspath.ExactPath(accesspath.Local(&fakeValue{typ: types.Typ[types.String]}, false))
	call := hil.Call{Actuals: []accesspath.Path{actual}}

	tree, matched := sourceInject(accesstree.Empty(), call, target, Context{Spec: spec})
	assert.True(t, matched)

	node, ok := accesstree.GetNode(actual, tree)
	require.True(t, ok)
	require.Len(t, node.Trace.Sources(), 1)
	assert.Equal(t, "fill-arg", node.Trace.Sources()[0].Kind)
}

func TestSourceInjectOutOfRangeArgIndexDoesNotMatch(t *testing.T) {
	target := fn(emptySignature())
	idx := 5
	spec := fakeSpec{sources: []taintspec.SourceMatch{{Kind: "fill-arg", ArgIndex: &idx}}}

	call := hil.Call{} // no actuals: index 5 is out of range

	tree, matched := sourceInject(accesstree.Empty(), call, target, Context{Spec: spec})
	assert.False(t, matched)
	assert.True(t, accesstree.Equal(accesstree.Empty(), tree))
}

func TestSourceInjectNoReturnSlotUsesTrailingFrontendTmpActual(t *testing.T) {
	target := fn(emptySignature())
	spec := fakeSpec{sources: []taintspec.SourceMatch{{Kind: "out-param-source"}}}

	outTmp := accesspath.ExactPath(accesspath.Local(&fakeValue{typ: types.Typ[types.String]}, true))
	call := hil.Call{Actuals: []accesspath.Path{outTmp}} // no RetPath at all

	tree, matched := sourceInject(accesstree.Empty(), call, target, Context{Spec: spec})
	assert.True(t, matched)

	node, ok := accesstree.GetNode(outTmp, tree)
	require.True(t, ok)
	require.Len(t, node.Trace.Sources(), 1)
	assert.Equal(t, "out-param-source", node.Trace.Sources()[0].Kind)
}

func TestSourceInjectNoReturnSlotAndNoFrontendTmpActualWarnsAndSkips(t *testing.T) {
	target := fn(emptySignature())
	spec := fakeSpec{sources: []taintspec.SourceMatch{{Kind: "out-param-source"}}}

	notTmp := accesspath.ExactPath(accesspath.Local(&fakeValue{typ: types.Typ[types.String]}, false))
	call := hil.Call{Actuals: []accesspath.Path{notTmp}}

	var warned bool
	ctx := Context{Spec: spec, Warnf: func(string, ...interface{}) { warned = true }}

	tree, matched := sourceInject(accesstree.Empty(), call, target, ctx)
	assert.False(t, matched)
	assert.True(t, warned)
	assert.True(t, accesstree.Equal(accesstree.Empty(), tree))
}

func TestSourceInjectNoMatchesLeavesTreeUnchanged(t *testing.T) {
	target := fn(emptySignature())
	spec := fakeSpec{} // no configured sources, not a field propagator

	pre := accesstree.Empty()
	tree, matched := sourceInject(pre, hil.Call{}, target, Context{Spec: spec})

	assert.False(t, matched)
	assert.True(t, accesstree.Equal(pre, tree))
}
