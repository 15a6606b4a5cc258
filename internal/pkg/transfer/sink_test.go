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
	"github.com/apflow/taint/internal/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
)

func TestSinkInjectBadIndexFailsFast(t *testing.T) {
	target := fn(emptySignature())
	spec := fakeSpec{sinks: []taintspec.SinkMatch{{Kind: "sink", ActualIndex: 1}}}
	call := hil.Call{} // no actuals at all: index 1 is out of range

	_, matched, err := sinkInject(accesstree.Empty(), call, target, Context{Spec: spec})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadSinkIndex)
	assert.False(t, matched)
}

func TestSinkInjectMatchesExistingPathWithoutSourceReportsNothing(t *testing.T) {
	target := fn(emptySignature())
	spec := fakeSpec{sinks: []taintspec.SinkMatch{{Kind: "sink-kind"}}}

	actual := accesspath.ExactPath(accesspath.Local(&fakeValue{typ: types.Typ[types.Int]}, false))
	pre := accesstree.AddTrace(actual, trace.Empty, accesstree.Empty())

	call := hil.Call{
		Actuals:      []accesspath.Path{actual},
		ActualValues: []ssa.Value{&fakeValue{typ: types.Typ[types.Int]}},
	}

	var reported []trace.ReportablePath
	ctx := Context{
		Spec:   spec,
		Report: func(_ trace.CallSite, paths []trace.ReportablePath) { reported = append(reported, paths...) },
	}

	tree, matched, err := sinkInject(pre, call, target, ctx)
	require.NoError(t, err)
	assert.True(t, matched)

	node, ok := accesstree.GetNode(actual, tree)
	require.True(t, ok)
	require.Len(t, node.Trace.Sinks(), 1)
	assert.Equal(t, "sink-kind", node.Trace.Sinks()[0].Kind)
	assert.Empty(t, reported) // no source reached this path yet, so nothing is reportable
}

func TestSinkInjectNoMatchLeavesTreeUnchanged(t *testing.T) {
	target := fn(emptySignature())
	spec := fakeSpec{} // no configured sinks

	pre := accesstree.Empty()
	tree, matched, err := sinkInject(pre, hil.Call{}, target, Context{Spec: spec})

	require.NoError(t, err)
	assert.False(t, matched)
	assert.True(t, accesstree.Equal(pre, tree))
}
