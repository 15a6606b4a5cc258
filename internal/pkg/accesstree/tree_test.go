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

package accesstree

import (
	"go/types"
	"testing"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	intType = types.Typ[types.Int]
	baseA   = accesspath.Footprint(nil, 0, intType)
	baseB   = accesspath.Footprint(nil, 1, intType)
)

func srcTrace(kind string) trace.Trace {
	return trace.OfSource(trace.Source{Kind: kind})
}

func TestAddTraceAndGetNode(t *testing.T) {
	ap := accesspath.ExactPath(baseA, accesspath.Field(0, "X"))
	tr := srcTrace("s1")

	tree := AddTrace(ap, tr, Empty())

	node, ok := GetNode(ap, tree)
	require.True(t, ok)
	assert.ElementsMatch(t, tr.Sources(), node.Trace.Sources())
}

func TestAddTracePreservesExistingChildren(t *testing.T) {
	root := accesspath.ExactPath(baseA)
	child := accesspath.ExactPath(baseA, accesspath.Field(0, "X"))

	tree := AddTrace(child, srcTrace("child"), Empty())
	tree = AddTrace(root, srcTrace("root"), tree)

	childNode, ok := GetNode(child, tree)
	require.True(t, ok)
	assert.ElementsMatch(t, srcTrace("child").Sources(), childNode.Trace.Sources())
}

func TestJoinUnionsSourcesAndSinks(t *testing.T) {
	ap := accesspath.ExactPath(baseA)
	left := AddTrace(ap, srcTrace("left"), Empty())
	right := AddTrace(ap, srcTrace("right"), Empty())

	joined := Join(left, right)
	node, ok := GetNode(ap, joined)
	require.True(t, ok)
	assert.Len(t, node.Trace.Sources(), 2)
}

func TestJoinIsIdempotent(t *testing.T) {
	ap := accesspath.ExactPath(baseA, accesspath.Field(0, "X"))
	tree := AddTrace(ap, srcTrace("s"), Empty())

	assert.True(t, Equal(tree, Join(tree, tree)))
}

func TestJoinIsCommutative(t *testing.T) {
	apA := accesspath.ExactPath(baseA)
	apB := accesspath.ExactPath(baseB)
	left := AddTrace(apA, srcTrace("a"), Empty())
	right := AddTrace(apB, srcTrace("b"), Empty())

	assert.True(t, Equal(Join(left, right), Join(right, left)))
}

func TestStarAbsorbsFiniteSubtree(t *testing.T) {
	root := accesspath.ExactPath(baseA)
	tree := AddNode(root, Node{Trace: srcTrace("root"), Subtree: Star()}, Empty())

	child := accesspath.ExactPath(baseA, accesspath.Field(0, "X"))
	node, ok := GetNode(child, tree)
	require.True(t, ok)
	assert.True(t, node.Subtree.IsStar())
	assert.ElementsMatch(t, srcTrace("root").Sources(), node.Trace.Sources())
}

func TestNodeHasNoReachableChildren(t *testing.T) {
	assert.True(t, NodeHasNoReachableChildren(EmptyNode()))
	assert.True(t, NodeHasNoReachableChildren(Node{Trace: trace.Empty, Subtree: Star()}))

	withChild := AddNode(
		accesspath.ExactPath(baseA, accesspath.Field(0, "X")),
		Node{Trace: srcTrace("x")},
		Empty(),
	)
	rootNode, ok := GetNode(accesspath.ExactPath(baseA), withChild)
	require.True(t, ok)
	assert.False(t, NodeHasNoReachableChildren(rootNode))
}

func TestTraceFoldVisitsEveryExactPath(t *testing.T) {
	tree := AddTrace(accesspath.ExactPath(baseA), srcTrace("root"), Empty())
	tree = AddTrace(accesspath.ExactPath(baseA, accesspath.Field(0, "X")), srcTrace("child"), tree)

	var seen []string
	TraceFold(tree, func(ap accesspath.Path, tr trace.Trace) {
		seen = append(seen, ap.String())
	})
	assert.Len(t, seen, 2)
}

func TestWithRootsJoinsCollidingBases(t *testing.T) {
	entries := []Entry{
		{Base: baseA, Node: Node{Trace: srcTrace("one")}},
		{Base: baseA, Node: Node{Trace: srcTrace("two")}},
	}
	tree := WithRoots(entries)
	node, ok := GetNode(accesspath.ExactPath(baseA), tree)
	require.True(t, ok)
	assert.Len(t, node.Trace.Sources(), 2)
}
