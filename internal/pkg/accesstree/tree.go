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

// Package accesstree implements the access tree domain: a persistent
// mapping from access path to (trace, subtree) node, as described in
// spec.md's data model. A Tree is the per-procedure abstract state the
// external fixpoint engine carries across CFG nodes.
package accesstree

import (
	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/trace"
)

// Subtree is either a finite map from access step to Node, or Star —
// "any extension", i.e. every path below this point collapses to the
// same node.
type Subtree struct {
	star     bool
	children map[accesspath.Step]Node
}

// Star is the "any extension" subtree. A node with Star as its
// subtree answers every further access step with its own trace
// (invariant 4: a lookup on a Star subtree returns the trace at the
// star's root).
func Star() Subtree {
	return Subtree{star: true}
}

// IsStar reports whether s is the Star subtree.
func (s Subtree) IsStar() bool {
	return s.star
}

// IsEmpty reports whether s is the finite-map subtree with no
// children (Star is not considered empty by this check — see
// NodeHasNoReachableChildren for the combined predicate summary
// construction needs).
func (s Subtree) IsEmpty() bool {
	return !s.star && len(s.children) == 0
}

// NodeHasNoReachableChildren implements the subtree half of spec.md
// §4.5's summary-construction emptiness test: "subtree has no entries
// (or is Star)". A Star subtree counts here because summary
// construction does not expand it further; only the node's own trace
// is what downstream instantiation will observe.
func NodeHasNoReachableChildren(n Node) bool {
	return n.Subtree.IsEmpty() || n.Subtree.IsStar()
}

// emptySubtree is the finite-map subtree with no children.
func emptySubtree() Subtree {
	return Subtree{}
}

// Node is (trace, subtree): the taint trace recorded at an exact
// access path, and the nested nodes reachable from it by further
// steps.
type Node struct {
	Trace   trace.Trace
	Subtree Subtree
}

// EmptyNode is the bottom node: empty trace, no children.
func EmptyNode() Node {
	return Node{Trace: trace.Empty, Subtree: emptySubtree()}
}

// child looks up a single step under a node, returning (child, true)
// if present, or the Star-root trace if the subtree is Star.
func (n Node) child(step accesspath.Step) (Node, bool) {
	if n.Subtree.star {
		return Node{Trace: n.Trace, Subtree: Star()}, true
	}
	c, ok := n.Subtree.children[step]
	return c, ok
}

// withChild returns n with step mapped to child, replacing any
// existing entry. If n's subtree is Star, the star is preserved
// (invariant 1: nodes never hold unreachable children under Star —
// adding a concrete child under Star would be redundant, so the
// child's trace is instead joined into n's own trace).
func (n Node) withChild(step accesspath.Step, child Node) Node {
	if n.Subtree.star {
		return Node{Trace: trace.Join(n.Trace, child.Trace), Subtree: Star()}
	}
	children := make(map[accesspath.Step]Node, len(n.Subtree.children)+1)
	for k, v := range n.Subtree.children {
		children[k] = v
	}
	children[step] = child
	return Node{Trace: n.Trace, Subtree: Subtree{children: children}}
}

// Tree is a mapping from base to Node.
type Tree struct {
	roots map[accesspath.Base]Node
}

// Empty is the bottom tree.
func Empty() Tree {
	return Tree{}
}

func (t Tree) root(b accesspath.Base) (Node, bool) {
	n, ok := t.roots[b]
	return n, ok
}

func (t Tree) withRoot(b accesspath.Base, n Node) Tree {
	roots := make(map[accesspath.Base]Node, len(t.roots)+1)
	for k, v := range t.roots {
		roots[k] = v
	}
	roots[b] = n
	return Tree{roots: roots}
}

// GetNode looks up the node at an exact access path, without the
// footprint fallback of footprint.Lookup (C4) — this is the raw C3
// operation; 4.1's lookup wraps it.
func GetNode(ap accesspath.Path, t Tree) (Node, bool) {
	base, steps := accesspath.Extract(ap)
	n, ok := t.root(base)
	if !ok {
		return Node{}, false
	}
	for _, step := range steps {
		n, ok = n.child(step)
		if !ok {
			return Node{}, false
		}
	}
	return n, true
}

// AddNode writes node at ap, creating intermediate nodes as needed and
// preserving everything else in the tree.
func AddNode(ap accesspath.Path, node Node, t Tree) Tree {
	base, steps := accesspath.Extract(ap)
	root, ok := t.root(base)
	if !ok {
		root = EmptyNode()
	}
	newRoot := setAlongPath(root, steps, node)
	return t.withRoot(base, newRoot)
}

func setAlongPath(n Node, steps []accesspath.Step, leaf Node) Node {
	if len(steps) == 0 {
		return leaf
	}
	step := steps[0]
	child, ok := n.child(step)
	if !ok {
		child = EmptyNode()
	}
	newChild := setAlongPath(child, steps[1:], leaf)
	return n.withChild(step, newChild)
}

// AddTrace replaces the trace at ap's node (creating the node if
// absent) while preserving its existing subtree, matching the grafting
// step of summary application which must not clobber children.
func AddTrace(ap accesspath.Path, tr trace.Trace, t Tree) Tree {
	existing, ok := GetNode(ap, t)
	if !ok {
		existing = EmptyNode()
	}
	return AddNode(ap, Node{Trace: tr, Subtree: existing.Subtree}, t)
}

// NodeJoin is the pointwise join of two nodes: traces join, subtrees
// join recursively. Star absorbs any finite subtree it's joined with;
// the traces of that subtree's descendants are folded into the joined
// node's own trace so they are not lost.
func NodeJoin(a, b Node) Node {
	tr := trace.Join(a.Trace, b.Trace)
	if a.Subtree.star != b.Subtree.star {
		finite := a.Subtree
		if a.Subtree.star {
			finite = b.Subtree
		}
		var fold func(s Subtree)
		fold = func(s Subtree) {
			for _, c := range s.children {
				tr = trace.Join(tr, c.Trace)
				fold(c.Subtree)
			}
		}
		fold(finite)
	}
	return Node{Trace: tr, Subtree: joinSubtree(a.Subtree, b.Subtree)}
}

func joinSubtree(a, b Subtree) Subtree {
	if a.star || b.star {
		return Star()
	}
	if len(a.children) == 0 {
		return b
	}
	if len(b.children) == 0 {
		return a
	}
	children := make(map[accesspath.Step]Node, len(a.children)+len(b.children))
	for k, v := range a.children {
		children[k] = v
	}
	for k, v := range b.children {
		if existing, ok := children[k]; ok {
			children[k] = NodeJoin(existing, v)
		} else {
			children[k] = v
		}
	}
	return Subtree{children: children}
}

// Join is the pointwise join of two trees over the union of their
// bases. It is associative, commutative, and idempotent provided
// NodeJoin is (invariant 2), which holds because trace.Join is.
func Join(a, b Tree) Tree {
	out := Tree{roots: make(map[accesspath.Base]Node, len(a.roots)+len(b.roots))}
	for k, v := range a.roots {
		out.roots[k] = v
	}
	for k, v := range b.roots {
		if existing, ok := out.roots[k]; ok {
			out.roots[k] = NodeJoin(existing, v)
		} else {
			out.roots[k] = v
		}
	}
	return out
}

// IsEmpty reports whether t has no roots at all, used by the transfer
// function to detect a degenerate (empty) summary at a call site.
func IsEmpty(t Tree) bool {
	return len(t.roots) == 0
}

// Equal reports whether two trees are identical. Used by the fixpoint
// engine to detect convergence and by tests to check idempotence laws.
func Equal(a, b Tree) bool {
	if len(a.roots) != len(b.roots) {
		return false
	}
	for k, v := range a.roots {
		ov, ok := b.roots[k]
		if !ok || !nodeEqual(v, ov) {
			return false
		}
	}
	return true
}

func nodeEqual(a, b Node) bool {
	if !traceEqual(a.Trace, b.Trace) {
		return false
	}
	if a.Subtree.star != b.Subtree.star {
		return false
	}
	if a.Subtree.star {
		return true
	}
	if len(a.Subtree.children) != len(b.Subtree.children) {
		return false
	}
	for k, v := range a.Subtree.children {
		ov, ok := b.Subtree.children[k]
		if !ok || !nodeEqual(v, ov) {
			return false
		}
	}
	return true
}

func traceEqual(a, b trace.Trace) bool {
	as, bs := a.Sources(), b.Sources()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i].String() != bs[i].String() {
			return false
		}
	}
	ak, bk := a.Sinks(), b.Sinks()
	if len(ak) != len(bk) {
		return false
	}
	for i := range ak {
		if ak[i].String() != bk[i].String() {
			return false
		}
	}
	return true
}

// Entry is one (base, node) pair of a tree, returned by Roots and
// consumed by WithRoots for summary construction, which needs to
// iterate and rewrite roots.
type Entry struct {
	Base accesspath.Base
	Node Node
}

// Roots returns every top-level (base, node) entry of t.
func Roots(t Tree) []Entry {
	out := make([]Entry, 0, len(t.roots))
	for b, n := range t.roots {
		out = append(out, Entry{Base: b, Node: n})
	}
	return out
}

// VisitFn is called by TraceFold for every (access path, trace) pair
// in a tree, exact paths only (Star nodes report their own root trace
// once, since they stand for infinitely many concrete descendants).
type VisitFn func(ap accesspath.Path, tr trace.Trace)

// TraceFold visits every (ap, trace) pair in t.
func TraceFold(t Tree, visit VisitFn) {
	for b, n := range t.roots {
		walk(accesspath.ExactPath(b), n, visit)
	}
}

func walk(ap accesspath.Path, n Node, visit VisitFn) {
	visit(ap, n.Trace)
	if n.Subtree.star {
		return
	}
	for step, child := range n.Subtree.children {
		base, steps := accesspath.Extract(ap)
		next := accesspath.ExactPath(base, append(append([]accesspath.Step{}, steps...), step)...)
		walk(next, child, visit)
	}
}

// WithRoots rebuilds a tree from a fresh set of (base, node) entries,
// joining nodes that land on the same base. Used by summary
// construction (C7) when re-keying formals to footprint bases.
func WithRoots(entries []Entry) Tree {
	t := Empty()
	for _, e := range entries {
		if existing, ok := t.root(e.Base); ok {
			t = t.withRoot(e.Base, NodeJoin(existing, e.Node))
		} else {
			t = t.withRoot(e.Base, e.Node)
		}
	}
	return t
}
