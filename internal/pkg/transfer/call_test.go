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
	"testing"

	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/hil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
)

// resolveTargets never dereferences an *ssa.Function's fields — it
// only uses pointer identity for deduplication — so distinct zero
// value *ssa.Function pointers are a safe stand-in for real callees.

func TestResolveTargetsAtCapIncludesStaticAndAllDynamicTargets(t *testing.T) {
	static := &ssa.Function{}
	d1, d2, d3 := &ssa.Function{}, &ssa.Function{}, &ssa.Function{}
	call := hil.Call{StaticCallee: static}

	got := resolveTargets(call, []*ssa.Function{d1, d2, d3}, 3)

	assert.ElementsMatch(t, []*ssa.Function{static, d1, d2, d3}, got)
}

func TestResolveTargetsOverCapFallsBackToStaticCalleeOnly(t *testing.T) {
	static := &ssa.Function{}
	d1, d2, d3, d4 := &ssa.Function{}, &ssa.Function{}, &ssa.Function{}, &ssa.Function{}
	call := hil.Call{StaticCallee: static}

	got := resolveTargets(call, []*ssa.Function{d1, d2, d3, d4}, 3)

	require.Len(t, got, 1)
	assert.Same(t, static, got[0])
}

func TestResolveTargetsOverCapWithNoStaticCalleeResolvesNothing(t *testing.T) {
	d1, d2, d3, d4 := &ssa.Function{}, &ssa.Function{}, &ssa.Function{}, &ssa.Function{}

	got := resolveTargets(hil.Call{}, []*ssa.Function{d1, d2, d3, d4}, 3)

	assert.Nil(t, got)
}

func TestResolveTargetsDeduplicatesStaticCalleeAgainstDynamicTargets(t *testing.T) {
	static := &ssa.Function{}
	call := hil.Call{StaticCallee: static}

	got := resolveTargets(call, []*ssa.Function{static}, 3)

	assert.Equal(t, []*ssa.Function{static}, got)
}

func TestCallReturnsPreStateUnchangedWhenNoTargetsResolve(t *testing.T) {
	d1, d2, d3, d4 := &ssa.Function{}, &ssa.Function{}, &ssa.Function{}, &ssa.Function{}
	pre := accesstree.Empty()

	got, err := Call(pre, hil.Call{}, []*ssa.Function{d1, d2, d3, d4}, Context{})

	require.NoError(t, err)
	assert.True(t, accesstree.Equal(pre, got))
}
