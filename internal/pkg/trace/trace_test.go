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

package trace

import (
	"go/types"
	"testing"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinUnionsSourcesAndSinks(t *testing.T) {
	a := OfSource(Source{Kind: "a"})
	b := OfSource(Source{Kind: "b"}).AddSink(Sink{Kind: "sink"})

	joined := Join(a, b)
	assert.Len(t, joined.Sources(), 2)
	assert.Len(t, joined.Sinks(), 1)
}

func TestJoinIsIdempotent(t *testing.T) {
	a := OfSource(Source{Kind: "a"}).AddSink(Sink{Kind: "s"})
	assert.ElementsMatch(t, a.Sources(), Join(a, a).Sources())
	assert.ElementsMatch(t, a.Sinks(), Join(a, a).Sinks())
}

func TestJoinIsCommutative(t *testing.T) {
	a := OfSource(Source{Kind: "a"})
	b := OfSource(Source{Kind: "b"})
	assert.ElementsMatch(t, Join(a, b).Sources(), Join(b, a).Sources())
}

func TestSanitizeClearsSourcesKeepsSinks(t *testing.T) {
	tr := OfSource(Source{Kind: "src"}).AddSink(Sink{Kind: "sink"})
	sanitized := tr.Sanitize()

	assert.Empty(t, sanitized.Sources())
	assert.Len(t, sanitized.Sinks(), 1)
}

func TestGetReportablePathsPairsEverySourceWithEverySink(t *testing.T) {
	tr := OfSource(Source{Kind: "s1"}).AddSource(Source{Kind: "s2"}).AddSink(Sink{Kind: "k1"})

	paths := GetReportablePaths(CallSite{}, tr, nil)
	require.Len(t, paths, 2)
}

func TestGetReportablePathsEmptyWithoutBothSourceAndSink(t *testing.T) {
	onlySource := OfSource(Source{Kind: "s1"})
	assert.Empty(t, GetReportablePaths(CallSite{}, onlySource, nil))

	onlySink := Trace{}.AddSink(Sink{Kind: "k1"})
	assert.Empty(t, GetReportablePaths(CallSite{}, onlySink, nil))
}

func TestGetReportablePathsSkipsFootprintSources(t *testing.T) {
	ap := accesspath.ExactPath(accesspath.Footprint(nil, 0, types.Typ[types.Int]))
	tr := OfSource(Source{FootprintPath: &ap}).AddSink(Sink{Kind: "k1"})

	assert.Empty(t, GetReportablePaths(CallSite{}, tr, nil))
}

func TestGetReportablePathsReportsRealSourceAlongsideFootprintSource(t *testing.T) {
	ap := accesspath.ExactPath(accesspath.Footprint(nil, 0, types.Typ[types.Int]))
	tr := OfSource(Source{FootprintPath: &ap}).AddSource(Source{Kind: "real"}).AddSink(Sink{Kind: "k1"})

	paths := GetReportablePaths(CallSite{}, tr, nil)
	require.Len(t, paths, 1)
	assert.Equal(t, "real", paths[0].Source.Kind)
}

func TestFootprintSourceRoundTrip(t *testing.T) {
	ap := accesspath.ExactPath(accesspath.Footprint(nil, 0, types.Typ[types.Int]))
	src := Source{FootprintPath: &ap}

	assert.True(t, src.IsFootprint())
	got, ok := src.GetFootprintAccessPath()
	require.True(t, ok)
	assert.Equal(t, ap, got)
}
