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

// Package report implements spec.md §4.6: turning a trace's
// reportable source-to-sink paths into issues, with the "endpoint"
// annotation (a source whose declaring class is in a configured,
// lazily-initialized set) and a stable per-issue identifier for
// dedup across repeated analysis runs against the same summary store.
package report

import (
	"fmt"

	"github.com/apflow/taint/internal/pkg/trace"
	"github.com/google/uuid"
)

// Issue is one reported source-to-sink flow.
type Issue struct {
	// ID is stable across runs for the same (source, sink, call site)
	// triple, generated deterministically (uuid v5) rather than
	// randomly, so the same finding gets the same ID on every
	// re-analysis. Issues themselves are not written to the store.
	ID      uuid.UUID
	Path    trace.ReportablePath
	Site    trace.CallSite
	Message string
}

// namespaceTaint is the fixed namespace every issue ID is derived
// under via uuid v5, so IDs are reproducible without a source of
// randomness (this module does not call uuid.New anywhere).
var namespaceTaint = uuid.MustParse("b7f8f4de-6f0b-4c1e-93c1-2a6b2a2a9a31")

// NewIssue builds an Issue for path at site, annotating the message
// with an endpoint note when src's declaring class is in endpoints.
func NewIssue(site trace.CallSite, path trace.ReportablePath, endpoints map[string]bool) Issue {
	msg := formatMessage(path, endpoints)
	id := uuid.NewSHA1(namespaceTaint, []byte(fmt.Sprintf("%s|%s|%d", path.Source.Kind, path.Sink.Kind, site.Pos)))
	return Issue{ID: id, Path: path, Site: site, Message: msg}
}

// formatMessage renders "source -> sink", with a suffix note if the
// source is classified as an endpoint.
func formatMessage(path trace.ReportablePath, endpoints map[string]bool) string {
	msg := fmt.Sprintf("a source has reached a sink: %s -> %s", path.Source, path.Sink)
	if endpoints[path.Source.Kind] {
		msg += " (source is an externally-callable endpoint)"
	}
	return msg
}

// Collect builds one Issue per reportable path, given the call site
// those paths were found at.
func Collect(site trace.CallSite, paths []trace.ReportablePath, endpoints map[string]bool) []Issue {
	if len(paths) == 0 {
		return nil
	}
	out := make([]Issue, 0, len(paths))
	for _, p := range paths {
		out = append(out, NewIssue(site, p, endpoints))
	}
	return out
}
