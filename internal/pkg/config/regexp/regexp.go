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

// Package regexp wraps regexp.Regexp so it can be unmarshaled directly
// from a JSON (or, via sigs.k8s.io/yaml, YAML) string field.
package regexp

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Regexp is a *regexp.Regexp that knows how to unmarshal itself from a
// JSON string.
type Regexp struct {
	*regexp.Regexp
}

// UnmarshalJSON compiles the JSON string value into the wrapped
// *regexp.Regexp. An empty or malformed pattern is an error, matching
// spec.md §7's "Malformed taint spec" disposition: configuration
// mistakes fail fast with a precise message.
func (r *Regexp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid regexp literal: %w", err)
	}
	if s == "" {
		return fmt.Errorf("empty regexp pattern")
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return fmt.Errorf("invalid regexp %q: %w", s, err)
	}
	r.Regexp = re
	return nil
}

// MarshalJSON renders the pattern back out as a JSON string.
func (r Regexp) MarshalJSON() ([]byte, error) {
	if r.Regexp == nil {
		return json.Marshal("")
	}
	return json.Marshal(r.String())
}

// MatchString reports whether s matches r. A nil Regexp (the zero
// value, before UnmarshalJSON has run) matches nothing.
func (r Regexp) MatchString(s string) bool {
	if r.Regexp == nil {
		return false
	}
	return r.Regexp.MatchString(s)
}
