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

package config

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// documentSchema is the JSON Schema every taint specification document
// must satisfy, checked before json.Unmarshal runs so a malformed
// document fails fast with a precise message (spec.md §7's "Malformed
// taint spec" disposition) rather than silently unmarshaling into a
// zero-valued rule that matches nothing.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "sources": {"type": "array", "items": {"type": "object"}},
    "sinks": {"type": "array", "items": {
      "type": "object",
      "properties": {"argIndex": {"type": "integer", "minimum": 0}}
    }},
    "sanitizers": {"type": "array", "items": {"type": "object"}},
    "exclude": {"type": "array", "items": {"type": "object"}},
    "fieldTags": {"type": "array", "items": {
      "type": "object",
      "required": ["key", "val"]
    }},
    "propagation": {"type": "array", "items": {
      "type": "object",
      "properties": {"kind": {"enum": ["ToReturn", "ToReceiver", "ToActual"]}}
    }},
    "endpoints": {"type": "array", "items": {"type": "string"}}
  },
  "additionalProperties": false
}`

var (
	schemaOnce sync.Once
	compiled   *jsonschema.Schema
	schemaErr  error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(documentSchema)))
		if err != nil {
			schemaErr = fmt.Errorf("internal error: invalid built-in schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("taint-spec.json", doc); err != nil {
			schemaErr = fmt.Errorf("internal error: could not register schema: %w", err)
			return
		}
		compiled, schemaErr = c.Compile("taint-spec.json")
	})
	return compiled, schemaErr
}

// Validate checks jsonBytes (already YAML-to-JSON converted, if
// needed) against documentSchema.
func Validate(jsonBytes []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonBytes))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return schema.Validate(inst)
}
