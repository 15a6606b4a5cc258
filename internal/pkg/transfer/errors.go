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

import "errors"

// ErrReturnBindingMissing is returned when a callee summary carries a
// return-slot trace but the call site provides no return slot to
// receive it (spec.md §7, "Return binding missing": fail fast).
var ErrReturnBindingMissing = errors.New("transfer: summary has a return trace but call site has no return slot")

// ErrBadSinkIndex is returned by sinkInject when a configured sink rule
// names an actual-parameter index the call site does not have (spec.md
// §7, "Malformed taint spec"). ErrBadSourceIndex names the same
// condition for source rules, but sourceInject does not return it: a
// source rule with an out-of-range index is skipped without an error.
var (
	ErrBadSinkIndex   = errors.New("transfer: sink rule references a non-existent actual index")
	ErrBadSourceIndex = errors.New("transfer: source rule references a non-existent actual index")
)

// ErrBadOperatorAssign is returned when an unknown-call's shape is
// recognized as an operator-assignment call but does not carry exactly
// the two actuals (lhs, rhs) that shape requires (spec.md §7,
// "Unexpected operator= shape": fail fast with printed instruction).
var ErrBadOperatorAssign = errors.New("transfer: operator-assignment call does not have the expected (lhs, rhs) shape")
