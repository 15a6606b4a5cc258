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

// Package summary implements summary application (C6, apply.go) and
// summary construction (C7, construct.go): grafting a callee's
// procedure summary onto a caller's access tree at a call site, and
// compressing a finished caller-side tree into a summary of its own.
package summary

import "errors"

// ErrReturnBindingMissing is spec.md §7's "Return binding missing":
// the summary being applied carries a trace on the return base, but
// the call site provides no return slot to receive it.
var ErrReturnBindingMissing = errors.New("summary: callee summary has a return-slot trace but call site has no return slot")
