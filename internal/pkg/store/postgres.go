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

package store

import (
	"database/sql"
	"fmt"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/accesstree"
	"github.com/apflow/taint/internal/pkg/taintspec"
	"github.com/apflow/taint/internal/pkg/trace"
	_ "github.com/lib/pq"
	"golang.org/x/tools/go/ssa"
)

// Postgres persists summaries across analysis runs of the same
// codebase, keyed by the procedure's fully-qualified name (package
// path + receiver + name), since an *ssa.Function pointer is only
// stable within one process's ssa.Program.
type Postgres struct {
	db    *sql.DB
	codec taintspec.SummaryCodec
}

// OpenPostgres connects to dsn and ensures the summaries table exists.
func OpenPostgres(dsn string, codec taintspec.SummaryCodec) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres summary store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to postgres summary store: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("creating summaries table: %w", err)
	}
	return &Postgres{db: db, codec: codec}, nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS taint_summaries (
	procedure_key TEXT PRIMARY KEY,
	payload       BYTEA NOT NULL
)`

func procedureKey(fn *ssa.Function) string {
	path, recv, name := decomposeFunction(fn)
	return path + "|" + recv + "|" + name
}

// decomposeFunction returns the same (path, recv, name) triple as
// utils.DecomposeFunction, except that recv is the receiver type's
// full String() rather than its unqualified name. It does not import
// the utils package, keeping store free of a dependency on
// internal/pkg/utils's SSA-specific helpers for a single string key.
func decomposeFunction(fn *ssa.Function) (path, recv, name string) {
	name = fn.Name()
	if fn.Pkg != nil {
		path = fn.Pkg.Pkg.Path()
	}
	if fn.Signature.Recv() != nil {
		recv = fn.Signature.Recv().Type().String()
	}
	return path, recv, name
}

func (s *Postgres) ReadSummary(caller, callee *ssa.Function) (accesstree.Tree, bool) {
	var payload []byte
	row := s.db.QueryRow(`SELECT payload FROM taint_summaries WHERE procedure_key = $1`, procedureKey(callee))
	if err := row.Scan(&payload); err != nil {
		return accesstree.Tree{}, false
	}
	paths, traces, err := s.codec.Decode(payload)
	if err != nil {
		return accesstree.Tree{}, false
	}
	return rebuildTree(paths, traces), true
}

func (s *Postgres) WriteSummary(fn *ssa.Function, summary accesstree.Tree) error {
	var paths []accesspath.Path
	var traces []trace.Trace
	accesstree.TraceFold(summary, func(ap accesspath.Path, tr trace.Trace) {
		if tr.IsEmpty() {
			return
		}
		paths = append(paths, ap)
		traces = append(traces, tr)
	})
	payload, err := s.codec.Encode(paths, traces)
	if err != nil {
		return fmt.Errorf("encoding summary for %s: %w", procedureKey(fn), err)
	}
	_, err = s.db.Exec(`
		INSERT INTO taint_summaries (procedure_key, payload) VALUES ($1, $2)
		ON CONFLICT (procedure_key) DO UPDATE SET payload = EXCLUDED.payload`,
		procedureKey(fn), payload)
	if err != nil {
		return fmt.Errorf("writing summary for %s: %w", procedureKey(fn), err)
	}
	return nil
}

func rebuildTree(paths []accesspath.Path, traces []trace.Trace) accesstree.Tree {
	t := accesstree.Empty()
	for i, ap := range paths {
		t = accesstree.AddTrace(ap, traces[i], t)
	}
	return t
}

// Close releases the underlying connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}
