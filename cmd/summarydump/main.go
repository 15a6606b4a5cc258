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

// Command summarydump prints a single stored procedure summary as
// JSON, mirroring the teacher's cmd/sourcetype debug-tool pattern: a
// thin main that reads the taint_summaries table internal/pkg/store's
// Postgres backend writes (with database/sql directly, not through
// store.Postgres) and decodes it with the default
// taintspec.SummaryCodec, for inspection during development.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/apflow/taint/internal/pkg/accesspath"
	"github.com/apflow/taint/internal/pkg/taintspec/summarycodec"
	"github.com/apflow/taint/internal/pkg/trace"
	_ "github.com/lib/pq"
)

func main() {
	dsn := flag.String("dsn", "", "postgres connection string for the summary store")
	key := flag.String("key", "", "procedure_key to look up (packagePath|receiverType|name)")
	flag.Parse()

	if *dsn == "" || *key == "" {
		fmt.Fprintln(os.Stderr, "usage: summarydump -dsn <postgres dsn> -key <packagePath|receiverType|name>")
		os.Exit(2)
	}

	if err := dump(*dsn, *key); err != nil {
		log.Fatal(err)
	}
}

func dump(dsn, key string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("opening postgres summary store: %w", err)
	}
	defer db.Close()

	var payload []byte
	row := db.QueryRow(`SELECT payload FROM taint_summaries WHERE procedure_key = $1`, key)
	if err := row.Scan(&payload); err != nil {
		return fmt.Errorf("no summary stored for %q: %w", key, err)
	}

	codec := summarycodec.JSON{}
	paths, traces, err := codec.Decode(payload)
	if err != nil {
		return fmt.Errorf("decoding summary for %q: %w", key, err)
	}

	type entry struct {
		Path    string         `json:"path"`
		Sources []trace.Source `json:"sources"`
		Sinks   []trace.Sink   `json:"sinks"`
	}
	out := make([]entry, 0, len(paths))
	for i, ap := range paths {
		out = append(out, entry{Path: describePath(ap), Sources: traces[i].Sources(), Sinks: traces[i].Sinks()})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func describePath(ap accesspath.Path) string {
	return ap.String()
}
