// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package localdb

import (
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/uber/bitswap-torrent/localdb/migrations" // Add migrations.

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQL driver.
	"github.com/pressly/goose"
)

// The following are indirected through package vars so tests can substitute
// failure behavior without touching the filesystem or an actual database.
var (
	ensureFilePresent = defaultEnsureFilePresent
	sqlxOpen          = sqlx.Open
	gooseSetDialect   = goose.SetDialect
	gooseUp           = goose.Up
)

// defaultEnsureFilePresent creates path's parent directory and an empty
// file at path if neither already exists.
func defaultEnsureFilePresent(path string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), perm|0111); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, perm)
	if err != nil {
		return err
	}
	return f.Close()
}

// New creates or opens a locally embedded SQLite database and runs pending
// migrations against it.
func New(config Config) (*sqlx.DB, error) {
	if err := ensureFilePresent(config.Source, 0644); err != nil {
		return nil, fmt.Errorf("ensure db source present: %s", err)
	}
	db, err := sqlxOpen("sqlite3", config.Source)
	if err != nil {
		return nil, fmt.Errorf("open sqlite3: %s", err)
	}
	// SQLite has concurrency issues where queries result in error if more
	// than one connection is accessing a table.
	db.SetMaxOpenConns(1)
	if err := gooseSetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("set dialect as sqlite3: %s", err)
	}
	if err := gooseUp(db.DB, "."); err != nil {
		return nil, fmt.Errorf("perform db migration: %s", err)
	}
	return db, nil
}
