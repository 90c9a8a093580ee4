// Copyright 2021 The LegDB Authors. All rights reserved.
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

package sqlkv

import (
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores entities in a local SQLite file. The address is a file path,
// or a directory that will contain legdb.sqlite.
var SQLite = Dialect{
	Name:        "sqlite",
	Driver:      "sqlite3",
	CreateTable: "CREATE TABLE IF NOT EXISTS %s (k BLOB NOT NULL PRIMARY KEY, v BLOB NOT NULL) WITHOUT ROWID",
	Upsert:      "INSERT INTO %s (k, v) VALUES (%s, %s) ON CONFLICT (k) DO UPDATE SET v = excluded.v",
	Placeholder: questionMark,
	DSN: func(addr string) string {
		if fi, err := os.Stat(addr); err == nil && fi.IsDir() {
			addr = filepath.Join(addr, "legdb.sqlite")
		}
		// WAL lets snapshots coexist with a writer
		return "file:" + addr + "?_journal_mode=WAL&_busy_timeout=5000"
	},
}

func init() {
	Register(SQLite)
}
