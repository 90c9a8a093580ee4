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
	"database/sql"

	_ "github.com/lib/pq"
)

// Postgres stores entities in a PostgreSQL table. The address is a connection string.
var Postgres = Dialect{
	Name:        "postgres",
	Driver:      "postgres",
	CreateTable: "CREATE TABLE IF NOT EXISTS %s (k BYTEA NOT NULL PRIMARY KEY, v BYTEA NOT NULL)",
	Upsert:      "INSERT INTO %s (k, v) VALUES (%s, %s) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v",
	Placeholder: dollar,
	ReadTx:      &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
}

func init() {
	Register(Postgres)
}
