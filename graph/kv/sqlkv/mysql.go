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

	_ "github.com/go-sql-driver/mysql"
)

// MySQL stores entities in a MySQL table. The address is a DSN of the go-sql-driver/mysql.
var MySQL = Dialect{
	Name:        "mysql",
	Driver:      "mysql",
	CreateTable: "CREATE TABLE IF NOT EXISTS %s (k VARBINARY(3072) NOT NULL PRIMARY KEY, v LONGBLOB NOT NULL)",
	Upsert:      "INSERT INTO %s (k, v) VALUES (%s, %s) ON DUPLICATE KEY UPDATE v = VALUES(v)",
	Placeholder: questionMark,
	ReadTx:      &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
}

func init() {
	Register(MySQL)
}
