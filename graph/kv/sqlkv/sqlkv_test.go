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
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/kv"
	"github.com/ldtoolkit/legdb/graph/kv/kvtest"
)

func makeSQLite(t testing.TB) (kv.BucketKV, graph.Options, func()) {
	tmpDir, err := os.MkdirTemp("", "legdb_test_sqlite")
	if err != nil {
		t.Fatalf("Could not create working directory: %v", err)
	}
	db, err := Create(SQLite, filepath.Join(tmpDir, "test.db"), nil)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatal("Failed to create SQLite database.", err)
	}
	return db, nil, func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}
}

func TestSQLite(t *testing.T) {
	kvtest.TestAll(t, makeSQLite, nil)
}

var tableSeq int64

// makeRemote creates a new table for every database, so tests can share one server.
func makeRemote(d Dialect, dsn string) kvtest.DatabaseFunc {
	return func(t testing.TB) (kv.BucketKV, graph.Options, func()) {
		table := fmt.Sprintf("legdb_test_%d_%d", os.Getpid(), atomic.AddInt64(&tableSeq, 1))
		opt := graph.Options{OptTable: table}
		db, err := Create(d, dsn, opt)
		require.NoError(t, err)
		return db, opt, func() {
			db.Close()
			if conn, err := sql.Open(d.Driver, dsn); err == nil {
				conn.Exec("DROP TABLE " + table)
				conn.Close()
			}
		}
	}
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("LEGDB_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("LEGDB_TEST_POSTGRES is not set")
	}
	kvtest.TestAll(t, makeRemote(Postgres, dsn), nil)
}

func TestMySQL(t *testing.T) {
	dsn := os.Getenv("LEGDB_TEST_MYSQL")
	if dsn == "" {
		t.Skip("LEGDB_TEST_MYSQL is not set")
	}
	kvtest.TestAll(t, makeRemote(MySQL, dsn), nil)
}

func TestPrefixEnd(t *testing.T) {
	require.Equal(t, []byte("ab"), prefixEnd([]byte("aa")))
	require.Equal(t, []byte("b"), prefixEnd([]byte{'a', 0xff}))
	require.Nil(t, prefixEnd([]byte{0xff, 0xff}))
	require.Nil(t, prefixEnd(nil))
}

func TestTableName(t *testing.T) {
	name, err := tableName(nil)
	require.NoError(t, err)
	require.Equal(t, defaultTable, name)

	_, err = tableName(graph.Options{OptTable: "kv; DROP TABLE x"})
	require.Error(t, err)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(SQLite, filepath.Join(t.TempDir(), "missing.db"), nil)
	require.ErrorIs(t, err, graph.ErrNotInitialized)
}

func TestLongScan(t *testing.T) {
	db, _, closer := makeSQLite(t)
	defer closer()

	b := []byte("b")
	err := kv.Update(db, func(tx kv.BucketTx) error {
		for i := 0; i < scanChunk*2+10; i++ {
			if err := tx.Bucket(b).Put([]byte(fmt.Sprintf("%05d", i)), []byte{1}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = kv.View(db, func(tx kv.BucketTx) error {
		n, err := kv.Count(context.TODO(), tx.Bucket(b), nil, 0)
		require.NoError(t, err)
		require.Equal(t, scanChunk*2+10, n)
		n, err = kv.Count(context.TODO(), tx.Bucket(b), []byte("001"), 0)
		require.NoError(t, err)
		require.Equal(t, 100, n)
		return nil
	})
	require.NoError(t, err)
}
