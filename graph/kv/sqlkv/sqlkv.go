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

// Package sqlkv stores entities in a single key-value table of an SQL database.
package sqlkv

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/kv"
)

const (
	// OptTable sets the name of the key-value table.
	OptTable = "table"

	defaultTable = "legdb_kv"
	// scanChunk is the number of rows fetched by one scan query. Rows are read
	// to memory, so other queries can run in the same transaction while iterating.
	scanChunk = 256
)

// Dialect describes SQL syntax differences between databases.
type Dialect struct {
	// Name is the store type the dialect is registered under.
	Name string
	// Driver is the database/sql driver name.
	Driver string
	// CreateTable is a statement template with the table name as the only argument.
	CreateTable string
	// Upsert is a statement template that inserts or replaces a key.
	Upsert string
	// Placeholder returns a parameter marker with a given index, starting from 1.
	Placeholder func(i int) string
	// ReadTx are options of read transactions. They must provide a stable snapshot.
	ReadTx *sql.TxOptions
	// DSN converts a store address to a data source name.
	DSN func(addr string) string
}

func questionMark(int) string { return "?" }
func dollar(i int) string     { return "$" + strconv.Itoa(i) }

// Register makes the dialect available as a store type.
func Register(d Dialect) {
	kv.Register(d.Name, kv.Registration{
		NewFunc: func(addr string, opt graph.Options) (kv.BucketKV, error) {
			return Open(d, addr, opt)
		},
		InitFunc: func(addr string, opt graph.Options) (kv.BucketKV, error) {
			return Create(d, addr, opt)
		},
		IsPersistent: true,
	})
}

func tableName(opt graph.Options) (string, error) {
	name, err := opt.StringKey(OptTable, defaultTable)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("sqlkv: empty table name")
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", fmt.Errorf("sqlkv: invalid table name: %q", name)
		}
	}
	return name, nil
}

func connect(d Dialect, addr string, opt graph.Options) (*DB, error) {
	table, err := tableName(opt)
	if err != nil {
		return nil, err
	}
	dsn := addr
	if d.DSN != nil {
		dsn = d.DSN(addr)
	}
	conn, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, err
	}
	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	return newDB(d, conn, table), nil
}

// Create creates the key-value table if it does not exist.
func Create(d Dialect, addr string, opt graph.Options) (kv.BucketKV, error) {
	db, err := connect(d, addr, opt)
	if err != nil {
		return nil, err
	}
	if _, err = db.conn.Exec(fmt.Sprintf(d.CreateTable, db.table)); err != nil {
		db.Close()
		return nil, err
	}
	return kv.FromFlat(db), nil
}

// Open connects to a database with an existing key-value table.
func Open(d Dialect, addr string, opt graph.Options) (kv.BucketKV, error) {
	db, err := connect(d, addr, opt)
	if err != nil {
		return nil, err
	}
	if _, err = db.conn.Exec(fmt.Sprintf("SELECT k FROM %s WHERE k = %s", db.table, d.Placeholder(1)), []byte{}); err != nil {
		db.Close()
		clog.Errorf("sqlkv: cannot read table %q: %v", db.table, err)
		return nil, fmt.Errorf("%w: %v", graph.ErrNotInitialized, err)
	}
	return kv.FromFlat(db), nil
}

// NewDB wraps an open connection. The table must exist.
func NewDB(d Dialect, conn *sql.DB, table string) kv.FlatKV {
	return newDB(d, conn, table)
}

func newDB(d Dialect, conn *sql.DB, table string) *DB {
	ph := d.Placeholder
	return &DB{
		d: d, conn: conn, table: table,
		qGet: fmt.Sprintf("SELECT v FROM %s WHERE k = %s", table, ph(1)),
		qDel: fmt.Sprintf("DELETE FROM %s WHERE k = %s", table, ph(1)),
		qPut: fmt.Sprintf(d.Upsert, table, ph(1), ph(2)),
		qScanFrom: fmt.Sprintf("SELECT k, v FROM %s WHERE k >= %s ORDER BY k LIMIT %d",
			table, ph(1), scanChunk),
		qScanRange: fmt.Sprintf("SELECT k, v FROM %s WHERE k >= %s AND k < %s ORDER BY k LIMIT %d",
			table, ph(1), ph(2), scanChunk),
		qScanAfter: fmt.Sprintf("SELECT k, v FROM %s WHERE k > %s ORDER BY k LIMIT %d",
			table, ph(1), scanChunk),
		qScanAfterRange: fmt.Sprintf("SELECT k, v FROM %s WHERE k > %s AND k < %s ORDER BY k LIMIT %d",
			table, ph(1), ph(2), scanChunk),
	}
}

type DB struct {
	d     Dialect
	conn  *sql.DB
	table string

	qGet, qPut, qDel string

	qScanFrom, qScanRange, qScanAfter, qScanAfterRange string
}

func (db *DB) Type() string {
	return db.d.Name
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Tx(update bool) (kv.FlatTx, error) {
	ctx := context.Background()
	var opts *sql.TxOptions
	if !update {
		opts = db.d.ReadTx
	}
	tx, err := db.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	if !update {
		// snapshot is taken by the first statement of a transaction
		var one []byte
		err = tx.QueryRowContext(ctx, db.qGet, []byte{}).Scan(&one)
		if err != nil && err != sql.ErrNoRows {
			tx.Rollback()
			return nil, err
		}
	}
	return &Tx{db: db, tx: tx, ro: !update}, nil
}

type Tx struct {
	db   *DB
	tx   *sql.Tx
	ro   bool
	done bool
}

func (tx *Tx) Commit() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.ro {
		return tx.tx.Rollback()
	}
	return tx.tx.Commit()
}

func (tx *Tx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	return tx.tx.Rollback()
}

func (tx *Tx) Get(keys [][]byte) ([][]byte, error) {
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		var v []byte
		err := tx.tx.QueryRow(tx.db.qGet, k).Scan(&v)
		if err == sql.ErrNoRows {
			continue
		} else if err != nil {
			return nil, err
		}
		if v == nil {
			v = []byte{}
		}
		vals[i] = v
	}
	return vals, nil
}

func (tx *Tx) Put(k, v []byte) error {
	if tx.ro {
		return kv.ErrReadOnly
	}
	if v == nil {
		v = []byte{}
	}
	_, err := tx.tx.Exec(tx.db.qPut, k, v)
	return err
}

func (tx *Tx) Del(k []byte) error {
	if tx.ro {
		return kv.ErrReadOnly
	}
	_, err := tx.tx.Exec(tx.db.qDel, k)
	return err
}

func (tx *Tx) Scan(pref []byte) kv.KVIterator {
	if pref == nil {
		// nil is sent as NULL
		pref = []byte{}
	}
	return &Iterator{tx: tx, pref: pref, end: prefixEnd(pref), i: -1}
}

// prefixEnd returns the smallest key that is greater than all keys with a prefix,
// or nil if there is none.
func prefixEnd(pref []byte) []byte {
	end := append([]byte(nil), pref...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

type row struct {
	k, v []byte
}

// Iterator fetches rows in chunks ordered by key.
type Iterator struct {
	tx   *Tx
	pref []byte
	end  []byte

	buf  []row
	i    int
	last []byte
	eof  bool
	err  error
}

func (it *Iterator) fetch(ctx context.Context) error {
	db := it.tx.db
	var args []interface{}
	var q string
	if it.last == nil {
		q, args = db.qScanFrom, []interface{}{it.pref}
		if it.end != nil {
			q, args = db.qScanRange, append(args, it.end)
		}
	} else {
		q, args = db.qScanAfter, []interface{}{it.last}
		if it.end != nil {
			q, args = db.qScanAfterRange, append(args, it.end)
		}
	}
	rows, err := it.tx.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	it.buf, it.i = it.buf[:0], 0
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.k, &r.v); err != nil {
			return err
		}
		it.buf = append(it.buf, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(it.buf) < scanChunk {
		it.eof = true
	}
	if n := len(it.buf); n != 0 {
		it.last = it.buf[n-1].k
	}
	return nil
}

func (it *Iterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	it.i++
	if it.i < len(it.buf) {
		return true
	} else if it.eof {
		return false
	}
	if it.err = it.fetch(ctx); it.err != nil {
		return false
	}
	return len(it.buf) != 0
}

func (it *Iterator) Key() []byte  { return it.buf[it.i].k }
func (it *Iterator) Val() []byte  { return it.buf[it.i].v }
func (it *Iterator) Err() error   { return it.err }
func (it *Iterator) Close() error { return it.err }
