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

// Package leveldb stores entities in LevelDB, either on disk or in memory.
package leveldb

import (
	"context"
	"os"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/kv"
)

func init() {
	kv.Register(Type, kv.Registration{
		NewFunc:      Open,
		InitFunc:     Create,
		IsPersistent: true,
	})
	kv.Register(MemType, kv.Registration{
		NewFunc:      OpenMem,
		IsPersistent: false,
	})
}

const (
	Type = "leveldb"
	// MemType is a volatile store kept in memory.
	MemType = "memstore"
)

func newDB(d *leveldb.DB, typ string, m graph.Options) (*DB, error) {
	db := &DB{
		DB:  d,
		typ: typ,
		wo:  &opt.WriteOptions{},
	}
	nosync, err := m.BoolKey("nosync", false)
	if err != nil {
		d.Close()
		return nil, err
	}
	db.wo.Sync = !nosync
	return db, nil
}

func Create(path string, m graph.Options) (kv.BucketKV, error) {
	err := os.MkdirAll(path, 0700)
	if err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(path, &opt.Options{
		ErrorIfExist: true,
	})
	if os.IsExist(err) {
		return nil, graph.ErrDatabaseExists
	} else if err != nil {
		return nil, err
	}
	ldb, err := newDB(db, Type, m)
	if err != nil {
		return nil, err
	}
	return kv.FromFlat(ldb), nil
}

func Open(path string, m graph.Options) (kv.BucketKV, error) {
	if _, err := os.Stat(filepath.Join(path, "CURRENT")); os.IsNotExist(err) {
		return nil, graph.ErrNotInitialized
	}
	db, err := leveldb.OpenFile(path, &opt.Options{
		ErrorIfMissing: true,
	})
	if err != nil {
		return nil, err
	}
	ldb, err := newDB(db, Type, m)
	if err != nil {
		return nil, err
	}
	return kv.FromFlat(ldb), nil
}

// OpenMem creates an empty in-memory database. The path is ignored.
func OpenMem(_ string, m graph.Options) (kv.BucketKV, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	ldb, err := newDB(db, MemType, m)
	if err != nil {
		return nil, err
	}
	return kv.FromFlat(ldb), nil
}

type DB struct {
	DB  *leveldb.DB
	typ string
	wo  *opt.WriteOptions
	ro  *opt.ReadOptions
}

func (db *DB) Type() string {
	return db.typ
}

func (db *DB) Close() error {
	err := db.DB.Close()
	if err == leveldb.ErrClosed {
		return nil
	}
	return err
}

// Tx opens a transaction for writes, or a snapshot for reads.
// Only one write transaction can be open at a time.
func (db *DB) Tx(update bool) (kv.FlatTx, error) {
	tx := &Tx{db: db}
	var err error
	if update {
		tx.tx, err = db.DB.OpenTransaction()
	} else {
		tx.sn, err = db.DB.GetSnapshot()
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

type Tx struct {
	db   *DB
	sn   *leveldb.Snapshot
	tx   *leveldb.Transaction
	err  error
	done bool
}

func (tx *Tx) Commit() error {
	if tx.done {
		return tx.err
	}
	tx.done = true
	if tx.tx != nil {
		tx.err = tx.tx.Commit()
		return tx.err
	}
	tx.sn.Release()
	return tx.err
}

func (tx *Tx) Rollback() error {
	if tx.done {
		return tx.err
	}
	tx.done = true
	if tx.tx != nil {
		tx.tx.Discard()
	} else {
		tx.sn.Release()
	}
	return tx.err
}

func (tx *Tx) Get(keys [][]byte) ([][]byte, error) {
	vals := make([][]byte, len(keys))
	var err error
	var get func(k []byte, ro *opt.ReadOptions) ([]byte, error)
	if tx.tx != nil {
		get = tx.tx.Get
	} else {
		get = tx.sn.Get
	}
	for i, k := range keys {
		vals[i], err = get(k, tx.db.ro)
		if err == leveldb.ErrNotFound {
			vals[i] = nil
		} else if err != nil {
			return nil, err
		}
	}
	return vals, nil
}

func (tx *Tx) Put(k, v []byte) error {
	if tx.tx == nil {
		return kv.ErrReadOnly
	}
	return tx.tx.Put(k, v, tx.db.wo)
}

func (tx *Tx) Del(k []byte) error {
	if tx.tx == nil {
		return kv.ErrReadOnly
	}
	return tx.tx.Delete(k, tx.db.wo)
}

func (tx *Tx) Scan(pref []byte) kv.KVIterator {
	r, ro := util.BytesPrefix(pref), tx.db.ro
	var it iterator.Iterator
	if tx.tx != nil {
		it = tx.tx.NewIterator(r, ro)
	} else {
		it = tx.sn.NewIterator(r, ro)
	}
	return &Iterator{it: it, first: true}
}

type Iterator struct {
	it    iterator.Iterator
	first bool
	err   error
}

func (it *Iterator) Next(ctx context.Context) bool {
	if it.err = ctx.Err(); it.err != nil {
		return false
	}
	if it.first {
		it.first = false
		return it.it.First()
	}
	return it.it.Next()
}

func (it *Iterator) Key() []byte { return it.it.Key() }
func (it *Iterator) Val() []byte { return it.it.Value() }
func (it *Iterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.it.Error()
}

func (it *Iterator) Close() error {
	err := it.Err()
	it.it.Release()
	return err
}
