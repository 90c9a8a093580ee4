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

// Package badger stores entities in a Badger database.
package badger

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger"
	"github.com/dgraph-io/badger/options"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/kv"
)

const (
	Type = "badger"
)

func init() {
	kv.Register(Type, kv.Registration{
		NewFunc:      Open,
		InitFunc:     Create,
		IsPersistent: true,
	})
}

func open(path string, m graph.Options) (*DB, error) {
	nosync, err := m.BoolKey("nosync", false)
	if err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(path)
	opts.ValueLogLoadingMode = options.FileIO
	opts.TableLoadingMode = options.FileIO
	opts.SyncWrites = !nosync
	opts.Logger = Logger{}

	store, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &DB{DB: store}, nil
}

func Create(path string, m graph.Options) (kv.BucketKV, error) {
	err := os.MkdirAll(path, 0700)
	if err != nil {
		return nil, err
	}
	if _, err = os.Stat(filepath.Join(path, "MANIFEST")); err == nil {
		return nil, graph.ErrDatabaseExists
	}
	db, err := open(path, m)
	if err != nil {
		return nil, err
	}
	return kv.FromFlat(db), nil
}

func Open(path string, m graph.Options) (kv.BucketKV, error) {
	if _, err := os.Stat(filepath.Join(path, "MANIFEST")); os.IsNotExist(err) {
		return nil, graph.ErrNotInitialized
	}
	db, err := open(path, m)
	if err != nil {
		return nil, err
	}
	return kv.FromFlat(db), nil
}

type DB struct {
	DB       *badger.DB
	isClosed bool
}

func (db *DB) Type() string {
	return Type
}

func (db *DB) Close() error {
	if db.DB == nil || db.isClosed {
		return nil
	}
	db.isClosed = true
	return db.DB.Close()
}

func (db *DB) Tx(update bool) (kv.FlatTx, error) {
	tx := &Tx{update: update, db: db}
	tx.txn = db.DB.NewTransaction(update)
	return tx, nil
}

type Tx struct {
	db     *DB
	txn    *badger.Txn
	err    error
	update bool
}

func (tx *Tx) Commit() error {
	if tx.err != nil {
		return tx.err
	}
	if !tx.update {
		tx.txn.Discard()
		return nil
	}
	tx.err = tx.txn.Commit()
	return tx.err
}

func (tx *Tx) Rollback() error {
	tx.txn.Discard()
	return tx.err
}

func (tx *Tx) Get(keys [][]byte) ([][]byte, error) {
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		v, err := tx.txn.Get(k)
		if err == badger.ErrKeyNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		val, err := v.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		vals[i] = val
	}
	return vals, nil
}

func (tx *Tx) Put(k, v []byte) error {
	if !tx.update {
		return kv.ErrReadOnly
	}
	return tx.txn.Set(k, v)
}

func (tx *Tx) Del(k []byte) error {
	if !tx.update {
		return kv.ErrReadOnly
	}
	return tx.txn.Delete(k)
}

// Scan lists keys with a prefix. Only one iterator can be open at a time in a write transaction.
func (tx *Tx) Scan(pref []byte) kv.KVIterator {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.PrefetchSize = 100
	it := tx.txn.NewIterator(opts)
	return &Iterator{iter: it, first: true, pref: pref}
}

type Iterator struct {
	iter  *badger.Iterator
	first bool
	pref  []byte
	err   error
}

func (it *Iterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	} else if it.err = ctx.Err(); it.err != nil {
		return false
	}
	if it.first {
		it.first = false
		if len(it.pref) != 0 {
			it.iter.Seek(it.pref)
			return it.iter.ValidForPrefix(it.pref)
		}
		it.iter.Rewind()
		return it.iter.Valid()
	}
	it.iter.Next()
	if len(it.pref) != 0 {
		return it.iter.ValidForPrefix(it.pref)
	}
	return it.iter.Valid()
}

func (it *Iterator) Key() []byte { return it.iter.Item().Key() }
func (it *Iterator) Val() []byte {
	val, err := it.iter.Item().ValueCopy(nil)
	if err != nil {
		it.err = err
	}
	return val
}

func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) Close() error {
	it.iter.Close()
	return it.err
}

// Logger forwards Badger logs to clog.
type Logger struct{}

func (Logger) Errorf(s string, i ...interface{})   { clog.Errorf("badger: "+s, i...) }
func (Logger) Warningf(s string, i ...interface{}) { clog.Warningf("badger: "+s, i...) }
func (Logger) Infof(s string, i ...interface{}) {
	if clog.V(2) {
		clog.Infof("badger: "+s, i...)
	}
}
func (Logger) Debugf(s string, i ...interface{}) {
	if clog.V(3) {
		clog.Infof("badger: "+s, i...)
	}
}
