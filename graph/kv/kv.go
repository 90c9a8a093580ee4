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

// Package kv implements an entity store on top of ordered key-value databases.
//
// Backends only need to provide transactions over named buckets of sorted keys, or over a
// single flat keyspace that FromFlat splits into buckets.
package kv

import (
	"bytes"
	"context"
	"errors"

	"github.com/ldtoolkit/legdb/graph"
)

var (
	ErrNotFound = errors.New("kv: not found")
	ErrNoBucket = errors.New("kv: bucket is missing")
	// ErrReadOnly is returned for writes in a read-only transaction.
	ErrReadOnly = graph.ErrReadOnly
)

type Tx interface {
	Commit() error
	Rollback() error
}

// Bucket is a sorted keyspace within a transaction.
//
// A bucket that does not exist reads as an empty one in read-only transactions.
// Writable transactions create buckets on first use.
type Bucket interface {
	// Get returns values for keys. Missing keys have nil values.
	Get(keys [][]byte) ([][]byte, error)
	Put(k, v []byte) error
	Del(k []byte) error
	// Scan lists keys with a given prefix in ascending order.
	Scan(pref []byte) KVIterator
}

// GetOne returns a single value, or ErrNotFound.
func GetOne(b Bucket, key []byte) ([]byte, error) {
	out, err := b.Get([][]byte{key})
	if err != nil {
		return nil, err
	} else if len(out) == 0 || out[0] == nil {
		return nil, ErrNotFound
	}
	return out[0], nil
}

// KVIterator lists key-value pairs of a bucket. Key and Val are only valid until
// the next call to Next.
type KVIterator interface {
	Next(ctx context.Context) bool
	Err() error
	Close() error
	Key() []byte
	Val() []byte
}

type BucketKey struct {
	Bucket, Key []byte
}

type BucketTx interface {
	Tx
	Bucket(name []byte) Bucket
	Get(keys []BucketKey) ([][]byte, error)
}

type FlatTx interface {
	Tx
	Bucket
}

type Base interface {
	Type() string
	Close() error
}

// BucketKV is a database with named buckets.
type BucketKV interface {
	Base
	Tx(update bool) (BucketTx, error)
}

// FlatKV is a database with a single keyspace.
type FlatKV interface {
	Base
	Tx(update bool) (FlatTx, error)
}

// Update runs fn in a writable transaction and commits it if fn succeeds.
func Update(kv BucketKV, fn func(tx BucketTx) error) error {
	tx, err := kv.Tx(true)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// View runs fn in a read-only transaction.
func View(kv BucketKV, fn func(tx BucketTx) error) error {
	tx, err := kv.Tx(false)
	if err != nil {
		return err
	}
	err = fn(tx)
	if rerr := tx.Rollback(); err == nil {
		err = rerr
	}
	return err
}

// Each calls fn for every key with a given prefix.
func Each(ctx context.Context, b Bucket, pref []byte, fn func(k, v []byte) error) error {
	it := b.Scan(pref)
	defer it.Close()
	for it.Next(ctx) {
		if err := fn(it.Key(), it.Val()); err != nil {
			return err
		}
	}
	return it.Err()
}

// Count returns the number of keys with a given prefix, stopping at limit if it is positive.
func Count(ctx context.Context, b Bucket, pref []byte, limit int) (int, error) {
	it := b.Scan(pref)
	defer it.Close()
	n := 0
	for it.Next(ctx) {
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return n, it.Err()
}

var _ BucketKV = (*flatKV)(nil)

// FromFlat splits the keyspace of a flat database into buckets by prefixing keys with
// the bucket name and a separator. Bucket names must not contain the separator.
func FromFlat(flat FlatKV) BucketKV {
	return &flatKV{flat: flat}
}

type flatKV struct {
	flat FlatKV
}

func (kv *flatKV) Type() string { return kv.flat.Type() }
func (kv *flatKV) Close() error { return kv.flat.Close() }
func (kv *flatKV) Tx(update bool) (BucketTx, error) {
	tx, err := kv.flat.Tx(update)
	if err != nil {
		return nil, err
	}
	return &flatTx{tx: tx, ro: !update}, nil
}

type flatTx struct {
	tx FlatTx
	ro bool

	buckets map[string]*flatBucket
}

func (v *flatTx) Get(keys []BucketKey) ([][]byte, error) {
	ks := make([][]byte, len(keys))
	for i, k := range keys {
		ks[i] = bucketKey(k.Bucket, k.Key)
	}
	return v.tx.Get(ks)
}

func (v *flatTx) Commit() error   { return v.tx.Commit() }
func (v *flatTx) Rollback() error { return v.tx.Rollback() }

const bucketSep = '/'

func bucketKey(name, key []byte) []byte {
	p := make([]byte, len(name)+1+len(key))
	n := copy(p, name)
	p[n] = bucketSep
	n++
	copy(p[n:], key)
	return p
}

func (v *flatTx) Bucket(name []byte) Bucket {
	if b := v.buckets[string(name)]; b != nil {
		return b
	}
	if v.buckets == nil {
		v.buckets = make(map[string]*flatBucket)
	}
	b := &flatBucket{flatTx: v, pref: bucketKey(name, nil)}
	v.buckets[string(name)] = b
	return b
}

type flatBucket struct {
	*flatTx
	pref []byte
}

func (b *flatBucket) key(k []byte) []byte {
	key := make([]byte, len(b.pref)+len(k))
	n := copy(key, b.pref)
	copy(key[n:], k)
	return key
}

func (b *flatBucket) Get(keys [][]byte) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	nk := make([][]byte, len(keys))
	for i, k := range keys {
		nk[i] = b.key(k)
	}
	return b.tx.Get(nk)
}

func (b *flatBucket) Put(k, v []byte) error {
	if b.ro {
		return ErrReadOnly
	}
	return b.tx.Put(b.key(k), v)
}

func (b *flatBucket) Del(k []byte) error {
	if b.ro {
		return ErrReadOnly
	}
	return b.tx.Del(b.key(k))
}

func (b *flatBucket) Scan(pref []byte) KVIterator {
	return &prefIter{KVIterator: b.tx.Scan(b.key(pref)), trim: b.pref}
}

type prefIter struct {
	KVIterator
	trim []byte
}

func (it *prefIter) Key() []byte {
	return bytes.TrimPrefix(it.KVIterator.Key(), it.trim)
}
