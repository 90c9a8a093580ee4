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

package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/internal/lru"
)

type Registration struct {
	NewFunc      NewFunc
	InitFunc     InitFunc
	IsPersistent bool
}

type InitFunc func(string, graph.Options) (BucketKV, error)
type NewFunc func(string, graph.Options) (BucketKV, error)

// Register makes a KV backend available as an entity store under a given name.
func Register(name string, r Registration) {
	graph.RegisterStore(name, graph.StoreRegistration{
		InitFunc: func(addr string, opt graph.Options) error {
			if !r.IsPersistent {
				return nil
			}
			kv, err := r.InitFunc(addr, opt)
			if err != nil {
				return err
			}
			if err = Init(kv, opt); err != nil {
				kv.Close()
				return err
			}
			return kv.Close()
		},
		NewFunc: func(addr string, opt graph.Options) (graph.Store, error) {
			kv, err := r.NewFunc(addr, opt)
			if err != nil {
				return nil, err
			}
			if !r.IsPersistent {
				if err = Init(kv, opt); err != nil {
					kv.Close()
					return nil, err
				}
			}
			qs, err := New(kv, opt)
			if err != nil {
				kv.Close()
				return nil, err
			}
			return qs, nil
		},
		IsPersistent: r.IsPersistent,
	})
}

const latestDataVersion = 1

const (
	// OptIndexAll selects whether every attribute is indexed on write. It is only read on Init.
	// When disabled, only attributes passed to EnsureIndex are indexed.
	OptIndexAll = "index_all"
	// OptCacheSize is the number of decoded entities kept in memory.
	OptCacheSize = "cache_size"

	defaultCacheSize = 2000
)

var _ graph.Store = (*Store)(nil)

// Store is an entity store on top of a KV database.
//
// Entities of each kind live in a separate bucket keyed by id. Attribute indexes and
// edge adjacency lists are kept in buckets with keys prefixed by the indexed value.
type Store struct {
	db       BucketKV
	indexAll bool

	// writer serializes write transactions and protects derived state updates.
	writer sync.Mutex

	cache  *lru.Cache
	exists *existFilter
}

// Init creates the metadata of a new store in an empty database.
func Init(kv BucketKV, opt graph.Options) error {
	ctx := context.TODO()
	if _, _, err := readMeta(ctx, kv); err == nil {
		return graph.ErrDatabaseExists
	} else if err != graph.ErrNotInitialized {
		return err
	}
	indexAll, err := opt.BoolKey(OptIndexAll, true)
	if err != nil {
		return err
	}
	return Update(kv, func(tx BucketTx) error {
		b := tx.Bucket(metaBucket)
		if err := b.Put(keyVersion, encodeInt(latestDataVersion)); err != nil {
			return fmt.Errorf("couldn't write version: %v", err)
		}
		all := int64(0)
		if indexAll {
			all = 1
		}
		return b.Put(keyIndexAll, encodeInt(all))
	})
}

// New opens a store in a database prepared with Init.
func New(kv BucketKV, opt graph.Options) (*Store, error) {
	ctx := context.TODO()
	vers, indexAll, err := readMeta(ctx, kv)
	if err != nil {
		return nil, err
	} else if vers != latestDataVersion {
		return nil, fmt.Errorf("kv: unsupported data version: %d", vers)
	}
	size, err := opt.IntKey(OptCacheSize, defaultCacheSize)
	if err != nil {
		return nil, err
	}
	qs := &Store{
		db:       kv,
		indexAll: indexAll,
		cache:    lru.New(size),
	}
	if nobloom, err := opt.BoolKey(OptNoBloom, false); err != nil {
		return nil, err
	} else if !nobloom {
		if err := qs.initBloomFilter(ctx); err != nil {
			return nil, err
		}
	}
	if clog.V(1) {
		clog.Infof("kv: opened %s store (index all: %v, bloom: %v)", kv.Type(), indexAll, qs.exists != nil)
	}
	return qs, nil
}

func readMeta(ctx context.Context, kv BucketKV) (vers int64, indexAll bool, _ error) {
	err := View(kv, func(tx BucketTx) error {
		vals, err := tx.Bucket(metaBucket).Get([][]byte{keyVersion, keyIndexAll})
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoBucket) {
			return graph.ErrNotInitialized
		} else if err != nil {
			return err
		} else if vals[0] == nil {
			return graph.ErrNotInitialized
		}
		if vers, err = asInt64(vals[0], 0); err != nil {
			return err
		}
		all, err := asInt64(vals[1], 1)
		if err != nil {
			return err
		}
		indexAll = all != 0
		return nil
	})
	return vers, indexAll, err
}

func (qs *Store) Type() string {
	return qs.db.Type()
}

func (qs *Store) Close() error {
	return qs.db.Close()
}

// DB returns the underlying KV database.
func (qs *Store) DB() BucketKV {
	return qs.db
}

func (qs *Store) update(ctx context.Context, fn func(tx BucketTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := qs.db.Tx(true)
	if err != nil {
		return err
	}
	tx = wrapTx(tx)
	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Snapshot opens a read-only transaction. All reads of the snapshot observe the same state.
func (qs *Store) Snapshot(ctx context.Context) (graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := qs.db.Tx(false)
	if err != nil {
		return nil, err
	}
	return &snapshot{qs: qs, tx: wrapTx(tx)}, nil
}

func cacheKey(k graph.Kind, id graph.ID) string {
	var sb strings.Builder
	sb.Write(kindKey(k))
	sb.WriteByte(0)
	sb.WriteString(string(id))
	return sb.String()
}

// prepare validates entities and assigns ids to the new ones.
func prepare(ents []graph.Entity) ([]graph.Entity, error) {
	out := make([]graph.Entity, len(ents))
	for i, e := range ents {
		if e.ID == "" {
			e.ID = graph.ID(uuid.NewString())
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// Put inserts or replaces entities in a single transaction.
func (qs *Store) Put(ctx context.Context, ents ...graph.Entity) ([]graph.ID, error) {
	defer prometheus.NewTimer(mApplySeconds).ObserveDuration()
	mApplyBatch.Observe(float64(len(ents)))
	ents, err := prepare(ents)
	if err != nil {
		return nil, err
	}
	qs.writer.Lock()
	defer qs.writer.Unlock()
	var created, replaced int
	err = qs.update(ctx, func(tx BucketTx) error {
		w := &writer{ctx: ctx, tx: tx, indexAll: qs.indexAll}
		for _, e := range ents {
			old, err := w.put(e)
			if err != nil {
				return err
			}
			// readers may see the row as soon as the transaction commits
			qs.exists.Add(e.Kind, e.ID)
			if old {
				replaced++
			} else {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ids := make([]graph.ID, len(ents))
	for i, e := range ents {
		ids[i] = e.ID
		qs.cache.Del(cacheKey(e.Kind, e.ID))
	}
	mEntitiesNew.Add(float64(created))
	mEntitiesUpd.Add(float64(replaced))
	return ids, nil
}

// Delete removes entities and all their index entries.
func (qs *Store) Delete(ctx context.Context, kind graph.Kind, ids ...graph.ID) error {
	mApplyBatch.Observe(float64(len(ids)))
	qs.writer.Lock()
	defer qs.writer.Unlock()
	deleted := 0
	err := qs.update(ctx, func(tx BucketTx) error {
		w := &writer{ctx: ctx, tx: tx, indexAll: qs.indexAll}
		for _, id := range ids {
			ok, err := w.del(kind, id)
			if err != nil {
				return err
			} else if ok {
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range ids {
		qs.cache.Del(cacheKey(kind, id))
	}
	mEntitiesDel.Add(float64(deleted))
	return nil
}

// EnsureIndex starts indexing an attribute of a kind and indexes existing entities.
// It does nothing if the store indexes all attributes.
func (qs *Store) EnsureIndex(ctx context.Context, kind graph.Kind, attr string) error {
	if qs.indexAll {
		return nil
	} else if attr == "" {
		return fmt.Errorf("%w: empty attribute name", graph.ErrInvalidEntity)
	}
	qs.writer.Lock()
	defer qs.writer.Unlock()
	return qs.update(ctx, func(tx BucketTx) error {
		xb := tx.Bucket(indexesBucket(kind))
		if _, err := GetOne(xb, []byte(attr)); err == nil {
			return nil
		} else if err != ErrNotFound {
			return err
		}
		if err := xb.Put([]byte(attr), []byte{0}); err != nil {
			return err
		}
		var ents []graph.Entity
		err := Each(ctx, tx.Bucket(entityBucket(kind)), nil, func(k, v []byte) error {
			e, err := decodeEntity(kind, graph.ID(k), v)
			if err != nil {
				return err
			}
			if _, ok := e.Attrs[attr]; ok {
				ents = append(ents, e)
			}
			return nil
		})
		if err != nil {
			return err
		}
		ib := tx.Bucket(indexBucket(kind, attr))
		for _, e := range ents {
			if err := putIndex(ib, e.ID, e.Attrs[attr]); err != nil {
				return err
			}
		}
		if clog.V(1) {
			clog.Infof("kv: indexed %d entities of %s by %q", len(ents), kind, attr)
		}
		return nil
	})
}

func putIndex(b Bucket, id graph.ID, v interface{}) error {
	pref, err := indexPrefixKey(v)
	if err != nil {
		return err
	}
	return b.Put(prefixedID(pref, id), []byte{0})
}

// writer applies entity changes within one write transaction.
type writer struct {
	ctx      context.Context
	tx       BucketTx
	indexAll bool
	indexed  map[graph.Kind]map[string]bool
}

func (w *writer) isIndexed(k graph.Kind, attr string) (bool, error) {
	if w.indexAll {
		return true, nil
	}
	m, ok := w.indexed[k]
	if !ok {
		m = make(map[string]bool)
		err := Each(w.ctx, w.tx.Bucket(indexesBucket(k)), nil, func(key, _ []byte) error {
			m[string(key)] = true
			return nil
		})
		if err != nil {
			return false, err
		}
		if w.indexed == nil {
			w.indexed = make(map[graph.Kind]map[string]bool)
		}
		w.indexed[k] = m
	}
	return m[attr], nil
}

func (w *writer) get(k graph.Kind, id graph.ID) (*graph.Entity, error) {
	data, err := GetOne(w.tx.Bucket(entityBucket(k)), []byte(id))
	if err == ErrNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	e, err := decodeEntity(k, id, data)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// put writes an entity and reports whether it replaced an existing one.
func (w *writer) put(e graph.Entity) (bool, error) {
	old, err := w.get(e.Kind, e.ID)
	if err != nil {
		return false, err
	}
	if old != nil {
		if err = w.unindex(*old); err != nil {
			return false, err
		}
	} else if err = w.tx.Bucket(kindsBucket).Put(kindKey(e.Kind), []byte{0}); err != nil {
		return false, err
	}
	data, err := encodeEntity(e)
	if err != nil {
		return false, err
	}
	if err = w.tx.Bucket(entityBucket(e.Kind)).Put([]byte(e.ID), data); err != nil {
		return false, err
	}
	return old != nil, w.index(e)
}

func (w *writer) del(k graph.Kind, id graph.ID) (bool, error) {
	old, err := w.get(k, id)
	if err != nil || old == nil {
		return false, err
	}
	if err = w.unindex(*old); err != nil {
		return false, err
	}
	return true, w.tx.Bucket(entityBucket(k)).Del([]byte(id))
}

func (w *writer) index(e graph.Entity) error {
	return w.each(e, func(b Bucket, key []byte) error {
		return b.Put(key, []byte{0})
	})
}

func (w *writer) unindex(e graph.Entity) error {
	return w.each(e, func(b Bucket, key []byte) error {
		return b.Del(key)
	})
}

// each calls fn for every index entry of an entity.
func (w *writer) each(e graph.Entity, fn func(b Bucket, key []byte) error) error {
	for _, attr := range e.Attrs.Keys() {
		if ok, err := w.isIndexed(e.Kind, attr); err != nil {
			return err
		} else if !ok {
			continue
		}
		pref, err := indexPrefixKey(e.Attrs[attr])
		if err != nil {
			return err
		}
		if err = fn(w.tx.Bucket(indexBucket(e.Kind, attr)), prefixedID(pref, e.ID)); err != nil {
			return err
		}
	}
	if !e.IsEdge() {
		return nil
	}
	for _, d := range []graph.Endpoint{graph.Start, graph.End} {
		key := prefixedID(adjPrefixKey(e.Endpoint(d)), e.ID)
		if err := fn(w.tx.Bucket(adjBucket(e.Kind, d)), key); err != nil {
			return err
		}
	}
	return nil
}
