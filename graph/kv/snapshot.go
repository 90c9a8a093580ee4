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
	"bytes"
	"context"
	"sort"

	"github.com/ldtoolkit/legdb/graph"
)

// indexCountLimit caps the number of index entries counted when choosing an index for a scan.
const indexCountLimit = 1000

var _ graph.Snapshot = (*snapshot)(nil)

type snapshot struct {
	qs      *Store
	tx      BucketTx
	indexed map[graph.Kind]map[string]bool
}

func (s *snapshot) Close() error {
	return s.tx.Rollback()
}

type cachedEntity struct {
	raw []byte
	e   graph.Entity
}

// decode converts a stored value to an entity. Decoded entities are reused only if
// the stored bytes are the same, so snapshots never observe a newer version.
func (qs *Store) decode(k graph.Kind, id graph.ID, data []byte) (graph.Entity, error) {
	key := cacheKey(k, id)
	if v, ok := qs.cache.Get(key); ok {
		if c := v.(cachedEntity); bytes.Equal(c.raw, data) {
			mCacheHit.Inc()
			return c.e, nil
		}
	}
	mCacheMiss.Inc()
	e, err := decodeEntity(k, id, data)
	if err != nil {
		return graph.Entity{}, err
	}
	qs.cache.Put(key, cachedEntity{raw: append([]byte(nil), data...), e: e})
	return e, nil
}

func (s *snapshot) get(b Bucket, k graph.Kind, id graph.ID) (graph.Entity, bool, error) {
	data, err := GetOne(b, []byte(id))
	if err == ErrNotFound {
		return graph.Entity{}, false, nil
	} else if err != nil {
		return graph.Entity{}, false, err
	}
	e, err := s.qs.decode(k, id, data)
	return e, err == nil, err
}

func (s *snapshot) isIndexed(ctx context.Context, k graph.Kind, attr string) (bool, error) {
	if s.qs.indexAll {
		return true, nil
	}
	if m, ok := s.indexed[k]; ok {
		return m[attr], nil
	}
	m := make(map[string]bool)
	err := Each(ctx, s.tx.Bucket(indexesBucket(k)), nil, func(key, _ []byte) error {
		m[string(key)] = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if s.indexed == nil {
		s.indexed = make(map[graph.Kind]map[string]bool)
	}
	s.indexed[k] = m
	return m[attr], nil
}

// Scan uses the most selective attribute index, or a full scan of the kind if no
// attribute is indexed. Entities are listed in the order of their ids.
func (s *snapshot) Scan(ctx context.Context, kind graph.Kind, attrs graph.Attrs) graph.Iterator {
	eb := s.tx.Bucket(entityBucket(kind))
	var (
		best     string
		bestPref []byte
		bestN    = -1
	)
	for _, attr := range attrs.Keys() {
		if ok, err := s.isIndexed(ctx, kind, attr); err != nil {
			return graph.Error(err)
		} else if !ok {
			continue
		}
		pref, err := indexPrefixKey(attrs[attr])
		if err != nil {
			return graph.Error(err)
		}
		n, err := Count(ctx, s.tx.Bucket(indexBucket(kind, attr)), pref, indexCountLimit)
		if err != nil {
			return graph.Error(err)
		} else if n == 0 {
			mIndexScan.WithLabelValues("empty").Inc()
			return graph.Empty()
		}
		if bestN < 0 || n < bestN {
			best, bestPref, bestN = attr, pref, n
		}
	}
	if bestN < 0 {
		mIndexScan.WithLabelValues("full").Inc()
		return &scanIterator{s: s, kind: kind, attrs: attrs, it: eb.Scan(nil)}
	}
	mIndexScan.WithLabelValues("index").Inc()
	return &lookupIterator{
		s: s, kind: kind, attrs: attrs, eb: eb,
		it: s.tx.Bucket(indexBucket(kind, best)).Scan(bestPref), trim: len(bestPref),
	}
}

func (s *snapshot) Get(ctx context.Context, kind graph.Kind, ids []graph.ID) graph.Iterator {
	return &getIterator{s: s, kind: kind, ids: ids, eb: s.tx.Bucket(entityBucket(kind))}
}

func (s *snapshot) Adjacent(ctx context.Context, kind graph.Kind, dir graph.Endpoint, nodes []graph.ID, attrs graph.Attrs) graph.Iterator {
	if len(nodes) == 0 {
		return graph.Empty()
	}
	return &adjIterator{
		s: s, kind: kind, attrs: attrs, nodes: nodes,
		ab: s.tx.Bucket(adjBucket(kind, dir)),
		eb: s.tx.Bucket(entityBucket(kind)),
	}
}

func listKinds(ctx context.Context, tx BucketTx) ([]graph.Kind, error) {
	var kinds []graph.Kind
	err := Each(ctx, tx.Bucket(kindsBucket), nil, func(k, _ []byte) error {
		kind, err := parseKindKey(k)
		if err != nil {
			return err
		}
		kinds = append(kinds, kind)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(kinds, func(i, j int) bool {
		if kinds[i].Name != kinds[j].Name {
			return kinds[i].Name < kinds[j].Name
		}
		return kinds[i].Class < kinds[j].Class
	})
	return kinds, nil
}

// Kinds lists kinds sorted by name.
func (s *snapshot) Kinds(ctx context.Context) ([]graph.Kind, error) {
	return listKinds(ctx, s.tx)
}

// scanIterator lists all entities of a bucket that match attributes.
type scanIterator struct {
	s     *snapshot
	kind  graph.Kind
	attrs graph.Attrs
	it    KVIterator
	cur   graph.Entity
	err   error
}

func (it *scanIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for it.it.Next(ctx) {
		e, err := it.s.qs.decode(it.kind, graph.ID(it.it.Key()), it.it.Val())
		if err != nil {
			it.err = err
			return false
		}
		if e.Attrs.Match(it.attrs) {
			it.cur = e
			return true
		}
	}
	it.err = it.it.Err()
	return false
}

func (it *scanIterator) Result() graph.Entity { return it.cur }
func (it *scanIterator) Err() error           { return it.err }
func (it *scanIterator) Close() error         { return it.it.Close() }

// lookupIterator lists entities by ids found in the keys of an index, after a fixed prefix.
type lookupIterator struct {
	s     *snapshot
	kind  graph.Kind
	attrs graph.Attrs
	eb    Bucket
	it    KVIterator
	trim  int
	cur   graph.Entity
	err   error
}

func (it *lookupIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for it.it.Next(ctx) {
		id := graph.ID(it.it.Key()[it.trim:])
		e, ok, err := it.s.get(it.eb, it.kind, id)
		if err != nil {
			it.err = err
			return false
		} else if ok && e.Attrs.Match(it.attrs) {
			it.cur = e
			return true
		}
	}
	it.err = it.it.Err()
	return false
}

func (it *lookupIterator) Result() graph.Entity { return it.cur }
func (it *lookupIterator) Err() error           { return it.err }
func (it *lookupIterator) Close() error         { return it.it.Close() }

type getIterator struct {
	s    *snapshot
	kind graph.Kind
	eb   Bucket
	ids  []graph.ID
	cur  graph.Entity
	err  error
}

func (it *getIterator) Next(ctx context.Context) bool {
	for it.err == nil && len(it.ids) != 0 {
		if it.err = ctx.Err(); it.err != nil {
			return false
		}
		id := it.ids[0]
		it.ids = it.ids[1:]
		if !it.s.qs.exists.Test(it.kind, id) {
			mBloomHit.Inc()
			continue
		}
		mBloomMiss.Inc()
		e, ok, err := it.s.get(it.eb, it.kind, id)
		if err != nil {
			it.err = err
		} else if ok {
			it.cur = e
			return true
		}
	}
	return false
}

func (it *getIterator) Result() graph.Entity { return it.cur }
func (it *getIterator) Err() error           { return it.err }
func (it *getIterator) Close() error         { return nil }

// adjIterator lists edges attached to each node in turn.
type adjIterator struct {
	s      *snapshot
	kind   graph.Kind
	attrs  graph.Attrs
	ab, eb Bucket
	nodes  []graph.ID

	it   KVIterator
	trim int
	cur  graph.Entity
	err  error
}

func (it *adjIterator) Next(ctx context.Context) bool {
	for it.err == nil {
		if it.it == nil {
			if len(it.nodes) == 0 {
				return false
			}
			pref := adjPrefixKey(it.nodes[0])
			it.nodes = it.nodes[1:]
			it.it, it.trim = it.ab.Scan(pref), len(pref)
		}
		for it.it.Next(ctx) {
			id := graph.ID(it.it.Key()[it.trim:])
			e, ok, err := it.s.get(it.eb, it.kind, id)
			if err != nil {
				it.err = err
				return false
			} else if ok && e.Attrs.Match(it.attrs) {
				it.cur = e
				return true
			}
		}
		it.err = it.it.Err()
		if err := it.it.Close(); it.err == nil {
			it.err = err
		}
		it.it = nil
	}
	return false
}

func (it *adjIterator) Result() graph.Entity { return it.cur }
func (it *adjIterator) Err() error           { return it.err }
func (it *adjIterator) Close() error {
	if it.it != nil {
		err := it.it.Close()
		it.it = nil
		return err
	}
	return nil
}
