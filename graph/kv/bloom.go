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
	"sync"

	boom "github.com/tylertreat/BoomFilters"

	"github.com/ldtoolkit/legdb/graph"
)

// OptNoBloom disables the entity existence filter.
const OptNoBloom = "nobloom"

// existFilter remembers every entity key ever written to the store. Keys are never removed,
// thus a negative answer is valid for any snapshot, including the ones opened before a write.
type existFilter struct {
	mu  sync.Mutex
	buf []byte
	f   *boom.BloomFilter
}

func newExistFilter() *existFilter {
	return &existFilter{f: boom.NewBloomFilter(100*1000*1000, 0.05)}
}

func (b *existFilter) key(k graph.Kind, id graph.ID) []byte {
	b.buf = append(b.buf[:0], kindKey(k)...)
	b.buf = append(b.buf, 0)
	return append(b.buf, id...)
}

func (b *existFilter) Add(k graph.Kind, id graph.ID) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.f.Add(b.key(k, id))
	b.mu.Unlock()
}

// Test returns false if the entity was never written.
func (b *existFilter) Test(k graph.Kind, id graph.ID) bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.f.Test(b.key(k, id))
}

func (qs *Store) initBloomFilter(ctx context.Context) error {
	f := newExistFilter()
	err := View(qs.db, func(tx BucketTx) error {
		kinds, err := listKinds(ctx, tx)
		if err != nil {
			return err
		}
		for _, k := range kinds {
			err = Each(ctx, tx.Bucket(entityBucket(k)), nil, func(key, _ []byte) error {
				f.Add(k, graph.ID(key))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	qs.exists = f
	return nil
}
