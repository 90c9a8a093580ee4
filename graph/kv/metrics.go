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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mApplyBatch = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "legdb_kv_put_batch",
		Help: "Number of entities in a single Put or Delete call.",
	})
	mApplySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "legdb_kv_put_seconds",
		Help: "Time to write a batch of entities.",
	})

	mEntitiesNew = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_entities_new_count",
		Help: "Number of entities created.",
	})
	mEntitiesUpd = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_entities_upd_count",
		Help: "Number of entities replaced.",
	})
	mEntitiesDel = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_entities_del_count",
		Help: "Number of entities deleted.",
	})

	mBloomHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_bloom_hits",
		Help: "Number of times the entity bloom filter returned a negative result.",
	})
	mBloomMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_bloom_miss",
		Help: "Number of times the entity bloom filter returned a positive result.",
	})

	mCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_decode_cache_hits",
		Help: "Number of entities served from the decode cache.",
	})
	mCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_decode_cache_miss",
		Help: "Number of entities decoded from KV values.",
	})

	mIndexScan = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legdb_kv_index_scan_count",
		Help: "Number of scans by access path.",
	}, []string{"path"})

	mKVGet = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_get_count",
		Help: "Number of get KV calls.",
	})
	mKVGetMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_get_miss",
		Help: "Number of get KV calls that found no value.",
	})
	mKVGetSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "legdb_kv_get_size",
		Help: "Size of values returned from KV.",
	})
	mKVPut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_put_count",
		Help: "Number of put KV calls.",
	})
	mKVPutSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "legdb_kv_put_size",
		Help: "Size of values put to KV.",
	})
	mKVDel = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_del_count",
		Help: "Number of del KV calls.",
	})
	mKVScan = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_scan_count",
		Help: "Number of scan KV calls.",
	})
	mKVCommit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_commit",
		Help: "Number of KV commits.",
	})
	mKVCommitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "legdb_kv_commit_seconds",
		Help: "Time to commit to KV.",
	})
	mKVRollback = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_kv_rollback",
		Help: "Number of KV rollbacks.",
	})
)

func wrapTx(tx BucketTx) BucketTx {
	return &mTx{tx: tx}
}

type mTx struct {
	tx   BucketTx
	done bool
}

func (tx *mTx) Commit() error {
	if !tx.done {
		tx.done = true
		mKVCommit.Inc()
		defer prometheus.NewTimer(mKVCommitSeconds).ObserveDuration()
	}
	return tx.tx.Commit()
}

func (tx *mTx) Rollback() error {
	if !tx.done {
		tx.done = true
		mKVRollback.Inc()
	}
	return tx.tx.Rollback()
}

func (tx *mTx) Get(keys []BucketKey) ([][]byte, error) {
	mKVGet.Add(float64(len(keys)))
	vals, err := tx.tx.Get(keys)
	observeGet(vals)
	return vals, err
}

func (tx *mTx) Bucket(name []byte) Bucket {
	return &mBucket{b: tx.tx.Bucket(name)}
}

func observeGet(vals [][]byte) {
	for _, v := range vals {
		if v == nil {
			mKVGetMiss.Inc()
		} else {
			mKVGetSize.Observe(float64(len(v)))
		}
	}
}

type mBucket struct {
	b Bucket
}

func (b *mBucket) Get(keys [][]byte) ([][]byte, error) {
	mKVGet.Add(float64(len(keys)))
	vals, err := b.b.Get(keys)
	observeGet(vals)
	return vals, err
}

func (b *mBucket) Put(k, v []byte) error {
	mKVPut.Inc()
	mKVPutSize.Observe(float64(len(v)))
	return b.b.Put(k, v)
}

func (b *mBucket) Del(k []byte) error {
	mKVDel.Inc()
	return b.b.Del(k)
}

func (b *mBucket) Scan(pref []byte) KVIterator {
	mKVScan.Inc()
	return b.b.Scan(pref)
}
