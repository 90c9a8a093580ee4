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

package kv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/graphtest/testutil"
	"github.com/ldtoolkit/legdb/graph/kv"
	"github.com/ldtoolkit/legdb/graph/kv/leveldb"
)

// commitHook calls after once a write transaction is committed.
type commitHook struct {
	kv.BucketKV
	after func()
}

func (h *commitHook) Tx(update bool) (kv.BucketTx, error) {
	tx, err := h.BucketKV.Tx(update)
	if err != nil || !update || h.after == nil {
		return tx, err
	}
	return &hookTx{BucketTx: tx, after: h.after}, nil
}

type hookTx struct {
	kv.BucketTx
	after func()
}

func (tx *hookTx) Commit() error {
	if err := tx.BucketTx.Commit(); err != nil {
		return err
	}
	tx.after()
	return nil
}

func TestPutVisibleOnCommit(t *testing.T) {
	db, err := leveldb.OpenMem("", nil)
	require.NoError(t, err)
	require.NoError(t, kv.Init(db, nil))

	hook := &commitHook{BucketKV: db}
	qs, err := kv.New(hook, nil)
	require.NoError(t, err)
	defer qs.Close()

	ctx := context.TODO()
	var got []graph.ID
	hook.after = func() {
		snap, err := qs.Snapshot(ctx)
		require.NoError(t, err)
		defer snap.Close()
		got = testutil.IDs(t, snap.Get(ctx, graph.NodeKind, []graph.ID{"n1"}))
	}
	_, err = qs.Put(ctx, graph.NewNode(graph.NodeKind, "n1", graph.Attrs{"a": 1}))
	require.NoError(t, err)
	require.Equal(t, []graph.ID{"n1"}, got)
}
