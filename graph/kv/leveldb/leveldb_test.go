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

package leveldb

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/graphtest"
	"github.com/ldtoolkit/legdb/graph/kv"
	"github.com/ldtoolkit/legdb/graph/kv/kvtest"
	"github.com/ldtoolkit/legdb/query"
)

func makeLevelDB(t testing.TB) (kv.BucketKV, graph.Options, func()) {
	tmpDir, err := os.MkdirTemp("", "legdb_test_"+Type)
	if err != nil {
		t.Fatalf("Could not create working directory: %v", err)
	}
	db, err := Create(tmpDir, graph.Options{"nosync": true})
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatal("Failed to create LevelDB database.", err)
	}
	return db, nil, func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}
}

func makeMem(t testing.TB) (kv.BucketKV, graph.Options, func()) {
	db, err := OpenMem("", nil)
	require.NoError(t, err)
	return db, nil, func() {
		db.Close()
	}
}

func TestLevelDB(t *testing.T) {
	kvtest.TestAll(t, makeLevelDB, nil)
}

func TestMemStore(t *testing.T) {
	kvtest.TestAll(t, makeMem, nil)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, graph.InitStore(Type, dir, nil))

	qs, err := graph.NewStore(Type, dir, nil)
	require.NoError(t, err)
	_, err = qs.Put(context.TODO(), graphtest.People()...)
	require.NoError(t, err)
	require.NoError(t, qs.Close())

	qs, err = graph.NewStore(Type, dir, nil)
	require.NoError(t, err)
	defer qs.Close()

	c := query.New(query.DefaultOptions()).Nodes().Has(graph.Attrs{"type": "person"}).EdgeOut(graph.Attrs{"rel": "knows"})
	snap, err := qs.Snapshot(context.TODO())
	require.NoError(t, err)
	defer snap.Close()
	got, err := c.All(context.TODO(), snap)
	require.NoError(t, err)
	require.Equal(t, []graph.ID{"e1"}, graph.IDs(got))
}

func TestMemStoreRegistered(t *testing.T) {
	require.NoError(t, graph.InitStore(MemType, "", nil))
	qs, err := graph.NewStore(MemType, "", nil)
	require.NoError(t, err)
	defer qs.Close()
	require.Equal(t, MemType, qs.Type())
	require.False(t, graph.IsPersistent(MemType))
}
