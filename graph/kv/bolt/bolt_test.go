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

package bolt

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/kv"
	"github.com/ldtoolkit/legdb/graph/kv/kvtest"
)

func makeBolt(t testing.TB) (kv.BucketKV, graph.Options, func()) {
	tmpDir, err := os.MkdirTemp("", "legdb_test_"+Type)
	if err != nil {
		t.Fatalf("Could not create working directory: %v", err)
	}
	db, err := Create(tmpDir, graph.Options{"nosync": true})
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatal("Failed to create Bolt database.", err)
	}
	return db, nil, func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}
}

func TestBolt(t *testing.T) {
	kvtest.TestAll(t, makeBolt, nil)
}

func TestRegistered(t *testing.T) {
	dir := t.TempDir()
	_, err := graph.NewStore(Type, dir, nil)
	require.ErrorIs(t, err, graph.ErrNotInitialized)

	require.NoError(t, graph.InitStore(Type, dir, nil))
	require.ErrorIs(t, graph.InitStore(Type, dir, nil), graph.ErrDatabaseExists)

	qs, err := graph.NewStore(Type, dir, nil)
	require.NoError(t, err)
	require.Equal(t, Type, qs.Type())
	require.NoError(t, qs.Close())
	require.True(t, graph.IsPersistent(Type))
}
