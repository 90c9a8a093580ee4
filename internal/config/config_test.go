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

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/step"
)

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultBackend, c.Backend)
	require.Equal(t, step.DefaultPageSize, c.PageSize)
	require.Equal(t, DefaultTimeout, c.Timeout)
	require.Equal(t, "127.0.0.1:64210", c.Address())

	opts := c.QueryOptions()
	require.Equal(t, graph.NodeKind, opts.NodeKind)
	require.Equal(t, graph.EdgeKind, opts.EdgeKind)
}

const testConfig = `
store:
  backend: bolt
  path: /var/lib/legdb
  options:
    nosync: true
    cache_size: 100
query:
  page_size: 3
  timeout: 5s
graph:
  node_kind: vertex
  edge_kind: link
`

func TestLoadFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "legdb-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "legdb.yml")
	require.NoError(t, ioutil.WriteFile(file, []byte(testConfig), 0644))

	c, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, "bolt", c.Backend)
	require.Equal(t, "/var/lib/legdb", c.Path)
	require.Equal(t, 3, c.PageSize)
	require.Equal(t, 5*time.Second, c.Timeout)

	nosync, err := c.Options.BoolKey("nosync", false)
	require.NoError(t, err)
	require.True(t, nosync)
	size, err := c.Options.IntKey("cache_size", 0)
	require.NoError(t, err)
	require.Equal(t, 100, size)

	opts := c.QueryOptions()
	require.Equal(t, graph.NewNodeKind("vertex"), opts.NodeKind)
	require.Equal(t, graph.NewEdgeKind("link"), opts.EdgeKind)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(os.TempDir(), "legdb-missing.yml"))
	require.Error(t, err)
}

func TestEnv(t *testing.T) {
	os.Setenv("LEGDB_STORE_BACKEND", "leveldb")
	defer os.Unsetenv("LEGDB_STORE_BACKEND")

	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "leveldb", c.Backend)
}

func TestValidate(t *testing.T) {
	for _, c := range []struct {
		name string
		key  string
		val  interface{}
	}{
		{name: "page size", key: KeyPageSize, val: 0},
		{name: "same kinds", key: KeyEdgeKind, val: "node"},
		{name: "no backend", key: KeyBackend, val: ""},
	} {
		t.Run(c.name, func(t *testing.T) {
			v := New()
			v.Set(c.key, c.val)
			_, err := FromViper(v)
			require.Error(t, err)
		})
	}
}
