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

package internal

import (
	"bytes"
	"compress/gzip"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	_ "github.com/ldtoolkit/legdb/graph/kv/leveldb"
	"github.com/ldtoolkit/legdb/query"
)

const testDocument = `
nodes:
  - {id: a, attrs: {type: person, name: Alice}}
  - {id: b, attrs: {type: person, name: Bob}}
  - {id: c, kind: city, attrs: {name: Paris}}
edges:
  - {id: e1, start: a, end: b, attrs: {rel: knows}}
  - {id: e2, kind: lives, start: a, end: c}
indexes:
  - {attr: type}
  - {class: edge, attr: rel}
`

func newStore(t testing.TB) graph.Store {
	qs, err := graph.NewStore("memstore", "", nil)
	require.NoError(t, err)
	return qs
}

func TestReadDocument(t *testing.T) {
	d, err := ReadDocument(strings.NewReader(testDocument))
	require.NoError(t, err)
	require.Len(t, d.Nodes, 3)
	require.Len(t, d.Edges, 2)
	require.Len(t, d.Indexes, 2)

	ents, err := d.Entities(query.Options{})
	require.NoError(t, err)
	require.Len(t, ents, 5)
	require.Equal(t, graph.NodeKind, ents[0].Kind)
	require.Equal(t, graph.NewNodeKind("city"), ents[2].Kind)
	require.Equal(t, graph.NewEdge(graph.EdgeKind, "e1", "a", "b", graph.Attrs{"rel": "knows"}), ents[3])
	require.Equal(t, graph.NewEdgeKind("lives"), ents[4].Kind)
}

func TestEncode(t *testing.T) {
	d, err := ReadDocument(strings.NewReader(testDocument))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, d.Encode(&buf))
	require.True(t, strings.HasPrefix(buf.String(), "nodes:\n"), buf.String())

	d2, err := ReadDocument(&buf)
	require.NoError(t, err)
	require.Equal(t, d, d2)
}

func TestReadDocumentJSON(t *testing.T) {
	d, err := ReadDocument(strings.NewReader(`{"nodes": [{"id": "a", "attrs": {"w": 1}}]}`))
	require.NoError(t, err)
	require.Equal(t, []Node{{ID: "a", Attrs: graph.Attrs{"w": 1}}}, d.Nodes)
}

func TestReadDocumentErrors(t *testing.T) {
	_, err := ReadDocument(strings.NewReader(`vertices: []`))
	require.Error(t, err)

	d, err := ReadDocument(strings.NewReader(`edges: [{id: e1, start: a}]`))
	require.NoError(t, err)
	_, err = d.Entities(query.Options{})
	require.ErrorIs(t, err, graph.ErrInvalidEntity)

	d, err = ReadDocument(strings.NewReader(`indexes: [{class: hyperedge, attr: x}]`))
	require.NoError(t, err)
	_, err = WriteDocument(context.TODO(), newStore(t), d, query.Options{}, 0)
	require.Error(t, err)
}

func TestLoadDump(t *testing.T) {
	ctx := context.TODO()
	dir, err := ioutil.TempDir("", "legdb-load")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "graph.yaml.gz")
	buf := bytes.NewBuffer(nil)
	gz := gzip.NewWriter(buf)
	_, err = gz.Write([]byte(testDocument))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, ioutil.WriteFile(in, buf.Bytes(), 0644))

	qs := newStore(t)
	defer qs.Close()

	n, err := Load(ctx, qs, in, query.Options{}, 2)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	ses := query.NewSession(qs, query.Options{})
	ents, err := ses.Collect(ctx, `node.has(type="person").edge_out(rel="knows")`, 0)
	require.NoError(t, err)
	require.Equal(t, []graph.ID{"e1"}, graph.IDs(ents))

	out := filepath.Join(dir, "dump.yaml")
	n, err = Dump(ctx, qs, out)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	qs2 := newStore(t)
	defer qs2.Close()
	n, err = Load(ctx, qs2, out, query.Options{}, 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	d1, err := Collect(ctx, qs)
	require.NoError(t, err)
	d2, err := Collect(ctx, qs2)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}

func TestLoadEmptyPath(t *testing.T) {
	n, err := Load(context.TODO(), nil, "", query.Options{}, 0)
	require.NoError(t, err)
	require.Zero(t, n)
}
