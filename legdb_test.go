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

package legdb_test

import (
	"context"
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/graphtest"
)

func ExampleNewMemoryGraph() {
	ctx := context.Background()
	h, err := legdb.NewMemoryGraph()
	if err != nil {
		log.Fatal(err)
	}
	defer h.Close()

	_, err = h.Put(ctx,
		graph.NewNode(graph.NodeKind, "alice", graph.Attrs{"type": "person"}),
		graph.NewNode(graph.NodeKind, "bob", graph.Attrs{"type": "person"}),
		graph.NewEdge(graph.EdgeKind, "follows", "alice", "bob", graph.Attrs{"rel": "follows"}),
	)
	if err != nil {
		log.Fatal(err)
	}

	ents, err := h.All(ctx, h.Nodes().Has(graph.Attrs{"type": "person"}).EdgeOut(nil))
	if err != nil {
		log.Fatal(err)
	}
	for _, e := range ents {
		fmt.Println(e.ID, e.Start, "->", e.End)
	}
	// Output:
	// follows alice -> bob
}

func TestHandle(t *testing.T) {
	ctx := context.TODO()
	h, err := legdb.NewMemoryGraph()
	require.NoError(t, err)
	defer h.Close()
	require.Equal(t, "memstore", h.Type())

	_, err = h.Put(ctx, graphtest.People()...)
	require.NoError(t, err)

	c, err := h.Parse(`node.has(type="city").edge_in(rel="lives_in")`)
	require.NoError(t, err)
	var got []graph.ID
	err = h.Iterate(ctx, c, func(e graph.Entity) error {
		got = append(got, e.ID)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []graph.ID{"e2", "e3"}, got)

	ents, err := h.All(ctx, h.Edges().Get("e1"))
	require.NoError(t, err)
	require.Equal(t, []graph.ID{"e1"}, graph.IDs(ents))

	_, err = h.All(ctx, h.Nodes().Source(graph.EdgeKind))
	require.ErrorIs(t, err, graph.ErrUsage)
}

func TestNewGraphUnknown(t *testing.T) {
	_, err := legdb.NewGraph("nope", "", nil)
	require.ErrorIs(t, err, graph.ErrStoreNotRegistered)
}
