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

package step_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/graphmock"
	. "github.com/ldtoolkit/legdb/graph/step"
)

var (
	nk = graph.NodeKind
	ek = graph.EdgeKind
)

func testStore() *graphmock.Store {
	return graphmock.New(
		graph.NewNode(nk, "n1", graph.Attrs{"type": "person", "name": "ann"}),
		graph.NewNode(nk, "n2", graph.Attrs{"type": "person", "name": "bob"}),
		graph.NewNode(nk, "n3", graph.Attrs{"type": "city", "name": "oslo"}),
		graph.NewEdge(ek, "e1", "n1", "n2", graph.Attrs{"rel": "knows"}),
		graph.NewEdge(ek, "e2", "n1", "n3", graph.Attrs{"rel": "lives_in"}),
		graph.NewEdge(ek, "e3", "n2", "n3", graph.Attrs{"rel": "lives_in"}),
		graph.NewEdge(ek, "e4", "n3", "n1", graph.Attrs{"rel": "knows"}),
	)
}

func drain(t testing.TB, c graph.Cursor) [][]graph.ID {
	ctx := context.TODO()
	var out [][]graph.ID
	for {
		page, err := c.NextPage(ctx)
		require.NoError(t, err)
		if len(page) == 0 {
			return out
		}
		out = append(out, graph.IDs(page))
	}
}

func flat(pages [][]graph.ID) []graph.ID {
	var out []graph.ID
	for _, p := range pages {
		out = append(out, p...)
	}
	return out
}

var casesString = []struct {
	step Step
	exp  string
}{
	{Source{Kind: nk}, `node`},
	{Get{IDs: []graph.ID{"a", "b"}}, `get("a", "b")`},
	{Has{Attrs: graph.Attrs{"type": "person", "age": 3}}, `has(age=3, type="person")`},
	{EdgeOut{Attrs: graph.Attrs{}}, `edge_out()`},
	{Filter{Kind: nk, Attrs: graph.Attrs{"type": "person"}}, `filter(node, type="person")`},
	{Filter{Kind: ek, Attrs: graph.Attrs{"rel": "knows"}, Anchor: &Anchor{Dir: graph.Start, Kind: nk, Attrs: graph.Attrs{"type": "person"}}},
		`filter(edge, start=node{type="person"}, rel="knows")`},
	{PointGet{Kind: nk, IDs: []graph.ID{"n1"}}, `point_get(node, "n1")`},
	{EdgeScanIn{Kind: ek}, `edge_scan_in(edge)`},
	{Union{Steps: []Physical{EdgeScanIn{Kind: ek}, EdgeScanOut{Kind: ek, Attrs: graph.Attrs{"w": 1.5}}}},
		`union(edge_scan_in(edge), edge_scan_out(edge, w=1.5))`},
}

func TestStepString(t *testing.T) {
	for _, c := range casesString {
		t.Run(c.exp, func(t *testing.T) {
			require.Equal(t, c.exp, c.step.String())
		})
	}
	require.Equal(t, `node.has(type="person").edge_out(rel="knows")`, Format([]Step{
		Source{Kind: nk}, Has{Attrs: graph.Attrs{"type": "person"}}, EdgeOut{Attrs: graph.Attrs{"rel": "knows"}},
	}))
}

func TestIsLogical(t *testing.T) {
	require.True(t, IsLogical(Source{Kind: nk}))
	require.True(t, IsLogical(Has{}))
	require.False(t, IsLogical(Filter{Kind: nk}))
	require.False(t, IsLogical(Union{}))
}

func TestFilterPages(t *testing.T) {
	ctx := context.TODO()
	qs := testStore()
	c := Filter{Kind: nk, Attrs: graph.Attrs{}}.Iterate(qs, 2)
	defer c.Close()

	require.Equal(t, [][]graph.ID{{"n1", "n2"}, {"n3"}}, drain(t, c))

	// exhausted until rewound
	page, err := c.NextPage(ctx)
	require.NoError(t, err)
	require.Empty(t, page)

	require.NoError(t, c.Reset(ctx))
	require.NoError(t, c.Reset(ctx))
	require.Equal(t, [][]graph.ID{{"n1", "n2"}, {"n3"}}, drain(t, c))

	// binding a first-stage cursor only rewinds it
	require.NoError(t, c.Bind(ctx, []graph.Entity{{ID: "x", Kind: nk}}))
	require.Equal(t, [][]graph.ID{{"n1", "n2"}, {"n3"}}, drain(t, c))
}

func TestFilterAnchored(t *testing.T) {
	qs := testStore()
	c := Filter{
		Kind:   ek,
		Attrs:  graph.Attrs{"rel": "knows"},
		Anchor: &Anchor{Dir: graph.Start, Kind: nk, Attrs: graph.Attrs{"type": "person"}},
	}.Iterate(qs, 1)
	defer c.Close()
	require.Equal(t, []graph.ID{"e1"}, flat(drain(t, c)))

	c = Filter{
		Kind:   ek,
		Attrs:  graph.Attrs{},
		Anchor: &Anchor{Dir: graph.End, Kind: nk, Attrs: graph.Attrs{"type": "city"}},
	}.Iterate(qs, 10)
	defer c.Close()
	require.Equal(t, []graph.ID{"e2", "e3"}, flat(drain(t, c)))
}

func TestPointGet(t *testing.T) {
	qs := testStore()
	c := PointGet{Kind: nk, IDs: []graph.ID{"n3", "missing", "n1"}}.Iterate(qs, 10)
	require.Equal(t, []graph.ID{"n3", "n1"}, flat(drain(t, c)))

	c = PointGet{Kind: nk, IDs: []graph.ID{"n3", "n1", "n2"}, Attrs: graph.Attrs{"type": "person"}}.Iterate(qs, 10)
	require.Equal(t, []graph.ID{"n1", "n2"}, flat(drain(t, c)))

	c = PointGet{
		Kind:   ek,
		IDs:    []graph.ID{"e1", "e2", "e4"},
		Anchor: &Anchor{Dir: graph.End, Kind: nk, Attrs: graph.Attrs{"name": "bob"}},
	}.Iterate(qs, 10)
	require.Equal(t, []graph.ID{"e1"}, flat(drain(t, c)))
}

func TestEdgeScanBind(t *testing.T) {
	ctx := context.TODO()
	qs := testStore()
	n1 := graph.NewNode(nk, "n1", nil)
	n3 := graph.NewNode(nk, "n3", nil)

	out := EdgeScanOut{Kind: ek, Attrs: graph.Attrs{}}.Iterate(qs, 10)
	// unbound edge scans are empty
	require.Empty(t, drain(t, out))

	require.NoError(t, out.Bind(ctx, []graph.Entity{n1, n3}))
	require.Equal(t, []graph.ID{"e1", "e2", "e4"}, flat(drain(t, out)))

	in := EdgeScanIn{Kind: ek, Attrs: graph.Attrs{"rel": "lives_in"}}.Iterate(qs, 10)
	require.NoError(t, in.Bind(ctx, []graph.Entity{n1, n3}))
	require.Equal(t, []graph.ID{"e2", "e3"}, flat(drain(t, in)))

	// edges continue from the node they lead to
	e1 := graph.NewEdge(ek, "e1", "n1", "n2", nil)
	require.NoError(t, out.Bind(ctx, []graph.Entity{e1}))
	require.Equal(t, []graph.ID{"e3"}, flat(drain(t, out)))
	require.NoError(t, in.Bind(ctx, []graph.Entity{graph.NewEdge(ek, "e4", "n3", "n1", nil)}))
	require.Equal(t, []graph.ID{"e2", "e3"}, flat(drain(t, in)))

	// the binding is deduplicated
	require.NoError(t, out.Bind(ctx, []graph.Entity{n1, n1, n1}))
	require.Equal(t, []graph.ID{"e1", "e2"}, flat(drain(t, out)))
}

func TestEdgeScanAll(t *testing.T) {
	ctx := context.TODO()
	qs := testStore()
	c := EdgeScanAll{Kind: ek, Attrs: graph.Attrs{}}.Iterate(qs, 2)
	require.NoError(t, c.Bind(ctx, []graph.Entity{graph.NewNode(nk, "n1", nil)}))
	// in edges first, then out edges
	require.Equal(t, []graph.ID{"e4", "e1", "e2"}, flat(drain(t, c)))
}

func TestUnion(t *testing.T) {
	ctx := context.TODO()
	qs := testStore()
	c := Union{Steps: []Physical{
		EdgeScanIn{Kind: ek, Attrs: graph.Attrs{}},
		EdgeScanOut{Kind: ek, Attrs: graph.Attrs{}},
	}}.Iterate(qs, 10)
	defer c.Close()
	require.NoError(t, c.Bind(ctx, []graph.Entity{graph.NewNode(nk, "n3", nil)}))
	require.Equal(t, [][]graph.ID{{"e2", "e3"}, {"e4"}}, drain(t, c))

	require.NoError(t, c.Reset(ctx))
	require.Equal(t, []graph.ID{"e2", "e3", "e4"}, flat(drain(t, c)))
}

func TestResidual(t *testing.T) {
	ctx := context.TODO()
	in := []graph.Entity{
		graph.NewNode(nk, "a", graph.Attrs{"x": 1}),
		graph.NewNode(nk, "b", graph.Attrs{"x": 2}),
		graph.NewNode(nk, "c", graph.Attrs{"x": 1.0}),
	}
	c := Has{Attrs: graph.Attrs{"x": 1}}.Iterate(nil, 1)
	require.Empty(t, drain(t, c))
	require.NoError(t, c.Bind(ctx, in))
	require.Equal(t, [][]graph.ID{{"a"}, {"c"}}, drain(t, c))
	require.NoError(t, c.Reset(ctx))
	require.Equal(t, []graph.ID{"a", "c"}, flat(drain(t, c)))

	c = Get{IDs: []graph.ID{"c", "b"}}.Iterate(nil, 10)
	require.NoError(t, c.Bind(ctx, in))
	require.Equal(t, [][]graph.ID{{"b", "c"}}, drain(t, c))
}
