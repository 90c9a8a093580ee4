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

package compile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	. "github.com/ldtoolkit/legdb/graph/compile"
	"github.com/ldtoolkit/legdb/graph/step"
)

var (
	nk = graph.NodeKind
	ek = graph.EdgeKind
)

var compileCases = []struct {
	name   string
	from   []step.Step
	expect []step.Step
}{
	{
		name:   "source",
		from:   []step.Step{step.Source{Kind: nk}},
		expect: []step.Step{step.Filter{Kind: nk, Attrs: graph.Attrs{}}},
	},
	{
		name: "source has",
		from: []step.Step{
			step.Source{Kind: nk},
			step.Has{Attrs: graph.Attrs{"type": "person"}},
		},
		expect: []step.Step{
			step.Filter{Kind: nk, Attrs: graph.Attrs{"type": "person"}},
		},
	},
	{
		name: "has chain",
		from: []step.Step{
			step.Source{Kind: nk},
			step.Has{Attrs: graph.Attrs{"type": "person", "age": 3}},
			step.Has{Attrs: graph.Attrs{"age": 4}},
		},
		expect: []step.Step{
			step.Filter{Kind: nk, Attrs: graph.Attrs{"type": "person", "age": 4}},
		},
	},
	{
		name: "point get",
		from: []step.Step{
			step.Source{Kind: nk},
			step.Get{IDs: []graph.ID{"a", "b"}},
		},
		expect: []step.Step{
			step.PointGet{Kind: nk, IDs: []graph.ID{"a", "b"}},
		},
	},
	{
		name: "point get keeps filter",
		from: []step.Step{
			step.Source{Kind: nk},
			step.Has{Attrs: graph.Attrs{"type": "person"}},
			step.Get{IDs: []graph.ID{"a"}},
		},
		expect: []step.Step{
			step.PointGet{Kind: nk, IDs: []graph.ID{"a"}, Attrs: graph.Attrs{"type": "person"}},
		},
	},
	{
		name: "has after get",
		from: []step.Step{
			step.Source{Kind: nk},
			step.Get{IDs: []graph.ID{"a"}},
			step.Has{Attrs: graph.Attrs{"type": "person"}},
		},
		expect: []step.Step{
			step.PointGet{Kind: nk, IDs: []graph.ID{"a"}},
			step.Has{Attrs: graph.Attrs{"type": "person"}},
		},
	},
	{
		name: "edge out push down",
		from: []step.Step{
			step.Source{Kind: nk},
			step.Has{Attrs: graph.Attrs{"type": "person"}},
			step.EdgeOut{Attrs: graph.Attrs{"rel": "knows"}},
		},
		expect: []step.Step{
			step.Filter{
				Kind:   ek,
				Attrs:  graph.Attrs{"rel": "knows"},
				Anchor: &step.Anchor{Dir: graph.Start, Kind: nk, Attrs: graph.Attrs{"type": "person"}},
			},
		},
	},
	{
		name: "edge in push down",
		from: []step.Step{
			step.Source{Kind: nk},
			step.EdgeIn{Attrs: graph.Attrs{}},
		},
		expect: []step.Step{
			step.Filter{
				Kind:   ek,
				Attrs:  graph.Attrs{},
				Anchor: &step.Anchor{Dir: graph.End, Kind: nk, Attrs: graph.Attrs{}},
			},
		},
	},
	{
		name: "edge all push down",
		from: []step.Step{
			step.Source{Kind: nk},
			step.Has{Attrs: graph.Attrs{"name": "ann"}},
			step.EdgeAll{Attrs: graph.Attrs{"w": 1}},
		},
		expect: []step.Step{
			step.Union{Steps: []step.Physical{
				step.Filter{
					Kind:   ek,
					Attrs:  graph.Attrs{"w": 1},
					Anchor: &step.Anchor{Dir: graph.End, Kind: nk, Attrs: graph.Attrs{"name": "ann"}},
				},
				step.Filter{
					Kind:   ek,
					Attrs:  graph.Attrs{"w": 1},
					Anchor: &step.Anchor{Dir: graph.Start, Kind: nk, Attrs: graph.Attrs{"name": "ann"}},
				},
			}},
		},
	},
	{
		name: "edge filter after push down",
		from: []step.Step{
			step.Source{Kind: nk},
			step.EdgeOut{Attrs: graph.Attrs{}},
			step.Has{Attrs: graph.Attrs{"rel": "knows"}},
		},
		expect: []step.Step{
			step.Filter{
				Kind:   ek,
				Attrs:  graph.Attrs{"rel": "knows"},
				Anchor: &step.Anchor{Dir: graph.Start, Kind: nk, Attrs: graph.Attrs{}},
			},
		},
	},
	{
		name: "second hop is a scan",
		from: []step.Step{
			step.Source{Kind: nk},
			step.EdgeOut{Attrs: graph.Attrs{}},
			step.EdgeOut{Attrs: graph.Attrs{"rel": "knows"}},
		},
		expect: []step.Step{
			step.Filter{
				Kind:   ek,
				Attrs:  graph.Attrs{},
				Anchor: &step.Anchor{Dir: graph.Start, Kind: nk, Attrs: graph.Attrs{}},
			},
			step.EdgeScanOut{Kind: ek, Attrs: graph.Attrs{"rel": "knows"}},
		},
	},
	{
		name: "edge source",
		from: []step.Step{
			step.Source{Kind: ek},
			step.Has{Attrs: graph.Attrs{"rel": "knows"}},
			step.EdgeIn{Attrs: graph.Attrs{}},
		},
		expect: []step.Step{
			step.Filter{Kind: ek, Attrs: graph.Attrs{"rel": "knows"}},
			step.EdgeScanIn{Kind: ek, Attrs: graph.Attrs{}},
		},
	},
	{
		name: "scan after get",
		from: []step.Step{
			step.Source{Kind: nk},
			step.Get{IDs: []graph.ID{"a"}},
			step.EdgeAll{Attrs: graph.Attrs{}},
		},
		expect: []step.Step{
			step.PointGet{Kind: nk, IDs: []graph.ID{"a"}},
			step.EdgeScanAll{Kind: ek, Attrs: graph.Attrs{}},
		},
	},
	{
		name: "get repeated ids",
		from: []step.Step{
			step.Source{Kind: nk},
			step.Get{IDs: []graph.ID{"b", "a", "b", "a"}},
		},
		expect: []step.Step{
			step.PointGet{Kind: nk, IDs: []graph.ID{"b", "a"}},
		},
	},
}

func TestCompile(t *testing.T) {
	for _, c := range compileCases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Compile(c.from)
			require.NoError(t, err)
			assert.Equal(t, c.expect, got)
		})
	}
}

func TestCompileIdempotent(t *testing.T) {
	for _, c := range compileCases {
		t.Run(c.name, func(t *testing.T) {
			once, err := Compile(c.from)
			require.NoError(t, err)
			twice, err := Compile(once)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}
}

func TestCompileKeepsInput(t *testing.T) {
	from := []step.Step{
		step.Source{Kind: nk},
		step.Has{Attrs: graph.Attrs{"type": "person"}},
		step.EdgeOut{Attrs: graph.Attrs{"rel": "knows"}},
	}
	orig := append([]step.Step(nil), from...)
	_, err := Compile(from)
	require.NoError(t, err)
	require.Equal(t, orig, from)
}

func TestCompileUsage(t *testing.T) {
	_, err := Compile(nil)
	require.ErrorIs(t, err, graph.ErrUsage)

	_, err = Compile([]step.Step{step.Has{Attrs: graph.Attrs{"a": 1}}})
	require.ErrorIs(t, err, graph.ErrUsage)

	_, err = Compile([]step.Step{step.EdgeOut{}, step.Source{Kind: nk}})
	require.ErrorIs(t, err, graph.ErrUsage)

	_, err = New(nk).Compile([]step.Step{step.Source{Kind: nk}})
	require.ErrorIs(t, err, graph.ErrUsage)
}

func TestCompileEdgeKind(t *testing.T) {
	knows := graph.NewEdgeKind("knows")
	got, err := New(knows).Compile([]step.Step{
		step.Source{Kind: graph.NewNodeKind("person")},
		step.EdgeOut{Attrs: graph.Attrs{}},
	})
	require.NoError(t, err)
	require.Equal(t, []step.Step{
		step.Filter{
			Kind:   knows,
			Attrs:  graph.Attrs{},
			Anchor: &step.Anchor{Dir: graph.Start, Kind: graph.NewNodeKind("person"), Attrs: graph.Attrs{}},
		},
	}, got)
}

func TestCompileEndpointNames(t *testing.T) {
	// user attributes named like endpoints stay apart from the endpoint filter
	got, err := Compile([]step.Step{
		step.Source{Kind: nk},
		step.Has{Attrs: graph.Attrs{"start": "x"}},
		step.EdgeOut{Attrs: graph.Attrs{"start": "y", "end": "z"}},
	})
	require.NoError(t, err)
	require.Equal(t, []step.Step{
		step.Filter{
			Kind:   ek,
			Attrs:  graph.Attrs{"start": "y", "end": "z"},
			Anchor: &step.Anchor{Dir: graph.Start, Kind: nk, Attrs: graph.Attrs{"start": "x"}},
		},
	}, got)
}

func TestCompileCustomRules(t *testing.T) {
	c := New(ek)
	c.Rules = Rules[:1]
	got, err := c.Compile([]step.Step{
		step.Source{Kind: nk},
		step.Has{Attrs: graph.Attrs{"a": 1}},
	})
	require.NoError(t, err)
	require.Equal(t, []step.Step{
		step.Filter{Kind: nk, Attrs: graph.Attrs{}},
		step.Has{Attrs: graph.Attrs{"a": 1}},
	}, got)
}
