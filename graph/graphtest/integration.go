package graphtest

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/compile"
	"github.com/ldtoolkit/legdb/graph/graphtest/testutil"
	"github.com/ldtoolkit/legdb/graph/pipeline"
	"github.com/ldtoolkit/legdb/graph/step"
	"github.com/ldtoolkit/legdb/query"
)

// PageSizes are the page sizes every query case is evaluated with.
var PageSizes = []int{1, 3, 7, 4096}

type queryCase struct {
	name   string
	chain  func(c *query.Chain) *query.Chain
	expect []graph.ID
}

func has(kv ...interface{}) graph.Attrs {
	a := graph.Attrs{}
	for i := 0; i+1 < len(kv); i += 2 {
		a[kv[i].(string)] = kv[i+1]
	}
	return a
}

func letters(s string) []graph.ID {
	out := make([]graph.ID, 0, len(s))
	for _, c := range s {
		out = append(out, graph.ID(string(c)))
	}
	return out
}

var lettersCases = []queryCase{
	{
		name:   "all nodes",
		chain:  func(c *query.Chain) *query.Chain { return c.Nodes() },
		expect: letters("abcdefghijklmnopqrstuvwxyz"),
	},
	{
		name:   "has unique",
		chain:  func(c *query.Chain) *query.Chain { return c.Nodes().Has(has("c", "a")) },
		expect: letters("a"),
	},
	{
		name:   "has duplicates",
		chain:  func(c *query.Chain) *query.Chain { return c.Nodes().Has(has("ord_c_mod_2", 0)) },
		expect: letters("bdfhjlnprtvxz"),
	},
	{
		name:   "has twice",
		chain:  func(c *query.Chain) *query.Chain { return c.Nodes().Has(has("ord_c_mod_2", 0)).Has(has("c", "d")) },
		expect: letters("d"),
	},
	{
		name: "has intersect",
		chain: func(c *query.Chain) *query.Chain {
			return c.Nodes().Has(has("ord_c_mod_2", 0)).Has(has("ord_c_mod_3", 0))
		},
		expect: letters("flrx"),
	},
	{
		name:   "has mod 4",
		chain:  func(c *query.Chain) *query.Chain { return c.Nodes().Has(has("ord_c_mod_4", 0)) },
		expect: letters("dhlptx"),
	},
	{
		name:   "get",
		chain:  func(c *query.Chain) *query.Chain { return c.Nodes().Get("c", "missing", "a") },
		expect: letters("ca"),
	},
	{
		name:   "get repeated",
		chain:  func(c *query.Chain) *query.Chain { return c.Nodes().Get("c", "a", "c", "a") },
		expect: letters("ca"),
	},
	{
		name:   "has get",
		chain:  func(c *query.Chain) *query.Chain { return c.Nodes().Has(has("ord_c_mod_2", 1)).Get("a", "b", "c") },
		expect: letters("ac"),
	},
	{
		name: "edge in",
		chain: func(c *query.Chain) *query.Chain {
			return c.Nodes().Has(has("ord_c_mod_2", 0, "ord_c_mod_3", 0)).EdgeIn(has("w", -1.0))
		},
		expect: []graph.ID{"g-f", "m-l", "s-r", "y-x"},
	},
	{
		name: "edge out",
		chain: func(c *query.Chain) *query.Chain {
			return c.Nodes().Has(has("ord_c_mod_2", 0, "ord_c_mod_3", 0)).EdgeOut(has("w", 1.0))
		},
		expect: []graph.ID{"f-g", "l-m", "r-s", "x-y"},
	},
	{
		name: "edge all",
		chain: func(c *query.Chain) *query.Chain {
			return c.Nodes().Has(has("ord_c_mod_2", 0, "ord_c_mod_3", 0)).EdgeAll(has("w", 1.0))
		},
		expect: []graph.ID{"e-f", "k-l", "q-r", "w-x", "f-g", "l-m", "r-s", "x-y"},
	},
	{
		name: "two hops",
		chain: func(c *query.Chain) *query.Chain {
			return c.Nodes().Has(has("c", "a")).EdgeOut(has("w", 1)).EdgeOut(has("w", 1))
		},
		expect: []graph.ID{"b-c"},
	},
	{
		name: "edge filter after hop",
		chain: func(c *query.Chain) *query.Chain {
			return c.Nodes().Has(has("c", "y")).EdgeOut(nil).Has(has("w", 1))
		},
		expect: []graph.ID{"y-z"},
	},
	{
		name: "get after hop",
		chain: func(c *query.Chain) *query.Chain {
			return c.Nodes().Has(has("c", "y")).EdgeOut(nil).EdgeOut(has("w", 0)).Get("z-z", "a-a")
		},
		expect: []graph.ID{"a-a", "z-z"},
	},
	{
		name:   "edge source",
		chain:  func(c *query.Chain) *query.Chain { return c.Edges().Has(has("w", 25)) },
		expect: []graph.ID{"a-z"},
	},
	{
		name: "edge source hop",
		chain: func(c *query.Chain) *query.Chain {
			return c.Edges().Has(has("w", -25)).EdgeIn(has("w", 1))
		},
		expect: []graph.ID{"y-z"},
	},
	{
		name:   "nothing",
		chain:  func(c *query.Chain) *query.Chain { return c.Nodes().Has(has("c", "?")).EdgeAll(nil).EdgeAll(nil) },
		expect: nil,
	},
}

// TestQuery evaluates chains over fixture graphs with different page sizes.
func TestQuery(t *testing.T, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen, Letters()...)
	defer closer()

	for _, c := range lettersCases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			for _, size := range PageSizes {
				q := c.chain(query.New(query.Options{PageSize: size}))
				require.NoError(t, q.Err())
				got := runChain(t, qs, q)
				require.Equal(t, c.expect, got, "page size: %d, chain: %v", size, q)
			}
		})
	}
	t.Run("push down", func(t *testing.T) { TestPushDown(t, qs) })
	t.Run("point get", func(t *testing.T) { TestPointGet(t, qs) })
	t.Run("edge all union", func(t *testing.T) { TestEdgeAllUnion(t, qs) })
	t.Run("scenario", func(t *testing.T) { TestScenario(t, gen) })
	t.Run("endpoint names", func(t *testing.T) { TestEndpointNames(t, gen) })
}

func runChain(t testing.TB, qs graph.Store, q *query.Chain) []graph.ID {
	var out []graph.ID
	err := q.Run(context.TODO(), qs, func(e graph.Entity) error {
		out = append(out, e.ID)
		return nil
	})
	require.NoError(t, err)
	return out
}

// naive evaluates a chain with every step lowered on its own and nothing fused.
func naive(t testing.TB, qs graph.Store, chain []step.Step, pageSize int) []graph.ID {
	c := compile.New(ek)
	c.Rules = compile.Rules[:4]
	plan, err := c.Compile(chain)
	require.NoError(t, err)

	snap := testutil.Snapshot(t, qs)
	ev, err := pipeline.Open(snap, plan, pageSize)
	require.NoError(t, err)
	defer ev.Close()
	var out []graph.ID
	err = ev.ForEach(context.TODO(), func(e graph.Entity) error {
		out = append(out, e.ID)
		return nil
	})
	require.NoError(t, err)
	return out
}

func sorted(ids []graph.ID) []graph.ID {
	ids = append([]graph.ID(nil), ids...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TestPushDown checks that fused plans yield the same entities as unfused ones.
func TestPushDown(t *testing.T, qs graph.Store) {
	nodeFilters := []graph.Attrs{
		{},
		has("ord_c_mod_2", 0),
		has("ord_c_mod_3", 1, "ord_c_mod_4", 2),
		has("c", "q"),
	}
	edgeFilters := []graph.Attrs{
		{},
		has("w", 1),
		has("w", -3.0),
	}
	for i, a0 := range nodeFilters {
		for j, a1 := range edgeFilters {
			for _, dir := range []string{"in", "out", "all"} {
				t.Run(fmt.Sprintf("%d_%d_%s", i, j, dir), func(t *testing.T) {
					q := query.New(query.Options{PageSize: 5}).Nodes().Has(a0)
					switch dir {
					case "in":
						q = q.EdgeIn(a1)
					case "out":
						q = q.EdgeOut(a1)
					case "all":
						q = q.EdgeAll(a1)
					}
					plan, err := q.Plan()
					require.NoError(t, err)
					require.Len(t, plan, 1)

					got := runChain(t, qs, q)
					exp := naive(t, qs, q.Steps(), 5)
					require.Equal(t, sorted(exp), sorted(got))
				})
			}
		}
	}
}

// TestPointGet checks that id lookups yield the same entities as filtering a scan by id.
func TestPointGet(t *testing.T, qs graph.Store) {
	idSets := [][]graph.ID{
		{"a"},
		{"a", "a"},
		{"q", "b", "q", "missing", "b"},
		{"missing", "missing"},
	}
	for i, ids := range idSets {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			for _, a0 := range []graph.Attrs{{}, has("ord_c_mod_2", 0)} {
				q := query.New(query.Options{PageSize: 2}).Nodes().Has(a0).Get(ids...)
				plan, err := q.Plan()
				require.NoError(t, err)
				require.Len(t, plan, 1)

				got := runChain(t, qs, q)
				exp := naive(t, qs, q.Steps(), 2)
				require.Equal(t, sorted(exp), sorted(got), "chain: %v", q)
			}
		})
	}
}

// TestEdgeAllUnion checks that edge_all yields every edge of edge_in and edge_out.
func TestEdgeAllUnion(t *testing.T, qs graph.Store) {
	base := query.New(query.Options{PageSize: 4}).Nodes().Has(has("ord_c_mod_3", 0, "ord_c_mod_4", 1))
	a := has("w", 2)
	in := runChain(t, qs, base.EdgeIn(a))
	out := runChain(t, qs, base.EdgeOut(a))
	all := runChain(t, qs, base.EdgeAll(a))
	require.NotEmpty(t, in)
	require.NotEmpty(t, out)
	require.Equal(t, sorted(append(in, out...)), sorted(all))
}

// TestScenario runs a person-knows-person traversal.
func TestScenario(t *testing.T, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen, People()...)
	defer closer()

	q := query.New(query.Options{}).Source(nk).Has(has("type", "person")).EdgeOut(has("rel", "knows"))
	plan, err := q.Plan()
	require.NoError(t, err)
	require.Equal(t, []step.Step{step.Filter{
		Kind:   ek,
		Attrs:  graph.Attrs{"rel": "knows"},
		Anchor: &step.Anchor{Dir: graph.Start, Kind: nk, Attrs: graph.Attrs{"type": "person"}},
	}}, plan)
	require.Equal(t, []graph.ID{"e1"}, runChain(t, qs, q))

	q = query.New(query.Options{}).Source(nk).Has(has("type", "city")).EdgeIn(nil).EdgeIn(has("rel", "knows"))
	require.Equal(t, []graph.ID{"e1"}, runChain(t, qs, q))
}

// TestEndpointNames checks that attributes named like edge endpoints are plain attributes.
func TestEndpointNames(t *testing.T, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen, Endpoints()...)
	defer closer()

	q := query.New(query.Options{}).Nodes().Has(has("start", "yes")).EdgeOut(nil)
	require.Equal(t, []graph.ID{"ab"}, runChain(t, qs, q))

	q = query.New(query.Options{}).Nodes().Has(has("start", "yes")).EdgeOut(has("end", "a"))
	require.Empty(t, runChain(t, qs, q))

	q = query.New(query.Options{}).Nodes().Has(has("end", "yes")).EdgeOut(has("end", "a"))
	require.Equal(t, []graph.ID{"ba"}, runChain(t, qs, q))

	q = query.New(query.Options{}).Nodes().EdgeIn(has("start", "a"))
	require.Equal(t, []graph.ID{"ab"}, runChain(t, qs, q))
}
