// Package graphtest is a conformance suite for entity stores and the query core running on them.
package graphtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/graphtest/testutil"
)

// Config disables checks a backend cannot satisfy.
type Config struct {
	// NoIsolation is set for stores whose snapshots observe later writes.
	NoIsolation bool
}

// TestAll runs the whole conformance suite against stores created by gen.
func TestAll(t *testing.T, gen testutil.DatabaseFunc, conf *Config) {
	if conf == nil {
		conf = &Config{}
	}
	t.Run("put get", func(t *testing.T) { TestPutGet(t, gen) })
	t.Run("scan", func(t *testing.T) { TestScan(t, gen) })
	t.Run("adjacent", func(t *testing.T) { TestAdjacent(t, gen) })
	t.Run("replace", func(t *testing.T) { TestReplace(t, gen) })
	t.Run("delete", func(t *testing.T) { TestDelete(t, gen) })
	t.Run("auto id", func(t *testing.T) { TestAutoID(t, gen) })
	t.Run("invalid", func(t *testing.T) { TestInvalid(t, gen) })
	t.Run("kinds", func(t *testing.T) { TestKinds(t, gen) })
	t.Run("ensure index", func(t *testing.T) { TestEnsureIndex(t, gen) })
	if !conf.NoIsolation {
		t.Run("isolation", func(t *testing.T) { TestIsolation(t, gen) })
	}
	t.Run("query", func(t *testing.T) { TestQuery(t, gen) })
}

func TestPutGet(t testing.TB, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen)
	defer closer()

	ids, err := qs.Put(context.TODO(), People()...)
	require.NoError(t, err)
	require.Equal(t, []graph.ID{"n1", "n2", "n3", "e1", "e2", "e3"}, ids)

	snap := testutil.Snapshot(t, qs)
	got := testutil.ReadAll(t, snap.Get(context.TODO(), nk, []graph.ID{"n3", "missing", "n1"}))
	require.Len(t, got, 2)
	assert.Equal(t, graph.ID("n3"), got[0].ID)
	assert.Equal(t, nk, got[0].Kind)
	assert.True(t, got[0].Attrs.Equal(graph.Attrs{"type": "city", "name": "oslo"}), "%v", got[0].Attrs)
	assert.Equal(t, graph.ID("n1"), got[1].ID)

	got = testutil.ReadAll(t, snap.Get(context.TODO(), ek, []graph.ID{"e3"}))
	require.Len(t, got, 1)
	assert.Equal(t, graph.ID("n2"), got[0].Start)
	assert.Equal(t, graph.ID("n3"), got[0].End)
	assert.True(t, got[0].Attrs.Equal(graph.Attrs{"rel": "lives_in", "since": 2019}), "%v", got[0].Attrs)

	// ids are scoped by kind
	require.Empty(t, testutil.IDs(t, snap.Get(context.TODO(), ek, []graph.ID{"n1"})))
	require.Empty(t, testutil.IDs(t, snap.Get(context.TODO(), nk, nil)))
}

func TestScan(t testing.TB, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen, People()...)
	defer closer()
	snap := testutil.Snapshot(t, qs)
	ctx := context.TODO()

	require.Equal(t, []graph.ID{"n1", "n2", "n3"}, testutil.IDs(t, snap.Scan(ctx, nk, nil)))
	require.Equal(t, []graph.ID{"n1", "n2"}, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"type": "person"})))
	require.Equal(t, []graph.ID{"n2"}, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"type": "person", "name": "bob"})))
	require.Empty(t, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"type": "person", "name": "oslo"})))
	require.Empty(t, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"missing": 1})))
	require.Equal(t, []graph.ID{"e3"}, testutil.IDs(t, snap.Scan(ctx, ek, graph.Attrs{"since": 2019.0})))
	require.Equal(t, []graph.ID{"e2", "e3"}, testutil.IDs(t, snap.Scan(ctx, ek, graph.Attrs{"rel": "lives_in"})))
	require.Empty(t, testutil.IDs(t, snap.Scan(ctx, graph.NewNodeKind("unknown"), nil)))
}

func TestAdjacent(t testing.TB, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen, People()...)
	defer closer()
	snap := testutil.Snapshot(t, qs)
	ctx := context.TODO()

	require.Equal(t, []graph.ID{"e1", "e2"}, testutil.IDs(t, snap.Adjacent(ctx, ek, graph.Start, []graph.ID{"n1"}, nil)))
	require.Equal(t, []graph.ID{"e2", "e3"}, testutil.IDs(t, snap.Adjacent(ctx, ek, graph.End, []graph.ID{"n3"}, nil)))
	require.Equal(t, []graph.ID{"e3", "e1", "e2"}, testutil.IDs(t, snap.Adjacent(ctx, ek, graph.Start, []graph.ID{"n2", "n1"}, nil)))
	require.Equal(t, []graph.ID{"e2"}, testutil.IDs(t, snap.Adjacent(ctx, ek, graph.Start, []graph.ID{"n1"}, graph.Attrs{"rel": "lives_in"})))
	require.Empty(t, testutil.IDs(t, snap.Adjacent(ctx, ek, graph.End, []graph.ID{"n1"}, nil)))
	require.Empty(t, testutil.IDs(t, snap.Adjacent(ctx, ek, graph.End, nil, nil)))
}

func TestReplace(t testing.TB, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen, People()...)
	defer closer()
	ctx := context.TODO()

	_, err := qs.Put(ctx,
		graph.NewNode(nk, "n1", graph.Attrs{"type": "robot"}),
		graph.NewEdge(ek, "e1", "n2", "n1", graph.Attrs{"rel": "knows"}),
	)
	require.NoError(t, err)

	snap := testutil.Snapshot(t, qs)
	require.Equal(t, []graph.ID{"n2"}, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"type": "person"})))
	require.Equal(t, []graph.ID{"n1"}, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"type": "robot"})))
	require.Empty(t, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"name": "ann"})))
	require.Equal(t, []graph.ID{"e2"}, testutil.IDs(t, snap.Adjacent(ctx, ek, graph.Start, []graph.ID{"n1"}, nil)))
	require.Equal(t, []graph.ID{"e1"}, testutil.IDs(t, snap.Adjacent(ctx, ek, graph.End, []graph.ID{"n1"}, nil)))
	require.Equal(t, []graph.ID{"e1", "e3"}, testutil.IDs(t, snap.Adjacent(ctx, ek, graph.Start, []graph.ID{"n2"}, nil)))
}

func TestDelete(t testing.TB, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen, People()...)
	defer closer()
	ctx := context.TODO()

	require.NoError(t, qs.Delete(ctx, ek, "e1", "missing"))
	require.NoError(t, qs.Delete(ctx, nk, "n3"))

	snap := testutil.Snapshot(t, qs)
	require.Empty(t, testutil.IDs(t, snap.Get(ctx, ek, []graph.ID{"e1"})))
	require.Equal(t, []graph.ID{"e2"}, testutil.IDs(t, snap.Adjacent(ctx, ek, graph.Start, []graph.ID{"n1"}, nil)))
	require.Empty(t, testutil.IDs(t, snap.Scan(ctx, ek, graph.Attrs{"rel": "knows"})))
	require.Equal(t, []graph.ID{"n1", "n2"}, testutil.IDs(t, snap.Scan(ctx, nk, nil)))
	require.Empty(t, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"type": "city"})))
}

func TestAutoID(t testing.TB, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen)
	defer closer()
	ctx := context.TODO()

	ids, err := qs.Put(ctx, graph.NewNode(nk, "", graph.Attrs{"x": 1}), graph.NewNode(nk, "", nil))
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.NotEmpty(t, ids[0])
	require.NotEqual(t, ids[0], ids[1])

	snap := testutil.Snapshot(t, qs)
	require.Equal(t, ids[:1], testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"x": 1})))
}

func TestInvalid(t testing.TB, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen)
	defer closer()
	ctx := context.TODO()

	_, err := qs.Put(ctx, graph.NewEdge(ek, "e", "a", "", nil))
	require.ErrorIs(t, err, graph.ErrInvalidEntity)
	_, err = qs.Put(ctx, graph.NewNode(nk, "n", graph.Attrs{"": 1}))
	require.ErrorIs(t, err, graph.ErrInvalidEntity)
	_, err = qs.Put(ctx, graph.NewNode(nk, "n", graph.Attrs{"ch": make(chan int)}))
	require.ErrorIs(t, err, graph.ErrInvalidEntity)
}

func TestKinds(t testing.TB, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen, People()...)
	defer closer()
	ctx := context.TODO()

	_, err := qs.Put(ctx, graph.NewNode(graph.NewNodeKind("city"), "oslo", nil))
	require.NoError(t, err)

	snap := testutil.Snapshot(t, qs)
	kinds, err := snap.Kinds(ctx)
	require.NoError(t, err)
	require.Equal(t, []graph.Kind{graph.NewNodeKind("city"), ek, nk}, kinds)
}

func TestEnsureIndex(t testing.TB, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen, People()...)
	defer closer()
	ctx := context.TODO()

	require.NoError(t, qs.EnsureIndex(ctx, nk, "name"))
	require.NoError(t, qs.EnsureIndex(ctx, nk, "name"))
	_, err := qs.Put(ctx, graph.NewNode(nk, "n4", graph.Attrs{"name": "bob"}))
	require.NoError(t, err)

	snap := testutil.Snapshot(t, qs)
	require.Equal(t, []graph.ID{"n2", "n4"}, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"name": "bob"})))
	require.Equal(t, []graph.ID{"n2"}, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"name": "bob", "type": "person"})))
}

func TestIsolation(t testing.TB, gen testutil.DatabaseFunc) {
	qs, closer := testutil.MakeStore(t, gen, People()...)
	defer closer()
	ctx := context.TODO()

	snap, err := qs.Snapshot(ctx)
	require.NoError(t, err)
	defer snap.Close()

	_, err = qs.Put(ctx, graph.NewNode(nk, "n4", graph.Attrs{"type": "person"}))
	require.NoError(t, err)

	require.Equal(t, []graph.ID{"n1", "n2"}, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"type": "person"})))
}
