// Package kvtest runs the store conformance suite and KV layer checks against KV backends.
package kvtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/graphtest"
	"github.com/ldtoolkit/legdb/graph/graphtest/testutil"
	"github.com/ldtoolkit/legdb/graph/kv"
)

// DatabaseFunc opens an empty KV database. The returned function removes its files
// and is called after the database is closed.
type DatabaseFunc func(t testing.TB) (kv.BucketKV, graph.Options, func())

type Config struct {
	// NoIsolation is set for backends that cannot hold a read snapshot while writing.
	NoIsolation bool
}

func (c Config) store() *graphtest.Config {
	return &graphtest.Config{NoIsolation: c.NoIsolation}
}

func newStoreFunc(gen DatabaseFunc, opts graph.Options) testutil.DatabaseFunc {
	return func(t testing.TB) (graph.Store, graph.Options, func()) {
		return newStore(t, gen, opts)
	}
}

// NewStoreFunc adapts gen to create entity stores with default options.
func NewStoreFunc(gen DatabaseFunc) testutil.DatabaseFunc {
	return newStoreFunc(gen, nil)
}

func newStore(t testing.TB, gen DatabaseFunc, extra graph.Options) (*kv.Store, graph.Options, func()) {
	db, opt, closer := gen(t)
	if opt == nil {
		opt = make(graph.Options)
	}
	for k, v := range extra {
		opt[k] = v
	}
	err := kv.Init(db, opt)
	if err != nil {
		db.Close()
		closer()
		require.Fail(t, "init failed", "%v", err)
	}
	kdb, err := kv.New(db, opt)
	if err != nil {
		db.Close()
		closer()
		require.Fail(t, "create failed", "%v", err)
	}
	return kdb, opt, func() {
		kdb.Close()
		closer()
	}
}

// NewStore creates an entity store on a new database.
func NewStore(t testing.TB, gen DatabaseFunc) (*kv.Store, graph.Options, func()) {
	return newStore(t, gen, nil)
}

func TestAll(t *testing.T, gen DatabaseFunc, conf *Config) {
	if conf == nil {
		conf = &Config{}
	}
	t.Run("kv", func(t *testing.T) {
		testBuckets(t, gen)
	})
	t.Run("init", func(t *testing.T) {
		testInit(t, gen)
	})
	t.Run("qs", func(t *testing.T) {
		graphtest.TestAll(t, NewStoreFunc(gen), conf.store())
	})
	t.Run("qs-no-bloom", func(t *testing.T) {
		graphtest.TestAll(t, newStoreFunc(gen, graph.Options{kv.OptNoBloom: true}), conf.store())
	})
	t.Run("qs-no-index", func(t *testing.T) {
		graphtest.TestAll(t, newStoreFunc(gen, graph.Options{kv.OptIndexAll: false}), conf.store())
	})
	t.Run("explicit index", func(t *testing.T) {
		testExplicitIndex(t, gen)
	})
}

func keys(t testing.TB, b kv.Bucket, pref string) []string {
	var out []string
	err := kv.Each(context.TODO(), b, []byte(pref), func(k, _ []byte) error {
		out = append(out, string(k))
		return nil
	})
	require.NoError(t, err)
	return out
}

func testBuckets(t *testing.T, gen DatabaseFunc) {
	db, _, closer := gen(t)
	defer closer()
	defer db.Close()
	ctx := context.TODO()

	b1, b2 := []byte("b1"), []byte("b10")

	err := kv.View(db, func(tx kv.BucketTx) error {
		vals, err := tx.Bucket(b1).Get([][]byte{[]byte("a")})
		require.NoError(t, err)
		require.Equal(t, [][]byte{nil}, vals)
		require.Empty(t, keys(t, tx.Bucket(b1), ""))
		return nil
	})
	require.NoError(t, err)

	err = kv.Update(db, func(tx kv.BucketTx) error {
		b := tx.Bucket(b1)
		for _, k := range []string{"b", "ab", "a", "c"} {
			if err := b.Put([]byte(k), []byte("v"+k)); err != nil {
				return err
			}
		}
		return tx.Bucket(b2).Put([]byte("a"), []byte("x"))
	})
	require.NoError(t, err)

	errStop := errors.New("stop")
	err = kv.Update(db, func(tx kv.BucketTx) error {
		if err := tx.Bucket(b1).Put([]byte("d"), []byte("vd")); err != nil {
			return err
		}
		return errStop
	})
	require.ErrorIs(t, err, errStop)

	err = kv.Update(db, func(tx kv.BucketTx) error {
		return tx.Bucket(b1).Del([]byte("c"))
	})
	require.NoError(t, err)

	err = kv.View(db, func(tx kv.BucketTx) error {
		b := tx.Bucket(b1)
		require.Equal(t, []string{"a", "ab", "b"}, keys(t, b, ""))
		require.Equal(t, []string{"a", "ab"}, keys(t, b, "a"))
		require.Equal(t, []string{"a"}, keys(t, tx.Bucket(b2), ""))

		v, err := kv.GetOne(b, []byte("ab"))
		require.NoError(t, err)
		require.Equal(t, "vab", string(v))
		_, err = kv.GetOne(b, []byte("d"))
		require.ErrorIs(t, err, kv.ErrNotFound)

		vals, err := tx.Get([]kv.BucketKey{
			{Bucket: b2, Key: []byte("a")},
			{Bucket: b1, Key: []byte("a")},
			{Bucket: b1, Key: []byte("c")},
		})
		require.NoError(t, err)
		require.Equal(t, [][]byte{[]byte("x"), []byte("va"), nil}, vals)

		n, err := kv.Count(ctx, b, nil, 2)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		require.Error(t, b.Put([]byte("x"), []byte("x")), "write in a read-only transaction")
		return nil
	})
	require.NoError(t, err)
}

func testInit(t *testing.T, gen DatabaseFunc) {
	db, opt, closer := gen(t)
	defer closer()
	defer db.Close()

	_, err := kv.New(db, opt)
	require.ErrorIs(t, err, graph.ErrNotInitialized)
	require.NoError(t, kv.Init(db, opt))
	require.ErrorIs(t, kv.Init(db, opt), graph.ErrDatabaseExists)
	qs, err := kv.New(db, opt)
	require.NoError(t, err)
	require.Equal(t, db, qs.DB())
}

func testExplicitIndex(t *testing.T, gen DatabaseFunc) {
	qs, _, closer := newStore(t, gen, graph.Options{kv.OptIndexAll: false})
	defer closer()
	ctx := context.TODO()

	_, err := qs.Put(ctx, graphtest.People()...)
	require.NoError(t, err)

	nk := graph.NodeKind
	countIndex := func(attr string) int {
		var n int
		err := kv.View(qs.DB(), func(tx kv.BucketTx) error {
			var err error
			n, err = kv.Count(ctx, tx.Bucket(kv.IndexBucket(nk, attr)), nil, 0)
			return err
		})
		require.NoError(t, err)
		return n
	}
	require.Equal(t, 0, countIndex("name"))

	snap := testutil.Snapshot(t, qs)
	require.Equal(t, []graph.ID{"n2"}, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"name": "bob"})))

	require.NoError(t, qs.EnsureIndex(ctx, nk, "name"))
	require.Equal(t, 3, countIndex("name"))
	require.Equal(t, 0, countIndex("type"))

	_, err = qs.Put(ctx, graph.NewNode(nk, "n1", graph.Attrs{"name": "bob"}))
	require.NoError(t, err)
	require.Equal(t, 3, countIndex("name"))

	snap = testutil.Snapshot(t, qs)
	require.Equal(t, []graph.ID{"n1", "n2"}, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"name": "bob"})))
	require.Empty(t, testutil.IDs(t, snap.Scan(ctx, nk, graph.Attrs{"name": "ann"})))
}
