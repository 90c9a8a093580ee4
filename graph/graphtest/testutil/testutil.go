// Package testutil contains helpers shared by store conformance tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
)

// DatabaseFunc creates a fresh empty store. The returned function releases it.
type DatabaseFunc func(t testing.TB) (graph.Store, graph.Options, func())

// MakeStore creates a store with gen and writes entities into it.
func MakeStore(t testing.TB, gen DatabaseFunc, ents ...graph.Entity) (graph.Store, func()) {
	qs, _, closer := gen(t)
	if len(ents) != 0 {
		_, err := qs.Put(context.TODO(), ents...)
		if err != nil {
			closer()
		}
		require.NoError(t, err)
	}
	return qs, closer
}

// Snapshot opens a snapshot and registers its release with the test.
func Snapshot(t testing.TB, qs graph.Store) graph.Snapshot {
	snap, err := qs.Snapshot(context.TODO())
	require.NoError(t, err)
	t.Cleanup(func() { snap.Close() })
	return snap
}

// ReadAll drains an iterator, failing the test on error.
func ReadAll(t testing.TB, it graph.Iterator) []graph.Entity {
	ents, err := graph.ReadAll(context.TODO(), it)
	require.NoError(t, err)
	return ents
}

// IDs drains an iterator and returns ids of entities.
func IDs(t testing.TB, it graph.Iterator) []graph.ID {
	return graph.IDs(ReadAll(t, it))
}
