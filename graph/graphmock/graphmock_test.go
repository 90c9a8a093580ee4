package graphmock_test

import (
	"testing"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/graphmock"
	"github.com/ldtoolkit/legdb/graph/graphtest"
)

func makeMock(t testing.TB) (graph.Store, graph.Options, func()) {
	return graphmock.New(), nil, func() {}
}

func TestMockStore(t *testing.T) {
	graphtest.TestAll(t, makeMock, &graphtest.Config{NoIsolation: true})
}
