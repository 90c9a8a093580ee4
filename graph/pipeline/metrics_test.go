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

package pipeline

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/graphmock"
)

func TestMetrics(t *testing.T) {
	page := func(ids ...graph.ID) []graph.Entity {
		var out []graph.Entity
		for _, id := range ids {
			out = append(out, graph.NewNode(graph.NodeKind, id, nil))
		}
		return out
	}
	var (
		evals   = testutil.ToFloat64(mEvaluations)
		pages   = testutil.ToFloat64(mPages)
		backs   = testutil.ToFloat64(mBacktracks)
		results = testutil.ToFloat64(mResults)
	)
	e := New(graphmock.Static(page("A")), graphmock.Static(page("r1"), page("r2", "r3")))
	n := 0
	require.NoError(t, e.ForEach(context.TODO(), func(graph.Entity) error {
		n++
		return nil
	}))
	require.Equal(t, 3, n)

	require.Equal(t, evals+1, testutil.ToFloat64(mEvaluations))
	// A, r1, r2+r3, end of stage 1, end of stage 0
	require.Equal(t, pages+5, testutil.ToFloat64(mPages))
	require.Equal(t, backs+1, testutil.ToFloat64(mBacktracks))
	require.Equal(t, results+3, testutil.ToFloat64(mResults))
}
