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

package repl

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/graphtest"
	_ "github.com/ldtoolkit/legdb/graph/kv/leveldb"
	"github.com/ldtoolkit/legdb/query"
)

var testSplitLines = []struct {
	line              string
	expectedCommand   string
	expectedArguments string
}{
	{
		line:              ":d node a b",
		expectedCommand:   ":d",
		expectedArguments: " node a b",
	},
	{
		line:              ":debug t",
		expectedCommand:   ":debug",
		expectedArguments: " t",
	},
	{
		line: "",
	},
	{
		line:              `:put {nodes: [{id: a, attrs: {name: "with spaces"}}]}`,
		expectedCommand:   ":put",
		expectedArguments: ` {nodes: [{id: a, attrs: {name: "with spaces"}}]}`,
	},
	{
		line:              `  :plan  node.has(c="a")  `,
		expectedCommand:   ":plan",
		expectedArguments: `  node.has(c="a")`,
	},
}

func TestSplitLines(t *testing.T) {
	for _, c := range testSplitLines {
		command, arguments := splitLine(c.line)
		require.Equal(t, c.expectedCommand, command, "line: %q", c.line)
		require.Equal(t, c.expectedArguments, arguments, "line: %q", c.line)
	}
}

func newStore(t testing.TB) graph.Store {
	qs, err := graph.NewStore("memstore", "", nil)
	require.NoError(t, err)
	_, err = qs.Put(context.TODO(), graphtest.People()...)
	require.NoError(t, err)
	return qs
}

func TestRun(t *testing.T) {
	qs := newStore(t)
	defer qs.Close()
	ses := query.NewSession(qs, query.Options{})

	buf := bytes.NewBuffer(nil)
	err := Run(context.TODO(), buf, `node.get("n1")`, ses)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "1 Result\n")

	buf.Reset()
	err = Run(context.TODO(), buf, `node.has(`, ses)
	require.ErrorIs(t, err, query.ErrParseMore)

	err = Run(context.TODO(), buf, `node.has(c=)`, ses)
	require.ErrorIs(t, err, query.ErrParse)
}

func TestPutDelete(t *testing.T) {
	ctx := context.TODO()
	qs := newStore(t)
	defer qs.Close()
	opts := query.NewSession(qs, query.Options{}).Options()

	n, err := put(ctx, qs, opts, `{nodes: [{id: z, attrs: {type: robot}}]}`)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ses := query.NewSession(qs, opts)
	ents, err := ses.Collect(ctx, `node.has(type="robot")`, 0)
	require.NoError(t, err)
	require.Equal(t, []graph.ID{"z"}, graph.IDs(ents))

	require.NoError(t, del(ctx, qs, opts, "node z"))
	ents, err = ses.Collect(ctx, `node.has(type="robot")`, 0)
	require.NoError(t, err)
	require.Empty(t, ents)

	require.Error(t, del(ctx, qs, opts, "node"))
}
