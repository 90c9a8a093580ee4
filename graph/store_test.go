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

package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
)

func TestOptions(t *testing.T) {
	opts := graph.Options{
		"size":    int64(7),
		"ratio":   2.0,
		"name":    "x",
		"sync":    true,
		"empty":   nil,
		"invalid": []string{"a"},
	}

	n, err := opts.IntKey("size", 1)
	require.NoError(t, err)
	require.Equal(t, 7, n)

	n, err = opts.IntKey("ratio", 1)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = opts.IntKey("empty", 3)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = opts.IntKey("missing", 4)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	_, err = opts.IntKey("invalid", 1)
	require.Error(t, err)

	s, err := opts.StringKey("name", "")
	require.NoError(t, err)
	require.Equal(t, "x", s)

	s, err = opts.StringKey("empty", "def")
	require.NoError(t, err)
	require.Equal(t, "def", s)

	b, err := opts.BoolKey("sync", false)
	require.NoError(t, err)
	require.True(t, b)

	b, err = opts.BoolKey("empty", true)
	require.NoError(t, err)
	require.True(t, b)

	_, err = opts.BoolKey("name", false)
	require.Error(t, err)
}
