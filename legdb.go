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

// Package legdb is the convenience entry point of the legdb graph database.
//
//	h, err := legdb.NewMemoryGraph()
//	...
//	ents, err := h.All(ctx, h.Nodes().Has(graph.Attrs{"type": "person"}).EdgeOut(nil))
package legdb

import (
	"context"

	"github.com/ldtoolkit/legdb/graph"
	_ "github.com/ldtoolkit/legdb/graph/kv/all"
	"github.com/ldtoolkit/legdb/graph/kv/leveldb"
	"github.com/ldtoolkit/legdb/query"
)

// Handle is a store together with the chain options used to query it.
type Handle struct {
	graph.Store
	opts query.Options
}

// NewGraph opens a store registered under name.
func NewGraph(name, dbpath string, opts graph.Options) (*Handle, error) {
	qs, err := graph.NewStore(name, dbpath, opts)
	if err != nil {
		return nil, err
	}
	return NewHandle(qs, query.DefaultOptions()), nil
}

// NewMemoryGraph creates an empty in-memory graph.
func NewMemoryGraph() (*Handle, error) {
	return NewGraph(leveldb.MemType, "", nil)
}

// NewHandle wraps an opened store.
func NewHandle(qs graph.Store, opts query.Options) *Handle {
	return &Handle{Store: qs, opts: query.New(opts).Options()}
}

// Options returns chain options of the handle.
func (h *Handle) Options() query.Options { return h.opts }

// Source starts a chain over a kind.
func (h *Handle) Source(kind graph.Kind) *query.Chain { return query.New(h.opts).Source(kind) }

// Nodes starts a chain over the default node kind.
func (h *Handle) Nodes() *query.Chain { return query.New(h.opts).Nodes() }

// Edges starts a chain over the default edge kind.
func (h *Handle) Edges() *query.Chain { return query.New(h.opts).Edges() }

// Parse reads a chain in its textual form.
func (h *Handle) Parse(text string) (*query.Chain, error) { return query.Parse(text, h.opts) }

// All runs the chain on a fresh snapshot and returns all results.
func (h *Handle) All(ctx context.Context, c *query.Chain) ([]graph.Entity, error) {
	snap, err := h.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snap.Close()
	return c.All(ctx, snap)
}

// Iterate runs the chain and calls fn for each result.
func (h *Handle) Iterate(ctx context.Context, c *query.Chain, fn func(graph.Entity) error) error {
	return c.Run(ctx, h.Store, fn)
}
