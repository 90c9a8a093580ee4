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

package step

import (
	"context"

	"github.com/ldtoolkit/legdb/graph"
)

// anchoredIterator lists edges whose anchor endpoint is a node matching the anchor filter.
// Nodes are pulled from the attribute index in batches and each batch is resolved through
// the adjacency index.
type anchoredIterator struct {
	snap   graph.Snapshot
	kind   graph.Kind
	attrs  graph.Attrs
	anchor Anchor
	batch  int

	nodes     graph.Iterator
	nodesDone bool
	edges     graph.Iterator
	cur       graph.Entity
	err       error
}

func newAnchoredIterator(snap graph.Snapshot, kind graph.Kind, attrs graph.Attrs, a Anchor, batch int) *anchoredIterator {
	return &anchoredIterator{snap: snap, kind: kind, attrs: attrs, anchor: a, batch: batch}
}

func (it *anchoredIterator) Next(ctx context.Context) bool {
	for it.err == nil {
		if it.edges != nil {
			if it.edges.Next(ctx) {
				it.cur = it.edges.Result()
				return true
			}
			it.err = it.edges.Err()
			if err := it.edges.Close(); it.err == nil {
				it.err = err
			}
			it.edges = nil
			continue
		}
		if it.nodesDone {
			return false
		}
		if it.nodes == nil {
			it.nodes = it.snap.Scan(ctx, it.anchor.Kind, it.anchor.Attrs)
		}
		ids := make([]graph.ID, 0, it.batch)
		for len(ids) < it.batch {
			if !it.nodes.Next(ctx) {
				it.nodesDone = true
				it.err = it.nodes.Err()
				break
			}
			ids = append(ids, it.nodes.Result().ID)
		}
		if len(ids) != 0 && it.err == nil {
			it.edges = it.snap.Adjacent(ctx, it.kind, it.anchor.Dir, ids, it.attrs)
		}
	}
	return false
}

func (it *anchoredIterator) Result() graph.Entity { return it.cur }
func (it *anchoredIterator) Err() error           { return it.err }

func (it *anchoredIterator) Close() error {
	var err error
	if it.edges != nil {
		err = it.edges.Close()
		it.edges = nil
	}
	if it.nodes != nil {
		if cerr := it.nodes.Close(); err == nil {
			err = cerr
		}
		it.nodes = nil
	}
	it.nodesDone = true
	return err
}

// anchorMatch checks the anchor endpoint of a single edge.
func anchorMatch(ctx context.Context, snap graph.Snapshot, a Anchor, e graph.Entity) (bool, error) {
	id := e.Endpoint(a.Dir)
	if id == "" {
		return false, nil
	}
	nodes, err := graph.ReadAll(ctx, snap.Get(ctx, a.Kind, []graph.ID{id}))
	if err != nil {
		return false, err
	}
	for _, n := range nodes {
		if n.Attrs.Match(a.Attrs) {
			return true, nil
		}
	}
	return false, nil
}
