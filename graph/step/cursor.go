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

// DefaultPageSize is the number of entities a cursor returns per page when none is requested.
const DefaultPageSize = 4096

func pageSizeOrDefault(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	return n
}

// pager assembles pages from an entity iterator. The iterator is (re)opened lazily from
// the current binding on the first NextPage after a Reset or Bind.
type pager struct {
	open func(ctx context.Context) graph.Iterator
	size int

	it   graph.Iterator
	done bool
}

func (p *pager) Reset(ctx context.Context) error {
	p.done = false
	return p.closeIter()
}

func (p *pager) closeIter() error {
	if p.it == nil {
		return nil
	}
	err := p.it.Close()
	p.it = nil
	return err
}

func (p *pager) NextPage(ctx context.Context) ([]graph.Entity, error) {
	if p.done {
		return nil, nil
	}
	if p.it == nil {
		p.it = p.open(ctx)
	}
	var page []graph.Entity
	for len(page) < p.size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !p.it.Next(ctx) {
			p.done = true
			err := p.it.Err()
			if cerr := p.closeIter(); err == nil {
				err = cerr
			}
			if err != nil {
				return nil, err
			}
			break
		}
		page = append(page, p.it.Result())
	}
	return page, nil
}

func (p *pager) Close() error {
	p.done = true
	return p.closeIter()
}

// rootCursor is a cursor of a first-stage step. Binding it only rewinds it.
type rootCursor struct {
	pager
}

func (c *rootCursor) Bind(ctx context.Context, _ []graph.Entity) error {
	return c.Reset(ctx)
}

// Iterate implements Executable.
func (s Filter) Iterate(snap graph.Snapshot, pageSize int) graph.Cursor {
	c := &rootCursor{}
	c.size = pageSizeOrDefault(pageSize)
	c.open = func(ctx context.Context) graph.Iterator {
		if s.Anchor == nil {
			return snap.Scan(ctx, s.Kind, s.Attrs)
		}
		return newAnchoredIterator(snap, s.Kind, s.Attrs, *s.Anchor, c.size)
	}
	return c
}

// Iterate implements Executable.
func (s PointGet) Iterate(snap graph.Snapshot, pageSize int) graph.Cursor {
	c := &rootCursor{}
	c.size = pageSizeOrDefault(pageSize)
	c.open = func(ctx context.Context) graph.Iterator {
		it := snap.Get(ctx, s.Kind, s.IDs)
		if len(s.Attrs) == 0 && s.Anchor == nil {
			return it
		}
		return graph.NewFilterIterator(it, func(ctx context.Context, e graph.Entity) (bool, error) {
			if !e.Attrs.Match(s.Attrs) {
				return false, nil
			}
			if s.Anchor == nil {
				return true, nil
			}
			return anchorMatch(ctx, snap, *s.Anchor, e)
		})
	}
	return c
}

// edgeCursor scans edges adjacent to the node ids of its binding.
type edgeCursor struct {
	pager
	dirs  []graph.Endpoint
	nodes []graph.ID
}

func newEdgeCursor(snap graph.Snapshot, pageSize int, kind graph.Kind, attrs graph.Attrs, dirs ...graph.Endpoint) *edgeCursor {
	c := &edgeCursor{dirs: dirs}
	c.size = pageSizeOrDefault(pageSize)
	c.open = func(ctx context.Context) graph.Iterator {
		if len(c.nodes) == 0 {
			return graph.Empty()
		}
		its := make([]graph.Iterator, 0, len(c.dirs))
		for _, d := range c.dirs {
			its = append(its, snap.Adjacent(ctx, kind, d, c.nodes, attrs))
		}
		if len(its) == 1 {
			return its[0]
		}
		return graph.Concat(its...)
	}
	return c
}

// Bind replaces the node set of the cursor. A node contributes its own id. An edge contributes
// the node it leads to in the direction of the traversal: its end for out scans, its start
// for in scans and both for scans in all directions.
func (c *edgeCursor) Bind(ctx context.Context, in []graph.Entity) error {
	seen := make(map[graph.ID]struct{}, len(in))
	nodes := make([]graph.ID, 0, len(in))
	add := func(id graph.ID) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		nodes = append(nodes, id)
	}
	for _, e := range in {
		if !e.IsEdge() {
			add(e.ID)
			continue
		}
		for _, d := range c.dirs {
			add(e.Endpoint(d.Opposite()))
		}
	}
	c.nodes = nodes
	return c.Reset(ctx)
}

// Iterate implements Executable.
func (s EdgeScanIn) Iterate(snap graph.Snapshot, pageSize int) graph.Cursor {
	return newEdgeCursor(snap, pageSize, s.Kind, s.Attrs, graph.End)
}

// Iterate implements Executable.
func (s EdgeScanOut) Iterate(snap graph.Snapshot, pageSize int) graph.Cursor {
	return newEdgeCursor(snap, pageSize, s.Kind, s.Attrs, graph.Start)
}

// Iterate implements Executable.
func (s EdgeScanAll) Iterate(snap graph.Snapshot, pageSize int) graph.Cursor {
	return newEdgeCursor(snap, pageSize, s.Kind, s.Attrs, graph.End, graph.Start)
}

// unionCursor drains sub-cursors in order for the same binding.
type unionCursor struct {
	subs []graph.Cursor
	cur  int
}

// Iterate implements Executable.
func (s Union) Iterate(snap graph.Snapshot, pageSize int) graph.Cursor {
	c := &unionCursor{subs: make([]graph.Cursor, 0, len(s.Steps))}
	for _, sub := range s.Steps {
		c.subs = append(c.subs, sub.Iterate(snap, pageSize))
	}
	return c
}

func (c *unionCursor) Reset(ctx context.Context) error {
	c.cur = 0
	for _, sub := range c.subs {
		if err := sub.Reset(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *unionCursor) Bind(ctx context.Context, in []graph.Entity) error {
	c.cur = 0
	for _, sub := range c.subs {
		if err := sub.Bind(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

func (c *unionCursor) NextPage(ctx context.Context) ([]graph.Entity, error) {
	for c.cur < len(c.subs) {
		page, err := c.subs[c.cur].NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if len(page) != 0 {
			return page, nil
		}
		c.cur++
	}
	return nil, nil
}

func (c *unionCursor) Close() error {
	var first error
	for _, sub := range c.subs {
		if err := sub.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// residualCursor filters the bound upstream page in memory. It is the executable form
// of logical steps the compiler could not fold into a store access.
type residualCursor struct {
	size  int
	match func(e graph.Entity) bool

	in  []graph.Entity
	pos int
}

func (c *residualCursor) Reset(ctx context.Context) error {
	c.pos = 0
	return nil
}

func (c *residualCursor) Bind(ctx context.Context, in []graph.Entity) error {
	c.in = in
	c.pos = 0
	return nil
}

func (c *residualCursor) NextPage(ctx context.Context) ([]graph.Entity, error) {
	var page []graph.Entity
	for c.pos < len(c.in) && len(page) < c.size {
		e := c.in[c.pos]
		c.pos++
		if c.match(e) {
			page = append(page, e)
		}
	}
	return page, nil
}

func (c *residualCursor) Close() error {
	c.in = nil
	return nil
}

// Iterate implements Executable. A residual Has keeps upstream entities matching its attributes.
func (s Has) Iterate(_ graph.Snapshot, pageSize int) graph.Cursor {
	return &residualCursor{
		size:  pageSizeOrDefault(pageSize),
		match: func(e graph.Entity) bool { return e.Attrs.Match(s.Attrs) },
	}
}

// Iterate implements Executable. A residual Get keeps upstream entities with listed ids.
func (s Get) Iterate(_ graph.Snapshot, pageSize int) graph.Cursor {
	ids := make(map[graph.ID]struct{}, len(s.IDs))
	for _, id := range s.IDs {
		ids[id] = struct{}{}
	}
	return &residualCursor{
		size: pageSizeOrDefault(pageSize),
		match: func(e graph.Entity) bool {
			_, ok := ids[e.ID]
			return ok
		},
	}
}
