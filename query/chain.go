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

package query

import (
	"context"
	"fmt"
	"sync"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/compile"
	"github.com/ldtoolkit/legdb/graph/pipeline"
	"github.com/ldtoolkit/legdb/graph/step"
)

// UsageError reports a chain assembled in an invalid order.
type UsageError struct {
	Op  string
	Msg string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("query: %s: %s", e.Op, e.Msg)
}

// Unwrap allows errors.Is(err, graph.ErrUsage).
func (e *UsageError) Unwrap() error { return graph.ErrUsage }

// Options configure a chain. Zero fields are replaced with defaults.
type Options struct {
	// PageSize is the number of entities pulled from a cursor at once.
	PageSize int
	// NodeKind is the node collection used by Nodes.
	NodeKind graph.Kind
	// EdgeKind is the collection edge traversals run over.
	EdgeKind graph.Kind
}

// DefaultOptions returns options with the default page size and kinds.
func DefaultOptions() Options {
	return Options{
		PageSize: step.DefaultPageSize,
		NodeKind: graph.NodeKind,
		EdgeKind: graph.EdgeKind,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = def.PageSize
	}
	if o.NodeKind.Name == "" {
		o.NodeKind = def.NodeKind
	}
	if o.EdgeKind.Name == "" {
		o.EdgeKind = def.EdgeKind
	}
	return o
}

type compileState int

const (
	uncompiled compileState = iota
	compiled
)

// plan memoizes compilation of one chain value.
type plan struct {
	mu    sync.Mutex
	state compileState
	steps []step.Step
	err   error
}

// Chain is an immutable query chain. Every builder method returns a new chain.
//
// The first step of a chain must be a source:
//
//	q := query.New(opts).Nodes().Has(graph.Attrs{"type": "person"}).EdgeOut(graph.Attrs{"rel": "knows"})
//
// A misplaced step makes the chain invalid at once; Err reports the first usage error,
// and every later method keeps it.
type Chain struct {
	opts  Options
	steps []step.Step
	err   error
	plan  *plan
}

// New creates an empty chain.
func New(opts Options) *Chain {
	return &Chain{opts: opts.withDefaults(), plan: &plan{}}
}

// Options returns the options of the chain with defaults applied.
func (c *Chain) Options() Options { return c.opts }

// Err returns a usage error if the chain was assembled incorrectly.
func (c *Chain) Err() error { return c.err }

// Steps returns a copy of the logical steps of the chain.
func (c *Chain) Steps() []step.Step {
	return append([]step.Step(nil), c.steps...)
}

// Len returns the number of steps in the chain.
func (c *Chain) Len() int { return len(c.steps) }

func (c *Chain) String() string {
	return step.Format(c.steps)
}

func (c *Chain) fail(op, msg string) *Chain {
	return &Chain{opts: c.opts, steps: c.steps, err: &UsageError{Op: op, Msg: msg}, plan: &plan{}}
}

func (c *Chain) with(op string, s step.Step) *Chain {
	if c.err != nil {
		return c
	}
	_, isSource := s.(step.Source)
	switch {
	case isSource && len(c.steps) != 0:
		return c.fail(op, "source must be the first step of a chain")
	case !isSource && len(c.steps) == 0:
		return c.fail(op, "chain must start with a source")
	}
	steps := make([]step.Step, len(c.steps), len(c.steps)+1)
	copy(steps, c.steps)
	return &Chain{opts: c.opts, steps: append(steps, s), plan: &plan{}}
}

func normAttrs(a graph.Attrs) graph.Attrs {
	if a == nil {
		return graph.Attrs{}
	}
	return a.Copy()
}

// Source starts the chain with all entities of a kind.
func (c *Chain) Source(kind graph.Kind) *Chain {
	return c.with("source", step.Source{Kind: kind})
}

// Nodes starts the chain with all entities of the configured node kind.
func (c *Chain) Nodes() *Chain { return c.Source(c.opts.NodeKind) }

// Edges starts the chain with all entities of the configured edge kind.
func (c *Chain) Edges() *Chain { return c.Source(c.opts.EdgeKind) }

// Get keeps entities with the given ids.
func (c *Chain) Get(ids ...graph.ID) *Chain {
	return c.with("get", step.Get{IDs: append([]graph.ID(nil), ids...)})
}

// Has keeps entities that have all the attributes.
func (c *Chain) Has(attrs graph.Attrs) *Chain {
	return c.with("has", step.Has{Attrs: normAttrs(attrs)})
}

// EdgeIn follows edges that point to the current nodes.
func (c *Chain) EdgeIn(attrs graph.Attrs) *Chain {
	return c.with("edge_in", step.EdgeIn{Attrs: normAttrs(attrs)})
}

// EdgeOut follows edges that leave the current nodes.
func (c *Chain) EdgeOut(attrs graph.Attrs) *Chain {
	return c.with("edge_out", step.EdgeOut{Attrs: normAttrs(attrs)})
}

// EdgeAll follows edges of the current nodes in both directions.
func (c *Chain) EdgeAll(attrs graph.Attrs) *Chain {
	return c.with("edge_all", step.EdgeAll{Attrs: normAttrs(attrs)})
}

// Compiled reports whether the chain has already been compiled.
func (c *Chain) Compiled() bool {
	c.plan.mu.Lock()
	defer c.plan.mu.Unlock()
	return c.plan.state == compiled
}

// Plan compiles the chain into physical steps. Compilation happens once per chain.
func (c *Chain) Plan() ([]step.Step, error) {
	if c.err != nil {
		return nil, c.err
	}
	p := c.plan
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == uncompiled {
		p.steps, p.err = compile.New(c.opts.EdgeKind).Compile(c.steps)
		p.state = compiled
	}
	if p.err != nil {
		return nil, p.err
	}
	return append([]step.Step(nil), p.steps...), nil
}

// Iterate evaluates the chain against a snapshot. Each call opens fresh cursors,
// so iterators of the same chain are independent. The snapshot must outlive the iterator.
func (c *Chain) Iterate(snap graph.Snapshot) *Iterator {
	pl, err := c.Plan()
	if err != nil {
		return &Iterator{err: err}
	}
	ev, err := pipeline.Open(snap, pl, c.opts.PageSize)
	if err != nil {
		return &Iterator{err: err}
	}
	return &Iterator{ev: ev}
}

// All evaluates the chain and returns all results.
func (c *Chain) All(ctx context.Context, snap graph.Snapshot) ([]graph.Entity, error) {
	return graph.ReadAll(ctx, c.Iterate(snap))
}

// Run evaluates the chain on a new snapshot of the store and calls fn for each result.
func (c *Chain) Run(ctx context.Context, qs graph.Store, fn func(graph.Entity) error) error {
	snap, err := qs.Snapshot(ctx)
	if err != nil {
		return err
	}
	defer snap.Close()
	it := c.Iterate(snap)
	defer it.Close()
	for it.Next(ctx) {
		if err := fn(it.Result()); err != nil {
			return err
		}
	}
	return it.Err()
}
