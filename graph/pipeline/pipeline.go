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

// Package pipeline evaluates compiled physical plans.
//
// The evaluator is an index nested-loop join over pages: each stage's output page becomes
// the binding of the next stage. When a stage runs dry the evaluator backtracks to the
// previous one, whose cursor resumes where it stopped.
package pipeline

import (
	"context"
	"fmt"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/step"
)

// Signal is the outcome of a single evaluator transition.
type Signal int

const (
	// Done means the evaluation is exhausted or aborted.
	Done Signal = iota
	// Retry means the evaluator moved between stages and has nothing to report yet.
	Retry
	// Batch means a page of results is available.
	Batch
)

func (s Signal) String() string {
	switch s {
	case Done:
		return "done"
	case Retry:
		return "retry"
	case Batch:
		return "batch"
	}
	return fmt.Sprintf("signal(%d)", int(s))
}

// Evaluator walks a chain of cursors. It is not safe for concurrent use.
type Evaluator struct {
	stages []graph.Cursor
	// i is the current stage; -1 is the terminal state.
	i   int
	err error
}

// New creates an evaluator over stage cursors. The evaluator owns the cursors and closes them.
func New(stages ...graph.Cursor) *Evaluator {
	e := &Evaluator{stages: stages}
	if len(stages) == 0 {
		e.i = -1
	}
	mEvaluations.Inc()
	return e
}

// Open creates fresh cursors for every step of a compiled plan against a snapshot.
// Logical steps left in the plan are evaluated as in-memory filters over their binding.
func Open(snap graph.Snapshot, plan []step.Step, pageSize int) (*Evaluator, error) {
	stages := make([]graph.Cursor, 0, len(plan))
	for _, s := range plan {
		x, ok := s.(step.Executable)
		if !ok {
			for _, c := range stages {
				c.Close()
			}
			return nil, fmt.Errorf("%w: %v", graph.ErrNotExecutable, s)
		}
		stages = append(stages, x.Iterate(snap, pageSize))
	}
	return New(stages...), nil
}

// Stage returns the index of the current stage, or -1 if evaluation has ended.
func (e *Evaluator) Stage() int { return e.i }

// Err returns the error that aborted the evaluation, if any.
func (e *Evaluator) Err() error { return e.err }

func (e *Evaluator) fail(err error) (Signal, []graph.Entity, error) {
	e.err = err
	e.i = -1
	mErrors.Inc()
	return Done, nil, err
}

// Step performs a single transition.
//
// It pulls one page from the current stage. An empty page moves evaluation one stage back,
// or ends it on the first stage. A page from the last stage is returned as a Batch.
// Any other page rebinds the next stage and moves evaluation forward.
// Errors abort the evaluation and are returned as is.
func (e *Evaluator) Step(ctx context.Context) (Signal, []graph.Entity, error) {
	if e.i < 0 {
		return Done, nil, e.err
	}
	c := e.stages[e.i]
	page, err := c.NextPage(ctx)
	if err != nil {
		return e.fail(err)
	}
	mPages.Inc()
	if len(page) == 0 {
		if e.i == 0 {
			e.i = -1
			return Done, nil, nil
		}
		e.i--
		mBacktracks.Inc()
		return Retry, nil, nil
	}
	if e.i == len(e.stages)-1 {
		mResults.Add(float64(len(page)))
		return Batch, page, nil
	}
	e.i++
	next := e.stages[e.i]
	if err := next.Reset(ctx); err != nil {
		return e.fail(err)
	}
	if err := next.Bind(ctx, page); err != nil {
		return e.fail(err)
	}
	if clog.V(3) {
		clog.Infof("pipeline: stage %d bound to %d entities", e.i, len(page))
	}
	return Retry, nil, nil
}

// NextBatch runs the evaluator until the next page of results is available.
// It returns an empty batch and no error when the evaluation is exhausted.
func (e *Evaluator) NextBatch(ctx context.Context) ([]graph.Entity, error) {
	for {
		sig, page, err := e.Step(ctx)
		switch {
		case err != nil:
			return nil, err
		case sig == Batch:
			return page, nil
		case sig == Done:
			return nil, nil
		}
	}
}

// ForEach calls fn for every result until the evaluation ends or fn returns an error.
func (e *Evaluator) ForEach(ctx context.Context, fn func(graph.Entity) error) error {
	for {
		page, err := e.NextBatch(ctx)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for _, ent := range page {
			if err := fn(ent); err != nil {
				return err
			}
		}
	}
}

// Close ends the evaluation and closes all cursors.
func (e *Evaluator) Close() error {
	e.i = -1
	var first error
	for _, c := range e.stages {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	e.stages = nil
	return first
}
