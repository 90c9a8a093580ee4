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

// Package query implements the chain builder of legdb and a session that runs chains
// written in their textual form.
package query

import (
	"context"
	"errors"
	"strings"

	"github.com/ldtoolkit/legdb/graph"
)

// Result is a single item produced by a session: an entity or an error.
type Result interface {
	Result() interface{}
	Err() error
}

// ErrorResult wraps an error into a Result.
func ErrorResult(err error) Result {
	return errResult{err: err}
}

type errResult struct {
	err error
}

func (errResult) Result() interface{} { return nil }
func (e errResult) Err() error        { return e.err }

// EntityResult wraps an entity into a Result.
func EntityResult(e graph.Entity) Result {
	return entityResult(e)
}

type entityResult graph.Entity

func (r entityResult) Result() interface{} { return graph.Entity(r) }
func (entityResult) Err() error            { return nil }

var errLimitReached = errors.New("query: limit reached")

// Session runs textual chains against a store.
type Session struct {
	qs   graph.Store
	opts Options
}

// NewSession creates a session for a store.
func NewSession(qs graph.Store, opts Options) *Session {
	return &Session{qs: qs, opts: opts.withDefaults()}
}

// Options returns the chain options used by the session.
func (s *Session) Options() Options { return s.opts }

// Plan parses a chain and returns its compiled form.
func (s *Session) Plan(text string) (string, error) {
	c, err := Parse(text, s.opts)
	if err != nil {
		return "", err
	}
	pl, err := c.Plan()
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(pl))
	for _, st := range pl {
		parts = append(parts, st.String())
	}
	return strings.Join(parts, " -> "), nil
}

// Execute runs the chain and sends results to out. At most limit results are sent if limit
// is positive. Errors are sent as results. The channel is closed when the function returns.
func (s *Session) Execute(ctx context.Context, text string, out chan<- Result, limit int) {
	defer close(out)
	send := func(r Result) bool {
		select {
		case out <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}
	c, err := Parse(text, s.opts)
	if err != nil {
		send(ErrorResult(err))
		return
	}
	n := 0
	err = c.Run(ctx, s.qs, func(e graph.Entity) error {
		if !send(EntityResult(e)) {
			return ctx.Err()
		}
		n++
		if limit > 0 && n >= limit {
			return errLimitReached
		}
		return nil
	})
	if err != nil && err != errLimitReached && ctx.Err() == nil {
		send(ErrorResult(err))
	}
}

// Collect runs the chain and returns up to limit entities.
func (s *Session) Collect(ctx context.Context, text string, limit int) ([]graph.Entity, error) {
	ch := make(chan Result, 16)
	go s.Execute(ctx, text, ch, limit)
	var out []graph.Entity
	var first error
	for r := range ch {
		if err := r.Err(); err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		out = append(out, r.Result().(graph.Entity))
	}
	if first == nil {
		first = ctx.Err()
	}
	return out, first
}
