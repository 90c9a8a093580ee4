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

package graph

import "context"

// Empty returns an iterator with no entities.
func Empty() Iterator { return emptyIterator{} }

type emptyIterator struct{}

func (emptyIterator) Next(ctx context.Context) bool { return false }
func (emptyIterator) Result() Entity                { return Entity{} }
func (emptyIterator) Err() error                    { return nil }
func (emptyIterator) Close() error                  { return nil }

// Error returns an iterator that fails with err on the first call to Next.
func Error(err error) Iterator { return &errIterator{err: err} }

type errIterator struct {
	err error
}

func (it *errIterator) Next(ctx context.Context) bool { return false }
func (it *errIterator) Result() Entity                { return Entity{} }
func (it *errIterator) Err() error                    { return it.err }
func (it *errIterator) Close() error                  { return nil }

// NewSlice returns an iterator over a fixed list of entities.
func NewSlice(ents []Entity) Iterator {
	return &sliceIterator{ents: ents, pos: -1}
}

type sliceIterator struct {
	ents []Entity
	pos  int
}

func (it *sliceIterator) Next(ctx context.Context) bool {
	if it.pos+1 >= len(it.ents) {
		it.pos = len(it.ents)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Result() Entity {
	if it.pos < 0 || it.pos >= len(it.ents) {
		return Entity{}
	}
	return it.ents[it.pos]
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }

// Concat lists entities of all iterators one after another.
func Concat(its ...Iterator) Iterator {
	return &concatIterator{its: its}
}

type concatIterator struct {
	its []Iterator
	cur Entity
	err error
}

func (it *concatIterator) Next(ctx context.Context) bool {
	for len(it.its) != 0 && it.err == nil {
		sub := it.its[0]
		if sub.Next(ctx) {
			it.cur = sub.Result()
			return true
		}
		it.err = sub.Err()
		if err := sub.Close(); it.err == nil {
			it.err = err
		}
		it.its = it.its[1:]
	}
	return false
}

func (it *concatIterator) Result() Entity { return it.cur }
func (it *concatIterator) Err() error     { return it.err }

func (it *concatIterator) Close() error {
	var err error
	for _, sub := range it.its {
		if cerr := sub.Close(); err == nil {
			err = cerr
		}
	}
	it.its = nil
	return err
}

// MatchFunc decides if an entity passes a filter.
type MatchFunc func(ctx context.Context, e Entity) (bool, error)

// NewFilterIterator lists entities of it accepted by match.
func NewFilterIterator(it Iterator, match MatchFunc) Iterator {
	return &filterIterator{it: it, match: match}
}

type filterIterator struct {
	it    Iterator
	match MatchFunc
	cur   Entity
	err   error
}

func (it *filterIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for it.it.Next(ctx) {
		e := it.it.Result()
		ok, err := it.match(ctx, e)
		if err != nil {
			it.err = err
			return false
		}
		if ok {
			it.cur = e
			return true
		}
	}
	it.err = it.it.Err()
	return false
}

func (it *filterIterator) Result() Entity { return it.cur }
func (it *filterIterator) Err() error     { return it.err }
func (it *filterIterator) Close() error   { return it.it.Close() }

// ReadAll drains an iterator and closes it.
func ReadAll(ctx context.Context, it Iterator) ([]Entity, error) {
	defer it.Close()
	var out []Entity
	for it.Next(ctx) {
		out = append(out, it.Result())
	}
	return out, it.Err()
}
