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

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/pipeline"
)

var _ graph.Iterator = (*Iterator)(nil)

// Iterator streams results of a chain one entity at a time.
type Iterator struct {
	ev  *pipeline.Evaluator
	buf []graph.Entity
	cur graph.Entity
	err error
}

func (it *Iterator) Next(ctx context.Context) bool {
	for len(it.buf) == 0 {
		if it.err != nil || it.ev == nil {
			return false
		}
		page, err := it.ev.NextBatch(ctx)
		if err != nil {
			it.err = err
			return false
		}
		if len(page) == 0 {
			return false
		}
		it.buf = page
	}
	it.cur = it.buf[0]
	it.buf = it.buf[1:]
	return true
}

func (it *Iterator) Result() graph.Entity { return it.cur }

func (it *Iterator) Err() error { return it.err }

func (it *Iterator) Close() error {
	it.buf = nil
	if it.ev == nil {
		return nil
	}
	err := it.ev.Close()
	it.ev = nil
	return err
}
