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

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrUsage is returned when a query chain is assembled in an invalid order.
	ErrUsage = errors.New("usage error")

	// ErrNotExecutable is returned when a compiled plan contains a step without a cursor form.
	ErrNotExecutable = errors.New("step is not executable")

	// ErrInvalidEntity is returned for entities that cannot be stored.
	ErrInvalidEntity = errors.New("invalid entity")

	ErrDatabaseExists        = errors.New("store: cannot init; database already exists")
	ErrNotInitialized        = errors.New("store: not initialized")
	ErrStoreNotRegistered    = errors.New("store: this store is not registered")
	ErrOperationNotSupported = errors.New("store: operation is not supported")
	ErrReadOnly              = errors.New("store: read-only transaction")
)

// Iterator lists entities one by one from a store snapshot.
//
//	for it.Next(ctx) {
//		e := it.Result()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type Iterator interface {
	// Next advances the iterator. It returns false when the iterator is exhausted
	// or failed; Err distinguishes the two.
	Next(ctx context.Context) bool
	// Result returns the current entity.
	Result() Entity
	Err() error
	Close() error
}

// Cursor is a page-granular, rebindable view of one physical step's result set.
type Cursor interface {
	// Reset rewinds the cursor to the start of the result set for the current binding.
	// Calling it twice has the same effect as calling it once.
	Reset(ctx context.Context) error
	// Bind attaches a page of upstream entities as the filter context of the cursor.
	Bind(ctx context.Context, in []Entity) error
	// NextPage returns the next non-empty page of entities. An empty page means the result set
	// for the current binding is exhausted from the current position onward.
	NextPage(ctx context.Context) ([]Entity, error)
	Close() error
}

// Snapshot is a consistent read view of a store. All cursors of one evaluation share it.
// It must not be used after Close.
type Snapshot interface {
	// Scan lists entities of a kind that match all attributes.
	Scan(ctx context.Context, kind Kind, attrs Attrs) Iterator
	// Get lists entities of a kind with given identifiers, in order. Missing ids are skipped.
	Get(ctx context.Context, kind Kind, ids []ID) Iterator
	// Adjacent lists edges of a kind whose dir endpoint is one of nodes and that match attrs.
	// Edges are listed grouped by node, in the order of nodes.
	Adjacent(ctx context.Context, kind Kind, dir Endpoint, nodes []ID, attrs Attrs) Iterator
	// Kinds lists all entity kinds known to the store.
	Kinds(ctx context.Context) ([]Kind, error)
	Close() error
}

// Writer modifies the contents of a store.
type Writer interface {
	// Put inserts or replaces entities. Entities with an empty id get a new one.
	// It returns the ids of all written entities, in order.
	Put(ctx context.Context, ents ...Entity) ([]ID, error)
	// Delete removes entities of a kind. Missing ids are ignored.
	Delete(ctx context.Context, kind Kind, ids ...ID) error
	// EnsureIndex creates an attribute index if it does not exist and fills it.
	EnsureIndex(ctx context.Context, kind Kind, attr string) error
}

// Store is an entity store the query core runs against.
type Store interface {
	Writer
	// Type returns the name of the store backend.
	Type() string
	// Snapshot opens a read transaction.
	Snapshot(ctx context.Context) (Snapshot, error)
	Close() error
}

// Options are backend-specific store options. A key set to nil reads as its default.
type Options map[string]interface{}

var typeInt = reflect.TypeOf(int(0))

func (d Options) IntKey(key string, def int) (int, error) {
	if val, ok := d[key]; ok && val != nil {
		if reflect.TypeOf(val).ConvertibleTo(typeInt) {
			i := reflect.ValueOf(val).Convert(typeInt).Int()
			return int(i), nil
		}

		return def, fmt.Errorf("invalid %s parameter type from config: %T", key, val)
	}
	return def, nil
}

func (d Options) StringKey(key string, def string) (string, error) {
	if val, ok := d[key]; ok && val != nil {
		if v, ok := val.(string); ok {
			return v, nil
		}

		return def, fmt.Errorf("invalid %s parameter type from config: %T", key, val)
	}

	return def, nil
}

func (d Options) BoolKey(key string, def bool) (bool, error) {
	if val, ok := d[key]; ok && val != nil {
		if v, ok := val.(bool); ok {
			return v, nil
		}

		return def, fmt.Errorf("invalid %s parameter type from config: %T", key, val)
	}

	return def, nil
}
