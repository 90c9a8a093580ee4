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

// Package db opens and initializes configured stores.
package db

import (
	"errors"
	"fmt"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/internal/config"
)

var ErrNotPersistent = errors.New("database type is not persistent")

// Init creates an empty database for a persistent backend.
func Init(cfg *config.Config) error {
	if !graph.IsRegistered(cfg.Backend) {
		return fmt.Errorf("%w: %q", graph.ErrStoreNotRegistered, cfg.Backend)
	}
	if !graph.IsPersistent(cfg.Backend) {
		return fmt.Errorf("ignoring unproductive database initialization request: %w", ErrNotPersistent)
	}
	clog.Infof("initializing %s database at %q", cfg.Backend, cfg.Path)
	return graph.InitStore(cfg.Backend, cfg.Path, cfg.Options)
}

// Open opens the configured store. If init is set, a missing database is created first.
func Open(cfg *config.Config, init bool) (graph.Store, error) {
	if init && graph.IsPersistent(cfg.Backend) {
		if err := Init(cfg); errors.Is(err, graph.ErrDatabaseExists) {
			clog.Infof("database already initialized, skipping init")
		} else if err != nil {
			return nil, err
		}
	}
	qs, err := graph.NewStore(cfg.Backend, cfg.Path, cfg.Options)
	if errors.Is(err, graph.ErrNotInitialized) {
		err = fmt.Errorf("%w: %s; use --init or run `legdb init` first", err, cfg.Path)
	}
	if err != nil {
		return nil, err
	}
	clog.Infof("using backend %q (%s)", qs.Type(), cfg.Path)
	return qs, nil
}
