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

package internal

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
)

// Collect reads all entities of a store into a document.
func Collect(ctx context.Context, qs graph.Store) (*Document, error) {
	snap, err := qs.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snap.Close()
	kinds, err := snap.Kinds(ctx)
	if err != nil {
		return nil, err
	}
	d := &Document{}
	for _, k := range kinds {
		it := snap.Scan(ctx, k, nil)
		for it.Next(ctx) {
			d.Add(it.Result())
		}
		err = it.Err()
		it.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read %v: %w", k, err)
		}
	}
	return d, nil
}

// Encode writes the document as YAML.
func (d *Document) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

// Dump writes the content of the database to a YAML file. The file is
// compressed if its name ends with ".gz"; "-" writes to stdout.
func Dump(ctx context.Context, qs graph.Store, outFile string) (int, error) {
	d, err := Collect(ctx, qs)
	if err != nil {
		return 0, err
	}
	var f *os.File
	if outFile == "-" {
		f = os.Stdout
	} else {
		f, err = os.Create(outFile)
		if err != nil {
			return 0, fmt.Errorf("could not open file %q: %w", outFile, err)
		}
		defer f.Close()
		clog.Infof("dumping db to file %q", outFile)
	}

	var w io.Writer = f
	if filepath.Ext(outFile) == ".gz" {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}
	if err = d.Encode(w); err != nil {
		return 0, err
	}
	n := len(d.Nodes) + len(d.Edges)
	if outFile != "-" {
		clog.Infof("%d entities were written", n)
	}
	return n, nil
}
