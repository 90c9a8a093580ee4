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
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/internal/decompressor"
	"github.com/ldtoolkit/legdb/query"
)

// Open opens a graph document for reading. The path may be a local file, "-" for stdin,
// or an http(s) URL. Compressed input is decompressed.
func Open(path string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	u, err := url.Parse(path)
	switch {
	case path == "-":
		rc = io.NopCloser(os.Stdin)
	case err != nil || u.Scheme == "file" || u.Scheme == "":
		// Don't alter relative URL path or non-URL path parameter.
		if u != nil && u.Scheme != "" && err == nil {
			// Recovery heuristic for mistyping "file://path/to/file".
			path = filepath.Join(u.Host, u.Path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("could not open file %q: %w", path, err)
		}
		rc = f
	default:
		res, err := http.Get(path)
		if err != nil {
			return nil, fmt.Errorf("could not get resource <%s>: %w", u, err)
		}
		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			return nil, fmt.Errorf("could not get resource <%s>: %s", u, res.Status)
		}
		rc = res.Body
	}
	r, err := decompressor.New(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return readCloser{Reader: r, Closer: rc}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// Load reads a graph document from path and writes it to w. See Open for supported paths.
func Load(ctx context.Context, w graph.Writer, path string, opts query.Options, batch int) (int, error) {
	if path == "" {
		return 0, nil
	}
	rc, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	d, err := ReadDocument(rc)
	if err != nil {
		return 0, err
	}
	n, err := WriteDocument(ctx, w, d, opts, batch)
	if err != nil {
		return n, fmt.Errorf("db: failed to load data: %w", err)
	}
	return n, nil
}
