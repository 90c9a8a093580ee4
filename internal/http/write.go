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

package http

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/internal"
)

const (
	hdrContentType     = "Content-Type"
	hdrContentEncoding = "Content-Encoding"
	hdrAcceptEncoding  = "Accept-Encoding"
	contentTypeJSON    = "application/json"
	contentTypeYAML    = "application/yaml"
)

func hasGzip(h http.Header, name string) bool {
	for _, v := range strings.Split(h.Get(name), ",") {
		if i := strings.IndexByte(v, ';'); i >= 0 {
			v = v[:i]
		}
		if strings.TrimSpace(v) == "gzip" {
			return true
		}
	}
	return false
}

func readerFrom(r *http.Request) (io.ReadCloser, error) {
	if hasGzip(r.Header, hdrContentEncoding) {
		return gzip.NewReader(r.Body)
	}
	return r.Body, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func writerFrom(w http.ResponseWriter, r *http.Request) io.WriteCloser {
	if hasGzip(r.Header, hdrAcceptEncoding) {
		w.Header().Set(hdrContentEncoding, "gzip")
		return gzip.NewWriter(w)
	}
	return nopWriteCloser{Writer: w}
}

// ServeV1Write writes a YAML or JSON graph document from the request body.
func (api *API) ServeV1Write(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	defer r.Body.Close()
	rd, err := readerFrom(r)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, err)
		return
	}
	defer rd.Close()
	d, err := internal.ReadDocument(rd)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, err)
		return
	}
	ctx, cancel := api.contextForRequest(r)
	defer cancel()
	n, err := internal.WriteDocument(ctx, api.qs, d, api.ses.Options(), api.config.Batch)
	if errors.Is(err, graph.ErrInvalidEntity) {
		jsonResponse(w, http.StatusBadRequest, err)
		return
	} else if err != nil {
		jsonResponse(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set(hdrContentType, contentTypeJSON)
	fmt.Fprintf(w, `{"result": "Successfully wrote %d entities.", "count": %d}`+"\n", n, n)
}

type deleteRequest struct {
	Kind  string     `json:"kind"`
	Class string     `json:"class"`
	IDs   []graph.ID `json:"ids"`
}

// ServeV1Delete removes entities listed in a JSON request: {"kind": "node", "ids": ["a"]}.
// Class selects the kind class ("node" or "edge"); without it the kind name is resolved
// as in chain text.
func (api *API) ServeV1Delete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	defer r.Body.Close()
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, err)
		return
	}
	if req.Kind == "" {
		jsonResponse(w, http.StatusBadRequest, "kind must be set")
		return
	}
	opts := api.ses.Options()
	var kind graph.Kind
	switch req.Class {
	case "":
		kind = opts.KindByName(req.Kind)
	case graph.NodeClass.String():
		kind = graph.NewNodeKind(req.Kind)
	case graph.EdgeClass.String():
		kind = graph.NewEdgeKind(req.Kind)
	default:
		jsonResponse(w, http.StatusBadRequest, fmt.Errorf("unknown entity class %q", req.Class))
		return
	}
	ctx, cancel := api.contextForRequest(r)
	defer cancel()
	if err := api.qs.Delete(ctx, kind, req.IDs...); err != nil {
		jsonResponse(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set(hdrContentType, contentTypeJSON)
	fmt.Fprintf(w, `{"result": "Successfully deleted %d entities.", "count": %d}`+"\n", len(req.IDs), len(req.IDs))
}

// ServeV1Read returns the whole graph as a YAML document.
func (api *API) ServeV1Read(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := api.contextForRequest(r)
	defer cancel()
	d, err := internal.Collect(ctx, api.qs)
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set(hdrContentType, contentTypeYAML)
	wr := writerFrom(w, r)
	defer wr.Close()
	if err = d.Encode(wr); err != nil {
		// headers are already written
		clog.Errorf("read graph error: %v", err)
	}
}
