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
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/internal"
	"github.com/ldtoolkit/legdb/query"
)

// DefaultLimit is the number of results returned by a query without an explicit limit.
const DefaultLimit = 100

type SuccessQueryWrapper struct {
	Result interface{} `json:"result"`
}

type ErrorQueryWrapper struct {
	Error string `json:"error"`
}

func WriteError(w io.Writer, err error) error {
	return json.NewEncoder(w).Encode(ErrorQueryWrapper{err.Error()})
}

func WriteResult(w io.Writer, result interface{}) error {
	return json.NewEncoder(w).Encode(SuccessQueryWrapper{result})
}

// errorCode maps query errors to HTTP status codes.
func errorCode(err error) int {
	switch {
	case errors.Is(err, graph.ErrUsage),
		errors.Is(err, query.ErrParse),
		errors.Is(err, query.ErrParseMore):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func readQuery(r *http.Request) (string, error) {
	defer r.Body.Close()
	data, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ServeV1Query runs a chain from the request body and returns the matching entities.
func (api *API) ServeV1Query(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	ctx, cancel := api.contextForRequest(r)
	defer cancel()
	text, err := readQuery(r)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, err)
		return
	}
	limit := DefaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			jsonResponse(w, http.StatusBadRequest, err)
			return
		}
	}
	ents, err := api.ses.Collect(ctx, text, limit)
	if err != nil {
		jsonResponse(w, errorCode(err), err)
		return
	}
	out := make([]interface{}, 0, len(ents))
	for _, e := range ents {
		out = append(out, internal.Record(e))
	}
	w.Header().Set(hdrContentType, contentTypeJSON)
	_ = WriteResult(w, out)
}

// ServeV1Plan returns the compiled form of a chain from the request body.
func (api *API) ServeV1Plan(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	text, err := readQuery(r)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, err)
		return
	}
	plan, err := api.ses.Plan(text)
	if err != nil {
		jsonResponse(w, errorCode(err), err)
		return
	}
	w.Header().Set(hdrContentType, contentTypeJSON)
	_ = WriteResult(w, plan)
}
