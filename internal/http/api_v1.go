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
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/query"
)

// API serves queries and writes for one store.
type API struct {
	config *Config
	qs     graph.Store
	ses    *query.Session
}

func NewAPI(qs graph.Store, cfg *Config) *API {
	if cfg == nil {
		cfg = &Config{}
	}
	return &API{config: cfg, qs: qs, ses: query.NewSession(qs, cfg.Options)}
}

func (api *API) RWOnly(handler httprouter.Handle) httprouter.Handle {
	if api.config.ReadOnly {
		return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
			jsonResponse(w, http.StatusForbidden, "Database is read-only.")
		}
	}
	return handler
}

func (api *API) contextForRequest(r *http.Request) (context.Context, func()) {
	ctx := r.Context()
	cancel := func() {}
	if api.config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, api.config.Timeout)
	}
	return ctx, cancel
}

func (api *API) APIv1(r *httprouter.Router) {
	const pref = "/api/v1"
	r.POST(pref+"/query", CORS(LogRequest("query", api.ServeV1Query)))
	r.POST(pref+"/plan", CORS(LogRequest("plan", api.ServeV1Plan)))
	r.GET(pref+"/read", CORS(LogRequest("read", api.ServeV1Read)))
	r.POST(pref+"/write", CORS(api.RWOnly(LogRequest("write", api.ServeV1Write))))
	r.POST(pref+"/delete", CORS(api.RWOnly(LogRequest("delete", api.ServeV1Delete))))
}
