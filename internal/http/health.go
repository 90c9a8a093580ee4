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
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// HandleHealth is a route for handling health checks to the server.
// It reports 204 if a snapshot of the store can be opened.
func (api *API) HandleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := api.contextForRequest(r)
	defer cancel()
	snap, err := api.qs.Snapshot(ctx)
	if err != nil {
		jsonResponse(w, http.StatusServiceUnavailable, err)
		return
	}
	snap.Close()
	w.WriteHeader(http.StatusNoContent)
}
