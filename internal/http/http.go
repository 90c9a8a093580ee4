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

// Package http serves the legdb query API over HTTP.
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/query"
)

var (
	mRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legdb_http_requests_total",
		Help: "Number of served HTTP requests.",
	}, []string{"path", "code"})
	mRequestTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "legdb_http_request_seconds",
		Help: "Time spent serving HTTP requests.",
	}, []string{"path"})
)

// statusWriter wraps http.ResponseWriter and captures the written status code
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.ResponseWriter.WriteHeader(code)
	w.code = code
}

// getAddress returns the address of the incoming request
func getAddress(req *http.Request) string {
	addr := req.Header.Get("X-Real-IP")
	if addr == "" {
		addr = req.Header.Get("X-Forwarded-For")
		if addr == "" {
			addr = req.RemoteAddr
		}
	}
	return addr
}

// LogRequest wraps a handler, emits logs about the request and the response and records
// request metrics under the route path.
func LogRequest(path string, handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		clog.Infof("started %s %s for %s", req.Method, req.URL.Path, getAddress(req))
		handler(sw, req, params)
		dt := time.Since(start)
		mRequests.WithLabelValues(path, strconv.Itoa(sw.code)).Inc()
		mRequestTime.WithLabelValues(path).Observe(dt.Seconds())
		clog.Infof("completed %v %s %s in %v", sw.code, http.StatusText(sw.code), req.URL.Path, dt)
	}
}

func jsonResponse(w http.ResponseWriter, code int, err interface{}) {
	w.Header().Set(hdrContentType, contentTypeJSON)
	w.WriteHeader(code)
	w.Write([]byte(`{"error": `))
	data, _ := json.Marshal(fmt.Sprint(err))
	w.Write(data)
	w.Write([]byte(`}` + "\n"))
}

func CORSFunc(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
	if origin := req.Header.Get("Origin"); origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers",
			"Accept, Content-Type, Content-Length, Accept-Encoding, Content-Encoding")
	}
}

// CORS adds CORS related headers to responses
func CORS(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		CORSFunc(w, req, params)
		h(w, req, params)
	}
}

// Config controls the behavior of the HTTP API.
type Config struct {
	ReadOnly bool
	Timeout  time.Duration
	Batch    int
	Options  query.Options
}

// SetupRoutes creates a router serving the API for qs.
func SetupRoutes(qs graph.Store, cfg *Config) *httprouter.Router {
	r := httprouter.New()
	api := NewAPI(qs, cfg)
	r.OPTIONS("/*path", func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		CORSFunc(w, req, params)
		w.WriteHeader(http.StatusNoContent)
	})
	api.APIv1(r)
	r.GET("/health", api.HandleHealth)
	r.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}
