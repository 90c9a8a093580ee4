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
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/graphtest"
	_ "github.com/ldtoolkit/legdb/graph/kv/leveldb"
	"github.com/ldtoolkit/legdb/internal"
)

func newServer(t testing.TB, cfg *Config) (graph.Store, http.Handler) {
	qs, err := graph.NewStore("memstore", "", nil)
	require.NoError(t, err)
	_, err = qs.Put(context.TODO(), graphtest.People()...)
	require.NoError(t, err)
	if cfg == nil {
		cfg = &Config{}
	}
	return qs, SetupRoutes(qs, cfg)
}

func do(t testing.TB, h http.Handler, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type queryResponse struct {
	Result []map[string]interface{} `json:"result"`
	Error  string                   `json:"error"`
}

func decode(t testing.TB, rec *httptest.ResponseRecorder) queryResponse {
	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "%s", rec.Body.String())
	return resp
}

func ids(resp queryResponse) []string {
	var out []string
	for _, r := range resp.Result {
		out = append(out, r["id"].(string))
	}
	return out
}

var queryTests = []struct {
	name   string
	query  string
	code   int
	expect []string
}{
	{
		name:   "scan",
		query:  `node.has(type="person")`,
		code:   http.StatusOK,
		expect: []string{"n1", "n2"},
	},
	{
		name:   "traversal",
		query:  `node.get("n1").edge_out(rel="lives_in")`,
		code:   http.StatusOK,
		expect: []string{"e2"},
	},
	{
		name:  "parse error",
		query: `node.has(type=)`,
		code:  http.StatusBadRequest,
	},
	{
		name:  "incomplete",
		query: `node.has(`,
		code:  http.StatusBadRequest,
	},
	{
		name:  "usage error",
		query: `node.has(type="person").source(edge)`,
		code:  http.StatusBadRequest,
	},
}

func TestQuery(t *testing.T) {
	qs, h := newServer(t, nil)
	defer qs.Close()
	for _, c := range queryTests {
		t.Run(c.name, func(t *testing.T) {
			rec := do(t, h, "POST", "/api/v1/query", strings.NewReader(c.query), nil)
			require.Equal(t, c.code, rec.Code, rec.Body.String())
			resp := decode(t, rec)
			if c.code != http.StatusOK {
				require.NotEmpty(t, resp.Error)
				return
			}
			require.Equal(t, c.expect, ids(resp))
		})
	}
}

func TestQueryLimit(t *testing.T) {
	qs, h := newServer(t, nil)
	defer qs.Close()

	rec := do(t, h, "POST", "/api/v1/query?limit=1", strings.NewReader(`node`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode(t, rec).Result, 1)

	rec = do(t, h, "POST", "/api/v1/query?limit=x", strings.NewReader(`node`), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlan(t *testing.T) {
	qs, h := newServer(t, nil)
	defer qs.Close()

	rec := do(t, h, "POST", "/api/v1/plan", strings.NewReader(`node.get("a").has(x=1).edge_in()`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Result string `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, `point_get(node, "a") -> has(x=1) -> edge_scan_in(edge)`, resp.Result)
}

func TestWrite(t *testing.T) {
	qs, h := newServer(t, nil)
	defer qs.Close()

	doc := `{"nodes": [{"id": "n4", "attrs": {"type": "person", "name": "eve"}}],
		"edges": [{"id": "e4", "start": "n4", "end": "n1", "attrs": {"rel": "knows"}}]}`
	rec := do(t, h, "POST", "/api/v1/write", strings.NewReader(doc), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, "POST", "/api/v1/query", strings.NewReader(`node.get("n4").edge_out()`), nil)
	require.Equal(t, []string{"e4"}, ids(decode(t, rec)))

	buf := bytes.NewBuffer(nil)
	zw := gzip.NewWriter(buf)
	_, err := zw.Write([]byte("nodes:\n  - {id: n5, attrs: {type: person}}\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	rec = do(t, h, "POST", "/api/v1/write", buf, map[string]string{hdrContentEncoding: "gzip"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, "POST", "/api/v1/query", strings.NewReader(`node.has(type="person")`), nil)
	require.Equal(t, []string{"n1", "n2", "n4", "n5"}, ids(decode(t, rec)))

	rec = do(t, h, "POST", "/api/v1/write", strings.NewReader(`{"edges": [{"id": "bad", "start": "n1"}]}`), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/api/v1/delete", strings.NewReader(`{"kind": "node", "ids": ["n5"]}`), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, "POST", "/api/v1/query", strings.NewReader(`node.get("n5")`), nil)
	require.Empty(t, decode(t, rec).Result)
}

func TestReadOnly(t *testing.T) {
	qs, h := newServer(t, &Config{ReadOnly: true})
	defer qs.Close()

	rec := do(t, h, "POST", "/api/v1/write", strings.NewReader(`{"nodes": [{"id": "x"}]}`), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, h, "POST", "/api/v1/delete", strings.NewReader(`{"kind": "node", "ids": ["n1"]}`), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, "POST", "/api/v1/query", strings.NewReader(`node.get("x", "n1")`), nil)
	require.Equal(t, []string{"n1"}, ids(decode(t, rec)))
}

func TestRead(t *testing.T) {
	qs, h := newServer(t, nil)
	defer qs.Close()

	rec := do(t, h, "GET", "/api/v1/read", nil, map[string]string{hdrAcceptEncoding: "gzip, deflate"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get(hdrContentEncoding))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	d, err := internal.ReadDocument(zr)
	require.NoError(t, err)
	require.Len(t, d.Nodes, 3)
	require.Len(t, d.Edges, 3)
}

func TestHealthAndMetrics(t *testing.T) {
	qs, h := newServer(t, nil)
	defer qs.Close()

	rec := do(t, h, "GET", "/health", nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	before := testutil.ToFloat64(mRequests.WithLabelValues("plan", "200"))
	do(t, h, "POST", "/api/v1/plan", strings.NewReader(`node`), nil)
	require.Equal(t, before+1, testutil.ToFloat64(mRequests.WithLabelValues("plan", "200")))

	rec = do(t, h, "GET", "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := ioutil.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "legdb_http_requests_total")
}

func TestCORS(t *testing.T) {
	qs, h := newServer(t, nil)
	defer qs.Close()

	rec := do(t, h, "OPTIONS", "/api/v1/query", nil, map[string]string{"Origin": "http://example.org"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}
