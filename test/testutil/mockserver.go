// Copyright 2025 SFX Ops, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package testutil provides common test helpers for sfx-export
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
)

// DetectorAPI is an in-memory stand-in for the detector REST surface. It
// serves GET /v2/detector with offset pagination and GET /v2/detector/{id}
// lookups from a fixed collection, enforcing token authentication.
type DetectorAPI struct {
	*httptest.Server
	Token     string
	Detectors []map[string]any

	requestCount int32
}

// NewDetectorAPI starts a mock detector API. The server shuts down with
// the test.
func NewDetectorAPI(t *testing.T, token string, detectors []map[string]any) *DetectorAPI {
	t.Helper()

	api := &DetectorAPI{Token: token, Detectors: detectors}
	api.Server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.Server.Close)
	return api
}

// Requests returns how many requests the server has seen.
func (a *DetectorAPI) Requests() int {
	return int(atomic.LoadInt32(&a.requestCount))
}

func (a *DetectorAPI) handle(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&a.requestCount, 1)

	if r.Header.Get("X-SF-Token") != a.Token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "invalid token"}`))
		return
	}

	if r.URL.Path == "/v2/detector" {
		a.servePage(w, r)
		return
	}

	if id, ok := strings.CutPrefix(r.URL.Path, "/v2/detector/"); ok {
		a.serveOne(w, id)
		return
	}

	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"message": "not found"}`))
}

func (a *DetectorAPI) servePage(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	start := offset
	if start > len(a.Detectors) {
		start = len(a.Detectors)
	}
	end := start + limit
	if end > len(a.Detectors) {
		end = len(a.Detectors)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count":   len(a.Detectors),
		"results": a.Detectors[start:end],
	})
}

func (a *DetectorAPI) serveOne(w http.ResponseWriter, id string) {
	for _, d := range a.Detectors {
		if d["id"] == id {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(d)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(fmt.Sprintf(`{"message": "detector %s not found"}`, id)))
}

// NewErrorAPI creates a mock server that always returns the given status.
func NewErrorAPI(t *testing.T, statusCode int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(http.StatusText(statusCode)))
	}))
	t.Cleanup(server.Close)
	return server
}

// NewRateLimitAPI creates a mock server that throttles the first failCount
// requests with 429 and the given Retry-After header, then serves the
// detector collection.
func NewRateLimitAPI(t *testing.T, retryAfterSeconds, failCount int, detectors []map[string]any) *httptest.Server {
	t.Helper()
	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&requestCount, 1)

		if count <= int32(failCount) {
			if retryAfterSeconds > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			}
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message": "request rate limit exceeded"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count":   len(detectors),
			"results": detectors,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

// NewTransientErrorAPI creates a mock server that fails failCount times
// with the given status, then serves the detector collection.
func NewTransientErrorAPI(t *testing.T, failCount, errorCode int, detectors []map[string]any) *httptest.Server {
	t.Helper()
	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&requestCount, 1)

		if count <= int32(failCount) {
			w.WriteHeader(errorCode)
			_, _ = w.Write([]byte(http.StatusText(errorCode)))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count":   len(detectors),
			"results": detectors,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

// GenerateDetectors creates n sample detector definitions with unique ids
// and names, shaped like real API responses.
func GenerateDetectors(n int) []map[string]any {
	detectors := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		detectors = append(detectors, map[string]any{
			"id":          fmt.Sprintf("E%07d", i),
			"name":        fmt.Sprintf("Service latency %d", i),
			"description": "Fires when p99 latency is elevated",
			"programText": fmt.Sprintf("detect(when(data('latency.p99', filter=filter('service', 'svc-%d')).mean() > 500)).publish('latency')", i),
			"rules": []any{
				map[string]any{"severity": "Major", "detectLabel": "latency"},
			},
			"createdOn":     1700000000000,
			"lastUpdatedOn": 1700000100000,
			"creator":       "AAXXXXXXXXX",
		})
	}
	return detectors
}
