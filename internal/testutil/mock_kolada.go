// Package testutil provides testing utilities for the Kolada client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior of one mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockKolada is a configurable mock Kolada server for testing.
type MockKolada struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount int
	LastQuery    url.Values
	LastPath     string
}

// NewMockKolada creates a new mock Kolada server.
func NewMockKolada() *MockKolada {
	mock := &MockKolada{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = r.URL.Query()
		mock.LastPath = r.URL.Path
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockKolada) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockKolada) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockKolada) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastQuery = nil
	m.LastPath = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockKolada) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a static response for a path.
func (m *MockKolada) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests the server received.
func (m *MockKolada) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastQuery returns the query parameters of the most recent request.
func (m *MockKolada) GetLastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

// GetLastPath returns the path of the most recent request.
func (m *MockKolada) GetLastPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastPath
}

// defaultHandler serves an empty single-page envelope.
func (m *MockKolada) defaultHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(Envelope(nil, 0, "")))
}

// Envelope builds a Kolada response envelope from raw JSON items. An empty
// nextURL emits "next_url": null, ending pagination.
func Envelope(values []string, count int, nextURL string) string {
	items := "[]"
	if len(values) > 0 {
		items = "["
		for i, v := range values {
			if i > 0 {
				items += ","
			}
			items += v
		}
		items += "]"
	}

	next := "null"
	if nextURL != "" {
		b, _ := json.Marshal(nextURL)
		next = string(b)
	}

	return fmt.Sprintf(`{"values": %s, "count": %d, "next_url": %s}`, items, count, next)
}

// PagedHandler serves values perPage at a time, driven by the page query
// parameter, announcing next_url while pages remain.
func PagedHandler(values []string, perPage int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			if n, err := strconv.Atoi(p); err == nil && n > 0 {
				page = n
			}
		}

		start := (page - 1) * perPage
		if start > len(values) {
			start = len(values)
		}
		end := start + perPage
		if end > len(values) {
			end = len(values)
		}

		nextURL := ""
		if end < len(values) {
			nextURL = fmt.Sprintf("%s?page=%d", r.URL.Path, page+1)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(Envelope(values[start:end], len(values), nextURL)))
	}
}

// RateLimitedHandler answers the first failures requests with 429 and the
// given Retry-After header, then delegates to the success handler.
func RateLimitedHandler(failures int, retryAfter string, success http.HandlerFunc) http.HandlerFunc {
	var mu sync.Mutex
	served := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served++
		rejected := served <= failures
		mu.Unlock()

		if rejected {
			if retryAfter != "" {
				w.Header().Set("Retry-After", retryAfter)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": "rate limit exceeded"}`))
			return
		}
		success(w, r)
	}
}

// ErrorHandler answers every request with the given status.
func ErrorHandler(statusCode int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write([]byte(`{"error": "mock error"}`))
	}
}
