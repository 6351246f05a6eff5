// Package testutil provides testing utilities for the GitHub client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock GitHub endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockGitHub is a configurable mock GitHub API server for testing.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Rate limit budget reported on every response; decremented per call.
	rateLimit     int
	rateRemaining int

	// Tracking
	RequestCount      int
	Requests          []string
	LastRequestHeader http.Header
}

// NewMockGitHub creates a new mock GitHub server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers:      make(map[string]func(w http.ResponseWriter, r *http.Request)),
		rateLimit:     5000,
		rateRemaining: 5000,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, r.URL.RequestURI())
		mock.LastRequestHeader = r.Header.Clone()
		if mock.rateRemaining > 0 {
			mock.rateRemaining--
		}
		limit, remaining := mock.rateLimit, mock.rateRemaining
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Used", strconv.Itoa(limit-remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
			w.Header().Set("X-RateLimit-Resource", "core")
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if exists {
			handler(w, r)
			return
		}

		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found","documentation_url":"https://docs.github.com/rest"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
	m.LastRequestHeader = nil
}

// SetRateLimit sets the budget reported in X-RateLimit headers. A limit of
// 0 omits the headers.
func (m *MockGitHub) SetRateLimit(limit, remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimit = limit
	m.rateRemaining = remaining
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGitHub) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockGitHub) SetResponse(path string, resp MockResponse) {
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

// SetPages serves items split into pages of perPage items, selected by the
// page query parameter, with a GitHub Link header.
func (m *MockGitHub) SetPages(path string, perPage int, items ...any) {
	if perPage <= 0 {
		perPage = 30
	}
	pages := (len(items) + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}

		if link := linkHeader(m.URL()+path, r.URL.Query(), page, pages); link != "" {
			w.Header().Set("Link", link)
		}

		start := (page - 1) * perPage
		end := min(start+perPage, len(items))
		chunk := []any{}
		if start < len(items) {
			chunk = items[start:end]
		}

		data, _ := json.Marshal(chunk)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGitHub) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRequests returns the request URIs received, in order.
func (m *MockGitHub) GetRequests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.Requests...)
}

// GetLastRequestHeader returns the headers of the last request.
func (m *MockGitHub) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

// LastBasicAuth returns the basic auth credentials of the last request.
func (m *MockGitHub) LastBasicAuth() (username, password string, ok bool) {
	m.mu.RLock()
	header := m.LastRequestHeader
	m.mu.RUnlock()
	if header == nil {
		return "", "", false
	}
	r := &http.Request{Header: header}
	return r.BasicAuth()
}

// linkHeader builds the Link header for page of pages, keeping the other
// query parameters.
func linkHeader(base string, query map[string][]string, page, pages int) string {
	if pages <= 1 {
		return ""
	}

	pageURL := func(n int) string {
		keys := make([]string, 0, len(query))
		for k := range query {
			if k != "page" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		params := []string{}
		for _, k := range keys {
			for _, v := range query[k] {
				params = append(params, k+"="+v)
			}
		}
		params = append(params, "page="+strconv.Itoa(n))
		return base + "?" + strings.Join(params, "&")
	}

	var links []string
	if page > 1 {
		links = append(links,
			fmt.Sprintf(`<%s>; rel="prev"`, pageURL(page-1)),
			fmt.Sprintf(`<%s>; rel="first"`, pageURL(1)))
	}
	if page < pages {
		links = append(links,
			fmt.Sprintf(`<%s>; rel="next"`, pageURL(page+1)),
			fmt.Sprintf(`<%s>; rel="last"`, pageURL(pages)))
	}
	return strings.Join(links, ", ")
}

// NewJSONResponse creates a 200 OK response with a JSON body.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: data}
}

// NewNotFoundResponse creates a 404 response with GitHub's error body.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message":"Not Found"}`,
	}
}

// NewRateLimitResponse creates a 403 response with an exhausted budget.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message":"API rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Remaining": "0",
		},
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Server Error"}`,
	}
}
