package ebird

import (
	"maps"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockResponse represents a mocked HTTP response
type mockResponse struct {
	status      int
	body        string
	contentType string
}

func testConfig(baseURL string) Config {
	return Config{
		APIKey:       "test-key",
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		RateLimit:    1000,
		Burst:        10,
		Retries:      3,
		RetryBackoff: time.Millisecond,
	}
}

// setupTestClient creates a test client pointed at server
func setupTestClient(tb testing.TB, server *httptest.Server, mutate ...func(*Config)) *Client {
	tb.Helper()

	config := testConfig(server.URL)
	for _, m := range mutate {
		m(&config)
	}

	client, err := NewClient(config)
	require.NoError(tb, err)
	tb.Cleanup(client.Close)

	return client
}

// setupMockServer serves responses keyed by path plus raw query and counts hits per key.
func setupMockServer(tb testing.TB, responses map[string]mockResponse) (*httptest.Server, *hitCounter) {
	tb.Helper()

	hits := &hitCounter{counts: make(map[string]int)}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}
		hits.add(key)

		if apiKey := r.Header.Get("X-eBirdApiToken"); apiKey == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"title": "Unauthorized", "status": 401, "detail": "Missing API key"}`))
			return
		}

		if response, ok := responses[key]; ok {
			if response.contentType != "" {
				w.Header().Set("Content-Type", response.contentType)
			} else {
				w.Header().Set("Content-Type", "application/json;charset=utf-8")
			}
			w.WriteHeader(response.status)
			_, _ = w.Write([]byte(response.body))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title": "Not Found", "status": 404, "detail": "Endpoint not found"}`))
	}))
	tb.Cleanup(server.Close)

	return server, hits
}

type hitCounter struct {
	mu     sync.Mutex
	counts map[string]int
	total  atomic.Int32
}

func (h *hitCounter) add(key string) {
	h.mu.Lock()
	h.counts[key]++
	h.mu.Unlock()
	h.total.Add(1)
}

func (h *hitCounter) get(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[key]
}

// loadTestData loads test data from testdata directory
func loadTestData(tb testing.TB, filename string) string {
	tb.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", filename)) //nolint:gosec // G304: test fixture path
	require.NoError(tb, err)

	return string(data)
}

// fakeRecorder captures Recorder calls.
type fakeRecorder struct {
	mu        sync.Mutex
	requests  map[string]int // endpoint/outcome
	cacheHits map[string]int
	cacheMiss map[string]int
	retries   map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		requests:  make(map[string]int),
		cacheHits: make(map[string]int),
		cacheMiss: make(map[string]int),
		retries:   make(map[string]int),
	}
}

func (f *fakeRecorder) RecordUpstreamRequest(endpoint, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[endpoint+"/"+outcome]++
}

func (f *fakeRecorder) RecordCacheLookup(kind string, hit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hit {
		f.cacheHits[kind]++
	} else {
		f.cacheMiss[kind]++
	}
}

func (f *fakeRecorder) RecordRetry(endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries[endpoint]++
}

func (f *fakeRecorder) snapshot() (requests, hits, misses, retries map[string]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.requests), maps.Clone(f.cacheHits), maps.Clone(f.cacheMiss), maps.Clone(f.retries)
}
