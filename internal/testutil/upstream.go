// Package testutil provides shared test helpers for hotspot-explorer.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Upstream is a fake eBird API that serves canned JSON bodies by URL path.
// Unknown paths answer 404, like the real API does for unknown locations.
type Upstream struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]string
	failures map[string]int // path prefix -> status
	hits     map[string]int
	tokens   []string
}

// NewUpstream starts a fake API serving routes. It is closed with the test.
func NewUpstream(tb testing.TB, routes map[string]string) *Upstream {
	tb.Helper()
	u := &Upstream{
		routes:   make(map[string]string, len(routes)),
		failures: make(map[string]int),
		hits:     make(map[string]int),
	}
	for path, body := range routes {
		u.routes[path] = body
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	tb.Cleanup(u.Close)
	return u
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits[r.URL.Path]++
	u.tokens = append(u.tokens, r.Header.Get("X-eBirdApiToken"))
	body, ok := u.routes[r.URL.Path]
	status := 0
	for prefix, code := range u.failures {
		if strings.HasPrefix(r.URL.Path, prefix) {
			status = code
			break
		}
	}
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case status != 0:
		w.WriteHeader(status)
	case !ok:
		w.WriteHeader(http.StatusNotFound)
	default:
		_, _ = w.Write([]byte(body))
	}
}

// Fail makes every path under prefix answer status.
func (u *Upstream) Fail(prefix string, status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failures[prefix] = status
}

// Hits reports how often path was requested.
func (u *Upstream) Hits(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

// Tokens returns the X-eBirdApiToken header of every request, in order.
func (u *Upstream) Tokens() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.tokens...)
}
