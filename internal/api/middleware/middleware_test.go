package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/hotspot-explorer/internal/logger"
)

type recordedRequest struct {
	method, path string
	status       int
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeRecorder) RecordHTTPRequest(method, path string, statusCode int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{method, path, statusCode})
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	e := echo.New()
	e.Use(NewMetrics(rec))
	e.GET("/items/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound, "no such item")
		}
		return c.String(http.StatusOK, "ok")
	})

	for _, target := range []string{"/items/1", "/items/2", "/items/missing", "/nowhere"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, http.NoBody))
	}

	require.Len(t, rec.requests, 4)
	assert.Equal(t, recordedRequest{"GET", "/items/:id", 200}, rec.requests[0])
	assert.Equal(t, recordedRequest{"GET", "/items/:id", 200}, rec.requests[1])
	assert.Equal(t, recordedRequest{"GET", "/items/:id", 404}, rec.requests[2])
	assert.Equal(t, http.StatusNotFound, rec.requests[3].status)
}

func TestMetricsMiddlewareNilRecorder(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewMetrics(nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := logger.NewSlogLogger(logger.Options{Level: logger.LogLevelInfo, Format: logger.FormatJSON, Writer: &buf})
	require.NoError(t, err)

	e := echo.New()
	e.Use(NewRequestLoggerWithSkipper(log, func(c echo.Context) bool {
		return c.Request().URL.Path == "/skip"
	}))
	e.GET("/teapot", func(c echo.Context) error { return c.NoContent(http.StatusTeapot) })
	e.GET("/skip", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot?x=1", http.NoBody))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/skip", http.NoBody))

	out := buf.String()
	assert.Contains(t, out, `"uri":"/teapot?x=1"`)
	assert.Contains(t, out, `"status":418`)
	assert.NotContains(t, out, "/skip")
}

func TestCORSAllowsTokenHeader(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewCORS(SecurityConfig{AllowedOrigins: []string{"https://birds.example"}}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://birds.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	req.Header.Set(echo.HeaderAccessControlRequestHeaders, HeaderEBirdToken)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://birds.example", w.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, w.Header().Get(echo.HeaderAccessControlAllowHeaders), HeaderEBirdToken)
	assert.NotContains(t, w.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)
}

func TestSecureHeaders(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewSecureHeaders())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, "nosniff", w.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Equal(t, "DENY", w.Header().Get(echo.HeaderXFrameOptions))
}
