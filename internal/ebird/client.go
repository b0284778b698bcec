package ebird

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/httpclient"
	"github.com/tphakala/hotspot-explorer/internal/logger"
)

const (
	maxResponseBytes   = 32 << 20
	maxLoggedBodyBytes = 500
)

type cacheKind string

const (
	kindHotspots     cacheKind = "hotspots"
	kindObservations cacheKind = "observations"
	kindTaxonomy     cacheKind = "taxonomy"
)

type tokenContextKey struct{}

// WithAPIToken returns a context whose eBird calls authenticate with token
// instead of the client's configured key.
func WithAPIToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// Client provides methods for interacting with the eBird API. Responses are
// cached under keys that leave out the token; cached data is only served to
// requests authenticated with the configured APIKey.
type Client struct {
	config   Config
	http     *httpclient.Client
	ownsHTTP bool
	cache    *cache.Cache
	limiter  *rate.Limiter
	log      logger.Logger
	recorder Recorder

	firstCallMu sync.Once

	metrics struct {
		apiCalls      atomic.Int64
		cacheHits     atomic.Int64
		cacheMisses   atomic.Int64
		apiErrors     atomic.Int64
		totalDuration atomic.Int64 // nanoseconds
	}
}

// NewClient creates a new eBird API client. Zero config fields take the
// DefaultConfig values. An empty APIKey is allowed; callers may supply a
// token per request with WithAPIToken.
func NewClient(config Config) (*Client, error) {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if u, err := url.Parse(config.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid eBird base URL %q", config.BaseURL).
			Category(errors.CategoryConfiguration).
			Component("ebird").
			Build()
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaults.RateLimit
	}
	if config.Burst <= 0 {
		config.Burst = defaults.Burst
	}
	if config.Retries <= 0 {
		config.Retries = defaults.Retries
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = defaults.RetryBackoff
	}
	if config.HotspotTTL <= 0 {
		config.HotspotTTL = defaults.HotspotTTL
	}
	if config.ObservationTTL <= 0 {
		config.ObservationTTL = defaults.ObservationTTL
	}
	if config.TaxonomyTTL <= 0 {
		config.TaxonomyTTL = defaults.TaxonomyTTL
	}

	log := config.Logger
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	client := &Client{
		config:   config,
		http:     config.HTTPClient,
		cache:    cache.New(config.ObservationTTL, 2*config.ObservationTTL),
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst),
		log:      log.Module("ebird"),
		recorder: config.Metrics,
	}
	if client.http == nil {
		client.http = httpclient.New(&httpclient.Config{DefaultTimeout: config.Timeout})
		client.ownsHTTP = true
	}
	client.http.SetAfterResponseHook(client.traceRoundTrip)

	client.log.Info("eBird client initialized",
		logger.String("base_url", config.BaseURL),
		logger.Float64("rate_limit_rps", config.RateLimit),
		logger.Duration("hotspot_ttl", config.HotspotTTL),
		logger.Duration("observation_ttl", config.ObservationTTL),
		logger.Bool("api_key_configured", config.APIKey != ""))

	return client, nil
}

// Close releases idle connections of a client-owned HTTP client.
func (c *Client) Close() {
	if c.ownsHTTP {
		c.http.Close()
	}
	c.log.Debug("eBird client closed")
}

func (c *Client) traceRoundTrip(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.log.Trace("eBird round trip",
		logger.String("path", req.URL.Path),
		logger.Int("status_code", status),
		logger.Duration("elapsed", elapsed),
		logger.Bool("failed", err != nil))
}

func (c *Client) tokenFor(ctx context.Context) string {
	if token, ok := ctx.Value(tokenContextKey{}).(string); ok && token != "" {
		return token
	}
	return c.config.APIKey
}

func (c *Client) readsCache(ctx context.Context) bool {
	return c.config.APIKey != "" && c.tokenFor(ctx) == c.config.APIKey
}

func (c *Client) ttlFor(kind cacheKind) time.Duration {
	switch kind {
	case kindHotspots:
		return c.config.HotspotTTL
	case kindTaxonomy:
		return c.config.TaxonomyTTL
	default:
		return c.config.ObservationTTL
	}
}

func (c *Client) recordCache(kind cacheKind, hit bool) {
	if hit {
		c.metrics.cacheHits.Add(1)
	} else {
		c.metrics.cacheMisses.Add(1)
	}
	if c.recorder != nil {
		c.recorder.RecordCacheLookup(string(kind), hit)
	}
}

// endpointURL joins escaped path segments onto the base URL.
func (c *Client) endpointURL(query url.Values, segments ...string) string {
	var b strings.Builder
	b.WriteString(c.config.BaseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}

// fetchSpec describes one cacheable GET.
type fetchSpec struct {
	kind     cacheKind
	endpoint string // metrics and log label
	key      string
	url      string
}

// fetchCached serves spec from the cache or fetches, converts and caches it.
// Returned slices are copies; cached entries are never handed out.
// Only requests made with the configured key read the cache. Any other token
// goes upstream, so eBird decides whether it is valid.
func fetchCached[W, T any](ctx context.Context, c *Client, spec fetchSpec, convert func(*W) T) ([]T, error) {
	if c.readsCache(ctx) {
		if cached, found := c.cache.Get(spec.key); found {
			if items, ok := cached.([]T); ok {
				c.recordCache(spec.kind, true)
				return slices.Clone(items), nil
			}
		}
	}
	c.recordCache(spec.kind, false)

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var wire []W
	if err := c.doRequestWithRetry(reqCtx, spec.endpoint, spec.url, &wire); err != nil {
		return nil, err
	}

	items := make([]T, 0, len(wire))
	for i := range wire {
		items = append(items, convert(&wire[i]))
	}
	c.cache.Set(spec.key, items, c.ttlFor(spec.kind))

	c.log.Debug("eBird response cached",
		logger.String("endpoint", spec.endpoint),
		logger.String("cache_key", spec.key),
		logger.Int("entries", len(items)))

	return slices.Clone(items), nil
}

// doRequest performs a single rate-limited GET and decodes the JSON body into result.
func (c *Client) doRequest(ctx context.Context, endpoint, rawURL string, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		category := errors.CategoryTimeout
		if errors.Is(ctx.Err(), context.Canceled) {
			category = errors.CategoryCancellation
		}
		return errors.New(err).
			Category(category).
			Context("endpoint", endpoint).
			Component("ebird").
			Build()
	}

	start := time.Now()
	c.metrics.apiCalls.Add(1)

	header := http.Header{"Accept": {"application/json"}}
	if token := c.tokenFor(ctx); token != "" {
		header.Set("X-eBirdApiToken", token)
	}

	resp, err := c.http.Get(ctx, rawURL, header)
	if err != nil {
		c.metrics.apiErrors.Add(1)
		c.recordRequest(endpoint, "error", start)

		category := errors.CategoryNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			category = errors.CategoryTimeout
		}
		c.log.Warn("eBird API request failed",
			logger.Error(err),
			logger.String("endpoint", endpoint))
		return errors.Newf("HTTP request failed: %w", err).
			Category(category).
			Context("endpoint", endpoint).
			Context("url", rawURL).
			Component("ebird").
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.apiErrors.Add(1)
		c.recordRequest(endpoint, "error", start)
		return errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("endpoint", endpoint).
			Context("status_code", resp.StatusCode).
			Component("ebird").
			Build()
	}

	c.recordRequest(endpoint, statusClass(resp.StatusCode), start)

	if resp.StatusCode >= http.StatusBadRequest {
		c.metrics.apiErrors.Add(1)
		return c.apiError(endpoint, rawURL, resp.StatusCode, bodyBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		c.metrics.apiErrors.Add(1)
		c.log.Error("eBird API returned non-JSON response",
			logger.Int("status_code", resp.StatusCode),
			logger.String("content_type", contentType),
			logger.String("endpoint", endpoint),
			logger.String("response_preview", preview(bodyBytes)))
		return errors.Newf("eBird API returned non-JSON response (Content-Type: %s)", contentType).
			Category(errors.CategoryNetwork).
			Context("status_code", resp.StatusCode).
			Context("content_type", contentType).
			Context("endpoint", endpoint).
			Component("ebird").
			Build()
	}

	if err := json.Unmarshal(bodyBytes, result); err != nil {
		c.log.Error("Failed to parse eBird API response",
			logger.Error(err),
			logger.String("endpoint", endpoint),
			logger.Int("response_size", len(bodyBytes)),
			logger.String("response_preview", preview(bodyBytes)))
		return errors.Newf("failed to parse response: %w", err).
			Category(errors.CategoryFileParsing).
			Context("endpoint", endpoint).
			Context("response_size", len(bodyBytes)).
			Component("ebird").
			Build()
	}

	duration := time.Since(start)
	c.metrics.totalDuration.Add(int64(duration))

	c.firstCallMu.Do(func() {
		c.log.Info("eBird API authentication successful",
			logger.String("endpoint", endpoint))
	})
	c.log.Debug("eBird API request successful",
		logger.String("endpoint", endpoint),
		logger.Int64("duration_ms", duration.Milliseconds()),
		logger.Int("response_size", len(bodyBytes)))

	return nil
}

// apiError converts an error response into an EnhancedError, using the
// structured eBird error body when one is present.
func (c *Client) apiError(endpoint, rawURL string, status int, body []byte) error {
	var apiErr Error
	detail := preview(body)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Detail != "" {
		detail = apiErr.Detail
	}

	fields := []logger.Field{
		logger.Int("status_code", status),
		logger.String("endpoint", endpoint),
		logger.String("detail", detail),
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.log.Error("eBird API authentication failed, check the API token", fields...)
	case status >= http.StatusInternalServerError:
		c.log.Warn("eBird API server error", fields...)
	default:
		c.log.Debug("eBird API error response", fields...)
	}

	return errors.Newf("eBird API error (status %d): %s", status, detail).
		Category(getErrorCategory(status)).
		Context("status_code", status).
		Context("error_title", apiErr.Title).
		Context("endpoint", endpoint).
		Context("url", rawURL).
		Component("ebird").
		Build()
}

// doRequestWithRetry wraps doRequest with linear backoff for transient failures
func (c *Client) doRequestWithRetry(ctx context.Context, endpoint, rawURL string, result any) error {
	maxAttempts := c.config.Retries
	var lastErr error

	for attempt := range maxAttempts {
		err := c.doRequest(ctx, endpoint, rawURL, result)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil || attempt == maxAttempts-1 {
			break
		}

		delay := time.Duration(attempt+1) * c.config.RetryBackoff
		c.log.Warn("eBird API request failed, retrying",
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", maxAttempts),
			logger.Int64("delay_ms", delay.Milliseconds()),
			logger.String("endpoint", endpoint),
			logger.Error(err))
		if c.recorder != nil {
			c.recorder.RecordRetry(endpoint)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		}
	}

	return lastErr
}

func isRetryable(err error) bool {
	var enhancedErr *errors.EnhancedError
	if !errors.As(err, &enhancedErr) {
		return true
	}
	switch enhancedErr.Category {
	case errors.CategoryConfiguration, errors.CategoryNotFound, errors.CategoryValidation,
		errors.CategoryCancellation, errors.CategoryTimeout:
		return false
	}
	if status := enhancedErr.StatusCode(); status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return false
	}
	return true
}

func (c *Client) recordRequest(endpoint, outcome string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordUpstreamRequest(endpoint, outcome, time.Since(start))
	}
}

// ClearCache drops every cached hotspot list, observation batch and taxonomy.
func (c *Client) ClearCache() {
	n := c.cache.ItemCount()
	c.cache.Flush()
	c.log.Info("eBird cache cleared", logger.Int("entries", n))
}

// CacheItemCount returns the number of live cache entries.
func (c *Client) CacheItemCount() int {
	return c.cache.ItemCount()
}

// Metrics represents eBird client performance metrics
type Metrics struct {
	APICalls      int64         `json:"api_calls"`
	CacheHits     int64         `json:"cache_hits"`
	CacheMisses   int64         `json:"cache_misses"`
	APIErrors     int64         `json:"api_errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// GetMetrics returns current client metrics
func (c *Client) GetMetrics() Metrics {
	m := Metrics{
		APICalls:      c.metrics.apiCalls.Load(),
		CacheHits:     c.metrics.cacheHits.Load(),
		CacheMisses:   c.metrics.cacheMisses.Load(),
		APIErrors:     c.metrics.apiErrors.Load(),
		TotalDuration: time.Duration(c.metrics.totalDuration.Load()),
	}
	if m.APICalls > 0 {
		m.AvgDuration = m.TotalDuration / time.Duration(m.APICalls)
	}
	return m
}

// getErrorCategory determines the appropriate error category based on HTTP status code
func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CategoryConfiguration
	case http.StatusTooManyRequests:
		return errors.CategoryLimit
	case http.StatusNotFound:
		return errors.CategoryNotFound
	case http.StatusBadRequest:
		return errors.CategoryValidation
	default:
		return errors.CategoryNetwork
	}
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

func preview(body []byte) string {
	if len(body) > maxLoggedBodyBytes {
		return string(body[:maxLoggedBodyBytes]) + "..."
	}
	return string(body)
}
