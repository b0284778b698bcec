package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/hotspot-explorer/internal/api/middleware"
	"github.com/tphakala/hotspot-explorer/internal/conf"
	"github.com/tphakala/hotspot-explorer/internal/explorer"
	"github.com/tphakala/hotspot-explorer/internal/history"
	"github.com/tphakala/hotspot-explorer/internal/logger"
	"github.com/tphakala/hotspot-explorer/internal/observability"
)

// Querier runs the ranking queries. *explorer.Explorer satisfies it.
type Querier interface {
	TopLocationsByRichness(ctx context.Context, q explorer.LocationQuery) (*explorer.LocationResult, error)
	TopObservationsForSpecies(ctx context.Context, q explorer.SpeciesQuery) (*explorer.SpeciesResult, error)
}

// CacheManager exposes the upstream response cache. *ebird.Client satisfies it.
type CacheManager interface {
	ClearCache()
	CacheItemCount() int
}

// HistoryReader reads the query journal. *history.Store satisfies it.
type HistoryReader interface {
	Recent(ctx context.Context, f history.Filter) ([]history.Record, error)
	Get(ctx context.Context, queryID string) (*history.Record, error)
}

// Server is the HTTP server of the explorer API.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	queries Querier
	cache   CacheManager
	history HistoryReader
	metrics *observability.Metrics
	version string

	startTime time.Time
	startOnce sync.Once
	errCh     chan error
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithCache enables the cache endpoint.
func WithCache(cache CacheManager) ServerOption {
	return func(s *Server) {
		s.cache = cache
	}
}

// WithHistory enables the history endpoints.
func WithHistory(h HistoryReader) ServerOption {
	return func(s *Server) {
		s.history = h
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates the server and registers its routes. settings supplies the
// region presets and the query defaults.
func New(config *Config, settings *conf.Settings, queries Querier, opts ...ServerOption) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if queries == nil {
		return nil, fmt.Errorf("a query runner is required")
	}

	s := &Server{
		config:    config,
		settings:  settings,
		queries:   queries,
		startTime: time.Now(),
		errCh:     make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewDiscardLogger()
	}
	s.log = s.log.Module("api")

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Logger = logger.NewEchoLoggerAdapter(s.log)

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("listen", config.Listen),
		logger.Bool("metrics", s.metrics != nil && config.MetricsPath != ""))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(echomw.RequestID())
	s.echo.Use(mw.NewRequestLogger(s.log))
	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}
	s.echo.Use(mw.NewCORS(mw.SecurityConfig{AllowedOrigins: s.config.AllowedOrigins}))
	s.echo.Use(mw.NewSecureHeaders())
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	v1 := s.echo.Group("/api/v1")
	v1.GET("/health", s.healthCheck)
	v1.GET("/locations/top", s.topLocations)
	v1.GET("/species/top", s.topSpecies)
	v1.GET("/regions", s.listRegions)
	v1.DELETE("/cache", s.clearCache)
	v1.GET("/history", s.listHistory)
	v1.GET("/history/:id", s.getHistory)

	if s.metrics != nil && s.config.MetricsPath != "" {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start begins serving in a background goroutine and returns immediately.
// Errors other than a normal shutdown are delivered through Run.
func (s *Server) Start() {
	s.startOnce.Do(func() {
		go func() {
			s.log.Info("starting HTTP server", logger.String("listen", s.config.Listen))
			if err := s.echo.Start(s.config.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.errCh <- fmt.Errorf("server error: %w", err)
			}
			close(s.errCh)
		}()
	})
}

// Run serves until ctx is cancelled or the listener fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	s.Start()

	select {
	case err, ok := <-s.errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		s.log.Info("shutdown signal received, initiating graceful shutdown")
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.log.Info("server shutdown complete")
	return nil
}
