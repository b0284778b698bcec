package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	mw "github.com/tphakala/hotspot-explorer/internal/api/middleware"
	"github.com/tphakala/hotspot-explorer/internal/ebird"
	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/explorer"
	"github.com/tphakala/hotspot-explorer/internal/history"
	"github.com/tphakala/hotspot-explorer/internal/logger"
	"github.com/tphakala/hotspot-explorer/internal/params"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// RegionResponse is one entry of the region preset list.
type RegionResponse struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// queryContext forwards the caller's eBird token to the gateway.
func queryContext(c echo.Context) context.Context {
	ctx := c.Request().Context()
	if token := c.Request().Header.Get(mw.HeaderEBirdToken); token != "" {
		ctx = ebird.WithAPIToken(ctx, token)
	}
	return ctx
}

// resultStatusCode maps a query status to the response code. Every status
// but unreachable is a successful answer.
func resultStatusCode(status explorer.Status) int {
	if status == explorer.StatusUnreachable {
		return http.StatusBadGateway
	}
	return http.StatusOK
}

func bindScope(c echo.Context, b *echo.ValueBinder, scope *params.Scope) {
	var lat, lng float64
	b.Strings("region", &scope.Regions).
		Float64("lat", &lat).
		Float64("lng", &lng).
		Float64("radius", &scope.RadiusKm).
		Int("back", &scope.BackDays).
		Int("limit", &scope.Limit).
		Int("max_hotspots", &scope.MaxHotspots).
		Bool("notable", &scope.Notable).
		Bool("radius_feed", &scope.RadiusFeed)

	if c.QueryParam("lat") != "" {
		scope.Lat = &lat
	}
	if c.QueryParam("lng") != "" {
		scope.Lng = &lng
	}
}

// topLocations handles GET /api/v1/locations/top
func (s *Server) topLocations(c echo.Context) error {
	var p params.Locations
	b := echo.QueryParamsBinder(c)
	bindScope(c, b, &p.Scope)
	b.String("sort", &p.Sort).
		Bool("include_empty", &p.IncludeEmpty)
	if err := b.BindError(); err != nil {
		return s.handleError(c, err, "invalid query parameters", http.StatusBadRequest)
	}

	q, err := p.LocationQuery(s.settings)
	if err != nil {
		return s.handleError(c, err, "invalid location query", http.StatusBadRequest)
	}

	res, err := s.queries.TopLocationsByRichness(queryContext(c), q)
	if err != nil {
		return s.handleQueryError(c, err)
	}
	return c.JSON(resultStatusCode(res.Status), res)
}

// topSpecies handles GET /api/v1/species/top
func (s *Server) topSpecies(c echo.Context) error {
	p := params.Species{PerLocation: true}
	b := echo.QueryParamsBinder(c)
	bindScope(c, b, &p.Scope)
	b.String("name", &p.Name).
		Bool("species_feed", &p.SpeciesFeed).
		Bool("common_name", &p.CommonName).
		Bool("per_location", &p.PerLocation)
	if err := b.BindError(); err != nil {
		return s.handleError(c, err, "invalid query parameters", http.StatusBadRequest)
	}

	q, err := p.SpeciesQuery(s.settings)
	if err != nil {
		return s.handleError(c, err, "invalid species query", http.StatusBadRequest)
	}

	res, err := s.queries.TopObservationsForSpecies(queryContext(c), q)
	if err != nil {
		return s.handleQueryError(c, err)
	}
	return c.JSON(resultStatusCode(res.Status), res)
}

// listRegions handles GET /api/v1/regions
func (s *Server) listRegions(c echo.Context) error {
	regions := make([]RegionResponse, 0, len(s.settings.Regions))
	for _, r := range s.settings.Regions {
		regions = append(regions, RegionResponse{Name: r.Name, Code: r.Code})
	}
	return c.JSON(http.StatusOK, regions)
}

// clearCache handles DELETE /api/v1/cache
func (s *Server) clearCache(c echo.Context) error {
	if s.cache == nil {
		return s.handleError(c, nil, "cache is not available", http.StatusServiceUnavailable)
	}

	cleared := s.cache.CacheItemCount()
	s.cache.ClearCache()
	s.log.Info("upstream cache cleared", logger.Int("entries", cleared))

	return c.JSON(http.StatusOK, map[string]any{
		"cleared": cleared,
	})
}

// listHistory handles GET /api/v1/history
func (s *Server) listHistory(c echo.Context) error {
	if s.history == nil {
		return s.handleError(c, nil, "query history is not enabled", http.StatusServiceUnavailable)
	}

	var f history.Filter
	if err := echo.QueryParamsBinder(c).
		String("kind", &f.Kind).
		String("status", &f.Status).
		Int("limit", &f.Limit).
		BindError(); err != nil {
		return s.handleError(c, err, "invalid query parameters", http.StatusBadRequest)
	}

	records, err := s.history.Recent(c.Request().Context(), f)
	if err != nil {
		return s.handleQueryError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

// getHistory handles GET /api/v1/history/:id
func (s *Server) getHistory(c echo.Context) error {
	if s.history == nil {
		return s.handleError(c, nil, "query history is not enabled", http.StatusServiceUnavailable)
	}

	rec, err := s.history.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.handleQueryError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// healthCheck handles GET /api/v1/health
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)

	response := map[string]any{
		"status":         "healthy",
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	}
	if s.version != "" {
		response["version"] = s.version
	}
	if s.cache != nil {
		response["cache_items"] = s.cache.CacheItemCount()
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) handleQueryError(c echo.Context, err error) error {
	switch {
	case errors.IsCategory(err, errors.CategoryValidation):
		return s.handleError(c, err, "invalid query", http.StatusBadRequest)
	case errors.IsNotFound(err):
		return s.handleError(c, err, "not found", http.StatusNotFound)
	}
	return s.handleError(c, err, "query failed", http.StatusInternalServerError)
}

// handleError writes an ErrorResponse and logs it under the request ID.
func (s *Server) handleError(c echo.Context, err error, message string, code int) error {
	resp := ErrorResponse{
		Error:         message,
		Message:       message,
		Code:          code,
		CorrelationID: c.Response().Header().Get(echo.HeaderXRequestID),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	level := logger.LogLevelWarn
	if code >= http.StatusInternalServerError {
		level = logger.LogLevelError
	}
	s.log.Log(level, "API error",
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.String("error", resp.Error),
		logger.Int("code", code),
		logger.String("path", c.Request().URL.Path),
		logger.String("method", c.Request().Method))

	return c.JSON(code, resp)
}
