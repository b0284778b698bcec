package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/hotspot-explorer/internal/explorer"
	"github.com/tphakala/hotspot-explorer/internal/history"
)

func TestHistoryEndpoints(t *testing.T) {
	t.Parallel()
	t.Attr("component", "api")
	t.Attr("type", "integration")

	store, err := history.Open(history.Config{Driver: history.DriverSQLite, DSN: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	at := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordLocations(t.Context(),
		explorer.LocationQuery{Regions: []string{"IL-TA"}},
		&explorer.LocationResult{Summary: explorer.Summary{QueryID: "q-loc", Status: explorer.StatusOK, GeneratedAt: at}}))
	require.NoError(t, store.RecordSpecies(t.Context(),
		explorer.SpeciesQuery{Species: "Ardea alba"},
		&explorer.SpeciesResult{Summary: explorer.Summary{QueryID: "q-sp", Status: explorer.StatusUnreachable, GeneratedAt: at.Add(time.Hour)}}))

	s := newTestServer(t, &stubQuerier{}, WithHistory(store))

	t.Run("list", func(t *testing.T) {
		rec := serve(t, s, http.MethodGet, "/api/v1/history", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var records []history.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		require.Len(t, records, 2)
		assert.Equal(t, "q-sp", records[0].QueryID)
		assert.Equal(t, "q-loc", records[1].QueryID)
	})

	t.Run("filtered", func(t *testing.T) {
		rec := serve(t, s, http.MethodGet, "/api/v1/history?kind=locations&limit=5", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var records []history.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		require.Len(t, records, 1)
		assert.Equal(t, []string{"IL-TA"}, records[0].RegionList())
	})

	t.Run("unknown kind", func(t *testing.T) {
		rec := serve(t, s, http.MethodGet, "/api/v1/history?kind=weather", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := serve(t, s, http.MethodGet, "/api/v1/history?limit=many", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("single record", func(t *testing.T) {
		rec := serve(t, s, http.MethodGet, "/api/v1/history/q-sp", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"species":"Ardea alba"`)
		assert.Contains(t, rec.Body.String(), `"status":"unreachable"`)
	})

	t.Run("missing record", func(t *testing.T) {
		rec := serve(t, s, http.MethodGet, "/api/v1/history/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHistoryDisabled(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &stubQuerier{})
	rec := serve(t, s, http.MethodGet, "/api/v1/history", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
