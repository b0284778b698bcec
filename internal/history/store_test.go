package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/hotspot-explorer/internal/conf"
	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/explorer"
	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/ranking"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "history", "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func locationResult(id string, status explorer.Status, at time.Time, rows ...string) *explorer.LocationResult {
	res := &explorer.LocationResult{
		Summary: explorer.Summary{
			QueryID:     id,
			Status:      status,
			Stats:       explorer.FetchStats{Requested: 4, Succeeded: 3, Failed: 1, Hotspots: 3, RawRecords: 12, MergedRecords: 10},
			GeneratedAt: at,
		},
		SortBy: ranking.SortBySpecies,
	}
	for i, name := range rows {
		res.Rows = append(res.Rows, explorer.LocationRow{Rank: i + 1, LocationName: name})
	}
	return res
}

func TestRecordLocations(t *testing.T) {
	t.Parallel()
	t.Attr("component", "history")

	store := openTestStore(t)
	assert.Equal(t, DriverSQLite, store.Driver())

	at := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	q := explorer.LocationQuery{
		Regions:  []string{"IL-TA", "IL-HA"},
		Center:   &geo.Point{Latitude: 32.0853, Longitude: 34.7818},
		RadiusKm: 25,
		BackDays: 7,
		SortBy:   ranking.SortByIndividuals,
	}
	require.NoError(t, store.RecordLocations(t.Context(), q, locationResult("q-1", explorer.StatusOK, at, "Yarkon Park", "Hula Valley")))

	rec, err := store.Get(t.Context(), "q-1")
	require.NoError(t, err)
	assert.Equal(t, KindLocations, rec.Kind)
	assert.Equal(t, []string{"IL-TA", "IL-HA"}, rec.RegionList())
	require.NotNil(t, rec.Latitude)
	assert.InDelta(t, 32.0853, *rec.Latitude, 1e-9)
	assert.Equal(t, "individuals", rec.SortBy)
	assert.Equal(t, "ok", rec.Status)
	assert.Equal(t, 2, rec.Rows)
	assert.Equal(t, "Yarkon Park", rec.TopLocation)
	assert.Equal(t, 1, rec.Failed)
	assert.Equal(t, 10, rec.MergedRecords)
	assert.True(t, at.Equal(rec.CreatedAt))
}

func TestRecordSpecies(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	res := &explorer.SpeciesResult{
		Summary: explorer.Summary{QueryID: "q-s", Status: explorer.StatusNoMatches},
		Species: "Ardea alba",
	}
	require.NoError(t, store.RecordSpecies(t.Context(), explorer.SpeciesQuery{Species: "Ardea alba", Regions: []string{"IL-TA"}}, res))

	rec, err := store.Get(t.Context(), "q-s")
	require.NoError(t, err)
	assert.Equal(t, KindSpecies, rec.Kind)
	assert.Equal(t, "Ardea alba", rec.Species)
	assert.Equal(t, "no_matches", rec.Status)
	assert.Nil(t, rec.Latitude)
	assert.Empty(t, rec.TopLocation)
	assert.False(t, rec.CreatedAt.IsZero(), "missing timestamps are filled in")
}

func TestDuplicateQueryIDRejected(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	res := locationResult("dup", explorer.StatusOK, time.Now().UTC())
	require.NoError(t, store.RecordLocations(t.Context(), explorer.LocationQuery{}, res))

	err := store.RecordLocations(t.Context(), explorer.LocationQuery{}, res)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}

func TestRecent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	statuses := []explorer.Status{explorer.StatusOK, explorer.StatusUnreachable, explorer.StatusOK, explorer.StatusNoData}
	for i, status := range statuses {
		res := locationResult(string(rune('a'+i)), status, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.RecordLocations(t.Context(), explorer.LocationQuery{}, res))
	}
	species := &explorer.SpeciesResult{Summary: explorer.Summary{QueryID: "s", Status: explorer.StatusOK, GeneratedAt: base.Add(10 * time.Hour)}}
	require.NoError(t, store.RecordSpecies(t.Context(), explorer.SpeciesQuery{Species: "Corvus"}, species))

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"newest first", Filter{}, []string{"s", "d", "c", "b", "a"}},
		{"limit", Filter{Limit: 2}, []string{"s", "d"}},
		{"kind", Filter{Kind: KindLocations}, []string{"d", "c", "b", "a"}},
		{"status", Filter{Status: "ok"}, []string{"s", "c", "a"}},
		{"kind and status", Filter{Kind: KindLocations, Status: "unreachable"}, []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := store.Recent(t.Context(), tt.filter)
			require.NoError(t, err)
			ids := make([]string, len(records))
			for i := range records {
				ids[i] = records[i].QueryID
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err := store.Recent(t.Context(), Filter{Kind: "weather"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	counts, err := store.StatusCounts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"ok": 3, "unreachable": 1, "no_data": 1}, counts)
}

func TestGetUnknownQuery(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	_, err := store.Get(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestPrune(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	now := time.Now().UTC()
	for i, age := range []time.Duration{48 * time.Hour, 36 * time.Hour, time.Hour} {
		res := locationResult(string(rune('a'+i)), explorer.StatusOK, now.Add(-age))
		require.NoError(t, store.RecordLocations(t.Context(), explorer.LocationQuery{}, res))
	}

	deleted, err := store.Prune(t.Context(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	records, err := store.Recent(t.Context(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c", records[0].QueryID)
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	_, err := Open(Config{Driver: "postgres", DSN: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = Open(Config{Driver: DriverSQLite})
	require.Error(t, err)
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	cfg, err := ConfigFromSettings(&conf.HistorySettings{
		SQLite: conf.SQLiteSettings{Enabled: true, Path: "h.db"},
		MySQL:  conf.MySQLSettings{Enabled: true},
	})
	require.NoError(t, err)
	assert.Equal(t, Config{Driver: DriverSQLite, DSN: "h.db"}, cfg)

	cfg, err = ConfigFromSettings(&conf.HistorySettings{
		MySQL: conf.MySQLSettings{Enabled: true, Username: "u", Password: "p", Host: "h", Port: "3306", Database: "d"},
	})
	require.NoError(t, err)
	assert.Equal(t, DriverMySQL, cfg.Driver)
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN)

	_, err = ConfigFromSettings(&conf.HistorySettings{})
	require.Error(t, err)
}
