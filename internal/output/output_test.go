package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/explorer"
	"github.com/tphakala/hotspot-explorer/internal/history"
	"github.com/tphakala/hotspot-explorer/internal/ranking"
)

func fptr(f float64) *float64 { return &f }

func sampleLocations() *explorer.LocationResult {
	return &explorer.LocationResult{
		Summary: explorer.Summary{
			QueryID: "q-1",
			Status:  explorer.StatusOK,
			Stats:   explorer.FetchStats{Requested: 3, Succeeded: 3, RawRecords: 4, MergedRecords: 3},
		},
		SortBy: ranking.SortBySpecies,
		Rows: []explorer.LocationRow{
			{
				Rank: 1, LocationID: "L1", LocationName: "Yarkon Park", Latitude: 32.1, Longitude: 34.81,
				DistanceKm: fptr(1.83), SpeciesCount: 2, ObservationCount: 2, IndividualCount: 6,
				LastObservedAt: "2026-10-01 08:00", LastObserver: "=HYPERLINK()", IsHotspot: true,
			},
			{Rank: 2, LocationID: "L2", LocationName: "Backyard", Latitude: -33.9, Longitude: 18.4, SpeciesCount: 1, ObservationCount: 1, IndividualCount: 1},
		},
	}
}

func sampleSpecies() *explorer.SpeciesResult {
	return &explorer.SpeciesResult{
		Summary: explorer.Summary{Status: explorer.StatusOK},
		Species: "Ardea alba",
		Rows: []explorer.SpeciesRow{
			{Rank: 1, ScientificName: "Ardea alba", CommonName: "Great Egret", Quantity: "12", RankValue: 12, LocationID: "L1", LocationName: "Hula Valley", Latitude: fptr(33.1), Longitude: fptr(35.6), ObservedAt: "2026-10-02 07:00"},
			{Rank: 2, ScientificName: "Ardea alba", Quantity: "X", RankValue: 1, LocationID: "L9", LocationName: "Somewhere"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{"": FormatTable, "TABLE": FormatTable, " json ": FormatJSON, "csv": FormatCSV} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestLocationsTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Locations(&buf, FormatTable, sampleLocations()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Contains(t, lines[0], "SPECIES")
	assert.Contains(t, lines[1], "Yarkon Park")
	assert.Contains(t, lines[1], "1.8")
	assert.Contains(t, lines[2], "Backyard *", "personal locations are marked")
	assert.Contains(t, lines[2], " - ", "missing distance renders as a dash")
}

func TestEmptyTableWritesNothing(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Locations(&buf, FormatTable, &explorer.LocationResult{}))
	assert.Empty(t, buf.String())
}

func TestLocationsCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Locations(&buf, FormatCSV, sampleLocations()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, locationHeader, records[0])
	assert.Equal(t, []string{
		"1", "L1", "Yarkon Park", "32.10000", "34.81000", "1.83", "2", "2", "6",
		"2026-10-01 08:00", "'=HYPERLINK()", "true",
	}, records[1])
	assert.Equal(t, "-33.90000", records[2][3], "coordinates are not escaped")
	assert.Empty(t, records[2][5])
}

func TestSpeciesFormats(t *testing.T) {
	t.Parallel()

	t.Run("table", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, Species(&buf, FormatTable, sampleSpecies()))
		out := buf.String()
		assert.Contains(t, out, "Great Egret (Ardea alba)")
		assert.Contains(t, out, "X")
	})

	t.Run("csv", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, Species(&buf, FormatCSV, sampleSpecies()))
		records, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "12", records[1][3])
		assert.Equal(t, "33.10000", records[1][7])
		assert.Equal(t, "X", records[2][3])
		assert.Empty(t, records[2][7], "no coordinates")
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, Species(&buf, FormatJSON, sampleSpecies()))
		var got explorer.SpeciesResult
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "Ardea alba", got.Species)
		require.Len(t, got.Rows, 2)
		assert.Nil(t, got.Rows[1].Latitude)
	})
}

func TestNotices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  explorer.Status
		stats   explorer.FetchStats
		want    string
		wantNot string
	}{
		{"clean success", explorer.StatusOK, explorer.FetchStats{Requested: 3, Succeeded: 3}, "", ""},
		{"partial success", explorer.StatusOK, explorer.FetchStats{Requested: 5, Succeeded: 3, Failed: 2}, "Partial results: 2 of 5", ""},
		{"nothing matched", explorer.StatusNoMatches, explorer.FetchStats{Requested: 2, Succeeded: 2, MergedRecords: 9}, "among 9 records read", "reach"},
		{"no data", explorer.StatusNoData, explorer.FetchStats{Requested: 2, Succeeded: 2}, "no observations for this area", "reach"},
		{"unreachable", explorer.StatusUnreachable, explorer.FetchStats{Requested: 4, Failed: 4}, "Could not reach the data source (4 of 4", "matched"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := &explorer.SpeciesResult{Summary: explorer.Summary{Status: tt.status, Stats: tt.stats}, Species: "Ardea alba"}
			got := SpeciesNotice(res)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, tt.want)
			if tt.wantNot != "" {
				assert.NotContains(t, got, tt.wantNot)
			}
		})
	}

	loc := &explorer.LocationResult{Summary: explorer.Summary{Status: explorer.StatusNoMatches, Stats: explorer.FetchStats{MergedRecords: 4}}}
	assert.Equal(t, "No location matched: 4 records were read but none ranked.", LocationNotice(loc))
}

func TestHistoryFormats(t *testing.T) {
	t.Parallel()

	lat, lng := 32.0853, 34.7818
	records := []history.Record{
		{
			QueryID: "0f3c2a1b-aaaa-bbbb-cccc-123456789abc", Kind: history.KindLocations, Regions: "IL-TA",
			RadiusKm: 25, BackDays: 7, SortBy: "species", Status: "ok", Requested: 4, Failed: 1, Rows: 3,
			TopLocation: "Yarkon Park", CreatedAt: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			QueryID: "short", Kind: history.KindSpecies, Species: "Ardea alba", Latitude: &lat, Longitude: &lng,
			Status: "unreachable", Requested: 2, Failed: 2, CreatedAt: time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC),
		},
	}

	var table bytes.Buffer
	require.NoError(t, History(&table, FormatTable, records))
	assert.Contains(t, table.String(), "0f3c2a1b ")
	assert.Contains(t, table.String(), "3/4")
	assert.Contains(t, table.String(), "Ardea alba @ 32.08530,34.78180")

	var csvBuf bytes.Buffer
	require.NoError(t, History(&csvBuf, FormatCSV, records))
	rows, err := csv.NewReader(&csvBuf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2026-10-01T08:00:00Z", rows[1][0])
	assert.Equal(t, "25", rows[1][7])

	var jsonBuf bytes.Buffer
	require.NoError(t, History(&jsonBuf, FormatJSON, nil))
	assert.JSONEq(t, "[]", jsonBuf.String())
}
