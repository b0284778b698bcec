package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/observation"
)

func TestAggregateRichnessScenario(t *testing.T) {
	t.Parallel()

	merged := observation.Merge([]observation.Observation{
		sighting("A", "Species x", "5", "2024-05-01 08:00", 32.0, 34.8),
		sighting("A", "Species y", "X", "2024-05-01 09:00", 32.0, 34.8),
		sighting("B", "Species x", "3", "2024-05-01 07:00", 32.1, 34.9),
	})

	locs := Aggregate(merged, nil)
	require.Len(t, locs, 2)

	byID := map[string]AggregatedLocation{}
	for _, l := range locs {
		byID[l.LocationID] = l
	}
	assert.Equal(t, 2, byID["A"].SpeciesCount)
	assert.Equal(t, 2, byID["A"].ObservationCount)
	assert.Equal(t, 6, byID["A"].IndividualCount)
	assert.Equal(t, "2024-05-01 09:00", byID["A"].LastObservedAt)
	assert.Equal(t, 1, byID["B"].SpeciesCount)
	assert.Equal(t, 1, byID["B"].ObservationCount)
	assert.Nil(t, byID["A"].DistanceKm)

	ranked := RankLocations(locs, SortBySpecies, 10)
	require.Len(t, ranked, 2)
	assert.Equal(t, "A", ranked[0].LocationID)
	assert.Equal(t, "B", ranked[1].LocationID)
}

func TestAggregateFirstSeenCoordinatesAndDistance(t *testing.T) {
	t.Parallel()

	ref := geo.Point{Latitude: 32.0, Longitude: 34.8}
	obs := []observation.Observation{
		sighting("A", "Species x", "1", "2024-05-01 08:00", 32.0, 34.8),
		sighting("A", "Species y", "1", "2024-05-01 08:00", 40.0, 10.0),
	}

	locs := Aggregate(obs, &ref)
	require.Len(t, locs, 1)
	assert.InDelta(t, 32.0, locs[0].Point.Latitude, 1e-9)
	require.NotNil(t, locs[0].DistanceKm)
	assert.Zero(t, *locs[0].DistanceKm)
}

func TestAggregateSkipsObservationsWithoutCoordinates(t *testing.T) {
	t.Parallel()

	noCoords := sighting("C", "Species z", "2", "2024-05-01 08:00", 0, 0)
	noCoords.HasCoordinates = false

	locs := Aggregate([]observation.Observation{
		noCoords,
		sighting("D", "Species z", "", "2024-05-01 08:00", 31.0, 35.0),
	}, nil)
	require.Len(t, locs, 1)
	assert.Equal(t, "D", locs[0].LocationID)
	assert.Equal(t, 1, locs[0].IndividualCount)
}

func TestAggregateWithSites(t *testing.T) {
	t.Parallel()

	sites := []observation.Hotspot{
		{LocationID: "H1", Name: "Empty marsh", Point: geo.Point{Latitude: 31.5, Longitude: 34.6}},
		{LocationID: "A", Name: "Park A", Point: geo.Point{Latitude: 32.0, Longitude: 34.8}},
	}
	obs := []observation.Observation{sighting("A", "Species x", "4", "2024-05-01 08:00", 32.0, 34.8)}

	locs := Aggregate(obs, nil, WithSites(sites))
	require.Len(t, locs, 2)
	assert.Equal(t, "H1", locs[0].LocationID)
	assert.Zero(t, locs[0].ObservationCount)
	assert.True(t, locs[0].IsHotspot)
	assert.Equal(t, "Park A", locs[1].LocationName)
	assert.Equal(t, 1, locs[1].SpeciesCount)
}

func TestAggregateLastObserver(t *testing.T) {
	t.Parallel()

	early := sighting("A", "Species x", "1", "2024-05-01 06:00", 32, 34)
	early.ObserverName = "early bird"
	late := sighting("A", "Species y", "1", "2024-05-02 06:00", 32, 34)
	late.ObserverName = "night owl"

	locs := Aggregate([]observation.Observation{early, late}, nil)
	require.Len(t, locs, 1)
	assert.Equal(t, "night owl", locs[0].LastObserver)
	assert.Equal(t, "2024-05-02 06:00", locs[0].LastObservedAt)
}
