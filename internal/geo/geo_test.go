package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{"same point", 32.0853, 34.7818, 32.0853, 34.7818, 0, 0},
		{"tel aviv to jerusalem", 32.0853, 34.7818, 31.7683, 35.2137, 54.0, 1.0},
		{"one degree of latitude", 0, 0, 1, 0, 111.19, 0.01},
		{"one degree of longitude on equator", 0, 0, 0, 1, 111.19, 0.01},
		{"antipodal", 0, 0, 0, 180, math.Pi * EarthRadiusKm, 0.001},
		{"poles", 90, 0, -90, 0, math.Pi * EarthRadiusKm, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, got, tt.delta)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	t.Parallel()

	points := []Point{
		{32.7940, 34.9896},
		{31.2520, 34.7915},
		{-33.8688, 151.2093},
		{60.1699, 24.9384},
		{0, 0},
	}

	for _, a := range points {
		for _, b := range points {
			ab := a.DistanceTo(b)
			ba := b.DistanceTo(a)
			assert.InDelta(t, ab, ba, 1e-9, "distance %s -> %s not symmetric", a, b)
			assert.GreaterOrEqual(t, ab, 0.0)
		}
		assert.Zero(t, a.DistanceTo(a))
	}
}

func TestNewPoint(t *testing.T) {
	t.Parallel()

	p, err := NewPoint(32.08, 34.78)
	require.NoError(t, err)
	assert.InDelta(t, 32.08, p.Latitude, 1e-9)

	_, err = NewPoint(91, 0)
	require.Error(t, err)
	_, err = NewPoint(0, -181)
	require.Error(t, err)
	_, err = NewPoint(math.NaN(), 0)
	require.Error(t, err)
}

func FuzzDistanceKm(f *testing.F) {
	f.Add(60.1699, 24.9384, 32.0853, 34.7818)
	f.Add(0.0, 0.0, 0.0, 180.0)
	f.Add(-90.0, 0.0, 90.0, 0.0)

	f.Fuzz(func(t *testing.T, lat1, lon1, lat2, lon2 float64) {
		for _, v := range []float64{lat1, lon1, lat2, lon2} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return
			}
		}
		if math.Abs(lat1) > 90 || math.Abs(lat2) > 90 || math.Abs(lon1) > 180 || math.Abs(lon2) > 180 {
			return
		}

		d := DistanceKm(lat1, lon1, lat2, lon2)
		if math.IsNaN(d) || d < 0 || d > math.Pi*EarthRadiusKm+1e-6 {
			t.Fatalf("distance %v out of range", d)
		}
	})
}
