package ranking

import (
	"fmt"
	"slices"
	"strings"
)

// SortKey selects the metric locations are ranked by.
type SortKey string

const (
	SortBySpecies      SortKey = "species"
	SortByObservations SortKey = "observations"
	SortByIndividuals  SortKey = "individuals"
)

// ParseSortKey accepts a sort key name, case-insensitively. Empty means species.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortBySpecies:
		return SortBySpecies, nil
	case SortByObservations:
		return SortByObservations, nil
	case SortByIndividuals:
		return SortByIndividuals, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

func (k SortKey) value(l *AggregatedLocation) int {
	switch k {
	case SortByObservations:
		return l.ObservationCount
	case SortByIndividuals:
		return l.IndividualCount
	default:
		return l.SpeciesCount
	}
}

// RankLocations orders locations by key, highest first. Ties go to the nearer
// location, with located ones ahead of those without a distance, then to name
// and location ID order.
// The input slice is not modified. A limit of zero or less returns every location.
func RankLocations(locs []AggregatedLocation, key SortKey, limit int) []AggregatedLocation {
	out := slices.Clone(locs)
	if out == nil {
		out = []AggregatedLocation{}
	}

	slices.SortStableFunc(out, func(a, b AggregatedLocation) int {
		va, vb := key.value(&a), key.value(&b)
		if va != vb {
			if va > vb {
				return -1
			}
			return 1
		}
		if c := compareDistance(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		if c := strings.Compare(a.LocationName, b.LocationName); c != 0 {
			return c
		}
		return strings.Compare(a.LocationID, b.LocationID)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// compareDistance orders nearer first and missing distances last.
func compareDistance(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}
