package ranking

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/observation"
)

// SpeciesMatch is one observation of the target species with its rank value.
type SpeciesMatch struct {
	Observation     observation.Observation `json:"observation"`
	RankValue       int                     `json:"rank_value"`
	DisplayQuantity string                  `json:"display_quantity"`
	DistanceKm      *float64                `json:"distance_km,omitempty"`
}

// RankOptions adjusts species matching.
type RankOptions struct {
	// MatchCommonName also matches the target against the common name.
	MatchCommonName bool
	// BestPerLocation keeps only the highest ranked match at each location.
	BestPerLocation bool
}

// RankSpecies returns the observations whose scientific name contains target,
// ignoring case, ordered by count and then by recency. The sort is stable so
// full ties keep input order. A limit of zero or less returns every match.
func RankSpecies(obs []observation.Observation, target string, ref *geo.Point, limit int) []SpeciesMatch {
	return RankSpeciesWithOptions(obs, target, ref, limit, RankOptions{})
}

// RankSpeciesWithOptions is RankSpecies with explicit matching options.
func RankSpeciesWithOptions(obs []observation.Observation, target string, ref *geo.Point, limit int, opts RankOptions) []SpeciesMatch {
	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(target))

	matches := make([]SpeciesMatch, 0)
	for i := range obs {
		o := &obs[i]
		if !containsFolded(folder, o.ScientificName, needle) &&
			(!opts.MatchCommonName || !containsFolded(folder, o.CommonName, needle)) {
			continue
		}

		rank, display := observation.Normalize(o.Quantity)
		m := SpeciesMatch{
			Observation:     *o,
			RankValue:       rank,
			DisplayQuantity: display,
		}
		if ref != nil && o.HasCoordinates {
			d := ref.DistanceTo(o.Point)
			m.DistanceKm = &d
		}
		matches = append(matches, m)
	}

	slices.SortStableFunc(matches, compareMatches)

	if opts.BestPerLocation {
		matches = bestPerLocation(matches)
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func containsFolded(folder cases.Caser, haystack, needle string) bool {
	if haystack == "" {
		return false
	}
	return strings.Contains(folder.String(haystack), needle)
}

func compareMatches(a, b SpeciesMatch) int {
	if a.RankValue != b.RankValue {
		if a.RankValue > b.RankValue {
			return -1
		}
		return 1
	}
	// most recent first
	return -observation.CompareObservedAt(a.Observation.ObservedAt, b.Observation.ObservedAt)
}

// bestPerLocation expects matches already sorted best first.
func bestPerLocation(matches []SpeciesMatch) []SpeciesMatch {
	seen := make(map[string]struct{}, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if _, dup := seen[m.Observation.LocationID]; dup {
			continue
		}
		seen[m.Observation.LocationID] = struct{}{}
		out = append(out, m)
	}
	return out
}
