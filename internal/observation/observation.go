// Package observation holds the observation record shared by the gateway and the
// ranking code, together with quantity normalization and batch merging.
package observation

import (
	"strings"
	"time"

	"github.com/tphakala/hotspot-explorer/internal/geo"
)

// Layouts used by eBird for obsDt, most specific first.
var observedAtLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Observation is a single upstream sighting record.
type Observation struct {
	ScientificName string    `json:"scientific_name"`
	CommonName     string    `json:"common_name,omitempty"`
	SpeciesCode    string    `json:"species_code,omitempty"`
	LocationID     string    `json:"location_id"`
	LocationName   string    `json:"location_name"`
	Point          geo.Point `json:"point"`
	HasCoordinates bool      `json:"has_coordinates"`
	ObservedAt     string    `json:"observed_at"`
	Quantity       Quantity  `json:"quantity"`
	ObserverName   string    `json:"observer_name,omitempty"`
	SubmissionID   string    `json:"submission_id,omitempty"`
	Valid          bool      `json:"valid"`
	Reviewed       bool      `json:"reviewed"`
}

// Hotspot is a named public birding location returned by the hotspot reference endpoints.
type Hotspot struct {
	LocationID       string    `json:"location_id"`
	Name             string    `json:"name"`
	Point            geo.Point `json:"point"`
	CountryCode      string    `json:"country_code,omitempty"`
	RegionCode       string    `json:"region_code,omitempty"`
	LatestObservedAt string    `json:"latest_observed_at,omitempty"`
	SpeciesAllTime   int       `json:"species_all_time,omitempty"`
}

// ObservedTime parses ObservedAt using the eBird layouts.
func (o *Observation) ObservedTime() (time.Time, bool) {
	return parseObservedAt(o.ObservedAt)
}

func parseObservedAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range observedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CompareObservedAt orders two obsDt values, returning -1, 0 or +1.
// Values that both parse are compared as times, anything else falls back to string order.
func CompareObservedAt(a, b string) int {
	ta, okA := parseObservedAt(a)
	tb, okB := parseObservedAt(b)
	if okA && okB {
		return ta.Compare(tb)
	}
	return strings.Compare(a, b)
}

// DedupHotspots drops repeated location IDs, keeping the first occurrence and the input order.
func DedupHotspots(hotspots []Hotspot) []Hotspot {
	seen := make(map[string]struct{}, len(hotspots))
	out := make([]Hotspot, 0, len(hotspots))
	for i := range hotspots {
		id := hotspots[i].LocationID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, hotspots[i])
	}
	return out
}
