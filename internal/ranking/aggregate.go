// Package ranking groups observations by location and orders locations and
// sightings for the explorer views.
package ranking

import (
	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/observation"
)

// AggregatedLocation summarises every observation reported at one location.
type AggregatedLocation struct {
	LocationID       string    `json:"location_id"`
	LocationName     string    `json:"location_name"`
	Point            geo.Point `json:"point"`
	DistanceKm       *float64  `json:"distance_km,omitempty"`
	SpeciesCount     int       `json:"species_count"`
	ObservationCount int       `json:"observation_count"`
	IndividualCount  int       `json:"individual_count"`
	LastObservedAt   string    `json:"last_observed_at,omitempty"`
	LastObserver     string    `json:"last_observer,omitempty"`
	IsHotspot        bool      `json:"is_hotspot"`
}

type aggregateConfig struct {
	sites []observation.Hotspot
}

// AggregateOption customises Aggregate.
type AggregateOption func(*aggregateConfig)

// WithSites seeds the result with the given hotspots. Hotspots without any
// observation are reported with zero counts, hotspots that have observations
// take their name and coordinates from the hotspot list.
func WithSites(sites []observation.Hotspot) AggregateOption {
	return func(c *aggregateConfig) {
		c.sites = sites
	}
}

type accumulator struct {
	loc     AggregatedLocation
	species map[string]struct{}
}

// Aggregate groups observations by location ID. Observations without
// coordinates are skipped. Distances are measured from ref when it is non-nil.
// The output keeps first-seen order, seeded sites first.
func Aggregate(obs []observation.Observation, ref *geo.Point, opts ...AggregateOption) []AggregatedLocation {
	var cfg aggregateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	order := make([]string, 0, len(cfg.sites))
	groups := make(map[string]*accumulator, len(cfg.sites))

	for i := range cfg.sites {
		site := &cfg.sites[i]
		if _, ok := groups[site.LocationID]; ok {
			continue
		}
		groups[site.LocationID] = &accumulator{
			loc: AggregatedLocation{
				LocationID:   site.LocationID,
				LocationName: site.Name,
				Point:        site.Point,
				IsHotspot:    true,
			},
			species: make(map[string]struct{}),
		}
		order = append(order, site.LocationID)
	}

	for i := range obs {
		o := &obs[i]
		if !o.HasCoordinates {
			continue
		}

		acc, ok := groups[o.LocationID]
		if !ok {
			acc = &accumulator{
				loc: AggregatedLocation{
					LocationID:   o.LocationID,
					LocationName: o.LocationName,
					Point:        o.Point,
				},
				species: make(map[string]struct{}),
			}
			groups[o.LocationID] = acc
			order = append(order, o.LocationID)
		}

		acc.species[o.ScientificName] = struct{}{}
		acc.loc.ObservationCount++
		rank, _ := observation.Normalize(o.Quantity)
		acc.loc.IndividualCount += rank

		if acc.loc.ObservationCount == 1 || observation.CompareObservedAt(o.ObservedAt, acc.loc.LastObservedAt) > 0 {
			acc.loc.LastObservedAt = o.ObservedAt
			acc.loc.LastObserver = o.ObserverName
		}
	}

	out := make([]AggregatedLocation, 0, len(order))
	for _, id := range order {
		acc := groups[id]
		acc.loc.SpeciesCount = len(acc.species)
		if ref != nil {
			d := ref.DistanceTo(acc.loc.Point)
			acc.loc.DistanceKm = &d
		}
		out = append(out, acc.loc)
	}

	return out
}
