package ranking

import (
	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/observation"
)

// sighting builds a located observation for tests.
func sighting(loc, sci, qty, at string, lat, lng float64) observation.Observation {
	o := observation.Observation{
		LocationID:     loc,
		LocationName:   "Site " + loc,
		ScientificName: sci,
		ObservedAt:     at,
		Point:          geo.Point{Latitude: lat, Longitude: lng},
		HasCoordinates: true,
	}
	if qty != "" {
		o.Quantity = observation.ParseQuantity(qty)
	}
	return o
}

func ptr(f float64) *float64 { return &f }
