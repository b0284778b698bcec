package ebird

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/logger"
	"github.com/tphakala/hotspot-explorer/internal/observation"
)

// ClampRadiusKm returns the radius actually sent upstream: non-positive values
// become DefaultRadiusKm and anything above MaxRadiusKm is capped.
func ClampRadiusKm(radiusKm float64) float64 {
	switch {
	case radiusKm <= 0 || math.IsNaN(radiusKm):
		return DefaultRadiusKm
	case radiusKm > MaxRadiusKm:
		return MaxRadiusKm
	default:
		return radiusKm
	}
}

// ClampLookbackDays bounds days to [1, MaxLookbackDays].
func ClampLookbackDays(days int) int {
	return min(max(days, 1), MaxLookbackDays)
}

// geoQuery builds the shared lat/lng/dist parameters. dist is sent as whole
// kilometres rounded up, coordinates with two decimals.
func (c *Client) geoQuery(center geo.Point, radiusKm float64) (url.Values, string) {
	effective := ClampRadiusKm(radiusKm)
	if effective != radiusKm {
		c.log.Debug("search radius clamped",
			logger.Float64("requested_km", radiusKm),
			logger.Float64("effective_km", effective))
	}

	lat := strconv.FormatFloat(center.Latitude, 'f', 2, 64)
	lng := strconv.FormatFloat(center.Longitude, 'f', 2, 64)
	dist := strconv.Itoa(int(math.Ceil(effective)))

	q := url.Values{}
	q.Set("lat", lat)
	q.Set("lng", lng)
	q.Set("dist", dist)
	return q, lat + "," + lng + ":" + dist
}

func validationError(format string, args ...any) error {
	return errors.Newf(format, args...).
		Category(errors.CategoryValidation).
		Component("ebird").
		Build()
}

// HotspotsByRegion lists the hotspots of an eBird region such as IL-TA.
func (c *Client) HotspotsByRegion(ctx context.Context, regionCode string) ([]observation.Hotspot, error) {
	regionCode = strings.ToUpper(strings.TrimSpace(regionCode))
	if regionCode == "" {
		return nil, validationError("region code is required")
	}

	return fetchCached(ctx, c, fetchSpec{
		kind:     kindHotspots,
		endpoint: "hotspots_region",
		key:      "hotspots:region:" + regionCode,
		url:      c.endpointURL(url.Values{"fmt": {"json"}}, "ref", "hotspot", regionCode),
	}, (*wireHotspot).toHotspot)
}

// HotspotsByRadius lists hotspots within radiusKm of center.
func (c *Client) HotspotsByRadius(ctx context.Context, center geo.Point, radiusKm float64) ([]observation.Hotspot, error) {
	q, key := c.geoQuery(center, radiusKm)
	q.Set("fmt", "json")

	return fetchCached(ctx, c, fetchSpec{
		kind:     kindHotspots,
		endpoint: "hotspots_geo",
		key:      "hotspots:geo:" + key,
		url:      c.endpointURL(q, "ref", "hotspot", "geo"),
	}, (*wireHotspot).toHotspot)
}

// ObservationsByLocation returns recent observations at one location,
// provisional records included.
func (c *Client) ObservationsByLocation(ctx context.Context, locationID string, lookbackDays int) ([]observation.Observation, error) {
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return nil, validationError("location ID is required")
	}
	back := strconv.Itoa(ClampLookbackDays(lookbackDays))

	q := url.Values{}
	q.Set("back", back)
	q.Set("includeProvisional", "true")
	q.Set("fmt", "json")

	return fetchCached(ctx, c, fetchSpec{
		kind:     kindObservations,
		endpoint: "obs_location",
		key:      "obs:location:" + locationID + ":" + back,
		url:      c.endpointURL(q, "data", "obs", locationID, "recent"),
	}, (*wireObservation).toObservation)
}

// ObservationsByRadius returns recent observations within radiusKm of center.
// notableOnly switches to the notable feed, fetched with full detail.
func (c *Client) ObservationsByRadius(ctx context.Context, center geo.Point, radiusKm float64, lookbackDays int, notableOnly bool) ([]observation.Observation, error) {
	q, key := c.geoQuery(center, radiusKm)
	back := strconv.Itoa(ClampLookbackDays(lookbackDays))
	q.Set("back", back)

	segments := []string{"data", "obs", "geo", "recent"}
	endpoint := "obs_geo"
	if notableOnly {
		segments = append(segments, "notable")
		endpoint = "obs_geo_notable"
		q.Set("detail", "full")
	} else {
		q.Set("includeProvisional", "true")
	}

	return fetchCached(ctx, c, fetchSpec{
		kind:     kindObservations,
		endpoint: endpoint,
		key:      fmt.Sprintf("obs:geo:%s:%s:%t", key, back, notableOnly),
		url:      c.endpointURL(q, segments...),
	}, (*wireObservation).toObservation)
}

// ObservationsBySpeciesInRadius returns recent observations of one species
// near center. The scientific name is resolved to an eBird species code
// through the taxonomy.
func (c *Client) ObservationsBySpeciesInRadius(ctx context.Context, scientificName string, center geo.Point, radiusKm float64, lookbackDays int) ([]observation.Observation, error) {
	code, err := c.SpeciesCode(ctx, scientificName)
	if err != nil {
		return nil, err
	}

	q, key := c.geoQuery(center, radiusKm)
	back := strconv.Itoa(ClampLookbackDays(lookbackDays))
	q.Set("back", back)
	q.Set("includeProvisional", "true")

	return fetchCached(ctx, c, fetchSpec{
		kind:     kindObservations,
		endpoint: "obs_geo_species",
		key:      "obs:species:" + code + ":" + key + ":" + back,
		url:      c.endpointURL(q, "data", "obs", "geo", "recent", code),
	}, (*wireObservation).toObservation)
}

// GetTaxonomy retrieves the eBird taxonomy in the configured locale.
func (c *Client) GetTaxonomy(ctx context.Context) ([]TaxonomyEntry, error) {
	q := url.Values{"fmt": {"json"}}
	if c.config.Locale != "" {
		q.Set("locale", c.config.Locale)
	}

	return fetchCached(ctx, c, fetchSpec{
		kind:     kindTaxonomy,
		endpoint: "taxonomy",
		key:      "taxonomy:" + c.config.Locale,
		url:      c.endpointURL(q, "ref", "taxonomy", "ebird"),
	}, func(e *TaxonomyEntry) TaxonomyEntry { return *e })
}

// SpeciesCode resolves a scientific name to its eBird species code with a
// case-insensitive exact match.
func (c *Client) SpeciesCode(ctx context.Context, scientificName string) (string, error) {
	scientificName = strings.TrimSpace(scientificName)
	if scientificName == "" {
		return "", validationError("scientific name is required")
	}

	taxonomy, err := c.GetTaxonomy(ctx)
	if err != nil {
		return "", err
	}

	for i := range taxonomy {
		if strings.EqualFold(taxonomy[i].ScientificName, scientificName) {
			return taxonomy[i].SpeciesCode, nil
		}
	}

	return "", errors.Newf("species not found in eBird taxonomy: %s", scientificName).
		Category(errors.CategoryNotFound).
		Context("scientific_name", scientificName).
		Component("ebird").
		Build()
}
