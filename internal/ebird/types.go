// Package ebird provides a client for the eBird API v2 hotspot and recent
// observation endpoints.
package ebird

import (
	"time"

	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/httpclient"
	"github.com/tphakala/hotspot-explorer/internal/logger"
	"github.com/tphakala/hotspot-explorer/internal/observation"
)

const (
	// MaxRadiusKm is the largest search radius the geo endpoints accept.
	MaxRadiusKm = 50.0
	// DefaultRadiusKm replaces a non-positive radius.
	DefaultRadiusKm = 25.0
	// MaxLookbackDays is the longest "back" window the recent endpoints accept.
	MaxLookbackDays = 30
)

// TaxonomyEntry represents a single entry from the eBird taxonomy
type TaxonomyEntry struct {
	ScientificName string  `json:"sciName"`
	CommonName     string  `json:"comName"`
	SpeciesCode    string  `json:"speciesCode"`
	Category       string  `json:"category"`   // species, spuh, slash, hybrid, etc.
	TaxonOrder     float64 `json:"taxonOrder"` // For sorting in taxonomic order
	Order          string  `json:"order"`
	FamilyComName  string  `json:"familyComName"`
	FamilySciName  string  `json:"familySciName"`
	ReportAs       string  `json:"reportAs,omitempty"`
}

// Error represents an eBird API error response
type Error struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	return e.Detail
}

// Recorder receives client telemetry. Implementations must be safe for concurrent use.
type Recorder interface {
	RecordUpstreamRequest(endpoint, outcome string, elapsed time.Duration)
	RecordCacheLookup(kind string, hit bool)
	RecordRetry(endpoint string)
}

// Config holds configuration for the eBird client
type Config struct {
	APIKey       string        // default token when the context carries none
	BaseURL      string        // API root without trailing slash
	Timeout      time.Duration // per call, applied on top of the caller's context
	RateLimit    float64       // requests per second
	Burst        int
	Retries      int           // attempts per request, including the first
	RetryBackoff time.Duration // linear backoff unit between attempts
	Locale       string        // taxonomy locale

	HotspotTTL     time.Duration
	ObservationTTL time.Duration
	TaxonomyTTL    time.Duration

	HTTPClient *httpclient.Client // nil creates a default client
	Logger     logger.Logger      // nil discards
	Metrics    Recorder           // optional
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.ebird.org/v2",
		Timeout:        30 * time.Second,
		RateLimit:      10,
		Burst:          1,
		Retries:        3,
		RetryBackoff:   500 * time.Millisecond,
		Locale:         "en",
		HotspotTTL:     time.Hour,
		ObservationTTL: 10 * time.Minute,
		TaxonomyTTL:    24 * time.Hour,
	}
}

// wireObservation mirrors the recent-observation JSON shape.
type wireObservation struct {
	SpeciesCode     string               `json:"speciesCode"`
	ComName         string               `json:"comName"`
	SciName         string               `json:"sciName"`
	LocID           string               `json:"locId"`
	LocName         string               `json:"locName"`
	ObsDt           string               `json:"obsDt"`
	HowMany         observation.Quantity `json:"howMany"`
	Lat             *float64             `json:"lat"`
	Lng             *float64             `json:"lng"`
	ObsValid        bool                 `json:"obsValid"`
	ObsReviewed     bool                 `json:"obsReviewed"`
	SubID           string               `json:"subId"`
	UserDisplayName string               `json:"userDisplayName"`
}

func (w *wireObservation) toObservation() observation.Observation {
	o := observation.Observation{
		ScientificName: w.SciName,
		CommonName:     w.ComName,
		SpeciesCode:    w.SpeciesCode,
		LocationID:     w.LocID,
		LocationName:   w.LocName,
		ObservedAt:     w.ObsDt,
		Quantity:       w.HowMany,
		ObserverName:   w.UserDisplayName,
		SubmissionID:   w.SubID,
		Valid:          w.ObsValid,
		Reviewed:       w.ObsReviewed,
	}
	if w.Lat != nil && w.Lng != nil {
		o.Point = geo.Point{Latitude: *w.Lat, Longitude: *w.Lng}
		o.HasCoordinates = true
	}
	return o
}

// wireHotspot mirrors the hotspot reference JSON shape.
type wireHotspot struct {
	LocID             string  `json:"locId"`
	LocName           string  `json:"locName"`
	Lat               float64 `json:"lat"`
	Lng               float64 `json:"lng"`
	CountryCode       string  `json:"countryCode"`
	Subnational1Code  string  `json:"subnational1Code"`
	LatestObsDt       string  `json:"latestObsDt"`
	NumSpeciesAllTime int     `json:"numSpeciesAllTime"`
}

func (w *wireHotspot) toHotspot() observation.Hotspot {
	return observation.Hotspot{
		LocationID:       w.LocID,
		Name:             w.LocName,
		Point:            geo.Point{Latitude: w.Lat, Longitude: w.Lng},
		CountryCode:      w.CountryCode,
		RegionCode:       w.Subnational1Code,
		LatestObservedAt: w.LatestObsDt,
		SpeciesAllTime:   w.NumSpeciesAllTime,
	}
}
