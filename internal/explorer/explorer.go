// Package explorer answers the two ranking queries of the hotspot explorer:
// the most species-rich locations around a point or inside a region, and the
// largest reported counts of one species.
//
// A query discovers hotspots, fans the observation reads out over a bounded
// worker group, merges the batches in a fixed order and hands the merged
// records to the ranking package. Upstream failures never fail a query; they
// degrade to empty batches and show up in the result's FetchStats and Status.
package explorer

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/logger"
	"github.com/tphakala/hotspot-explorer/internal/observation"
)

const (
	// DefaultWorkers is the fan-out width used when Options.Workers is zero.
	DefaultWorkers = 10
	// MaxWorkers caps the fan-out width.
	MaxWorkers = 15
	// DefaultCallTimeout bounds a single gateway call.
	DefaultCallTimeout = 30 * time.Second

	// DefaultLocationHotspots caps the hotspots read by a location query.
	DefaultLocationHotspots = 40
	// DefaultSpeciesHotspots caps the hotspots read by a species query.
	DefaultSpeciesHotspots = 50
)

// Gateway is the upstream data source. *ebird.Client satisfies it.
type Gateway interface {
	HotspotsByRegion(ctx context.Context, regionCode string) ([]observation.Hotspot, error)
	HotspotsByRadius(ctx context.Context, center geo.Point, radiusKm float64) ([]observation.Hotspot, error)
	ObservationsByLocation(ctx context.Context, locationID string, lookbackDays int) ([]observation.Observation, error)
	ObservationsByRadius(ctx context.Context, center geo.Point, radiusKm float64, lookbackDays int, notableOnly bool) ([]observation.Observation, error)
	ObservationsBySpeciesInRadius(ctx context.Context, scientificName string, center geo.Point, radiusKm float64, lookbackDays int) ([]observation.Observation, error)
}

// Recorder receives query metrics. *metrics.QueryMetrics satisfies it.
type Recorder interface {
	RecordQuery(query, status string, elapsed time.Duration)
	RecordBatch(source string, ok bool)
	RecordMerge(query string, raw, merged int)
}

// Journal keeps a record of finished queries. *history.Store satisfies it.
type Journal interface {
	RecordLocations(ctx context.Context, q LocationQuery, res *LocationResult) error
	RecordSpecies(ctx context.Context, q SpeciesQuery, res *SpeciesResult) error
}

// Options configures an Explorer.
type Options struct {
	// Workers is the number of concurrent gateway calls, 1 to MaxWorkers.
	Workers int
	// CallTimeout bounds each gateway call.
	CallTimeout time.Duration
	Logger      logger.Logger
	Metrics     Recorder
	// Journal, when set, is written after every valid query. Write failures
	// are logged and never fail the query.
	Journal Journal
}

// Explorer runs ranking queries against a Gateway. It holds no per-query
// state and is safe for concurrent use.
type Explorer struct {
	gw          Gateway
	workers     int
	callTimeout time.Duration
	log         logger.Logger
	recorder    Recorder
	journal     Journal
	validate    *validator.Validate
}

// New creates an Explorer. Workers outside 1 to MaxWorkers are clamped; zero
// takes DefaultWorkers.
func New(gw Gateway, opts Options) *Explorer {
	workers := opts.Workers
	switch {
	case workers == 0:
		workers = DefaultWorkers
	case workers < 1:
		workers = 1
	case workers > MaxWorkers:
		workers = MaxWorkers
	}

	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	return &Explorer{
		gw:          gw,
		workers:     workers,
		callTimeout: timeout,
		log:         log.Module("explorer"),
		recorder:    opts.Metrics,
		journal:     opts.Journal,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Workers reports the effective fan-out width.
func (e *Explorer) Workers() int {
	return e.workers
}

func (e *Explorer) recordQuery(query string, status Status, elapsed time.Duration) {
	if e.recorder != nil {
		e.recorder.RecordQuery(query, string(status), elapsed)
	}
}

func (e *Explorer) recordBatch(source string, ok bool) {
	if e.recorder != nil {
		e.recorder.RecordBatch(source, ok)
	}
}

func (e *Explorer) recordMerge(query string, raw, merged int) {
	if e.recorder != nil {
		e.recorder.RecordMerge(query, raw, merged)
	}
}

func (e *Explorer) journalLocations(ctx context.Context, log logger.Logger, q *LocationQuery, res *LocationResult) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordLocations(context.WithoutCancel(ctx), *q, res); err != nil {
		log.Warn("query journal write failed", logger.Error(err))
	}
}

func (e *Explorer) journalSpecies(ctx context.Context, log logger.Logger, q *SpeciesQuery, res *SpeciesResult) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordSpecies(context.WithoutCancel(ctx), *q, res); err != nil {
		log.Warn("query journal write failed", logger.Error(err))
	}
}
