package explorer

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/hotspot-explorer/internal/logger"
	"github.com/tphakala/hotspot-explorer/internal/observation"
	"github.com/tphakala/hotspot-explorer/internal/ranking"
)

const queryLocations = "locations"

// TopLocationsByRichness ranks the locations found in the query's regions or
// radius. An error is returned only for an invalid query; upstream failures
// are reflected in the result's Status and Stats.
func (e *Explorer) TopLocationsByRichness(ctx context.Context, q LocationQuery) (*LocationResult, error) {
	start := time.Now()
	q.normalize()
	if err := e.validateLocationQuery(&q); err != nil {
		e.recordQuery(queryLocations, statusInvalid, time.Since(start))
		return nil, err
	}

	queryID := uuid.NewString()
	ctx = logger.WithTraceID(ctx, queryID)
	log := e.log.WithContext(ctx).With(logger.String("query", queryLocations))
	log.Debug("location query started",
		logger.Any("regions", q.Regions),
		logger.Float64("radius_km", q.RadiusKm),
		logger.Int("back_days", q.BackDays),
		logger.String("sort_by", string(q.SortBy)))

	var stats FetchStats
	hotspots := e.discoverHotspots(ctx, log, q.Regions, q.Center, q.RadiusKm, q.MaxHotspots, &stats)

	tasks := e.hotspotTasks(hotspots, q.BackDays)
	if q.Center != nil && q.IncludeRadiusFeed {
		tasks = append(tasks, e.radiusTask(*q.Center, q.RadiusKm, q.BackDays, false))
	}
	if q.Center != nil && q.IncludeNotable {
		tasks = append(tasks, e.radiusTask(*q.Center, q.RadiusKm, q.BackDays, true))
	}

	batches, batchesOK := e.fetchBatches(ctx, log, tasks, &stats)
	stats.RawRecords = countRecords(batches)
	merged := observation.Merge(batches...)
	stats.MergedRecords = len(merged)
	e.recordMerge(queryLocations, stats.RawRecords, stats.MergedRecords)

	locs := ranking.Aggregate(merged, q.Center, ranking.WithSites(hotspots))
	if !q.IncludeEmpty {
		locs = slices.DeleteFunc(locs, func(l ranking.AggregatedLocation) bool {
			return l.ObservationCount == 0
		})
	}
	ranked := ranking.RankLocations(locs, q.SortBy, q.Limit)

	result := &LocationResult{
		Summary: Summary{
			QueryID:     queryID,
			Stats:       stats,
			GeneratedAt: time.Now().UTC(),
		},
		SortBy: q.SortBy,
		Rows:   locationRows(ranked),
	}
	result.Status = classify(len(result.Rows), stats, batchesOK, len(tasks))

	elapsed := time.Since(start)
	e.recordQuery(queryLocations, result.Status, elapsed)
	log.Info("location query finished",
		logger.String("status", string(result.Status)),
		logger.Int("hotspots", stats.Hotspots),
		logger.Int("requested", stats.Requested),
		logger.Int("failed", stats.Failed),
		logger.Int("raw_records", stats.RawRecords),
		logger.Int("merged_records", stats.MergedRecords),
		logger.Int("rows", len(result.Rows)),
		logger.Duration("elapsed", elapsed))

	e.journalLocations(ctx, log, &q, result)
	return result, nil
}
