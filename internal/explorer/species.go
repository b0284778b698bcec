package explorer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/hotspot-explorer/internal/logger"
	"github.com/tphakala/hotspot-explorer/internal/observation"
	"github.com/tphakala/hotspot-explorer/internal/ranking"
)

const querySpecies = "species"

// TopObservationsForSpecies ranks the observations of one species by reported
// count, most recent first on ties. An error is returned only for an invalid
// query.
//
// With UseSpeciesFeed and no regions the species feed covers the radius on
// its own and no hotspots are read.
func (e *Explorer) TopObservationsForSpecies(ctx context.Context, q SpeciesQuery) (*SpeciesResult, error) {
	start := time.Now()
	q.normalize()
	if err := e.validateSpeciesQuery(&q); err != nil {
		e.recordQuery(querySpecies, statusInvalid, time.Since(start))
		return nil, err
	}

	queryID := uuid.NewString()
	ctx = logger.WithTraceID(ctx, queryID)
	log := e.log.WithContext(ctx).With(
		logger.String("query", querySpecies),
		logger.String("species", q.Species))
	log.Debug("species query started",
		logger.Any("regions", q.Regions),
		logger.Float64("radius_km", q.RadiusKm),
		logger.Int("back_days", q.BackDays),
		logger.Bool("species_feed", q.UseSpeciesFeed))

	var stats FetchStats
	var tasks []batchTask

	if q.UseSpeciesFeed {
		center := *q.Center
		tasks = append(tasks, batchTask{
			source: sourceSpecies,
			target: q.Species,
			fetch: func(ctx context.Context) ([]observation.Observation, error) {
				return e.gw.ObservationsBySpeciesInRadius(ctx, q.Species, center, q.RadiusKm, q.BackDays)
			},
		})
	}
	if len(q.Regions) > 0 || !q.UseSpeciesFeed {
		hotspots := e.discoverHotspots(ctx, log, q.Regions, q.Center, q.RadiusKm, q.MaxHotspots, &stats)
		tasks = append(tasks, e.hotspotTasks(hotspots, q.BackDays)...)
	}
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
	e.recordMerge(querySpecies, stats.RawRecords, stats.MergedRecords)

	matches := ranking.RankSpeciesWithOptions(merged, q.Species, q.Center, q.Limit, ranking.RankOptions{
		MatchCommonName: q.MatchCommonName,
		BestPerLocation: q.BestPerLocation,
	})

	result := &SpeciesResult{
		Summary: Summary{
			QueryID:     queryID,
			Stats:       stats,
			GeneratedAt: time.Now().UTC(),
		},
		Species: q.Species,
		Rows:    speciesRows(matches),
	}
	result.Status = classify(len(result.Rows), stats, batchesOK, len(tasks))

	elapsed := time.Since(start)
	e.recordQuery(querySpecies, result.Status, elapsed)
	log.Info("species query finished",
		logger.String("status", string(result.Status)),
		logger.Int("requested", stats.Requested),
		logger.Int("failed", stats.Failed),
		logger.Int("raw_records", stats.RawRecords),
		logger.Int("merged_records", stats.MergedRecords),
		logger.Int("rows", len(result.Rows)),
		logger.Duration("elapsed", elapsed))

	e.journalSpecies(ctx, log, &q, result)
	return result, nil
}
