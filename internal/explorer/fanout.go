package explorer

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/logger"
	"github.com/tphakala/hotspot-explorer/internal/observation"
)

// Batch source labels, used in logs and metrics.
const (
	sourceRegionHotspots = "region_hotspots"
	sourceRadiusHotspots = "radius_hotspots"
	sourceLocation       = "location"
	sourceRadius         = "radius"
	sourceNotable        = "notable"
	sourceSpecies        = "species"
)

// fanOut runs n calls on at most workers goroutines, each under its own
// timeout. Results land at the index of their call, so the output order never
// depends on completion order.
func fanOut[T any](ctx context.Context, workers int, timeout time.Duration, n int, call func(ctx context.Context, i int) (T, error)) ([]T, []error) {
	values := make([]T, n)
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range n {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			values[i], errs[i] = call(callCtx, i)
			return nil
		})
	}
	_ = g.Wait() // calls never return errors to the group

	return values, errs
}

// batchTask is one observation read.
type batchTask struct {
	source string
	target string
	fetch  func(ctx context.Context) ([]observation.Observation, error)
}

// fetchBatches runs tasks concurrently and returns their batches in task
// order with the number of reads that succeeded. Failed reads are logged,
// counted and left as nil batches.
func (e *Explorer) fetchBatches(ctx context.Context, log logger.Logger, tasks []batchTask, stats *FetchStats) ([][]observation.Observation, int) {
	batches, errs := fanOut(ctx, e.workers, e.callTimeout, len(tasks),
		func(ctx context.Context, i int) ([]observation.Observation, error) {
			return tasks[i].fetch(ctx)
		})

	ok := 0
	for i, err := range errs {
		if !e.tally(log, stats, tasks[i].source, tasks[i].target, err) {
			batches[i] = nil
			continue
		}
		ok++
	}
	return batches, ok
}

// discoverHotspots lists the hotspots of every region, or of the radius
// around center when no region is given. Lists are concatenated in region
// order, deduplicated by location ID and capped at limit.
func (e *Explorer) discoverHotspots(ctx context.Context, log logger.Logger, regions []string, center *geo.Point, radiusKm float64, limit int, stats *FetchStats) []observation.Hotspot {
	var lists [][]observation.Hotspot
	if len(regions) > 0 {
		var errs []error
		lists, errs = fanOut(ctx, e.workers, e.callTimeout, len(regions),
			func(ctx context.Context, i int) ([]observation.Hotspot, error) {
				return e.gw.HotspotsByRegion(ctx, regions[i])
			})
		for i, err := range errs {
			if !e.tally(log, stats, sourceRegionHotspots, regions[i], err) {
				lists[i] = nil
			}
		}
	} else if center != nil {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		list, err := e.gw.HotspotsByRadius(callCtx, *center, radiusKm)
		cancel()
		if e.tally(log, stats, sourceRadiusHotspots, center.String(), err) {
			lists = append(lists, list)
		}
	}

	var all []observation.Hotspot
	for _, l := range lists {
		all = append(all, l...)
	}
	hotspots := observation.DedupHotspots(all)
	if limit > 0 && len(hotspots) > limit {
		log.Debug("capping hotspot list",
			logger.Int("discovered", len(hotspots)),
			logger.Int("limit", limit))
		hotspots = hotspots[:limit]
	}
	stats.Hotspots = len(hotspots)
	return hotspots
}

func (e *Explorer) hotspotTasks(hotspots []observation.Hotspot, backDays int) []batchTask {
	tasks := make([]batchTask, 0, len(hotspots))
	for _, h := range hotspots {
		tasks = append(tasks, batchTask{
			source: sourceLocation,
			target: h.LocationID,
			fetch: func(ctx context.Context) ([]observation.Observation, error) {
				return e.gw.ObservationsByLocation(ctx, h.LocationID, backDays)
			},
		})
	}
	return tasks
}

func (e *Explorer) radiusTask(center geo.Point, radiusKm float64, backDays int, notable bool) batchTask {
	source := sourceRadius
	if notable {
		source = sourceNotable
	}
	return batchTask{
		source: source,
		target: center.String(),
		fetch: func(ctx context.Context) ([]observation.Observation, error) {
			return e.gw.ObservationsByRadius(ctx, center, radiusKm, backDays, notable)
		},
	}
}

// tally counts one finished read and reports whether its result is usable.
// A not-found answer means upstream was reached and had nothing, so it counts
// as an empty success.
func (e *Explorer) tally(log logger.Logger, stats *FetchStats, source, target string, err error) bool {
	stats.Requested++
	if err != nil && errors.IsNotFound(err) {
		log.Info("upstream has no data for target",
			logger.String("source", source),
			logger.String("target", target),
			logger.Error(err))
		err = nil
	}
	e.recordBatch(source, err == nil)
	if err == nil {
		stats.Succeeded++
		return true
	}
	stats.Failed++

	level := logger.LogLevelWarn
	if errors.IsCategory(err, errors.CategoryCancellation) {
		level = logger.LogLevelDebug
	}
	log.Log(level, "upstream read failed, continuing without it",
		logger.String("source", source),
		logger.String("target", target),
		logger.String("category", string(errors.CategoryOf(err))),
		logger.Error(err))
	return false
}
