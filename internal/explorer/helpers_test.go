package explorer

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/observation"
)

var telAviv = geo.Point{Latitude: 32.0853, Longitude: 34.7818}

var sitePoints = map[string]geo.Point{
	"LA": {Latitude: 32.10, Longitude: 34.80},
	"LB": {Latitude: 32.20, Longitude: 34.90},
	"LC": {Latitude: 31.90, Longitude: 34.70},
	"LD": {Latitude: 32.05, Longitude: 34.75},
	"LE": {Latitude: 32.30, Longitude: 34.85},
}

func site(id string) observation.Hotspot {
	return observation.Hotspot{LocationID: id, Name: "Hotspot " + id, Point: sitePoints[id]}
}

func sighting(loc, sci, qty, at, sub string) observation.Observation {
	o := observation.Observation{
		ScientificName: sci,
		LocationID:     loc,
		LocationName:   "Hotspot " + loc,
		Point:          sitePoints[loc],
		HasCoordinates: true,
		ObservedAt:     at,
		SubmissionID:   sub,
		ObserverName:   "observer " + sub,
	}
	if qty != "" {
		o.Quantity = observation.ParseQuantity(qty)
	}
	return o
}

// fakeGateway serves canned batches after a random delay so that completion
// order differs from call order.
type fakeGateway struct {
	regions   map[string][]observation.Hotspot
	nearby    []observation.Hotspot
	locations map[string][]observation.Observation
	recent    []observation.Observation
	notable   []observation.Observation
	species   map[string][]observation.Observation

	fail     map[string]error
	slow     map[string]time.Duration
	maxDelay time.Duration

	mu       sync.Mutex
	calls    []string
	inFlight int
	peak     int
}

func (f *fakeGateway) enter(ctx context.Context, key string) error {
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.inFlight++
	f.peak = max(f.peak, f.inFlight)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	delay := f.slow[key]
	if delay == 0 && f.maxDelay > 0 {
		delay = rand.N(f.maxDelay)
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.fail[key]
}

func (f *fakeGateway) HotspotsByRegion(ctx context.Context, regionCode string) ([]observation.Hotspot, error) {
	if err := f.enter(ctx, "region:"+regionCode); err != nil {
		return nil, err
	}
	return slices.Clone(f.regions[regionCode]), nil
}

func (f *fakeGateway) HotspotsByRadius(ctx context.Context, _ geo.Point, _ float64) ([]observation.Hotspot, error) {
	if err := f.enter(ctx, "nearby"); err != nil {
		return nil, err
	}
	return slices.Clone(f.nearby), nil
}

func (f *fakeGateway) ObservationsByLocation(ctx context.Context, locationID string, _ int) ([]observation.Observation, error) {
	if err := f.enter(ctx, "location:"+locationID); err != nil {
		return nil, err
	}
	return slices.Clone(f.locations[locationID]), nil
}

func (f *fakeGateway) ObservationsByRadius(ctx context.Context, _ geo.Point, _ float64, _ int, notableOnly bool) ([]observation.Observation, error) {
	key, batch := "recent", f.recent
	if notableOnly {
		key, batch = "notable", f.notable
	}
	if err := f.enter(ctx, key); err != nil {
		return nil, err
	}
	return slices.Clone(batch), nil
}

func (f *fakeGateway) ObservationsBySpeciesInRadius(ctx context.Context, scientificName string, _ geo.Point, _ float64, _ int) ([]observation.Observation, error) {
	if err := f.enter(ctx, "species:"+scientificName); err != nil {
		return nil, err
	}
	return slices.Clone(f.species[scientificName]), nil
}

func (f *fakeGateway) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeGateway) peakInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

type fakeRecorder struct {
	mu      sync.Mutex
	queries []string
	batches map[string]int
	raw     int
	merged  int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{batches: make(map[string]int)}
}

func (r *fakeRecorder) RecordQuery(query, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query+":"+status)
}

func (r *fakeRecorder) RecordBatch(source string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.batches[source+":ok"]++
	} else {
		r.batches[source+":failed"]++
	}
}

func (r *fakeRecorder) RecordMerge(_ string, raw, merged int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw, r.merged = raw, merged
}

func newTestExplorer(tb testing.TB, gw Gateway, opts ...func(*Options)) *Explorer {
	tb.Helper()
	o := Options{Workers: 4, CallTimeout: time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	return New(gw, o)
}

// centerPtr returns a fresh copy of telAviv.
func centerPtr() *geo.Point {
	p := telAviv
	return &p
}

type fakeJournal struct {
	mu        sync.Mutex
	locations []LocationQuery
	species   []SpeciesQuery
	statuses  []Status
	err       error
}

func (j *fakeJournal) RecordLocations(_ context.Context, q LocationQuery, res *LocationResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.locations = append(j.locations, q)
	j.statuses = append(j.statuses, res.Status)
	return j.err
}

func (j *fakeJournal) RecordSpecies(_ context.Context, q SpeciesQuery, res *SpeciesResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.species = append(j.species, q)
	j.statuses = append(j.statuses, res.Status)
	return j.err
}
