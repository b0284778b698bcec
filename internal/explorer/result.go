package explorer

import (
	"time"

	"github.com/tphakala/hotspot-explorer/internal/observation"
	"github.com/tphakala/hotspot-explorer/internal/ranking"
)

// Status classifies a finished query.
type Status string

const (
	// StatusOK means the result has rows.
	StatusOK Status = "ok"
	// StatusNoMatches means upstream returned records but none matched or ranked.
	StatusNoMatches Status = "no_matches"
	// StatusNoData means at least one read succeeded and every batch was empty.
	StatusNoData Status = "no_data"
	// StatusUnreachable means no upstream read that could carry observations
	// succeeded.
	StatusUnreachable Status = "unreachable"

	statusInvalid Status = "invalid"
)

// FetchStats counts the upstream reads behind a result.
type FetchStats struct {
	Requested     int `json:"requested"`
	Succeeded     int `json:"succeeded"`
	Failed        int `json:"failed"`
	Hotspots      int `json:"hotspots"`
	RawRecords    int `json:"raw_records"`
	MergedRecords int `json:"merged_records"`
}

// Partial reports whether some but not all reads failed.
func (s FetchStats) Partial() bool {
	return s.Failed > 0 && s.Succeeded > 0
}

// Summary is shared by both result types.
type Summary struct {
	QueryID     string     `json:"query_id"`
	Status      Status     `json:"status"`
	Stats       FetchStats `json:"stats"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// UpstreamReached reports whether at least one upstream read that could carry
// observations succeeded. A hotspot list alone does not count when every
// observation read behind it failed.
func (s *Summary) UpstreamReached() bool {
	return s.Stats.Succeeded > 0 && s.Status != StatusUnreachable
}

// classify derives the status from the row count, the overall read counts
// and the observation reads (batchesOK of batches). Seeded empty rows do not
// outweigh a failure of every observation read.
func classify(rows int, stats FetchStats, batchesOK, batches int) Status {
	switch {
	case stats.Succeeded == 0, batches > 0 && batchesOK == 0:
		return StatusUnreachable
	case rows > 0:
		return StatusOK
	case stats.RawRecords == 0:
		return StatusNoData
	default:
		return StatusNoMatches
	}
}

// LocationRow is one ranked location.
type LocationRow struct {
	Rank             int      `json:"rank"`
	LocationID       string   `json:"location_id"`
	LocationName     string   `json:"location_name"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	DistanceKm       *float64 `json:"distance_km,omitempty"`
	SpeciesCount     int      `json:"species_count"`
	ObservationCount int      `json:"observation_count"`
	IndividualCount  int      `json:"individual_count"`
	LastObservedAt   string   `json:"last_observed_at,omitempty"`
	LastObserver     string   `json:"last_observer,omitempty"`
	IsHotspot        bool     `json:"is_hotspot"`
}

// LocationResult is the answer to a LocationQuery.
type LocationResult struct {
	Summary
	SortBy ranking.SortKey `json:"sort_by"`
	Rows   []LocationRow   `json:"rows"`
}

// SpeciesRow is one ranked observation of the searched species.
type SpeciesRow struct {
	Rank           int      `json:"rank"`
	ScientificName string   `json:"scientific_name"`
	CommonName     string   `json:"common_name,omitempty"`
	Quantity       string   `json:"quantity"`
	RankValue      int      `json:"rank_value"`
	LocationID     string   `json:"location_id"`
	LocationName   string   `json:"location_name"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	DistanceKm     *float64 `json:"distance_km,omitempty"`
	ObservedAt     string   `json:"observed_at"`
	ObserverName   string   `json:"observer_name,omitempty"`
	SubmissionID   string   `json:"submission_id,omitempty"`
}

// SpeciesResult is the answer to a SpeciesQuery.
type SpeciesResult struct {
	Summary
	Species string       `json:"species"`
	Rows    []SpeciesRow `json:"rows"`
}

func locationRows(locs []ranking.AggregatedLocation) []LocationRow {
	rows := make([]LocationRow, len(locs))
	for i := range locs {
		l := &locs[i]
		rows[i] = LocationRow{
			Rank:             i + 1,
			LocationID:       l.LocationID,
			LocationName:     l.LocationName,
			Latitude:         l.Point.Latitude,
			Longitude:        l.Point.Longitude,
			DistanceKm:       l.DistanceKm,
			SpeciesCount:     l.SpeciesCount,
			ObservationCount: l.ObservationCount,
			IndividualCount:  l.IndividualCount,
			LastObservedAt:   l.LastObservedAt,
			LastObserver:     l.LastObserver,
			IsHotspot:        l.IsHotspot,
		}
	}
	return rows
}

func speciesRows(matches []ranking.SpeciesMatch) []SpeciesRow {
	rows := make([]SpeciesRow, len(matches))
	for i := range matches {
		m := &matches[i]
		o := &m.Observation
		rows[i] = SpeciesRow{
			Rank:           i + 1,
			ScientificName: o.ScientificName,
			CommonName:     o.CommonName,
			Quantity:       m.DisplayQuantity,
			RankValue:      m.RankValue,
			LocationID:     o.LocationID,
			LocationName:   o.LocationName,
			DistanceKm:     m.DistanceKm,
			ObservedAt:     o.ObservedAt,
			ObserverName:   o.ObserverName,
			SubmissionID:   o.SubmissionID,
		}
		if o.HasCoordinates {
			lat, lng := o.Point.Latitude, o.Point.Longitude
			rows[i].Latitude, rows[i].Longitude = &lat, &lng
		}
	}
	return rows
}

// countRecords sums batch lengths.
func countRecords(batches [][]observation.Observation) int {
	n := 0
	for _, b := range batches {
		n += len(b)
	}
	return n
}
