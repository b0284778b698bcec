package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tphakala/hotspot-explorer/internal/explorer"
)

var (
	locationHeader = []string{
		"rank", "location_id", "location_name", "latitude", "longitude", "distance_km",
		"species", "observations", "individuals", "last_observed_at", "last_observer", "hotspot",
	}
	speciesHeader = []string{
		"rank", "scientific_name", "common_name", "quantity", "rank_value", "location_id", "location_name",
		"latitude", "longitude", "distance_km", "observed_at", "observer", "submission_id",
	}
)

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

func locationRecords(rows []explorer.LocationRow) [][]string {
	out := make([][]string, len(rows))
	for i := range rows {
		r := &rows[i]
		out[i] = []string{
			strconv.Itoa(r.Rank),
			sanitizeCSVField(r.LocationID),
			sanitizeCSVField(r.LocationName),
			coord(r.Latitude),
			coord(r.Longitude),
			optFloat(r.DistanceKm),
			strconv.Itoa(r.SpeciesCount),
			strconv.Itoa(r.ObservationCount),
			strconv.Itoa(r.IndividualCount),
			r.LastObservedAt,
			sanitizeCSVField(r.LastObserver),
			strconv.FormatBool(r.IsHotspot),
		}
	}
	return out
}

func speciesRecords(rows []explorer.SpeciesRow) [][]string {
	out := make([][]string, len(rows))
	for i := range rows {
		r := &rows[i]
		out[i] = []string{
			strconv.Itoa(r.Rank),
			sanitizeCSVField(r.ScientificName),
			sanitizeCSVField(r.CommonName),
			r.Quantity,
			strconv.Itoa(r.RankValue),
			sanitizeCSVField(r.LocationID),
			sanitizeCSVField(r.LocationName),
			optCoord(r.Latitude),
			optCoord(r.Longitude),
			optFloat(r.DistanceKm),
			r.ObservedAt,
			sanitizeCSVField(r.ObserverName),
			sanitizeCSVField(r.SubmissionID),
		}
	}
	return out
}

// sanitizeCSVField neutralizes values a spreadsheet would run as a formula.
func sanitizeCSVField(field string) string {
	if field == "" {
		return field
	}
	if strings.HasPrefix(field, "=") || strings.HasPrefix(field, "+") ||
		strings.HasPrefix(field, "-") || strings.HasPrefix(field, "@") {
		return "'" + field
	}
	return field
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

func optCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return coord(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
