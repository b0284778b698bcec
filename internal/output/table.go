package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/tphakala/hotspot-explorer/internal/explorer"
)

var (
	locationColumns = []string{"#", "LOCATION", "SPECIES", "OBS", "BIRDS", "KM", "LAST SEEN", "OBSERVER"}
	speciesColumns  = []string{"#", "COUNT", "SPECIES", "LOCATION", "KM", "OBSERVED", "OBSERVER"}
)

func writeTable(w io.Writer, columns []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}

func locationCells(rows []explorer.LocationRow) [][]string {
	cells := make([][]string, len(rows))
	for i := range rows {
		r := &rows[i]
		name := r.LocationName
		if !r.IsHotspot {
			name += " *" // personal location
		}
		cells[i] = []string{
			strconv.Itoa(r.Rank),
			truncate(name, 40),
			strconv.Itoa(r.SpeciesCount),
			strconv.Itoa(r.ObservationCount),
			strconv.Itoa(r.IndividualCount),
			distance(r.DistanceKm),
			dash(r.LastObservedAt),
			dash(truncate(r.LastObserver, 24)),
		}
	}
	return cells
}

func speciesCells(rows []explorer.SpeciesRow) [][]string {
	cells := make([][]string, len(rows))
	for i := range rows {
		r := &rows[i]
		name := r.ScientificName
		if r.CommonName != "" {
			name = r.CommonName + " (" + r.ScientificName + ")"
		}
		cells[i] = []string{
			strconv.Itoa(r.Rank),
			r.Quantity,
			truncate(name, 40),
			truncate(r.LocationName, 40),
			distance(r.DistanceKm),
			dash(r.ObservedAt),
			dash(truncate(r.ObserverName, 24)),
		}
	}
	return cells
}

func distance(km *float64) string {
	if km == nil {
		return "-"
	}
	return strconv.FormatFloat(*km, 'f', 1, 64)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
