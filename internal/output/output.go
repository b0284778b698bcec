// Package output renders explorer results for the command line.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/explorer"
)

// Format selects a renderer.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatTable, FormatJSON, FormatCSV}

// ParseFormat maps a flag value to a Format. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", errors.Newf("unknown output format %q, expected table, json or csv", s).
			Category(errors.CategoryValidation).
			Component("output").
			Build()
	}
}

// Locations writes a location ranking.
func Locations(w io.Writer, f Format, res *explorer.LocationResult) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatCSV:
		return writeCSV(w, locationHeader, locationRecords(res.Rows))
	default:
		return writeTable(w, locationColumns, locationCells(res.Rows))
	}
}

// Species writes a species ranking.
func Species(w io.Writer, f Format, res *explorer.SpeciesResult) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatCSV:
		return writeCSV(w, speciesHeader, speciesRecords(res.Rows))
	default:
		return writeTable(w, speciesColumns, speciesCells(res.Rows))
	}
}

// LocationNotice explains a result that is not a plain success. It returns
// an empty string when there is nothing to add to the rows.
func LocationNotice(res *explorer.LocationResult) string {
	return notice(&res.Summary,
		fmt.Sprintf("No location matched: %d records were read but none ranked.", res.Stats.MergedRecords))
}

// SpeciesNotice is LocationNotice for species results.
func SpeciesNotice(res *explorer.SpeciesResult) string {
	return notice(&res.Summary,
		fmt.Sprintf("No observation of %q matched among %d records read.", res.Species, res.Stats.MergedRecords))
}

func notice(s *explorer.Summary, noMatches string) string {
	switch s.Status {
	case explorer.StatusOK:
		if s.Stats.Partial() {
			return fmt.Sprintf("Partial results: %d of %d upstream reads failed.", s.Stats.Failed, s.Stats.Requested)
		}
		return ""
	case explorer.StatusNoMatches:
		return noMatches
	case explorer.StatusNoData:
		return "The data source returned no observations for this area and period."
	case explorer.StatusUnreachable:
		return fmt.Sprintf("Could not reach the data source (%d of %d reads failed). This is not an empty result.",
			s.Stats.Failed, s.Stats.Requested)
	default:
		return ""
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
