package output

import (
	"io"
	"strconv"
	"time"

	"github.com/tphakala/hotspot-explorer/internal/history"
)

var (
	historyColumns = []string{"WHEN", "QUERY", "KIND", "SCOPE", "STATUS", "READS", "ROWS", "TOP"}
	historyHeader  = []string{
		"created_at", "query_id", "kind", "species", "regions", "latitude", "longitude", "radius_km",
		"back_days", "sort_by", "status", "requested", "failed", "merged_records", "rows", "top_location",
	}
)

// History writes journaled queries.
func History(w io.Writer, f Format, records []history.Record) error {
	switch f {
	case FormatJSON:
		if records == nil {
			records = []history.Record{}
		}
		return writeJSON(w, records)
	case FormatCSV:
		return writeCSV(w, historyHeader, historyRecords(records))
	default:
		return writeTable(w, historyColumns, historyCells(records))
	}
}

func historyCells(records []history.Record) [][]string {
	cells := make([][]string, len(records))
	for i := range records {
		r := &records[i]
		scope := r.Regions
		if scope == "" && r.Latitude != nil {
			scope = coord(*r.Latitude) + "," + coord(*r.Longitude)
		}
		if r.Species != "" {
			scope = r.Species + " @ " + dash(scope)
		}
		cells[i] = []string{
			r.CreatedAt.Local().Format(time.DateTime),
			shortID(r.QueryID),
			r.Kind,
			truncate(dash(scope), 40),
			r.Status,
			strconv.Itoa(r.Requested-r.Failed) + "/" + strconv.Itoa(r.Requested),
			strconv.Itoa(r.Rows),
			dash(truncate(r.TopLocation, 32)),
		}
	}
	return cells
}

func historyRecords(records []history.Record) [][]string {
	out := make([][]string, len(records))
	for i := range records {
		r := &records[i]
		out[i] = []string{
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.QueryID,
			r.Kind,
			sanitizeCSVField(r.Species),
			r.Regions,
			optCoord(r.Latitude),
			optCoord(r.Longitude),
			strconv.FormatFloat(r.RadiusKm, 'f', -1, 64),
			strconv.Itoa(r.BackDays),
			r.SortBy,
			r.Status,
			strconv.Itoa(r.Requested),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.MergedRecords),
			strconv.Itoa(r.Rows),
			sanitizeCSVField(r.TopLocation),
		}
	}
	return out
}

// shortID keeps the first block of a UUID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
