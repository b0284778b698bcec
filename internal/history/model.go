package history

import (
	"strings"
	"time"

	"github.com/tphakala/hotspot-explorer/internal/explorer"
	"github.com/tphakala/hotspot-explorer/internal/geo"
)

// Query kinds stored in Record.Kind.
const (
	KindLocations = "locations"
	KindSpecies   = "species"
)

// Record is one journaled query.
type Record struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	QueryID string `gorm:"size:36;uniqueIndex" json:"query_id"`
	Kind    string `gorm:"size:16;index:idx_history_kind_created" json:"kind"`

	Species   string   `gorm:"size:120" json:"species,omitempty"`
	Regions   string   `gorm:"size:255" json:"regions,omitempty"` // comma separated codes
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	RadiusKm  float64  `json:"radius_km"`
	BackDays  int      `json:"back_days"`
	SortBy    string   `gorm:"size:16" json:"sort_by,omitempty"`

	Status        string `gorm:"size:16;index" json:"status"`
	Requested     int    `json:"requested"`
	Succeeded     int    `json:"succeeded"`
	Failed        int    `json:"failed"`
	Hotspots      int    `json:"hotspots"`
	RawRecords    int    `json:"raw_records"`
	MergedRecords int    `json:"merged_records"`
	Rows          int    `json:"rows"`
	TopLocation   string `gorm:"size:255" json:"top_location,omitempty"` // name of the first ranked location

	CreatedAt time.Time `gorm:"index:idx_history_kind_created" json:"created_at"`
}

// TableName overrides the default pluralized table name.
func (Record) TableName() string {
	return "query_history"
}

// RegionList splits Regions back into codes.
func (r *Record) RegionList() []string {
	if r.Regions == "" {
		return nil
	}
	return strings.Split(r.Regions, ",")
}

func newRecord(kind string, s *explorer.Summary, regions []string, center *geo.Point, radiusKm float64, backDays int) Record {
	rec := Record{
		QueryID:       s.QueryID,
		Kind:          kind,
		Regions:       strings.Join(regions, ","),
		RadiusKm:      radiusKm,
		BackDays:      backDays,
		Status:        string(s.Status),
		Requested:     s.Stats.Requested,
		Succeeded:     s.Stats.Succeeded,
		Failed:        s.Stats.Failed,
		Hotspots:      s.Stats.Hotspots,
		RawRecords:    s.Stats.RawRecords,
		MergedRecords: s.Stats.MergedRecords,
		CreatedAt:     s.GeneratedAt,
	}
	if center != nil {
		lat, lng := center.Latitude, center.Longitude
		rec.Latitude, rec.Longitude = &lat, &lng
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec
}

func locationRecord(q *explorer.LocationQuery, res *explorer.LocationResult) Record {
	rec := newRecord(KindLocations, &res.Summary, q.Regions, q.Center, q.RadiusKm, q.BackDays)
	rec.SortBy = string(q.SortBy)
	rec.Rows = len(res.Rows)
	if len(res.Rows) > 0 {
		rec.TopLocation = res.Rows[0].LocationName
	}
	return rec
}

func speciesRecord(q *explorer.SpeciesQuery, res *explorer.SpeciesResult) Record {
	rec := newRecord(KindSpecies, &res.Summary, q.Regions, q.Center, q.RadiusKm, q.BackDays)
	rec.Species = q.Species
	rec.Rows = len(res.Rows)
	if len(res.Rows) > 0 {
		rec.TopLocation = res.Rows[0].LocationName
	}
	return rec
}
