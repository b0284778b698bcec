package explorer

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/ranking"
)

// DefaultBackDays is the lookback used when a query leaves BackDays at zero.
const DefaultBackDays = 7

// LocationQuery selects the hotspots and feeds for a location ranking.
//
// Hotspots come from Regions when any are given, otherwise from the radius
// around Center. Distances are measured from Center when it is set.
type LocationQuery struct {
	Regions  []string   `validate:"dive,required"`
	Center   *geo.Point `validate:"-"`
	RadiusKm float64    `validate:"gte=0"`
	BackDays int        `validate:"gte=0,lte=30"`
	SortBy   ranking.SortKey
	// Limit caps the ranked rows, zero returns every location.
	Limit int `validate:"gte=0"`
	// MaxHotspots caps per-hotspot reads, zero means DefaultLocationHotspots.
	MaxHotspots int `validate:"gte=0"`

	// IncludeRadiusFeed adds the recent observations around Center.
	IncludeRadiusFeed bool
	// IncludeNotable adds the notable observations around Center.
	IncludeNotable bool
	// IncludeEmpty lists discovered hotspots that had no observations.
	IncludeEmpty bool
}

// SpeciesQuery selects the feeds searched for one species.
type SpeciesQuery struct {
	// Species is matched as a case-insensitive substring of the scientific
	// name, and of the common name when MatchCommonName is set.
	Species  string     `validate:"required"`
	Regions  []string   `validate:"dive,required"`
	Center   *geo.Point `validate:"-"`
	RadiusKm float64    `validate:"gte=0"`
	BackDays int        `validate:"gte=0,lte=30"`
	Limit    int        `validate:"gte=0"`
	// MaxHotspots caps per-hotspot reads, zero means DefaultSpeciesHotspots.
	MaxHotspots int `validate:"gte=0"`

	// UseSpeciesFeed reads the species-in-radius feed around Center. The
	// species must then be a full scientific name known to the taxonomy.
	UseSpeciesFeed    bool
	IncludeRadiusFeed bool
	IncludeNotable    bool

	MatchCommonName bool
	BestPerLocation bool
}

func (q *LocationQuery) normalize() {
	q.Regions = cleanRegions(q.Regions)
	if q.BackDays == 0 {
		q.BackDays = DefaultBackDays
	}
	if q.MaxHotspots == 0 {
		q.MaxHotspots = DefaultLocationHotspots
	}
	if q.SortBy == "" {
		q.SortBy = ranking.SortBySpecies
	}
}

func (q *SpeciesQuery) normalize() {
	q.Species = strings.TrimSpace(q.Species)
	q.Regions = cleanRegions(q.Regions)
	if q.BackDays == 0 {
		q.BackDays = DefaultBackDays
	}
	if q.MaxHotspots == 0 {
		q.MaxHotspots = DefaultSpeciesHotspots
	}
}

func cleanRegions(regions []string) []string {
	out := make([]string, 0, len(regions))
	for _, r := range regions {
		if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func (e *Explorer) validateLocationQuery(q *LocationQuery) error {
	var problems []string
	if err := e.validate.Struct(q); err != nil {
		problems = append(problems, fieldProblems(err)...)
	}
	if _, err := ranking.ParseSortKey(string(q.SortBy)); err != nil {
		problems = append(problems, err.Error())
	}
	problems = append(problems, scopeProblems(q.Regions, q.Center, q.IncludeRadiusFeed, q.IncludeNotable, false)...)
	return validationError("locations", problems)
}

func (e *Explorer) validateSpeciesQuery(q *SpeciesQuery) error {
	var problems []string
	if err := e.validate.Struct(q); err != nil {
		problems = append(problems, fieldProblems(err)...)
	}
	problems = append(problems, scopeProblems(q.Regions, q.Center, q.IncludeRadiusFeed, q.IncludeNotable, q.UseSpeciesFeed)...)
	return validationError("species", problems)
}

// scopeProblems checks that the query names somewhere to look and that every
// radius feed has a center.
func scopeProblems(regions []string, center *geo.Point, radius, notable, species bool) []string {
	var problems []string
	if center != nil {
		if _, err := geo.NewPoint(center.Latitude, center.Longitude); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(regions) == 0 && center == nil {
		problems = append(problems, "either regions or a center point is required")
	}
	if center == nil {
		for _, feed := range []struct {
			enabled bool
			name    string
		}{
			{radius, "radius feed"},
			{notable, "notable feed"},
			{species, "species feed"},
		} {
			if feed.enabled {
				problems = append(problems, feed.name+" requires a center point")
			}
		}
	}
	return problems
}

func fieldProblems(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s: rule '%s=%s' failed for value '%v'", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			problems = append(problems, fmt.Sprintf("%s: rule '%s' failed for value '%v'", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	return problems
}

func validationError(query string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return errors.Newf("invalid %s query: %s", query, strings.Join(problems, "; ")).
		Category(errors.CategoryValidation).
		Component("explorer").
		Context("query", query).
		Build()
}
