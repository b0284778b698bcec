// Package params turns caller-supplied parameters into explorer queries. The
// CLI flags and the HTTP query string both land in these structs, are
// validated with go-playground/validator and then filled from the configured
// query defaults.
package params

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tphakala/hotspot-explorer/internal/conf"
	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/explorer"
	"github.com/tphakala/hotspot-explorer/internal/geo"
	"github.com/tphakala/hotspot-explorer/internal/ranking"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report the parameter name rather than the Go field name
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("param"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Scope holds the parameters shared by both queries.
type Scope struct {
	Regions     []string `param:"region" validate:"dive,required"`
	Lat         *float64 `param:"lat" validate:"required_with=Lng,omitempty,gte=-90,lte=90"`
	Lng         *float64 `param:"lng" validate:"required_with=Lat,omitempty,gte=-180,lte=180"`
	RadiusKm    float64  `param:"radius" validate:"gte=0"`
	BackDays    int      `param:"back" validate:"gte=0,lte=30"`
	Limit       int      `param:"limit" validate:"gte=0,lte=1000"`
	MaxHotspots int      `param:"max_hotspots" validate:"gte=0,lte=500"`
	Notable     bool     `param:"notable"`
	RadiusFeed  bool     `param:"radius_feed"`
}

// Locations are the parameters of a location ranking.
type Locations struct {
	Scope
	Sort         string `param:"sort" validate:"omitempty,oneof=species observations individuals"`
	IncludeEmpty bool   `param:"include_empty"`
}

// Species are the parameters of a species ranking.
type Species struct {
	Scope
	Name        string `param:"name" validate:"required,max=120"`
	SpeciesFeed bool   `param:"species_feed"`
	CommonName  bool   `param:"common_name"`
	PerLocation bool   `param:"per_location"`
}

// LocationQuery validates p and builds the explorer query, filling unset
// values from settings.
func (p *Locations) LocationQuery(settings *conf.Settings) (explorer.LocationQuery, error) {
	if err := check(p); err != nil {
		return explorer.LocationQuery{}, err
	}

	scope, err := p.Scope.resolve(settings, p.RadiusFeed || p.Notable)
	if err != nil {
		return explorer.LocationQuery{}, err
	}

	sortBy := p.Sort
	if sortBy == "" {
		sortBy = settings.Query.SortBy
	}
	key, err := ranking.ParseSortKey(sortBy)
	if err != nil {
		return explorer.LocationQuery{}, invalid("%v", err)
	}

	maxHotspots := p.MaxHotspots
	if maxHotspots == 0 {
		maxHotspots = settings.Query.MaxHotspots
	}

	return explorer.LocationQuery{
		Regions:           scope.regions,
		Center:            scope.center,
		RadiusKm:          scope.radiusKm,
		BackDays:          scope.backDays,
		SortBy:            key,
		Limit:             scope.limit,
		MaxHotspots:       maxHotspots,
		IncludeRadiusFeed: p.RadiusFeed,
		IncludeNotable:    p.Notable,
		IncludeEmpty:      p.IncludeEmpty,
	}, nil
}

// SpeciesQuery validates p and builds the explorer query, filling unset
// values from settings.
func (p *Species) SpeciesQuery(settings *conf.Settings) (explorer.SpeciesQuery, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := check(p); err != nil {
		return explorer.SpeciesQuery{}, err
	}

	scope, err := p.Scope.resolve(settings, p.RadiusFeed || p.Notable || p.SpeciesFeed)
	if err != nil {
		return explorer.SpeciesQuery{}, err
	}

	return explorer.SpeciesQuery{
		Species:           p.Name,
		Regions:           scope.regions,
		Center:            scope.center,
		RadiusKm:          scope.radiusKm,
		BackDays:          scope.backDays,
		Limit:             scope.limit,
		MaxHotspots:       p.MaxHotspots,
		UseSpeciesFeed:    p.SpeciesFeed,
		IncludeRadiusFeed: p.RadiusFeed,
		IncludeNotable:    p.Notable,
		MatchCommonName:   p.CommonName,
		BestPerLocation:   p.PerLocation,
	}, nil
}

type resolvedScope struct {
	regions  []string
	center   *geo.Point
	radiusKm float64
	backDays int
	limit    int
}

// resolve maps region names to codes and picks the reference point. The
// configured center is used when the caller names no region or asks for a
// radius feed without giving coordinates.
func (s *Scope) resolve(settings *conf.Settings, needsCenter bool) (resolvedScope, error) {
	var out resolvedScope

	for _, raw := range s.Regions {
		for name := range strings.SplitSeq(raw, ",") {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			code, ok := settings.ResolveRegion(name)
			if !ok {
				return out, invalid("unknown region %q", name)
			}
			out.regions = append(out.regions, code)
		}
	}

	switch {
	case s.Lat != nil && s.Lng != nil:
		out.center = &geo.Point{Latitude: *s.Lat, Longitude: *s.Lng}
	case len(out.regions) == 0 || needsCenter:
		out.center = &geo.Point{Latitude: settings.Query.Latitude, Longitude: settings.Query.Longitude}
	}

	out.radiusKm = s.RadiusKm
	if out.radiusKm == 0 {
		out.radiusKm = settings.Query.RadiusKm
	}
	out.backDays = s.BackDays
	if out.backDays == 0 {
		out.backDays = settings.Query.BackDays
	}
	out.limit = s.Limit
	if out.limit == 0 {
		out.limit = settings.Query.Limit
	}
	return out, nil
}

func check(p any) error {
	err := Validator().Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalid("%v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch {
		case fe.Tag() == "required_with":
			msgs = append(msgs, fmt.Sprintf("%s is required together with %s", fe.Field(), strings.ToLower(fe.Param())))
		case fe.Param() != "":
			msgs = append(msgs, fmt.Sprintf("%s failed rule '%s=%s' (got '%v')", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed rule '%s'", fe.Field(), fe.Tag()))
		}
	}
	return invalid("%s", strings.Join(msgs, "; "))
}

func invalid(format string, args ...any) error {
	return errors.Newf(format, args...).
		Category(errors.CategoryValidation).
		Component("params").
		Build()
}
