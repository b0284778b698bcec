package params

import "github.com/spf13/pflag"

// ScopeFlags binds the shared query flags of the CLI to a Scope.
type ScopeFlags struct {
	fs       *pflag.FlagSet
	scope    *Scope
	lat, lng float64
}

// BindScopeFlags registers the scope flags on fs. Call Apply after parsing.
func BindScopeFlags(fs *pflag.FlagSet, s *Scope) *ScopeFlags {
	f := &ScopeFlags{fs: fs, scope: s}
	fs.StringSliceVarP(&s.Regions, "region", "r", nil, "Region preset name or eBird region code, repeatable")
	fs.Float64Var(&f.lat, "lat", 0, "Latitude of the reference point")
	fs.Float64Var(&f.lng, "lng", 0, "Longitude of the reference point")
	fs.Float64Var(&s.RadiusKm, "radius", 0, "Search radius in km, capped at 50")
	fs.IntVarP(&s.BackDays, "back", "b", 0, "Days to look back, 1 to 30")
	fs.IntVarP(&s.Limit, "limit", "n", 0, "Number of rows to print")
	fs.IntVar(&s.MaxHotspots, "max-hotspots", 0, "Maximum number of hotspots to read")
	fs.BoolVar(&s.Notable, "notable", false, "Include notable observations around the reference point")
	fs.BoolVar(&s.RadiusFeed, "radius-feed", false, "Include all recent observations around the reference point")
	return f
}

// Apply copies the coordinates into the scope. Only flags set on the command
// line are copied so that an unset coordinate falls back to the configured center.
func (f *ScopeFlags) Apply() {
	if f.fs.Changed("lat") {
		lat := f.lat
		f.scope.Lat = &lat
	}
	if f.fs.Changed("lng") {
		lng := f.lng
		f.scope.Lng = &lng
	}
}
