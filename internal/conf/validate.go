package conf

import (
	"fmt"
	"strings"

	"github.com/tphakala/hotspot-explorer/internal/ranking"
)

// ValidationError collects every problem found in a Settings value.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateEBirdSettings(&settings.EBird); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateQuerySettings(&settings.Query); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateRegions(settings.Regions); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateLoggingSettings(&settings.Logging); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateHistorySettings(&settings.History); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateEBirdSettings(s *EBirdSettings) error {
	var problems []string
	if s.BaseURL == "" {
		problems = append(problems, "ebird.baseurl must not be empty")
	}
	if s.Timeout <= 0 {
		problems = append(problems, "ebird.timeout must be positive")
	}
	if s.RateLimit <= 0 {
		problems = append(problems, "ebird.ratelimit must be positive")
	}
	if s.Retries < 1 {
		problems = append(problems, "ebird.retries must be at least 1")
	}
	if s.HotspotTTL <= 0 || s.ObservationTTL <= 0 || s.TaxonomyTTL <= 0 {
		problems = append(problems, "ebird cache TTLs must be positive")
	}
	return joinProblems(problems)
}

func validateQuerySettings(s *QuerySettings) error {
	var problems []string
	if s.Latitude < -90 || s.Latitude > 90 {
		problems = append(problems, fmt.Sprintf("query.latitude %g out of range", s.Latitude))
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		problems = append(problems, fmt.Sprintf("query.longitude %g out of range", s.Longitude))
	}
	if s.RadiusKm <= 0 || s.RadiusKm > MaxRadiusKm {
		problems = append(problems, fmt.Sprintf("query.radiuskm must be in (0, %g]", MaxRadiusKm))
	}
	if s.BackDays < 1 || s.BackDays > MaxBackDays {
		problems = append(problems, fmt.Sprintf("query.backdays must be between 1 and %d", MaxBackDays))
	}
	if s.Limit < 1 {
		problems = append(problems, "query.limit must be at least 1")
	}
	if s.MaxHotspots < 1 {
		problems = append(problems, "query.maxhotspots must be at least 1")
	}
	if s.Workers < 1 || s.Workers > MaxWorkers {
		problems = append(problems, fmt.Sprintf("query.workers must be between 1 and %d", MaxWorkers))
	}
	if _, err := ranking.ParseSortKey(s.SortBy); err != nil {
		problems = append(problems, "query.sortby: "+err.Error())
	}
	return joinProblems(problems)
}

func validateRegions(regions []RegionPreset) error {
	var problems []string
	seen := make(map[string]struct{}, len(regions))
	for i, r := range regions {
		if r.Name == "" || r.Code == "" {
			problems = append(problems, fmt.Sprintf("regions[%d] needs both name and code", i))
			continue
		}
		key := strings.ToLower(r.Name)
		if _, dup := seen[key]; dup {
			problems = append(problems, fmt.Sprintf("duplicate region name %q", r.Name))
		}
		seen[key] = struct{}{}
	}
	return joinProblems(problems)
}

func validateLoggingSettings(s *LoggingSettings) error {
	switch s.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", s.Format)
	}
}

func validateHistorySettings(s *HistorySettings) error {
	if !s.Enabled {
		return nil
	}
	var problems []string
	switch {
	case s.SQLite.Enabled:
		if s.SQLite.Path == "" {
			problems = append(problems, "history.sqlite.path must not be empty")
		}
	case s.MySQL.Enabled:
		if s.MySQL.Host == "" || s.MySQL.Database == "" || s.MySQL.Username == "" {
			problems = append(problems, "history.mysql needs host, database and username")
		}
	default:
		problems = append(problems, "history is enabled but neither sqlite nor mysql is")
	}
	if s.Retention < 0 {
		problems = append(problems, "history.retention must not be negative")
	}
	return joinProblems(problems)
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(problems, "; "))
}
