package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "HOTSPOT_DEBUG", validateEnvBool},

		{"ebird.apikey", "HOTSPOT_EBIRD_APIKEY", nil},
		{"ebird.apikeyfile", "HOTSPOT_EBIRD_APIKEY_FILE", nil},
		{"ebird.baseurl", "HOTSPOT_EBIRD_BASEURL", validateEnvURL},
		{"ebird.ratelimit", "HOTSPOT_EBIRD_RATELIMIT", validateEnvPositiveFloat},
		{"ebird.locale", "HOTSPOT_EBIRD_LOCALE", nil},

		{"query.latitude", "HOTSPOT_LATITUDE", validateEnvLatitude},
		{"query.longitude", "HOTSPOT_LONGITUDE", validateEnvLongitude},
		{"query.radiuskm", "HOTSPOT_RADIUS_KM", validateEnvPositiveFloat},
		{"query.backdays", "HOTSPOT_BACK_DAYS", validateEnvBackDays},
		{"query.workers", "HOTSPOT_WORKERS", validateEnvWorkers},

		{"logging.level", "HOTSPOT_LOG_LEVEL", nil},
		{"logging.format", "HOTSPOT_LOG_FORMAT", nil},

		{"server.listen", "HOTSPOT_LISTEN", nil},

		{"history.enabled", "HOTSPOT_HISTORY_ENABLED", validateEnvBool},
		{"history.sqlite.path", "HOTSPOT_HISTORY_SQLITE_PATH", nil},
		{"history.mysql.password", "HOTSPOT_HISTORY_MYSQL_PASSWORD", nil},
		{"history.mysql.passwordfile", "HOTSPOT_HISTORY_MYSQL_PASSWORD_FILE", nil},

		{"sentry.enabled", "HOTSPOT_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "HOTSPOT_SENTRY_DSN", validateEnvURL},
	}
}

// bindEnvVars binds environment variables and validates any that are set
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}

func validateEnvPositiveFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	if f <= 0 {
		return fmt.Errorf("must be greater than zero, got %g", f)
	}
	return nil
}

func validateEnvLatitude(value string) error {
	lat, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid latitude: %w", err)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %g", lat)
	}
	return nil
}

func validateEnvLongitude(value string) error {
	lng, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid longitude: %w", err)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %g", lng)
	}
	return nil
}

func validateEnvBackDays(value string) error {
	days, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if days < 1 || days > MaxBackDays {
		return fmt.Errorf("must be between 1 and %d, got %d", MaxBackDays, days)
	}
	return nil
}

func validateEnvWorkers(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if n < 1 || n > MaxWorkers {
		return fmt.Errorf("must be between 1 and %d, got %d", MaxWorkers, n)
	}
	return nil
}
