// Package conf loads hotspot-explorer settings from config file, environment and flags.
package conf

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/hotspot-explorer/internal/secrets"
)

//go:embed config.yaml
var defaultConfigYAML []byte

const (
	// MaxWorkers caps the fan-out used for per-hotspot requests.
	MaxWorkers = 15
	// MaxRadiusKm is the largest radius the eBird API accepts.
	MaxRadiusKm = 50.0
	// MaxBackDays is the longest lookback window the eBird API accepts.
	MaxBackDays = 30

	appName = "hotspot-explorer"
)

// Settings contains all configuration options.
type Settings struct {
	Debug bool // true to enable debug logging regardless of logging.level

	EBird EBirdSettings `yaml:"ebird"` // upstream API access

	Query QuerySettings // defaults applied to queries that leave a parameter unset

	Regions []RegionPreset // named region shortcuts, order is preserved for display

	Logging LoggingSettings

	Server ServerSettings // HTTP API

	Metrics MetricsSettings

	History HistorySettings // query journal

	Sentry SentrySettings // optional error telemetry
}

// EBirdSettings configures the eBird API client.
type EBirdSettings struct {
	APIKey         string        `yaml:"apikey"`         // X-eBirdApiToken sent when a request carries none, may reference ${VAR}
	APIKeyFile     string        `yaml:"apikeyfile"`     // file holding the token, wins over APIKey
	BaseURL        string        `yaml:"baseurl"`        // API root, normally https://api.ebird.org/v2
	Timeout        time.Duration `yaml:"timeout"`        // per-request timeout
	RateLimit      float64       `yaml:"ratelimit"`      // requests per second
	Retries        int           `yaml:"retries"`        // attempts per request, including the first
	Locale         string        `yaml:"locale"`         // taxonomy locale for common names
	HotspotTTL     time.Duration `yaml:"hotspotttl"`     // cache lifetime of hotspot lists
	ObservationTTL time.Duration `yaml:"observationttl"` // cache lifetime of observation batches
	TaxonomyTTL    time.Duration `yaml:"taxonomyttl"`    // cache lifetime of the taxonomy
}

// QuerySettings holds query defaults.
type QuerySettings struct {
	Latitude    float64 `yaml:"latitude"`
	Longitude   float64 `yaml:"longitude"`
	RadiusKm    float64 `yaml:"radiuskm"`
	BackDays    int     `yaml:"backdays"`
	Limit       int     `yaml:"limit"`
	MaxHotspots int     `yaml:"maxhotspots"`
	Workers     int     `yaml:"workers"`
	SortBy      string  `yaml:"sortby"`
}

// RegionPreset maps a display name to an eBird region code.
type RegionPreset struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// LoggingSettings configures the application logger.
type LoggingSettings struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`   // optional JSON log file
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Listen       string        `yaml:"listen"`
	ReadTimeout  time.Duration `yaml:"readtimeout"`
	WriteTimeout time.Duration `yaml:"writetimeout"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HistorySettings configures the query journal. Exactly one backend is used,
// SQLite when both are enabled.
type HistorySettings struct {
	Enabled   bool           `yaml:"enabled"`
	Retention time.Duration  `yaml:"retention"` // 0 keeps every entry
	SQLite    SQLiteSettings `yaml:"sqlite"`
	MySQL     MySQLSettings  `yaml:"mysql"`
}

// SQLiteSettings configures the SQLite journal backend.
type SQLiteSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MySQLSettings configures the MySQL journal backend.
type MySQLSettings struct {
	Enabled      bool   `yaml:"enabled"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"` // may reference ${VAR}
	PasswordFile string `yaml:"passwordfile"`
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Database     string `yaml:"database"`
}

// DSN returns the go-sql-driver connection string.
func (m *MySQLSettings) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}

// SentrySettings configures optional error telemetry.
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration into the global viper instance and stores the result
// for GetSettings. A missing config file is not an error.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := LoadFrom(viper.GetViper())
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// LoadFrom reads configuration through v. Tests pass a fresh viper.New().
func LoadFrom(v *viper.Viper) (*Settings, error) {
	if err := initViper(v); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

func initViper(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if v.ConfigFileUsed() == "" {
		for _, path := range GetDefaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, appName))
	}
	paths = append(paths, filepath.Join("/etc", appName))
	return paths
}

// GetSettings returns the settings stored by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DefaultConfigYAML returns the annotated default configuration file.
func DefaultConfigYAML() []byte {
	return defaultConfigYAML
}

// WriteDefaultConfig writes the default configuration to path unless a file already exists.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(path, defaultConfigYAML, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}
	return nil
}

// YAML renders the effective settings. Secrets are masked.
func (s *Settings) YAML() ([]byte, error) {
	masked := *s
	masked.EBird.APIKey = maskSecret(s.EBird.APIKey)
	masked.Sentry.DSN = maskSecret(s.Sentry.DSN)
	masked.History.MySQL.Password = maskSecret(s.History.MySQL.Password)

	out, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return out, nil
}

// resolveSecrets replaces credential settings with their file or environment
// values.
func resolveSecrets(s *Settings) error {
	key, err := secrets.Resolve(s.EBird.APIKeyFile, s.EBird.APIKey)
	if err != nil {
		return fmt.Errorf("ebird.apikey: %w", err)
	}
	s.EBird.APIKey = key

	if s.History.MySQL.Enabled {
		password, err := secrets.Resolve(s.History.MySQL.PasswordFile, s.History.MySQL.Password)
		if err != nil {
			return fmt.Errorf("history.mysql.password: %w", err)
		}
		s.History.MySQL.Password = password
	}
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
