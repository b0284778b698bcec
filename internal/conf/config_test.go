package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) *viper.Viper {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	v := viper.New()
	v.SetConfigFile(path)
	return v
}

func TestLoadFromDefaults(t *testing.T) {
	v := writeConfig(t, "debug: false\n")

	settings, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "https://api.ebird.org/v2", settings.EBird.BaseURL)
	assert.Equal(t, time.Hour, settings.EBird.HotspotTTL)
	assert.Equal(t, 10*time.Minute, settings.EBird.ObservationTTL)
	assert.InDelta(t, 10.0, settings.EBird.RateLimit, 0)
	assert.Equal(t, 3, settings.EBird.Retries)
	assert.InDelta(t, 25.0, settings.Query.RadiusKm, 0)
	assert.Equal(t, 7, settings.Query.BackDays)
	assert.Equal(t, 40, settings.Query.MaxHotspots)
	assert.Equal(t, 10, settings.Query.Workers)
	assert.Equal(t, "species", settings.Query.SortBy)
	require.Len(t, settings.Regions, 6)
	assert.Equal(t, RegionPreset{Name: "HaZafon (North)", Code: "IL-Z"}, settings.Regions[0])
	assert.Equal(t, ":8080", settings.Server.Listen)
}

func TestLoadFromFileOverrides(t *testing.T) {
	v := writeConfig(t, `
ebird:
  apikey: abc123
  observationttl: 5m
query:
  radiuskm: 12.5
  workers: 15
  sortby: individuals
regions:
  - name: New York
    code: US-NY
`)

	settings, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "abc123", settings.EBird.APIKey)
	assert.Equal(t, 5*time.Minute, settings.EBird.ObservationTTL)
	assert.InDelta(t, 12.5, settings.Query.RadiusKm, 0)
	assert.Equal(t, 15, settings.Query.Workers)
	assert.Equal(t, "individuals", settings.Query.SortBy)
	assert.Equal(t, []RegionPreset{{Name: "New York", Code: "US-NY"}}, settings.Regions)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HOTSPOT_EBIRD_APIKEY", "from-env")
	t.Setenv("HOTSPOT_LATITUDE", "40.7128")
	t.Setenv("HOTSPOT_BACK_DAYS", "14")

	v := writeConfig(t, "ebird:\n  apikey: from-file\n")

	settings, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "from-env", settings.EBird.APIKey)
	assert.InDelta(t, 40.7128, settings.Query.Latitude, 1e-9)
	assert.Equal(t, 14, settings.Query.BackDays)
}

func TestLoadFromRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("HOTSPOT_WORKERS", "99")

	_, err := LoadFrom(writeConfig(t, "debug: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOTSPOT_WORKERS")
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	valid := func(t *testing.T) *Settings {
		t.Helper()
		v := viper.New()
		setDefaultConfig(v)
		s := &Settings{}
		require.NoError(t, v.Unmarshal(s))
		return s
	}

	require.NoError(t, ValidateSettings(valid(t)))

	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"radius above cap", func(s *Settings) { s.Query.RadiusKm = 80 }, "query.radiuskm"},
		{"zero radius", func(s *Settings) { s.Query.RadiusKm = 0 }, "query.radiuskm"},
		{"too many workers", func(s *Settings) { s.Query.Workers = MaxWorkers + 1 }, "query.workers"},
		{"lookback too long", func(s *Settings) { s.Query.BackDays = 31 }, "query.backdays"},
		{"latitude", func(s *Settings) { s.Query.Latitude = 91 }, "query.latitude"},
		{"sort key", func(s *Settings) { s.Query.SortBy = "alphabet" }, "query.sortby"},
		{"ttl", func(s *Settings) { s.EBird.HotspotTTL = 0 }, "TTL"},
		{"region without code", func(s *Settings) { s.Regions = []RegionPreset{{Name: "Nowhere"}} }, "regions[0]"},
		{"duplicate region", func(s *Settings) {
			s.Regions = []RegionPreset{{Name: "Haifa", Code: "IL-HA"}, {Name: "haifa", Code: "IL-HA"}}
		}, "duplicate region"},
		{"log format", func(s *Settings) { s.Logging.Format = "xml" }, "logging.format"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
		{"history without backend", func(s *Settings) {
			s.History.Enabled = true
			s.History.SQLite.Enabled = false
		}, "neither sqlite nor mysql"},
		{"history mysql without host", func(s *Settings) {
			s.History.Enabled = true
			s.History.SQLite.Enabled = false
			s.History.MySQL = MySQLSettings{Enabled: true, Database: "db", Username: "u"}
		}, "history.mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := valid(t)
			tt.mutate(s)
			err := ValidateSettings(s)
			require.Error(t, err)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolveRegion(t *testing.T) {
	t.Parallel()

	s := &Settings{Regions: []RegionPreset{
		{Name: "Tel Aviv", Code: "IL-TA"},
		{Name: "Haifa", Code: "IL-HA"},
	}}

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Tel Aviv", "IL-TA", true},
		{"  haifa ", "IL-HA", true},
		{"il-ta", "IL-TA", true},
		{"US-NY-109", "US-NY-109", true},
		{"il", "IL", true},
		{"Atlantis", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := s.ResolveRegion(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSettingsYAMLMasksSecrets(t *testing.T) {
	t.Parallel()

	s := &Settings{
		EBird:  EBirdSettings{APIKey: "secret-token"},
		Sentry: SentrySettings{DSN: "https://key@sentry.example/1"},
	}

	out, err := s.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret-token")
	assert.NotContains(t, string(out), "sentry.example")
	assert.Contains(t, string(out), "********")
	assert.Equal(t, "secret-token", s.EBird.APIKey, "original settings must stay intact")
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	m := MySQLSettings{Username: "birder", Password: "pw", Host: "db.local", Port: "3306", Database: "hotspots"}
	assert.Equal(t, "birder:pw@tcp(db.local:3306)/hotspots?charset=utf8mb4&parseTime=True&loc=UTC", m.DSN())
}

func TestWriteDefaultConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigYAML(), data)

	require.Error(t, WriteDefaultConfig(path), "existing file must not be overwritten")

	v := viper.New()
	v.SetConfigFile(path)
	settings, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Len(t, settings.Regions, 6)
}

func TestLoadFromResolvesSecrets(t *testing.T) {
	t.Setenv("HX_CONF_TEST_TOKEN", "env-token")
	secretPath := filepath.Join(t.TempDir(), "mysql-password")
	require.NoError(t, os.WriteFile(secretPath, []byte("file-password\n"), 0o600))

	v := writeConfig(t, `
ebird:
  apikey: ${HX_CONF_TEST_TOKEN}
history:
  mysql:
    enabled: true
    username: birder
    passwordfile: `+secretPath+`
`)

	settings, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "env-token", settings.EBird.APIKey)
	assert.Equal(t, "file-password", settings.History.MySQL.Password)
}

func TestLoadFromMissingSecret(t *testing.T) {
	v := writeConfig(t, "ebird:\n  apikeyfile: /nonexistent/ebird-token\n")

	_, err := LoadFrom(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ebird.apikey")
}
