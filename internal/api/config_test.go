package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/hotspot-explorer/internal/conf"
)

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	t.Run("nil settings", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, DefaultConfig(), ConfigFromSettings(nil))
	})

	t.Run("overrides", func(t *testing.T) {
		t.Parallel()
		s := &conf.Settings{}
		s.Server.Listen = "127.0.0.1:9090"
		s.Server.ReadTimeout = 5 * time.Second
		s.Metrics.Enabled = true
		s.Metrics.Path = "/metrics"

		cfg := ConfigFromSettings(s)
		assert.Equal(t, "127.0.0.1:9090", cfg.Listen)
		assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
		assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout)
		assert.Equal(t, "/metrics", cfg.MetricsPath)
		assert.Equal(t, "Server Config: listen=127.0.0.1:9090, metrics=/metrics", cfg.String())
	})

	t.Run("metrics path ignored when disabled", func(t *testing.T) {
		t.Parallel()
		s := &conf.Settings{}
		s.Metrics.Path = "/metrics"
		assert.Empty(t, ConfigFromSettings(s).MetricsPath)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"host and port", func(c *Config) { c.Listen = "localhost:8080" }, ""},
		{"empty listen", func(c *Config) { c.Listen = "" }, "listen address is required"},
		{"missing port", func(c *Config) { c.Listen = "localhost" }, "invalid listen address"},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }, "read timeout"},
		{"zero write timeout", func(c *Config) { c.WriteTimeout = 0 }, "write timeout"},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, "shutdown timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
