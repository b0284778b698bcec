// Package app builds the runtime object graph shared by every command: the
// settings, the logger, optional telemetry and metrics, the eBird client, the
// query journal and the explorer on top of them.
package app

import (
	"context"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/hotspot-explorer/internal/buildinfo"
	"github.com/tphakala/hotspot-explorer/internal/conf"
	"github.com/tphakala/hotspot-explorer/internal/ebird"
	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/explorer"
	"github.com/tphakala/hotspot-explorer/internal/history"
	"github.com/tphakala/hotspot-explorer/internal/logger"
	"github.com/tphakala/hotspot-explorer/internal/observability"
)

const telemetryFlushTimeout = 2 * time.Second

// Options controls Init.
type Options struct {
	// ConfigFile overrides the config.yaml search path.
	ConfigFile string
	// Debug forces debug logging.
	Debug bool
	// Viper is the configuration source, the global instance when nil.
	Viper *viper.Viper
	// LoggerOptions overrides the logger built from settings. Tests use it to
	// capture output.
	LoggerOptions *logger.Options
}

// App holds the initialized components. History and Metrics are nil when
// disabled.
type App struct {
	Settings *conf.Settings
	Log      logger.Logger
	Build    *buildinfo.Context
	Metrics  *observability.Metrics
	Client   *ebird.Client
	Explorer *explorer.Explorer
	History  *history.Store

	closeLog func() error
	sentry   bool
}

// Init loads configuration and wires the components. On error everything
// created so far is released.
func Init(opts Options) (a *App, err error) {
	v := opts.Viper
	if v == nil {
		v = viper.GetViper()
	}
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	}

	var settings *conf.Settings
	if opts.Viper == nil {
		settings, err = conf.Load()
	} else {
		settings, err = conf.LoadFrom(v)
	}
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		settings.Debug = true
	}

	a = &App{Settings: settings, Build: buildinfo.Current()}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	if err = a.initLogger(opts.LoggerOptions); err != nil {
		return a, err
	}
	if err = a.initTelemetry(); err != nil {
		return a, err
	}
	if settings.Metrics.Enabled {
		if a.Metrics, err = observability.NewMetrics(); err != nil {
			return a, err
		}
	}
	if err = a.initClient(); err != nil {
		return a, err
	}
	if err = a.initHistory(); err != nil {
		return a, err
	}
	a.initExplorer()

	a.Log.Debug("application initialized",
		logger.String("version", a.Build.GetVersion()),
		logger.Bool("metrics", a.Metrics != nil),
		logger.Bool("history", a.History != nil),
		logger.Int("workers", a.Explorer.Workers()))
	return a, nil
}

func (a *App) initLogger(override *logger.Options) error {
	opts := logger.Options{
		Level:    logger.ParseLevel(a.Settings.Logging.Level),
		Format:   a.Settings.Logging.Format,
		FilePath: a.Settings.Logging.File,
	}
	if override != nil {
		opts = *override
	}
	if a.Settings.Debug {
		opts.Level = logger.LogLevelDebug
	}

	l, err := logger.NewSlogLogger(opts)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Component("app").
			Context("operation", "init_logger").
			Build()
	}
	a.Log = l
	a.closeLog = l.Close
	return nil
}

func (a *App) initTelemetry() error {
	s := a.Settings.Sentry
	if !s.Enabled {
		return nil
	}
	if _, err := errors.InitSentry(errors.SentryOptions{
		DSN:         s.DSN,
		Environment: s.Environment,
		Release:     a.Build.GetVersion(),
	}); err != nil {
		return err
	}
	a.sentry = true
	a.Log.Info("error telemetry enabled", logger.String("environment", s.Environment))
	return nil
}

func (a *App) initClient() error {
	s := a.Settings.EBird
	cfg := ebird.Config{
		APIKey:         s.APIKey,
		BaseURL:        s.BaseURL,
		Timeout:        s.Timeout,
		RateLimit:      s.RateLimit,
		Retries:        s.Retries,
		Locale:         s.Locale,
		HotspotTTL:     s.HotspotTTL,
		ObservationTTL: s.ObservationTTL,
		TaxonomyTTL:    s.TaxonomyTTL,
		Logger:         a.Log,
	}
	if a.Metrics != nil {
		cfg.Metrics = a.Metrics.Upstream
	}

	client, err := ebird.NewClient(cfg)
	if err != nil {
		return err
	}
	a.Client = client
	return nil
}

func (a *App) initHistory() error {
	s := &a.Settings.History
	if !s.Enabled {
		return nil
	}

	cfg, err := history.ConfigFromSettings(s)
	if err != nil {
		return err
	}
	cfg.Logger = a.Log
	cfg.Debug = a.Settings.Debug

	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	a.History = store

	if s.Retention > 0 {
		removed, err := store.Prune(context.Background(), time.Now().Add(-s.Retention))
		if err != nil {
			// a failed prune leaves old rows behind, the journal still works
			a.Log.Warn("failed to prune query history", logger.Error(err))
		} else if removed > 0 {
			a.Log.Info("pruned query history",
				logger.Int64("removed", removed),
				logger.Duration("retention", s.Retention))
		}
	}
	return nil
}

func (a *App) initExplorer() {
	opts := explorer.Options{
		Workers: a.Settings.Query.Workers,
		Logger:  a.Log,
	}
	if a.Metrics != nil {
		opts.Metrics = a.Metrics.Query
	}
	if a.History != nil {
		opts.Journal = a.History
	}
	a.Explorer = explorer.New(a.Client, opts)
}

// Close releases the components in reverse order of creation.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.History != nil {
		if err := a.History.Close(); err != nil && a.Log != nil {
			a.Log.Warn("failed to close query history", logger.Error(err))
		}
		a.History = nil
	}
	if a.Client != nil {
		a.Client.Close()
		a.Client = nil
	}
	if a.sentry {
		errors.FlushTelemetry(telemetryFlushTimeout)
		a.sentry = false
	}
	if a.closeLog != nil {
		_ = a.closeLog()
		a.closeLog = nil
	}
}
