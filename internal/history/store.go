// Package history journals finished explorer queries in a SQL database
// through GORM. SQLite is the default backend; MySQL serves shared
// deployments.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/hotspot-explorer/internal/conf"
	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/explorer"
	"github.com/tphakala/hotspot-explorer/internal/logger"
	"github.com/tphakala/hotspot-explorer/internal/privacy"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

const (
	// DefaultRecentLimit is the page size of Recent when Filter.Limit is zero.
	DefaultRecentLimit = 20
	// MaxRecentLimit caps Filter.Limit.
	MaxRecentLimit = 500
)

// Config selects and configures the backend.
type Config struct {
	Driver string
	// DSN is the database file for SQLite and a go-sql-driver DSN for MySQL.
	DSN    string
	Logger logger.Logger
	Debug  bool // log every statement
}

// ConfigFromSettings maps the history settings to a Config. SQLite wins when
// both backends are enabled.
func ConfigFromSettings(s *conf.HistorySettings) (Config, error) {
	switch {
	case s.SQLite.Enabled:
		return Config{Driver: DriverSQLite, DSN: s.SQLite.Path}, nil
	case s.MySQL.Enabled:
		return Config{Driver: DriverMySQL, DSN: s.MySQL.DSN()}, nil
	default:
		return Config{}, errors.Newf("no history backend enabled").
			Category(errors.CategoryConfiguration).
			Component("history").
			Build()
	}
}

// Filter narrows Recent.
type Filter struct {
	Kind   string // KindLocations, KindSpecies or empty for both
	Status string // explorer status or empty for all
	Limit  int
}

// Store is the query journal. It is safe for concurrent use.
type Store struct {
	db     *gorm.DB
	driver string
	log    logger.Logger
}

// Open connects to the configured backend and migrates the schema.
func Open(cfg Config) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	log = log.Module("history")

	level := gormlogger.Warn
	if cfg.Debug {
		level = gormlogger.Info
	}
	gcfg := &gorm.Config{Logger: newGormLogger(log, level)}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		if cfg.DSN == "" {
			return nil, configError("sqlite database path is empty")
		}
		if cfg.DSN != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o750); err != nil {
				return nil, errors.New(err).
					Category(errors.CategoryFileIO).
					Component("history").
					Context("path", cfg.DSN).
					Build()
			}
		}
		cfg.Driver = DriverSQLite
		dialector = sqlite.Open(cfg.DSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, configError(fmt.Sprintf("unsupported history driver %q", cfg.Driver))
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open %s database: %w", cfg.Driver, privacy.WrapError(err))).
			Category(errors.CategoryDatabase).
			Component("history").
			Context("driver", cfg.Driver).
			Build()
	}

	if cfg.Driver == DriverSQLite {
		// a single connection serializes writers and keeps :memory: databases shared
		sqlDB, err := db.DB()
		if err != nil {
			return nil, dbError(err, "connection_pool")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, dbError(fmt.Errorf("failed to auto-migrate %s database: %w", cfg.Driver, err), "migrate")
	}

	log.Debug("query history opened",
		logger.String("driver", cfg.Driver),
		logger.String("dsn", privacy.RedactDSN(cfg.DSN)))
	return &Store{db: db, driver: cfg.Driver, log: log}, nil
}

// Driver reports the backend in use.
func (s *Store) Driver() string {
	return s.driver
}

// RecordLocations journals a location query.
func (s *Store) RecordLocations(ctx context.Context, q explorer.LocationQuery, res *explorer.LocationResult) error {
	rec := locationRecord(&q, res)
	return s.save(ctx, &rec)
}

// RecordSpecies journals a species query.
func (s *Store) RecordSpecies(ctx context.Context, q explorer.SpeciesQuery, res *explorer.SpeciesResult) error {
	rec := speciesRecord(&q, res)
	return s.save(ctx, &rec)
}

func (s *Store) save(ctx context.Context, rec *Record) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return dbError(err, "save")
	}
	return nil
}

// Recent returns the newest records first.
func (s *Store) Recent(ctx context.Context, f Filter) ([]Record, error) {
	switch f.Kind {
	case "", KindLocations, KindSpecies:
	default:
		return nil, errors.Newf("unknown query kind %q", f.Kind).
			Category(errors.CategoryValidation).
			Component("history").
			Build()
	}

	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}

	tx := s.db.WithContext(ctx).Model(&Record{})
	if f.Kind != "" {
		tx = tx.Where("kind = ?", f.Kind)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}

	var records []Record
	if err := tx.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, dbError(err, "recent")
	}
	return records, nil
}

// Get returns the record of one query.
func (s *Store) Get(ctx context.Context, queryID string) (*Record, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("query_id = ?", queryID).First(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errors.Newf("query %s not found in history", queryID).
			Category(errors.CategoryNotFound).
			Component("history").
			Build()
	case err != nil:
		return nil, dbError(err, "get")
	}
	return &rec, nil
}

// StatusCounts returns the number of journaled queries per status.
func (s *Store) StatusCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := s.db.WithContext(ctx).Model(&Record{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "status_counts")
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

// Prune deletes records created before cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Record{})
	if res.Error != nil {
		return 0, dbError(res.Error, "prune")
	}
	if res.RowsAffected > 0 {
		s.log.Info("pruned query history",
			logger.Int64("deleted", res.RowsAffected),
			logger.Time("cutoff", cutoff))
	}
	return res.RowsAffected, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close")
	}
	return nil
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Category(errors.CategoryDatabase).
		Component("history").
		Context("operation", operation).
		Build()
}

func configError(msg string) error {
	return errors.Newf("%s", msg).
		Category(errors.CategoryConfiguration).
		Component("history").
		Build()
}
