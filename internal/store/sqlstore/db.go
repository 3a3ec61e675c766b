// Package sqlstore implements store.Store on a relational database through
// gorm. SQLite is the default; PostgreSQL is reached through lib/pq.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and tunes the relational backend
type Config struct {
	Driver        string        // "sqlite" or "postgres"
	DSN           string        // file path for sqlite, connection URL for postgres
	SlowThreshold time.Duration // queries slower than this are logged as warnings
}

// Store wraps the gorm handle
type Store struct {
	db     *gorm.DB
	driver string
	now    func() time.Time
	logger *logrus.Logger
}

// Open connects to the database and migrates the schema
func Open(cfg Config, logger *logrus.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		cfg.Driver = DriverSQLite
		dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.DSN)
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        cfg.DSN,
		})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	now := func() time.Time {
		// Postgres keeps microseconds; truncate so values round-trip on every driver
		return time.Now().UTC().Truncate(time.Microsecond)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(logger, cfg.SlowThreshold),
		TranslateError: true,
		NowFunc:        now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// SQLite works best with a single writer
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	s := &Store{db: db, driver: cfg.Driver, now: now, logger: logger}
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return s, nil
}

// Migrate creates or updates the series table and its indexes
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&seriesRow{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Maintain refreshes query planner statistics
func (s *Store) Maintain(ctx context.Context) error {
	stmt := "PRAGMA optimize"
	if s.driver == DriverPostgres {
		stmt = "ANALYZE series"
	}
	if err := s.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to run %s: %w", stmt, err)
	}
	s.logger.WithField("driver", s.driver).Debug("Database maintenance completed")
	return nil
}
