// Package app assembles the service from its parts.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/wire"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/watchtrack/internal/api"
	"github.com/amaumene/watchtrack/internal/config"
	"github.com/amaumene/watchtrack/internal/controllers"
	"github.com/amaumene/watchtrack/internal/scheduler"
	"github.com/amaumene/watchtrack/internal/store"
	"github.com/amaumene/watchtrack/internal/store/boltstore"
	"github.com/amaumene/watchtrack/internal/store/sqlstore"
	"github.com/amaumene/watchtrack/internal/telemetry"
	"github.com/amaumene/watchtrack/internal/utils"
)

// Version is reported to the tracing backend
var Version = "dev"

const slowQueryThreshold = 200 * time.Millisecond

// App is the fully wired HTTP service
type App struct {
	Logger    *logrus.Logger
	Store     store.Store
	Records   *controllers.RecordsController
	Server    *api.Server
	Scheduler *scheduler.Scheduler
}

// Tools is the subset used by one-shot CLI commands
type Tools struct {
	Logger  *logrus.Logger
	Store   store.Store
	Records *controllers.RecordsController
}

// CoreSet provides everything but the HTTP surface
var CoreSet = wire.NewSet(
	ProvideLogger,
	ProvideStore,
	ProvideTelemetry,
	ProvideTracer,
	ProvideRecordsController,
)

// ServerSet adds the HTTP server and the maintenance scheduler
var ServerSet = wire.NewSet(
	CoreSet,
	ProvideServer,
	ProvideScheduler,
)

func ProvideLogger(cfg *config.Config) *logrus.Logger {
	return utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

// ProvideStore opens the configured backend, retrying with exponential
// backoff until STORE_CONNECT_TIMEOUT elapses. A zero timeout tries once.
func ProvideStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (store.Store, func(), error) {
	var s store.Store

	var b backoff.BackOff = &backoff.StopBackOff{}
	if cfg.StoreConnectTimeout > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = cfg.StoreConnectTimeout
		b = eb
	}

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		opened, err := openStore(cfg, logger)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"backend": cfg.StoreBackend,
				"attempt": attempt,
			}).Warn("Store not ready")
			return err
		}
		s = opened
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}

	logger.WithField("backend", cfg.StoreBackend).Info("Store initialized")
	cleanup := func() {
		if err := s.Close(); err != nil {
			logger.WithError(err).Error("Failed to close store")
		}
	}
	return s, cleanup, nil
}

func openStore(cfg *config.Config, logger *logrus.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendBolt:
		return boltstore.Open(cfg.DatabaseFile, logger)
	case config.BackendPostgres:
		return sqlstore.Open(sqlstore.Config{
			Driver:        sqlstore.DriverPostgres,
			DSN:           cfg.DatabaseURL,
			SlowThreshold: slowQueryThreshold,
		}, logger)
	case config.BackendSQLite:
		return sqlstore.Open(sqlstore.Config{
			Driver:        sqlstore.DriverSQLite,
			DSN:           cfg.DatabaseFile,
			SlowThreshold: slowQueryThreshold,
		}, logger)
	default:
		return nil, backoff.Permanent(fmt.Errorf("unsupported store backend %q", cfg.StoreBackend))
	}
}

func ProvideTelemetry(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*telemetry.Provider, func(), error) {
	p, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "watchtrack",
		ServiceVersion: Version,
		Endpoint:       cfg.OTLPEndpoint,
		SamplingRate:   cfg.TracingSampleRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	cleanup := func() {
		if err := p.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Failed to flush traces")
		}
	}
	return p, cleanup, nil
}

func ProvideTracer(p *telemetry.Provider) trace.Tracer {
	return p.Tracer()
}

func ProvideRecordsController(cfg *config.Config, s store.Store, tracer trace.Tracer, logger *logrus.Logger) *controllers.RecordsController {
	return controllers.NewRecordsController(s, cfg.StatsCacheTTL, tracer, logger)
}

func ProvideServer(cfg *config.Config, records *controllers.RecordsController, s store.Store, logger *logrus.Logger) *api.Server {
	return api.NewServer(cfg, records, s, logger)
}

func ProvideScheduler(cfg *config.Config, s store.Store, logger *logrus.Logger) *scheduler.Scheduler {
	return scheduler.NewScheduler(cfg.MaintenanceSchedule, s, logger)
}
