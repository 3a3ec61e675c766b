package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchtrack/internal/metrics"
)

const maintenanceTimeout = 5 * time.Minute

// Maintainer is the store housekeeping hook
type Maintainer interface {
	Maintain(ctx context.Context) error
}

// Scheduler runs periodic store maintenance. It never touches record contents.
type Scheduler struct {
	cron     *cron.Cron
	store    Maintainer
	schedule string
	logger   *logrus.Logger
}

// NewScheduler creates a new scheduler. An empty schedule disables it.
func NewScheduler(schedule string, store Maintainer, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		store:    store,
		schedule: schedule,
		logger:   logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Info("Store maintenance disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, s.runMaintenance)
	if err != nil {
		return fmt.Errorf("failed to add maintenance job: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// runMaintenance executes the maintenance job
func (s *Scheduler) runMaintenance() {
	s.logger.Info("Running scheduled store maintenance")
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	start := time.Now()
	if err := s.store.Maintain(ctx); err != nil {
		metrics.IncMaintenanceRun("error")
		s.logger.WithError(err).Error("Maintenance job failed")
		return
	}

	metrics.IncMaintenanceRun("ok")
	s.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Maintenance job completed successfully")
}
