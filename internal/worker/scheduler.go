package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/driftwatch/internal/config"
	apperrors "github.com/pratik-mahalle/driftwatch/internal/pkg/errors"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/driftwatch/internal/services"
)

// Scheduler runs detection on a fixed interval. The interval is the
// smallest check_interval_minutes among the enabled detectors; a single
// run always executes every registered detector, so scheduling at the
// tightest cadence satisfies all of them.
type Scheduler struct {
	manager  *services.DetectionManager
	interval int
	cron     *cron.Cron
	logger   *logger.Logger
}

// NewScheduler builds a scheduler for the given manager. Returns nil if
// no detector is enabled.
func NewScheduler(cfg *config.Config, manager *services.DetectionManager, log *logger.Logger) *Scheduler {
	interval := 0
	consider := func(enabled bool, minutes int) {
		if !enabled || minutes <= 0 {
			return
		}
		if interval == 0 || minutes < interval {
			interval = minutes
		}
	}
	consider(cfg.Terraform.Enabled, cfg.Terraform.CheckIntervalMinutes)
	consider(cfg.CloudResources.Enabled, cfg.CloudResources.CheckIntervalMinutes)
	consider(cfg.Configuration.Enabled, cfg.Configuration.CheckIntervalMinutes)

	if interval == 0 {
		return nil
	}

	return &Scheduler{
		manager:  manager,
		interval: interval,
		cron:     cron.New(),
		logger:   log,
	}
}

// Interval reports the scan interval in minutes.
func (s *Scheduler) Interval() int {
	return s.interval
}

// Start runs one immediate scan and then schedules recurring scans.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.WithFields(map[string]interface{}{
		"interval_minutes": s.interval,
	}).Info("Starting drift detection scheduler")

	s.runOnce(ctx)

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", s.interval), func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling detection runs: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("Drift detection scheduler stopped")
}

func (s *Scheduler) runOnce(ctx context.Context) {
	events, err := s.manager.Run(ctx)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindConflict) {
			s.logger.Debug("Detection run already in progress; skipping scheduled run")
			return
		}
		s.logger.ErrorWithErr(err, "Scheduled detection run failed")
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"events": len(events),
	}).Info("Scheduled detection run complete")
}
