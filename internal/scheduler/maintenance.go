// Package scheduler triggers periodic maintenance on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/DarienLibrary/covercache-public/internal/config"
)

// DefaultSchedule is daily at 03:00.
const DefaultSchedule = "0 3 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Job starts one maintenance run, either inline or by enqueueing it.
type Job func(ctx context.Context) error

// MaintenanceScheduler runs Job on the configured schedule. Ticks that fire
// while the previous job is still running are skipped.
type MaintenanceScheduler struct {
	cfg config.Maintenance
	job Job

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
	busy      sync.Mutex
	ctx       context.Context
}

func NewMaintenanceScheduler(cfg config.Maintenance, job Job) *MaintenanceScheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	return &MaintenanceScheduler{
		cfg:  cfg,
		job:  job,
		cron: cron.New(cron.WithParser(parser)),
		ctx:  context.Background(),
	}
}

// ValidateSchedule checks a five field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRun returns the next time the schedule fires after from.
func NextRun(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// Start schedules the job when maintenance is enabled. Jobs receive ctx.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.cfg.Enabled {
		log.Info().Msg("Maintenance scheduler disabled")
		return nil
	}
	if err := ValidateSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}

	s.ctx = ctx
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.run); err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	s.cron.Start()
	s.isRunning = true

	next, _ := NextRun(s.cfg.Schedule, time.Now())
	log.Info().Str("schedule", s.cfg.Schedule).Time("next_run", next).Msg("Maintenance scheduler started")
	return nil
}

// Stop stops scheduling and waits for a running job to return.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	log.Info().Msg("Maintenance scheduler stopped")
}

// RunNow triggers the job immediately in the background.
func (s *MaintenanceScheduler) RunNow() {
	go s.run()
}

func (s *MaintenanceScheduler) run() {
	if !s.busy.TryLock() {
		log.Info().Msg("Maintenance job still running, skipping tick")
		return
	}
	defer s.busy.Unlock()

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	if err := s.job(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduled maintenance failed")
		return
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("Scheduled maintenance triggered")
}
