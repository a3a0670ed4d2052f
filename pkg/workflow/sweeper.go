package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSweepSchedule = "@every 1m"
	DefaultSweepGrace    = 2 * time.Minute
	defaultSweepBatch    = 500
)

// Sweeper periodically re-enqueues execution jobs for instances that are due but idle, which
// covers jobs lost by the queue. Duplicate jobs are harmless because of the execution lease.
type Sweeper struct {
	engine   *Engine
	logger   *slog.Logger
	schedule string
	grace    time.Duration
	batch    int
	cron     *cron.Cron
}

func NewSweeper(engine *Engine, logger *slog.Logger, schedule string, grace time.Duration) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	if grace <= 0 {
		grace = DefaultSweepGrace
	}

	return &Sweeper{
		engine:   engine,
		logger:   logger.With("module", "workflow_sweeper", "schedule", schedule),
		schedule: schedule,
		grace:    grace,
		batch:    defaultSweepBatch,
	}
}

// Sweep enqueues every recoverable instance once and returns how many were enqueued.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.engine.now().UTC()

	instances, err := s.engine.persistence.Instances().ListRecoverable(ctx, now, now.Add(-s.grace), s.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list recoverable instances: %w", err)
	}

	enqueued := 0

	for _, instance := range instances {
		runAt := now
		if instance.NextStepAt != nil && instance.NextStepAt.After(now) {
			runAt = *instance.NextStepAt
		}

		_, err := s.engine.enqueueExecution(ctx, instance, runAt)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to re-enqueue instance", "instance_id", instance.ID, "error", err)

			continue
		}

		enqueued++
	}

	if enqueued > 0 {
		s.logger.InfoContext(ctx, "Re-enqueued idle instances", "count", enqueued)
	}

	return enqueued, nil
}

// Start schedules Sweep and blocks until ctx is done.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(s.schedule, func() {
		_, err := s.Sweep(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "Sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.logger.InfoContext(ctx, "Starting sweeper")
	s.cron.Start()

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()

	s.logger.Info("Sweeper stopped")

	return nil
}
