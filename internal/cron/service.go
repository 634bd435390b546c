package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arooba/marketplace-backend/pkg/logger"
	"github.com/arooba/marketplace-backend/pkg/metrics"
)

const defaultTick = 15 * time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Interval is how often the service wakes to look for due jobs.
	Interval time.Duration
}

// Service wakes on a fixed tick and runs the jobs that are due under the cluster lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	tick     time.Duration
	now      func() time.Time
}

type holderReporter interface {
	Holder(ctx context.Context) (string, error)
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	tick := params.Interval
	if tick <= 0 {
		tick = defaultTick
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		tick:     tick,
		now:      time.Now,
	}, nil
}

// Run starts the cron loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle runs every due job once. The lease is extended between jobs; if it was lost the
// remaining jobs wait for the next tick rather than racing the new holder.
func (s *Service) runCycle(ctx context.Context) error {
	now := s.now().UTC()
	due := s.registry.Due(now)
	if len(due) == 0 {
		return nil
	}

	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logSkipped(ctx)
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	cycleCtx := s.logg.WithField(ctx, "jobs_due", len(due))
	s.logg.Info(cycleCtx, "scheduled run starting")
	for i, job := range due {
		if i > 0 {
			if err := s.lock.Extend(ctx); err != nil {
				if errors.Is(err, ErrLockLost) {
					return fmt.Errorf("stopping before %s: %w", job.Name(), err)
				}
				return fmt.Errorf("extend lock before %s: %w", job.Name(), err)
			}
		}
		if s.runJob(ctx, job) == nil {
			s.registry.markRun(job.Name(), now)
		}
	}
	s.logg.Info(cycleCtx, "scheduled run complete")
	return nil
}

func (s *Service) logSkipped(ctx context.Context) {
	if reporter, ok := s.lock.(holderReporter); ok {
		if holder, err := reporter.Holder(ctx); err == nil && holder != "" {
			ctx = s.logg.WithField(ctx, "lock_holder", holder)
		}
	}
	s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
}

// runJob runs one job and records its outcome. Failed jobs stay due for the next tick.
func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
	return nil
}
