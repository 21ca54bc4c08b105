// Package scheduler drives periodic jobs on fixed intervals, optionally
// aligned to wall-clock buckets so samples land on round timestamps.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// JobFunc runs once per interval. The bucket is the interval start the run
// belongs to; unaligned schedulers pass the fire time.
type JobFunc func(ctx context.Context, bucket time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval      time.Duration
	AlignToBucket bool
	StartupDelay  time.Duration
}

// Scheduler invokes a job on every interval until its context is cancelled.
// Job errors are logged and do not stop the loop.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %s", opts.Interval)
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Run blocks until ctx is cancelled, firing the job each interval.
func (s *Scheduler) Run(ctx context.Context, job JobFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleepCtx(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	next := s.nextFire(time.Now().UTC())
	for {
		delay := time.Until(next)
		if delay < 0 {
			// The process fell behind (suspend, slow job); realign.
			next = s.nextFire(time.Now().UTC())
			delay = time.Until(next)
		}

		s.logger.Debug().Time("next_fire", next).Msg("waiting for next interval")
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}

		bucket := next
		if s.opts.AlignToBucket {
			bucket = next.Truncate(s.opts.Interval)
		}

		if err := job(ctx, bucket); err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("scheduled job failed")
		}

		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) nextFire(now time.Time) time.Time {
	if !s.opts.AlignToBucket {
		return now.Add(s.opts.Interval)
	}
	fire := now.Truncate(s.opts.Interval)
	for !fire.After(now) {
		fire = fire.Add(s.opts.Interval)
	}
	return fire
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
