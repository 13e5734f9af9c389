// Package scheduler runs the pipeline on a cron schedule for daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one scheduled unit of work bounded by its context.
type Job func(ctx context.Context) error

// Scheduler triggers the job on a cron expression. Ticks that arrive while a
// run is still in flight are skipped; overlapping runs would race on the
// tracker files.
type Scheduler struct {
	cron       *cron.Cron
	runTimeout time.Duration
	running    atomic.Bool
	logger     zerolog.Logger
}

func New(runTimeout time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Schedule registers the job under a standard 5-field cron expression.
func (s *Scheduler) Schedule(spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, s.tick(job)); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) tick(job Job) func() {
	return func() {
		if !s.running.CompareAndSwap(false, true) {
			s.logger.Warn().Msg("previous run still in flight, skipping tick")
			return
		}
		defer s.running.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()

		started := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("scheduled run failed")
			return
		}
		s.logger.Info().Dur("elapsed", time.Since(started)).Msg("scheduled run finished")
	}
}

// Start runs the schedule until ctx is canceled, then waits for any
// in-flight run to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}
