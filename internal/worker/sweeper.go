package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Expirer finalises attempts whose deadline has passed.
// *service.AttemptService satisfies it.
type Expirer interface {
	ExpireOverdue(ctx context.Context, grace time.Duration) (int, error)
}

// Sweeper periodically expires overdue attempts so a client that never
// submits still gets a graded, closed attempt.
type Sweeper struct {
	expirer Expirer
	grace   time.Duration
	timeout time.Duration
	cron    *cron.Cron
	log     zerolog.Logger
}

// NewSweeper schedules ExpireOverdue on spec, a robfig/cron expression such
// as "@every 1m".
func NewSweeper(expirer Expirer, spec string, grace time.Duration, log zerolog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		expirer: expirer,
		grace:   grace,
		timeout: 50 * time.Second,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:     log.With().Str("component", "sweeper").Logger(),
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info().Dur("grace", s.grace).Msg("Sweeper scheduled")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Sweeper stopped")
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.expirer.ExpireOverdue(ctx, s.grace)
	if err != nil {
		s.log.Error().Err(err).Int("expired", n).Msg("Sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("expired", n).Msg("Overdue attempts finalised")
	}
}
