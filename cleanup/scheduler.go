package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the sweeper on a cron schedule
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	sweeper  *Sweeper
	schedule string
	entry    cron.EntryID
	running  bool
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler. schedule accepts standard five field cron
// expressions and descriptors such as "@every 6h" or "@daily".
func NewScheduler(sweeper *Sweeper, schedule string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		sweeper:  sweeper,
		schedule: schedule,
		logger:   log.With().Str("component", "cleanupScheduler").Logger(),
	}
}

// Start registers the sweep job and starts the cron loop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if s.entry == 0 {
		entry, err := s.cron.AddFunc(s.schedule, func() {
			s.logger.Debug().Msg("starting scheduled blob sweep")
			if _, err := s.sweeper.Sweep(context.Background()); err != nil {
				s.logger.Error().Err(err).Msg("scheduled blob sweep failed")
			}
		})
		if err != nil {
			return err
		}
		s.entry = entry
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", s.schedule).Msg("cleanup scheduler started")
	return nil
}

// Stop halts the cron loop. The returned context is done once a running sweep has finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.running = false
	s.logger.Info().Msg("cleanup scheduler stopped")
	return s.cron.Stop()
}

// Next returns the time of the next scheduled sweep, zero when not running
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// RunNow runs one sweep immediately
func (s *Scheduler) RunNow(ctx context.Context) (*SweepResult, error) {
	return s.sweeper.Sweep(ctx)
}
