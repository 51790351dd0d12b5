package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/service"
)

// Sweeper runs one pass of deadline evaluation.
type Sweeper interface {
	Sweep(ctx context.Context) service.SweepReport
}

// SLAScheduler drives the breach monitor on a cron schedule. Overlapping
// ticks are skipped rather than queued.
type SLAScheduler struct {
	sweeper     Sweeper
	logger      *zap.Logger
	schedule    string
	tickTimeout time.Duration

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSLAScheduler constructs the scheduler. It does not start it.
func NewSLAScheduler(sweeper Sweeper, logger *zap.Logger, schedule string, tickTimeout time.Duration) *SLAScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = "@every 1m"
	}
	if tickTimeout <= 0 {
		tickTimeout = 50 * time.Second
	}
	return &SLAScheduler{sweeper: sweeper, logger: logger, schedule: schedule, tickTimeout: tickTimeout}
}

// Start registers the sweep and begins ticking.
func (s *SLAScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(s.ctx) }); err != nil {
		s.cancel()
		return fmt.Errorf("schedule sla sweep %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("sla monitor started", zap.String("schedule", s.schedule), zap.Duration("tick_timeout", s.tickTimeout))
	return nil
}

// RunOnce performs a single bounded sweep.
func (s *SLAScheduler) RunOnce(ctx context.Context) service.SweepReport {
	ctx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()

	report := s.sweeper.Sweep(ctx)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("sla sweep tick timed out; remaining tickets wait for the next tick",
			zap.Duration("tick_timeout", s.tickTimeout), zap.Int("scanned", report.Scanned))
	}
	return report
}

// Stop cancels an in-flight sweep and waits for it to return or for ctx to end.
func (s *SLAScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	cancel := s.cancel
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	done := c.Stop()
	cancel()

	select {
	case <-done.Done():
		s.logger.Info("sla monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
