package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Abandoner marks stale sessions abandoned.
type Abandoner interface {
	AbandonStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically abandons ACTIVE sessions nobody has voted in for
// staleAfter.
type Sweeper struct {
	target     Abandoner
	schedule   string
	staleAfter time.Duration
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
	cron       *cron.Cron
}

func NewSweeper(target Abandoner, schedule string, staleAfter time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Sweeper{
		target:     target,
		schedule:   schedule,
		staleAfter: staleAfter,
		timeout:    time.Minute,
		logger:     logger,
		now:        time.Now,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start registers the sweep and starts the scheduler in the background.
func (s *Sweeper) Start() error {
	if s.staleAfter <= 0 {
		return fmt.Errorf("stale session age must be positive, got %s", s.staleAfter)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() {
		_, _ = s.RunOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule session sweep %q: %w", s.schedule, err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler; the returned context is done once a running
// sweep finishes.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cutoff := s.now().Add(-s.staleAfter)
	count, err := s.target.AbandonStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("session sweep failed",
			"event", "session_sweep_failed",
			"module", "jobs",
			"error", err.Error(),
		)
		return 0, err
	}
	s.logger.Info("session sweep finished",
		"event", "session_sweep_finished",
		"module", "jobs",
		"abandoned", count,
		"cutoff", cutoff,
	)
	return count, nil
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, append([]interface{}{"module", "cron"}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"module", "cron", "error", err}, keysAndValues...)...)
}
