// Package scheduler runs the periodic plot regeneration for every approved
// company.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"bsanalyzer/internal/config"
	"bsanalyzer/internal/services"
	"bsanalyzer/pkg/contracts/domain"
)

// DefaultRunTimeout bounds one scheduled regeneration pass.
const DefaultRunTimeout = 30 * time.Minute

// Regenerator rebuilds the plots of all approved companies.
type Regenerator interface {
	RegenerateAll(ctx context.Context, trigger string) ([]domain.RegenerationSummary, error)
}

// Scheduler owns the cron runner for regeneration passes.
type Scheduler struct {
	cron       *cron.Cron
	entry      cron.EntryID
	regen      Regenerator
	runTimeout time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New validates the cron spec and registers the regeneration job. An unknown
// time zone falls back to UTC.
func New(cfg config.SchedulerConfig, regen Regenerator, logger *slog.Logger) (*Scheduler, error) {
	logger = logger.With(slog.String("component", "scheduler"))

	loc := time.UTC
	if cfg.TimeZone != "" {
		l, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			logger.Warn("unknown scheduler time zone, using UTC",
				slog.String("timezone", cfg.TimeZone),
				slog.String("error", err.Error()),
			)
		} else {
			loc = l
		}
	}

	cronLogger := slogAdapter{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		regen:      regen,
		runTimeout: DefaultRunTimeout,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	id, err := s.cron.AddFunc(cfg.Spec, s.run)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("unable to schedule plot regeneration %q: %w", cfg.Spec, err)
	}
	s.entry = id
	return s, nil
}

// Start begins firing the job. Calling it twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("plot regeneration scheduled")
}

// Next returns the next activation time. It is zero until the runner has
// scheduled the entry after Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Stop cancels a running pass and waits for it until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()
	_, _ = s.RunNow(ctx)
}

// RunNow performs one regeneration pass synchronously.
func (s *Scheduler) RunNow(ctx context.Context) ([]domain.RegenerationSummary, error) {
	start := time.Now()
	s.logger.InfoContext(ctx, "scheduled plot regeneration started")

	summaries, err := s.regen.RegenerateAll(ctx, services.TriggerScheduler)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled plot regeneration failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return summaries, err
	}

	var processed, failed int
	for _, summary := range summaries {
		processed += summary.Processed
		failed += summary.Failed
	}
	s.logger.InfoContext(ctx, "scheduled plot regeneration finished",
		slog.Int("companies", len(summaries)),
		slog.Int("processed", processed),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)),
	)
	return summaries, nil
}

// slogAdapter routes cron's own logging to slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a slogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)...)
}
