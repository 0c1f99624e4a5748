// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SummaryRecomputer rebuilds stored summaries for every fiscal year and
// reports how many were refreshed.
type SummaryRecomputer interface {
	RecomputeAll(ctx context.Context) (int, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	recomputer SummaryRecomputer
	timeout    time.Duration
	logger     *slog.Logger

	running sync.Mutex
}

// NewScheduler creates a new job scheduler. schedule is a standard 5-field
// cron expression.
func NewScheduler(schedule string, recomputer SummaryRecomputer, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:       c,
		schedule:   schedule,
		recomputer: recomputer,
		timeout:    10 * time.Minute,
		logger:     logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.recomputeSummaries)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("summary_schedule", s.schedule),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers the summary recompute in the background.
func (s *Scheduler) RunNow() {
	go s.recomputeSummaries()
}

// recomputeSummaries skips a tick while a previous run is still going.
func (s *Scheduler) recomputeSummaries() {
	if !s.running.TryLock() {
		s.logger.Warn("summary recompute still running, skipping")
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Info("starting summary recompute")

	n, err := s.recomputer.RecomputeAll(ctx)
	if err != nil {
		s.logger.Error("summary recompute failed",
			slog.Int("fiscal_years_done", n),
			slog.Any("error", err),
		)
		return
	}

	s.logger.Info("summary recompute completed",
		slog.Int("fiscal_years", n),
		slog.Duration("duration", time.Since(start)),
	)
}
