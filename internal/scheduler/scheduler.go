// Package scheduler refreshes the price archive for a watch list of symbols
// on a cron schedule by queuing fetch jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ahmethakanbesel/psx-data/internal/job"
	"github.com/ahmethakanbesel/psx-data/internal/reader"
	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

// Queuer creates fetch jobs, reusing an active job for the same range.
type Queuer interface {
	Queue(ctx context.Context, symbol string, from, to time.Time) (*job.Job, error)
}

// Scheduler queues a fetch job per watched symbol on every tick.
type Scheduler struct {
	cron     *cron.Cron
	queuer   Queuer
	symbols  []string
	lookback int
	now      func() time.Time
	ctx      context.Context
}

// New creates a Scheduler for symbols. Each run covers the last
// lookbackDays days including today.
func New(ctx context.Context, queuer Queuer, symbols []string, lookbackDays int) (*Scheduler, error) {
	syms, err := reader.NormalizeSymbols(symbols)
	if err != nil {
		return nil, fmt.Errorf("watch list: %w", err)
	}
	if len(syms) == 0 {
		return nil, errors.New("watch list: no symbols")
	}
	if lookbackDays <= 0 {
		return nil, fmt.Errorf("lookback must be positive, got %d days", lookbackDays)
	}

	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug))
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		queuer:   queuer,
		symbols:  syms,
		lookback: lookbackDays,
		now:      time.Now,
		ctx:      ctx,
	}, nil
}

// Register adds the refresh task under a standard five-field cron spec,
// e.g. "0 18 * * 1-5".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunNow(s.ctx) }); err != nil {
		return fmt.Errorf("register refresh task %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "symbols", len(s.symbols), "lookback_days", s.lookback)
}

// Stop stops the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunNow queues one job per watched symbol and returns how many were queued.
// A symbol that fails to queue is logged and skipped.
func (s *Scheduler) RunNow(ctx context.Context) int {
	to := scraper.Day(s.now())
	from := to.AddDate(0, 0, -(s.lookback - 1))

	queued := 0
	for _, sym := range s.symbols {
		if ctx.Err() != nil {
			break
		}
		j, err := s.queuer.Queue(ctx, sym, from, to)
		if err != nil {
			slog.Error("scheduler: queue job", "symbol", sym, "error", err)
			continue
		}
		queued++
		slog.Debug("scheduler: queued job", "symbol", sym, "job", j.ID, "status", j.Status)
	}

	slog.Info("scheduled refresh", "queued", queued, "symbols", len(s.symbols),
		"from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"))
	return queued
}
