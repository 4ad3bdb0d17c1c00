package job

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const dateFormat = "2006-01-02"

// Processor handles execution of a claimed job.
type Processor interface {
	Process(ctx context.Context, j *Job) error
}

// PoolOption configures a WorkerPool.
type PoolOption func(*WorkerPool)

// WithPollInterval sets how often idle workers look for pending jobs
// without being notified.
func WithPollInterval(d time.Duration) PoolOption {
	return func(wp *WorkerPool) {
		if d > 0 {
			wp.pollInterval = d
		}
	}
}

// WithJobTimeout bounds the time a single job may run. Zero means no bound.
func WithJobTimeout(d time.Duration) PoolOption {
	return func(wp *WorkerPool) { wp.jobTimeout = d }
}

// Stats counts the jobs a pool has handled since it started.
type Stats struct {
	Workers   int   `json:"workers"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// WorkerPool runs a fixed number of goroutines that claim and process
// pending fetch jobs.
type WorkerPool struct {
	repo         Repository
	processor    Processor
	workers      int
	notify       chan struct{}
	pollInterval time.Duration
	jobTimeout   time.Duration

	processed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(repo Repository, processor Processor, workers int, opts ...PoolOption) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	wp := &WorkerPool{
		repo:         repo,
		processor:    processor,
		workers:      workers,
		notify:       make(chan struct{}, 1),
		pollInterval: 5 * time.Second,
	}
	for _, o := range opts {
		o(wp)
	}
	return wp
}

// Notify wakes idle workers to check for pending jobs. Non-blocking.
func (wp *WorkerPool) Notify() {
	select {
	case wp.notify <- struct{}{}:
	default:
	}
}

// Stats returns a snapshot of the pool counters.
func (wp *WorkerPool) Stats() Stats {
	return Stats{
		Workers:   wp.workers,
		Processed: wp.processed.Load(),
		Failed:    wp.failed.Load(),
	}
}

// Run starts worker goroutines and blocks until ctx is cancelled and all
// workers have drained.
func (wp *WorkerPool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := range wp.workers {
		wg.Go(func() { wp.loop(ctx, i) })
	}
	wg.Wait()
}

func (wp *WorkerPool) loop(ctx context.Context, id int) {
	ticker := time.NewTicker(wp.pollInterval)
	defer ticker.Stop()

	for {
		wp.drain(ctx, id)

		select {
		case <-ctx.Done():
			return
		case <-wp.notify:
		case <-ticker.C:
		}
	}
}

func (wp *WorkerPool) drain(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		j, err := wp.repo.ClaimPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // shutting down
			}
			slog.Error("worker: claim pending", "worker", id, "error", err)
			return
		}
		if j == nil {
			return
		}

		wp.run(ctx, id, j)
	}
}

func (wp *WorkerPool) run(ctx context.Context, id int, j *Job) {
	slog.Info("worker: processing job", "worker", id, "job", j.ID, "symbol", j.Symbol,
		"from", j.StartDate.Format(dateFormat), "to", j.EndDate.Format(dateFormat))

	if wp.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := wp.processor.Process(ctx, j)
	wp.processed.Add(1)
	if err != nil {
		wp.failed.Add(1)
		slog.Error("worker: process job", "worker", id, "job", j.ID, "error", err)
		return
	}
	slog.Info("worker: job done", "worker", id, "job", j.ID, "status", j.Status,
		"records", j.RecordsCount, "failed_units", j.FailedUnits, "took", time.Since(start))
}
