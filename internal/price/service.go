package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/job"
	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

const dateFormat = "2006-01-02"

// minCoverage is the share of weekdays that must already be archived for a
// range to be served without queuing a fetch job.
const minCoverage = 0.8

// Fetcher retrieves merged price rows from the exchange.
type Fetcher interface {
	Stocks(ctx context.Context, symbols []string, start, end time.Time) ([]scraper.Price, error)
}

type Service struct {
	priceRepo Repository
	jobRepo   job.Repository
	fetcher   Fetcher
	notify    func() // optional: wake worker pool
	now       func() time.Time
}

func NewService(priceRepo Repository, jobRepo job.Repository, fetcher Fetcher) *Service {
	return &Service{
		priceRepo: priceRepo,
		jobRepo:   jobRepo,
		fetcher:   fetcher,
		now:       time.Now,
	}
}

// SetNotify sets a callback invoked when a new pending job is created.
func (s *Service) SetNotify(fn func()) { s.notify = fn }

// GetPrices serves archived rows. When the archive covers too little of the
// range a fetch job is queued and its state returned with whatever rows are
// already stored.
func (s *Service) GetPrices(ctx context.Context, req GetPricesRequest) (*GetPricesResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	symbol := req.symbol()
	startDate := scraper.Day(req.StartDate)
	endDate := req.EndDate
	if endDate.IsZero() {
		endDate = s.now()
	}
	endDate = scraper.Day(endDate)

	existing, err := s.priceRepo.ExistingDates(ctx, symbol, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("check existing dates: %w", err)
	}

	// Rough heuristic: the exchange trades on weekdays.
	totalDays := countWeekdays(startDate, endDate)
	coverage := float64(len(existing)) / float64(max(totalDays, 1))

	var j *job.Job
	if coverage <= minCoverage || len(existing) == 0 {
		j, err = s.Queue(ctx, symbol, startDate, endDate)
		if err != nil {
			return nil, err
		}
	}

	prices, err := s.priceRepo.ListPrices(ctx, symbol, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	if prices == nil {
		prices = []Price{}
	}

	return &GetPricesResponse{Prices: prices, Coverage: min(coverage, 1), Job: j}, nil
}

// Queue creates a pending fetch job for the range unless an identical one is
// already pending or running, in which case that job is returned.
func (s *Service) Queue(ctx context.Context, symbol string, from, to time.Time) (*job.Job, error) {
	active, err := s.jobRepo.FindActive(ctx, symbol, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("find active job: %w", err)
	}
	if active != nil {
		return active, nil
	}

	j := &job.Job{
		Symbol:    symbol,
		StartDate: from,
		EndDate:   to,
		Status:    job.StatusPending,
	}
	if err := s.jobRepo.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if s.notify != nil {
		s.notify()
	}
	return j, nil
}

// Process implements job.Processor. Called by the worker pool with a claimed
// (running) job. It fetches the range, saves rows not yet archived and marks
// the job completed, or failed when nothing could be fetched. A job with
// some failed fetch units completes with the failures recorded.
func (s *Service) Process(ctx context.Context, j *job.Job) error {
	existing, err := s.priceRepo.ExistingDates(ctx, j.Symbol, j.StartDate, j.EndDate)
	if err != nil {
		return s.failJob(ctx, j, fmt.Errorf("check existing dates: %w", err))
	}

	fetched, fetchErr := s.fetcher.Stocks(ctx, []string{j.Symbol}, j.StartDate, j.EndDate)
	var ve *scraper.ValidationError
	if errors.As(fetchErr, &ve) || (fetchErr != nil && len(fetched) == 0) {
		j.FailedUnits = len(scraper.FetchErrors(fetchErr))
		return s.failJob(ctx, j, fmt.Errorf("fetch: %w", fetchErr))
	}

	newPrices := make([]Price, 0, len(fetched))
	for _, p := range fetched {
		if existing[p.Date] {
			continue
		}
		newPrices = append(newPrices, fromRecord(p))
	}

	n, err := s.priceRepo.SavePrices(ctx, newPrices)
	if err != nil {
		return s.failJob(ctx, j, fmt.Errorf("save prices: %w", err))
	}

	slog.Info("saved prices", "symbol", j.Symbol, "new", n, "total_fetched", len(fetched))

	j.Status = job.StatusCompleted
	j.RecordsCount = n
	j.FailedUnits = len(scraper.FetchErrors(fetchErr))
	j.Error = ""
	if fetchErr != nil {
		j.Error = fetchErr.Error()
		slog.Warn("job completed with failed units", "job", j.ID, "symbol", j.Symbol, "failed_units", j.FailedUnits)
	}
	if err := s.jobRepo.Update(ctx, j); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (s *Service) failJob(ctx context.Context, j *job.Job, err error) error {
	j.Status = job.StatusFailed
	j.Error = err.Error()
	// The job row must reflect the failure even when ctx is already done.
	_ = s.jobRepo.Update(context.WithoutCancel(ctx), j)
	return err
}

func countWeekdays(from, to time.Time) int {
	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}
