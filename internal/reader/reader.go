// Package reader exposes the public operations over the PSX data portal:
// historical prices for one or many symbols, the symbol listing, and
// company announcements.
package reader

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

const (
	defaultWorkers = 4
	dateFormat     = "2006-01-02"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]*$`)

// Reader runs price requests through the planner, dispatcher and merger and
// forwards listing requests to the listing fetcher. It is safe for
// concurrent use.
type Reader struct {
	prices      scraper.PriceFetcher
	listings    scraper.ListingFetcher
	workers     int
	planner     scraper.Planner
	retries     int
	backoff     time.Duration
	requireData bool
	now         func() time.Time
}

// Option configures a Reader.
type Option func(*Reader)

// WithWorkers sets the number of concurrent fetches per Stocks call.
func WithWorkers(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithChunkDays sets the fetch window size in days. Zero or less selects
// calendar-month windows, the granularity the portal serves. The client
// requests every month a window touches, so windows shorter than a month
// fetch the same month several times.
func WithChunkDays(days int) Option {
	return func(r *Reader) { r.planner = scraper.DayPlanner(days) }
}

// WithRetry retries each failed fetch unit up to attempts times in total,
// waiting backoff, 2*backoff, ... between tries.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(r *Reader) {
		r.retries = attempts
		r.backoff = backoff
	}
}

// WithRequireData makes Stocks report an *scraper.EmptyResultError for a
// symbol that returned no rows without any failed unit.
func WithRequireData() Option {
	return func(r *Reader) { r.requireData = true }
}

// WithClock overrides the time source used for report cut-offs.
func WithClock(now func() time.Time) Option {
	return func(r *Reader) { r.now = now }
}

// New creates a Reader. listings may be nil when only prices are needed.
func New(prices scraper.PriceFetcher, listings scraper.ListingFetcher, opts ...Option) *Reader {
	r := &Reader{
		prices:   prices,
		listings: listings,
		workers:  defaultWorkers,
		planner:  scraper.SplitMonths,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Stocks fetches daily prices for every symbol in [start, end] and returns
// them as one table ordered by symbol (request order) then date.
//
// Symbols are normalized to upper case and de-duplicated. Bad input fails
// with *scraper.ValidationError before any request is made. When some
// fetch units fail the rows of the others are still returned, together
// with the joined *scraper.FetchError values.
func (r *Reader) Stocks(ctx context.Context, symbols []string, start, end time.Time) ([]scraper.Price, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	syms, err := NormalizeSymbols(symbols)
	if err != nil {
		return nil, err
	}
	if len(syms) == 0 {
		return []scraper.Price{}, nil
	}

	start, end = scraper.Day(start), scraper.Day(end)
	units := scraper.Plan(syms, r.planner(start, end))

	fetcher := scraper.Retry(r.prices, r.retries, r.backoff)
	results := scraper.Dispatch(ctx, fetcher, units, r.workers)

	prices, err := scraper.Merge(syms, results)
	r.logSymbols(syms, prices, results)

	if r.requireData {
		err = r.checkEmpty(syms, start, end, prices, results, err)
	}
	return prices, err
}

// Stock is Stocks for a single symbol.
func (r *Reader) Stock(ctx context.Context, symbol string, start, end time.Time) ([]scraper.Price, error) {
	return r.Stocks(ctx, []string{symbol}, start, end)
}

func (r *Reader) logSymbols(syms []string, prices []scraper.Price, results []scraper.UnitResult) {
	rows := make(map[string]int, len(syms))
	for _, p := range prices {
		rows[p.Symbol]++
	}
	failed := make(map[string]int)
	for _, res := range results {
		if res.Err != nil {
			failed[res.Unit.Symbol]++
		}
	}
	for _, s := range syms {
		if failed[s] > 0 {
			slog.Warn("fetched psx prices with failures", "symbol", s, "rows", rows[s], "failed_units", failed[s])
			continue
		}
		slog.Info("fetched psx prices", "symbol", s, "rows", rows[s])
	}
}

func (r *Reader) checkEmpty(syms []string, start, end time.Time, prices []scraper.Price, results []scraper.UnitResult, err error) error {
	seen := make(map[string]bool, len(syms))
	for _, p := range prices {
		seen[p.Symbol] = true
	}
	for _, res := range results {
		if res.Err != nil {
			seen[res.Unit.Symbol] = true
		}
	}

	errs := []error{err}
	for _, s := range syms {
		if !seen[s] {
			errs = append(errs, &scraper.EmptyResultError{
				Symbol: s,
				Range:  scraper.DateRange{From: start, To: end},
			})
		}
	}
	return errors.Join(errs...)
}

// NormalizeSymbols trims, upper-cases and de-duplicates symbols, keeping the
// first occurrence of each. A symbol that is blank or contains characters
// outside A-Z, 0-9, '.' and '-' fails with *scraper.ValidationError.
func NormalizeSymbols(symbols []string) ([]string, error) {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if !symbolPattern.MatchString(s) {
			return nil, &scraper.ValidationError{Field: "symbol", Reason: "malformed symbol " + strconv.Quote(s)}
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

func validateRange(start, end time.Time) error {
	if start.IsZero() {
		return &scraper.ValidationError{Field: "start", Reason: "date is required"}
	}
	if end.IsZero() {
		return &scraper.ValidationError{Field: "end", Reason: "date is required"}
	}
	if scraper.Day(start).After(scraper.Day(end)) {
		return &scraper.ValidationError{
			Field:  "date range",
			Reason: "start " + start.Format(dateFormat) + " is after end " + end.Format(dateFormat),
		}
	}
	return nil
}
