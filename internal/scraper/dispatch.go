package scraper

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// UnitResult is the outcome of one fetch unit. Exactly one of Prices or Err
// is meaningful.
type UnitResult struct {
	Unit   FetchUnit
	Prices []Price
	Err    error
}

// Dispatch runs f for every unit on at most workers goroutines. Result i
// belongs to units[i]. A failing unit does not cancel its siblings; units
// that have not started when ctx is done fail with ctx's error.
func Dispatch(ctx context.Context, f PriceFetcher, units []FetchUnit, workers int) []UnitResult {
	if workers <= 0 {
		workers = 1
	}
	results := make([]UnitResult, len(units))

	var g errgroup.Group
	g.SetLimit(workers)

	for i, u := range units {
		g.Go(func() error {
			results[i] = runUnit(ctx, f, u)
			return nil
		})
	}

	// Workers never return an error; failures live in their result slot.
	_ = g.Wait()
	return results
}

func runUnit(ctx context.Context, f PriceFetcher, u FetchUnit) UnitResult {
	if err := ctx.Err(); err != nil {
		return UnitResult{Unit: u, Err: &FetchError{Symbol: u.Symbol, Range: u.Range, Err: err}}
	}

	prices, err := f.FetchPrices(ctx, u)
	if err != nil {
		slog.Error("error retrieving psx data", "symbol", u.Symbol,
			"from", u.Range.From.Format(dateFormat), "to", u.Range.To.Format(dateFormat), "error", err)
		if _, ok := err.(*FetchError); !ok {
			err = &FetchError{Symbol: u.Symbol, Range: u.Range, Err: err}
		}
		return UnitResult{Unit: u, Err: err}
	}
	return UnitResult{Unit: u, Prices: prices}
}
