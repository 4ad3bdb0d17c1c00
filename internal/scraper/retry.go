package scraper

import (
	"context"
	"log/slog"
	"time"
)

type retryFetcher struct {
	next     PriceFetcher
	attempts int
	backoff  time.Duration
}

// Retry wraps f so that each unit is attempted up to attempts times, waiting
// backoff, 2*backoff, ... between tries. Context errors are not retried.
func Retry(f PriceFetcher, attempts int, backoff time.Duration) PriceFetcher {
	if attempts <= 1 {
		return f
	}
	return &retryFetcher{next: f, attempts: attempts, backoff: backoff}
}

func (r *retryFetcher) FetchPrices(ctx context.Context, unit FetchUnit) ([]Price, error) {
	var err error
	for i := range r.attempts {
		if i > 0 {
			wait := r.backoff * time.Duration(i)
			slog.Warn("retrying psx fetch", "symbol", unit.Symbol,
				"from", unit.Range.From.Format(dateFormat), "attempt", i+1, "error", err)
			select {
			case <-ctx.Done():
				return nil, err
			case <-time.After(wait):
			}
		}

		var prices []Price
		prices, err = r.next.FetchPrices(ctx, unit)
		if err == nil {
			return prices, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, err
}
