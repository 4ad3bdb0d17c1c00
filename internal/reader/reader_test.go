package reader

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// mockPrices returns one row per day of the requested window. Units whose
// window starts in a month listed in failMonths fail.
type mockPrices struct {
	calls      atomic.Int64
	failMonths map[string]bool
	empty      map[string]bool
}

func (m *mockPrices) FetchPrices(_ context.Context, u scraper.FetchUnit) ([]scraper.Price, error) {
	m.calls.Add(1)
	if m.failMonths[u.Symbol+" "+u.Range.From.Format("2006-01")] {
		return nil, &scraper.FetchError{Symbol: u.Symbol, Range: u.Range, StatusCode: 500, Err: errors.New("boom")}
	}
	if m.empty[u.Symbol] {
		return nil, nil
	}
	var out []scraper.Price
	for d := u.Range.From; !d.After(u.Range.To); d = d.AddDate(0, 0, 1) {
		out = append(out, scraper.Price{Symbol: u.Symbol, Date: d, Close: float64(d.YearDay()), Volume: 100})
	}
	return out, nil
}

func TestStocks_EmptyList(t *testing.T) {
	m := &mockPrices{}
	r := New(m, nil)

	prices, err := r.Stocks(context.Background(), nil, date(2024, 1, 1), date(2024, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("expected empty table, got %d rows", len(prices))
	}
	if m.calls.Load() != 0 {
		t.Errorf("expected no fetches, got %d", m.calls.Load())
	}
}

func TestStocks_StartAfterEnd(t *testing.T) {
	m := &mockPrices{}
	r := New(m, nil)

	_, err := r.Stocks(context.Background(), []string{"OGDC"}, date(2022, 1, 1), date(2021, 1, 1))
	var ve *scraper.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *scraper.ValidationError, got %v", err)
	}
	if m.calls.Load() != 0 {
		t.Errorf("expected no fetches before validation, got %d", m.calls.Load())
	}
}

func TestStocks_Validation(t *testing.T) {
	tests := []struct {
		name    string
		symbols []string
		start   time.Time
		end     time.Time
	}{
		{"blank symbol", []string{"OGDC", "  "}, date(2024, 1, 1), date(2024, 1, 2)},
		{"bad characters", []string{"OG DC"}, date(2024, 1, 1), date(2024, 1, 2)},
		{"zero start", []string{"OGDC"}, time.Time{}, date(2024, 1, 2)},
		{"zero end", []string{"OGDC"}, date(2024, 1, 1), time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&mockPrices{}, nil)
			_, err := r.Stocks(context.Background(), tt.symbols, tt.start, tt.end)
			var ve *scraper.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *scraper.ValidationError, got %v", err)
			}
		})
	}
}

func TestStocks_MultipleSymbols(t *testing.T) {
	r := New(&mockPrices{}, nil, WithWorkers(3))

	prices, err := r.Stocks(context.Background(), []string{"luck", "OGDC", " LUCK "}, date(2024, 1, 20), date(2024, 2, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 2*22 {
		t.Fatalf("expected 44 rows, got %d", len(prices))
	}

	if prices[0].Symbol != "LUCK" || prices[22].Symbol != "OGDC" {
		t.Errorf("expected symbols in request order, got %s then %s", prices[0].Symbol, prices[22].Symbol)
	}
	for sym, rows := range scraper.GroupBySymbol(prices) {
		for i := 1; i < len(rows); i++ {
			if !rows[i].Date.After(rows[i-1].Date) {
				t.Fatalf("%s: dates not strictly increasing at %d", sym, i)
			}
		}
	}
}

func TestStocks_ChunkingIsInvisible(t *testing.T) {
	ctx := context.Background()
	start, end := date(2023, 11, 15), date(2024, 3, 3)

	monthly, err := New(&mockPrices{}, nil).Stocks(ctx, []string{"OGDC"}, start, end)
	if err != nil {
		t.Fatal(err)
	}
	weekly, err := New(&mockPrices{}, nil, WithChunkDays(7)).Stocks(ctx, []string{"OGDC"}, start, end)
	if err != nil {
		t.Fatal(err)
	}
	single, err := New(&mockPrices{}, nil, WithChunkDays(1000)).Stocks(ctx, []string{"OGDC"}, start, end)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(monthly, weekly) || !reflect.DeepEqual(monthly, single) {
		t.Errorf("merged tables differ: monthly=%d weekly=%d single=%d rows", len(monthly), len(weekly), len(single))
	}
}

func TestStocks_PartialFailure(t *testing.T) {
	m := &mockPrices{failMonths: map[string]bool{"OGDC 2024-02": true}}
	r := New(m, nil)

	prices, err := r.Stocks(context.Background(), []string{"OGDC", "LUCK"}, date(2024, 1, 1), date(2024, 3, 31))
	if err == nil {
		t.Fatal("expected partial failure to be reported")
	}

	fes := scraper.FetchErrors(err)
	if len(fes) != 1 {
		t.Fatalf("expected 1 fetch error, got %d", len(fes))
	}
	if fes[0].Symbol != "OGDC" || fes[0].Range.From != date(2024, 2, 1) {
		t.Errorf("unexpected failed unit: %s %s", fes[0].Symbol, fes[0].Range)
	}

	groups := scraper.GroupBySymbol(prices)
	if len(groups["OGDC"]) != 31+31 {
		t.Errorf("expected 62 OGDC rows, got %d", len(groups["OGDC"]))
	}
	if len(groups["LUCK"]) != 91 {
		t.Errorf("expected 91 LUCK rows, got %d", len(groups["LUCK"]))
	}
	for _, p := range groups["OGDC"] {
		if p.Date.Month() == time.February {
			t.Fatalf("row from failed unit present: %v", p.Date)
		}
	}
}

func TestStocks_AllUnitsFail(t *testing.T) {
	m := &mockPrices{failMonths: map[string]bool{"OGDC 2024-01": true}}
	r := New(m, nil)

	prices, err := r.Stock(context.Background(), "OGDC", date(2024, 1, 1), date(2024, 1, 31))
	if len(prices) != 0 {
		t.Errorf("expected no rows, got %d", len(prices))
	}
	var fe *scraper.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *scraper.FetchError, got %v", err)
	}
}

func TestStocks_Retry(t *testing.T) {
	f := &failOnce{}
	r := New(f, nil, WithRetry(2, time.Millisecond))

	prices, err := r.Stock(context.Background(), "OGDC", date(2024, 1, 1), date(2024, 1, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 1 {
		t.Errorf("expected 1 row, got %d", len(prices))
	}
}

type failOnce struct{ calls atomic.Int64 }

func (f *failOnce) FetchPrices(_ context.Context, u scraper.FetchUnit) ([]scraper.Price, error) {
	if f.calls.Add(1) == 1 {
		return nil, &scraper.FetchError{Symbol: u.Symbol, Err: errors.New("reset")}
	}
	return []scraper.Price{{Symbol: u.Symbol, Date: u.Range.From, Close: 1}}, nil
}

func TestStocks_RequireData(t *testing.T) {
	m := &mockPrices{empty: map[string]bool{"LUCK": true}}
	ctx := context.Background()

	_, err := New(m, nil).Stocks(ctx, []string{"OGDC", "LUCK"}, date(2024, 1, 1), date(2024, 1, 5))
	if err != nil {
		t.Fatalf("expected empty symbol to be tolerated by default, got %v", err)
	}

	prices, err := New(m, nil, WithRequireData()).Stocks(ctx, []string{"OGDC", "LUCK"}, date(2024, 1, 1), date(2024, 1, 5))
	var ee *scraper.EmptyResultError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *scraper.EmptyResultError, got %v", err)
	}
	if ee.Symbol != "LUCK" {
		t.Errorf("expected LUCK, got %s", ee.Symbol)
	}
	if len(prices) != 5 {
		t.Errorf("expected OGDC rows to be kept, got %d", len(prices))
	}
}

func TestStocks_CancelledContext(t *testing.T) {
	m := &mockPrices{}
	r := New(m, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prices, err := r.Stock(ctx, "OGDC", date(2024, 1, 1), date(2024, 2, 29))
	if len(prices) != 0 {
		t.Errorf("expected no rows, got %d", len(prices))
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if m.calls.Load() != 0 {
		t.Errorf("expected no fetches, got %d", m.calls.Load())
	}
}

func TestNormalizeSymbols(t *testing.T) {
	got, err := NormalizeSymbols([]string{" ogdc", "LUCK", "OGDC", "HUBC.R", "PAK-01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"OGDC", "LUCK", "HUBC.R", "PAK-01"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
