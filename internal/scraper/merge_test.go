package scraper

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMergeSymbol_SortsAndDedups(t *testing.T) {
	in := []Price{
		{Symbol: "OGDC", Date: date(1, 3), Close: 3},
		{Symbol: "OGDC", Date: date(1, 1), Close: 1},
		{Symbol: "OGDC", Date: date(1, 3), Close: 99},
		{Symbol: "OGDC", Date: date(1, 2), Close: 2},
	}

	got := MergeSymbol(in)
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	for i, want := range []float64{1, 2, 3} {
		if got[i].Close != want {
			t.Errorf("row %d close = %v, want %v", i, got[i].Close, want)
		}
	}
	if in[0].Close != 3 {
		t.Error("input slice must not be reordered")
	}
}

func TestMerge_SortedUniquePerSymbol(t *testing.T) {
	results := []UnitResult{
		{Prices: []Price{{Symbol: "LUCK", Date: date(1, 2)}, {Symbol: "LUCK", Date: date(1, 1)}}},
		{Prices: []Price{{Symbol: "OGDC", Date: date(1, 5)}, {Symbol: "OGDC", Date: date(1, 4)}}},
		{Prices: []Price{{Symbol: "LUCK", Date: date(1, 2)}, {Symbol: "LUCK", Date: date(1, 3)}}},
	}

	got, err := Merge([]string{"OGDC", "LUCK"}, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Price{
		{Symbol: "OGDC", Date: date(1, 4)},
		{Symbol: "OGDC", Date: date(1, 5)},
		{Symbol: "LUCK", Date: date(1, 1)},
		{Symbol: "LUCK", Date: date(1, 2)},
		{Symbol: "LUCK", Date: date(1, 3)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("merged = %v, want %v", got, want)
	}

	seen := make(map[string]bool)
	for _, p := range got {
		key := p.Symbol + p.Date.Format(dateFormat)
		if seen[key] {
			t.Errorf("duplicate (symbol, date) %s", key)
		}
		seen[key] = true
	}
}

func TestMerge_ChunkingIsAssociative(t *testing.T) {
	f := &dailyFetcher{}
	ctx := context.Background()
	from, to := date(1, 10), date(4, 20)

	whole := Dispatch(ctx, f, Plan([]string{"OGDC"}, []DateRange{{From: from, To: to}}), 1)
	chunked := Dispatch(ctx, f, Plan([]string{"OGDC"}, SplitMonths(from, to)), 3)
	byDays := Dispatch(ctx, f, Plan([]string{"OGDC"}, SplitDateRange(from, to, 7)), 2)

	a, errA := Merge([]string{"OGDC"}, whole)
	b, errB := Merge([]string{"OGDC"}, chunked)
	c, errC := Merge([]string{"OGDC"}, byDays)
	if errA != nil || errB != nil || errC != nil {
		t.Fatalf("unexpected errors: %v %v %v", errA, errB, errC)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("monthly chunks merged differently from a single pass")
	}
	if !reflect.DeepEqual(a, c) {
		t.Error("weekly chunks merged differently from a single pass")
	}
}

func TestMerge_PartialFailureKeepsRowsAndReportsError(t *testing.T) {
	windows := SplitMonths(date(1, 1), date(3, 31))
	f := &dailyFetcher{fail: map[DateRange]error{windows[1]: errors.New("boom")}}

	results := Dispatch(context.Background(), f, Plan([]string{"OGDC"}, windows), 2)
	got, err := Merge([]string{"OGDC"}, results)

	if err == nil {
		t.Fatal("expected the failed chunk to be reported")
	}
	fes := FetchErrors(err)
	if len(fes) != 1 || fes[0].Range != windows[1] {
		t.Fatalf("expected one fetch error for february, got %v", fes)
	}
	for _, p := range got {
		if windows[1].Contains(p.Date) {
			t.Fatalf("row %v should not exist, its chunk failed", p.Date)
		}
	}
	if want := 31 + 31; len(got) != want {
		t.Errorf("expected %d rows from january and march, got %d", want, len(got))
	}
}

func TestMerge_Empty(t *testing.T) {
	got, err := Merge(nil, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty table and nil error, got %v, %v", got, err)
	}
}

func TestGroupBySymbol(t *testing.T) {
	groups := GroupBySymbol([]Price{
		{Symbol: "OGDC", Date: date(1, 1)},
		{Symbol: "LUCK", Date: date(1, 1)},
		{Symbol: "OGDC", Date: date(1, 2)},
	})
	if len(groups["OGDC"]) != 2 || len(groups["LUCK"]) != 1 {
		t.Errorf("unexpected grouping: %v", groups)
	}
}
