package scraper

import (
	"errors"
	"slices"
)

// Merge assembles unit results into one table: rows are grouped by symbol,
// sorted by date, stripped of duplicate dates (first occurrence wins) and
// concatenated in the order of symbols. Rows of symbols not listed are
// appended after them in first-seen order. Unit errors are joined in unit
// order and returned alongside the rows.
func Merge(symbols []string, results []UnitResult) ([]Price, error) {
	groups := make(map[string][]Price, len(symbols))
	order := slices.Clone(symbols)
	var errs []error

	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		for _, p := range r.Prices {
			if _, seen := groups[p.Symbol]; !seen && !slices.Contains(order, p.Symbol) {
				order = append(order, p.Symbol)
			}
			groups[p.Symbol] = append(groups[p.Symbol], p)
		}
	}

	var out []Price
	for _, s := range order {
		out = append(out, MergeSymbol(groups[s])...)
	}
	return out, errors.Join(errs...)
}

// MergeSymbol sorts one symbol's rows by date and drops repeated dates,
// keeping the first occurrence.
func MergeSymbol(prices []Price) []Price {
	if len(prices) == 0 {
		return nil
	}
	sorted := slices.Clone(prices)
	slices.SortStableFunc(sorted, func(a, b Price) int {
		return a.Date.Compare(b.Date)
	})

	out := sorted[:1]
	for _, p := range sorted[1:] {
		if p.Date.Equal(out[len(out)-1].Date) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// GroupBySymbol splits a merged table into one table per symbol.
func GroupBySymbol(prices []Price) map[string][]Price {
	out := make(map[string][]Price)
	for _, p := range prices {
		out[p.Symbol] = append(out[p.Symbol], p)
	}
	return out
}
