package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

// DefaultReportYears is how far back Reports reads when no cut-off is given.
const DefaultReportYears = 5

var errNoListings = errors.New("reader: no listing fetcher configured")

// Tickers returns the exchange listing with one row per symbol.
func (r *Reader) Tickers(ctx context.Context) ([]scraper.Ticker, error) {
	if r.listings == nil {
		return nil, errNoListings
	}
	tickers, err := r.listings.FetchTickers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]scraper.Ticker, 0, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		if !symbolPattern.MatchString(t.Symbol) {
			return nil, &scraper.FetchError{Err: fmt.Errorf("listing contains malformed symbol %q", t.Symbol)}
		}
		if seen[t.Symbol] {
			continue
		}
		seen[t.Symbol] = true
		out = append(out, t)
	}
	return out, nil
}

// Equities returns the symbols of every listed instrument that is not a
// debt security, in listing order.
func (r *Reader) Equities(ctx context.Context) ([]string, error) {
	tickers, err := r.Tickers(ctx)
	if err != nil {
		return nil, err
	}
	var symbols []string
	for _, t := range tickers {
		if !t.IsDebt {
			symbols = append(symbols, t.Symbol)
		}
	}
	return symbols, nil
}

// ReportsOptions selects which announcements Reports returns.
type ReportsOptions struct {
	// Tab is the announcements category, e.g. "Financial Results".
	Tab string
	// Years bounds how old an announcement may be. Zero means
	// DefaultReportYears.
	Years int
	// MaxPages stops pagination after this many pages. Zero means no limit.
	MaxPages int
	// IncludeContent fetches the text of announcements that link to an HTML
	// view page.
	IncludeContent bool
}

// Reports returns the announcements of symbol newest first. Pages are read
// until one has no next link or links back to a page already read, an
// announcement older than the cut-off shows up, or MaxPages is reached. A failure after the first page returns what
// was read so far along with the error.
func (r *Reader) Reports(ctx context.Context, symbol string, opts ReportsOptions) ([]scraper.Announcement, error) {
	if r.listings == nil {
		return nil, errNoListings
	}
	syms, err := NormalizeSymbols([]string{symbol})
	if err != nil {
		return nil, err
	}
	symbol = syms[0]

	if opts.Years < 0 {
		return nil, &scraper.ValidationError{Field: "years", Reason: "must not be negative"}
	}
	if opts.MaxPages < 0 {
		return nil, &scraper.ValidationError{Field: "max pages", Reason: "must not be negative"}
	}
	cutoff := r.cutoff(opts.Years)

	var (
		out     []scraper.Announcement
		pageURL string
		pages   int
		visited = make(map[string]bool)
	)
	for {
		page, err := r.listings.FetchAnnouncements(ctx, symbol, opts.Tab, pageURL)
		if err != nil {
			return out, err
		}
		pages++
		if page.URL != "" {
			visited[pageKey(page.URL)] = true
		}
		visited[pageKey(pageURL)] = true

		expired := false
		for _, a := range page.Items {
			if a.Date.Before(cutoff) {
				expired = true
				break
			}
			out = append(out, a)
		}

		if expired || page.Next == "" || (opts.MaxPages > 0 && pages >= opts.MaxPages) {
			break
		}
		if visited[pageKey(page.Next)] {
			slog.Warn("announcement pages link back to a visited page", "symbol", symbol, "next", page.Next)
			break
		}
		pageURL = page.Next
	}

	slog.Info("fetched psx announcements", "symbol", symbol, "tab", opts.Tab, "count", len(out), "pages", pages)

	if opts.IncludeContent {
		return out, r.fillContent(ctx, out)
	}
	return out, nil
}

// fillContent sets Content on view-page announcements. Failed pages leave
// Content empty and are reported together.
func (r *Reader) fillContent(ctx context.Context, items []scraper.Announcement) error {
	var errs []error
	for i := range items {
		if items[i].Kind != scraper.KindView {
			continue
		}
		text, err := r.listings.FetchText(ctx, items[i].Link)
		if err != nil {
			slog.Warn("fetch announcement content", "symbol", items[i].Symbol, "link", items[i].Link, "error", err)
			errs = append(errs, err)
			continue
		}
		items[i].Content = text
	}
	return errors.Join(errs...)
}

// pageKey identifies a page regardless of its fragment, so "#" links to the
// page itself count as visited.
func pageKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// cutoff is the oldest announcement date Reports keeps.
func (r *Reader) cutoff(years int) time.Time {
	if years <= 0 {
		years = DefaultReportYears
	}
	return scraper.Day(r.now()).AddDate(-years, 0, 0)
}
