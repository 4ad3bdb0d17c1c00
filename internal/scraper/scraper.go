// Package scraper holds the source-independent parts of the PSX reader: the
// typed records, the chunk planner, the bounded dispatcher and the merger.
// Source-specific request and parsing code lives in subpackages.
package scraper

import (
	"context"
	"time"
)

const dateFormat = "2006-01-02"

// Price is one daily OHLCV observation.
type Price struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Ticker is one entry of the exchange symbol listing.
type Ticker struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
	IsETF  bool   `json:"isETF"`
	IsDebt bool   `json:"isDebt"`
}

// Announcement kinds, by the link the source offered.
const (
	KindPDF  = "PDF"
	KindView = "View"
)

// Announcement is one company announcement row.
type Announcement struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Link     string    `json:"link,omitempty"`
	Kind     string    `json:"kind,omitempty"`
	Content  string    `json:"content,omitempty"`
}

// AnnouncementPage is one page of an announcement listing. URL is the page
// that was read; Next is empty on the last page.
type AnnouncementPage struct {
	URL   string
	Items []Announcement
	Next  string
}

// FetchUnit is the unit of work handed to a worker.
type FetchUnit struct {
	Symbol string
	Range  DateRange
}

// PriceFetcher fetches the price rows of a single unit.
type PriceFetcher interface {
	FetchPrices(ctx context.Context, unit FetchUnit) ([]Price, error)
}

// ListingFetcher fetches single-shot listings.
type ListingFetcher interface {
	FetchTickers(ctx context.Context) ([]Ticker, error)
	// FetchAnnouncements fetches one announcements page. An empty pageURL
	// selects the first page of symbol's company page.
	FetchAnnouncements(ctx context.Context, symbol, category, pageURL string) (AnnouncementPage, error)
	FetchText(ctx context.Context, pageURL string) (string, error)
}

// Plan expands symbols × windows into fetch units, symbol-major.
func Plan(symbols []string, windows []DateRange) []FetchUnit {
	units := make([]FetchUnit, 0, len(symbols)*len(windows))
	for _, s := range symbols {
		for _, w := range windows {
			units = append(units, FetchUnit{Symbol: s, Range: w})
		}
	}
	return units
}
