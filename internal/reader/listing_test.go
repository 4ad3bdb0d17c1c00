package reader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
	"github.com/ahmethakanbesel/psx-data/internal/scraper/psx"
)

type mockListings struct {
	tickers    []scraper.Ticker
	tickersErr error
	pages      map[string]scraper.AnnouncementPage
	pageErrs   map[string]error
	texts      map[string]string
	requested  []string
	tabs       []string
}

func (m *mockListings) FetchTickers(context.Context) ([]scraper.Ticker, error) {
	return m.tickers, m.tickersErr
}

func (m *mockListings) FetchAnnouncements(_ context.Context, symbol, category, pageURL string) (scraper.AnnouncementPage, error) {
	key := pageURL
	if key == "" {
		key = "first:" + symbol
	}
	m.requested = append(m.requested, key)
	m.tabs = append(m.tabs, category)
	if err := m.pageErrs[key]; err != nil {
		return scraper.AnnouncementPage{}, err
	}
	return m.pages[key], nil
}

func (m *mockListings) FetchText(_ context.Context, pageURL string) (string, error) {
	text, ok := m.texts[pageURL]
	if !ok {
		return "", &scraper.FetchError{URL: pageURL, StatusCode: 404, Err: errors.New("not found")}
	}
	return text, nil
}

func fixedClock() time.Time { return time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC) }

func announcement(title string, y, m, d int) scraper.Announcement {
	return scraper.Announcement{Symbol: "OGDC", Title: title, Date: date(y, m, d), Category: "Financial Results"}
}

func TestTickers(t *testing.T) {
	l := &mockListings{tickers: []scraper.Ticker{
		{Symbol: "OGDC", Name: "Oil & Gas Development"},
		{Symbol: "LUCK", Name: "Lucky Cement"},
		{Symbol: "OGDC", Name: "duplicate"},
	}}
	r := New(nil, l)

	tickers, err := r.Tickers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickers) != 2 {
		t.Fatalf("expected 2 unique tickers, got %d", len(tickers))
	}
	seen := map[string]bool{}
	for _, tk := range tickers {
		if tk.Symbol == "" || !symbolPattern.MatchString(tk.Symbol) {
			t.Errorf("symbol %q is not a non-empty upper-case symbol", tk.Symbol)
		}
		if seen[tk.Symbol] {
			t.Errorf("duplicate symbol %s", tk.Symbol)
		}
		seen[tk.Symbol] = true
	}
	if tickers[0].Name != "Oil & Gas Development" {
		t.Errorf("expected first occurrence kept, got %q", tickers[0].Name)
	}
}

func TestTickers_Malformed(t *testing.T) {
	r := New(nil, &mockListings{tickers: []scraper.Ticker{{Symbol: "ogdc"}}})
	_, err := r.Tickers(context.Background())
	var fe *scraper.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *scraper.FetchError, got %v", err)
	}
}

func TestTickers_NoListings(t *testing.T) {
	if _, err := New(&mockPrices{}, nil).Tickers(context.Background()); err == nil {
		t.Fatal("expected error without listing fetcher")
	}
}

func TestEquities(t *testing.T) {
	r := New(nil, &mockListings{tickers: []scraper.Ticker{
		{Symbol: "OGDC"},
		{Symbol: "PIBTL", IsDebt: true},
		{Symbol: "MZNPETF", IsETF: true},
	}})

	symbols, err := r.Equities(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "OGDC" || symbols[1] != "MZNPETF" {
		t.Errorf("unexpected equities %v", symbols)
	}
}

func TestReports_PaginatesUntilCutoff(t *testing.T) {
	l := &mockListings{pages: map[string]scraper.AnnouncementPage{
		"first:OGDC": {
			Items: []scraper.Announcement{announcement("Q1 2024", 2024, 4, 25), announcement("Q4 2023", 2024, 2, 20)},
			Next:  "page2",
		},
		"page2": {
			Items: []scraper.Announcement{announcement("Q3 2023", 2023, 10, 30), announcement("Q3 2018", 2018, 10, 30)},
			Next:  "page3",
		},
	}}
	r := New(nil, l, WithClock(fixedClock))

	got, err := r.Reports(context.Background(), "ogdc", ReportsOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 announcements inside the 5-year window, got %d", len(got))
	}
	if len(l.requested) != 2 {
		t.Errorf("expected pagination to stop at the cut-off, requested %v", l.requested)
	}
}

func TestReports_YearsOption(t *testing.T) {
	l := &mockListings{pages: map[string]scraper.AnnouncementPage{
		"first:OGDC": {
			Items: []scraper.Announcement{announcement("Q1 2024", 2024, 4, 25), announcement("Q1 2023", 2023, 4, 25)},
			Next:  "page2",
		},
	}}
	r := New(nil, l, WithClock(fixedClock))

	got, err := r.Reports(context.Background(), "OGDC", ReportsOptions{Years: 1, Tab: "Board Meetings"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 announcement within a year, got %d", len(got))
	}
	if l.tabs[0] != "Board Meetings" {
		t.Errorf("tab not forwarded: %q", l.tabs[0])
	}
}

func TestReports_MaxPages(t *testing.T) {
	l := &mockListings{pages: map[string]scraper.AnnouncementPage{
		"first:OGDC": {Items: []scraper.Announcement{announcement("a", 2024, 5, 1)}, Next: "page2"},
		"page2":      {Items: []scraper.Announcement{announcement("b", 2024, 4, 1)}, Next: "page3"},
		"page3":      {Items: []scraper.Announcement{announcement("c", 2024, 3, 1)}},
	}}
	r := New(nil, l, WithClock(fixedClock))

	got, err := r.Reports(context.Background(), "OGDC", ReportsOptions{MaxPages: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || len(l.requested) != 2 {
		t.Errorf("expected 2 pages read, got %d items from %v", len(got), l.requested)
	}
}

func TestReports_NextLinksToSamePage(t *testing.T) {
	l := &mockListings{pages: map[string]scraper.AnnouncementPage{
		"first:OGDC": {
			URL:   "https://dps.psx.com.pk/company/OGDC",
			Items: []scraper.Announcement{announcement("a", 2024, 5, 1)},
			Next:  "https://dps.psx.com.pk/company/OGDC#",
		},
	}}
	r := New(nil, l, WithClock(fixedClock))

	got, err := r.Reports(context.Background(), "OGDC", ReportsOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || len(l.requested) != 1 {
		t.Errorf("expected one page read once, got %d items from %v", len(got), l.requested)
	}
}

func TestReports_NextLinksToEarlierPage(t *testing.T) {
	l := &mockListings{pages: map[string]scraper.AnnouncementPage{
		"first:OGDC": {
			URL:   "https://dps.psx.com.pk/company/OGDC",
			Items: []scraper.Announcement{announcement("a", 2024, 5, 1)},
			Next:  "page2",
		},
		"page2": {
			Items: []scraper.Announcement{announcement("b", 2024, 4, 1)},
			Next:  "https://dps.psx.com.pk/company/OGDC#top",
		},
	}}
	r := New(nil, l, WithClock(fixedClock))

	got, err := r.Reports(context.Background(), "OGDC", ReportsOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || len(l.requested) != 2 {
		t.Errorf("expected two pages read once each, got %d items from %v", len(got), l.requested)
	}
}

func TestReports_DisabledNextLinkOnPortal(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) > 5 {
			http.Error(w, "too many requests", http.StatusInternalServerError)
			return
		}
		_, _ = fmt.Fprint(w, `<div id="FinancialResults"><table>
			<tr><td class="title">Q1 2024</td><td class="date">Apr 25, 2024</td></tr>
		</table><a class="next" href="#">Next</a></div>`)
	}))
	defer ts.Close()

	client := psx.New(psx.WithBaseURL(ts.URL), psx.WithClient(ts.Client()), psx.WithRateLimit(0))
	r := New(client, client, WithClock(fixedClock))

	got, err := r.Reports(context.Background(), "OGDC", ReportsOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 announcement, got %d", len(got))
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
}

func TestReports_LaterPageFails(t *testing.T) {
	l := &mockListings{
		pages: map[string]scraper.AnnouncementPage{
			"first:OGDC": {Items: []scraper.Announcement{announcement("a", 2024, 5, 1)}, Next: "page2"},
		},
		pageErrs: map[string]error{"page2": &scraper.FetchError{Symbol: "OGDC", StatusCode: 503, Err: errors.New("unavailable")}},
	}
	r := New(nil, l, WithClock(fixedClock))

	got, err := r.Reports(context.Background(), "OGDC", ReportsOptions{})
	var fe *scraper.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *scraper.FetchError, got %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected first page to be kept, got %d", len(got))
	}
}

func TestReports_IncludeContent(t *testing.T) {
	view := announcement("Board Meeting", 2024, 5, 1)
	view.Kind, view.Link = scraper.KindView, "https://example.test/view/1"
	broken := announcement("Notice", 2024, 4, 1)
	broken.Kind, broken.Link = scraper.KindView, "https://example.test/view/2"
	pdf := announcement("Accounts", 2024, 3, 1)
	pdf.Kind, pdf.Link = scraper.KindPDF, "https://example.test/a.pdf"

	l := &mockListings{
		pages: map[string]scraper.AnnouncementPage{"first:OGDC": {Items: []scraper.Announcement{view, broken, pdf}}},
		texts: map[string]string{"https://example.test/view/1": "Board meeting on 5 May"},
	}
	r := New(nil, l, WithClock(fixedClock))

	got, err := r.Reports(context.Background(), "OGDC", ReportsOptions{IncludeContent: true})
	if len(scraper.FetchErrors(err)) != 1 {
		t.Fatalf("expected one content failure, got %v", err)
	}
	if got[0].Content != "Board meeting on 5 May" {
		t.Errorf("unexpected content %q", got[0].Content)
	}
	if got[1].Content != "" || got[2].Content != "" {
		t.Error("expected no content for failed view or pdf")
	}
}

func TestReports_Validation(t *testing.T) {
	r := New(nil, &mockListings{}, WithClock(fixedClock))
	tests := []struct {
		name   string
		symbol string
		opts   ReportsOptions
	}{
		{"blank symbol", "", ReportsOptions{}},
		{"negative years", "OGDC", ReportsOptions{Years: -1}},
		{"negative pages", "OGDC", ReportsOptions{MaxPages: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Reports(context.Background(), tt.symbol, tt.opts)
			var ve *scraper.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *scraper.ValidationError, got %v", err)
			}
		})
	}
}
