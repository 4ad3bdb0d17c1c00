package psx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

// DefaultCategory is the announcements tab read when none is given.
const DefaultCategory = "Financial Results"

// ReportsCategory is the tab of annual and quarterly report PDFs. Its table
// is filled in by scripts and has no pagination.
const ReportsCategory = "Financial Reports"

type symbolEntry struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	SectorName string `json:"sectorName"`
	IsETF      bool   `json:"isETF"`
	IsDebt     bool   `json:"isDebt"`
}

// FetchTickers fetches the exchange symbol listing.
func (c *Client) FetchTickers(ctx context.Context) ([]scraper.Ticker, error) {
	endpoint := c.baseURL + "/symbols"
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	tickers, err := ParseSymbols(body)
	if err != nil {
		return nil, &scraper.FetchError{URL: endpoint, Err: err}
	}

	slog.Info("retrieved psx symbols", "count", len(tickers))
	return tickers, nil
}

// ParseSymbols decodes the symbol listing. An entry without a symbol means
// the payload no longer has the expected shape and fails the call.
func ParseSymbols(r io.Reader) ([]scraper.Ticker, error) {
	var entries []symbolEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode symbols: %w", err)
	}

	tickers := make([]scraper.Ticker, 0, len(entries))
	for i, e := range entries {
		symbol := strings.ToUpper(strings.TrimSpace(e.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("symbols entry %d has no symbol", i)
		}
		tickers = append(tickers, scraper.Ticker{
			Symbol: symbol,
			Name:   strings.TrimSpace(e.Name),
			Sector: strings.TrimSpace(e.SectorName),
			IsETF:  e.IsETF,
			IsDebt: e.IsDebt,
		})
	}
	return tickers, nil
}

// FetchAnnouncements fetches one page of a company's announcements in the
// given category. An empty pageURL selects the company page itself.
func (c *Client) FetchAnnouncements(ctx context.Context, symbol, category, pageURL string) (scraper.AnnouncementPage, error) {
	if pageURL == "" {
		pageURL = c.baseURL + "/company/" + url.PathEscape(symbol)
	}
	if category == "" {
		category = DefaultCategory
	}

	var body io.ReadCloser
	if category == ReportsCategory && c.renderer != nil {
		body = c.render(ctx, pageURL)
	}
	if body == nil {
		var err error
		body, err = c.get(ctx, pageURL)
		if err != nil {
			return scraper.AnnouncementPage{}, attribute(err, symbol, scraper.DateRange{})
		}
	}
	defer func() { _ = body.Close() }()

	page, err := ParseAnnouncements(body, pageURL, symbol, category)
	if err != nil {
		return scraper.AnnouncementPage{}, &scraper.FetchError{Symbol: symbol, URL: pageURL, Err: err}
	}
	page.URL = pageURL
	return page, nil
}

// render returns the rendered page, or nil when rendering failed and the
// caller should fall back to a plain request.
func (c *Client) render(ctx context.Context, pageURL string) io.ReadCloser {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil
	}
	html, err := c.renderer.Render(ctx, pageURL)
	if err != nil {
		slog.Warn("render failed, fetching static page", "url", pageURL, "error", err)
		return nil
	}
	return io.NopCloser(strings.NewReader(html))
}

// ParseAnnouncements reads the announcement rows of the section whose id is
// the category without spaces, or of the whole page when no such section
// exists. The Financial Reports tab has its own layout, see parseReports.
// Links are resolved against pageURL.
func ParseAnnouncements(r io.Reader, pageURL, symbol, category string) (scraper.AnnouncementPage, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return scraper.AnnouncementPage{}, fmt.Errorf("page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return scraper.AnnouncementPage{}, fmt.Errorf("parse announcements html: %w", err)
	}
	if category == ReportsCategory {
		return parseReports(doc, base, symbol)
	}

	section := doc.Find("#" + strings.ReplaceAll(category, " ", "")).First()
	if section.Length() == 0 {
		section = doc.Selection
	}

	var (
		page   scraper.AnnouncementPage
		rowErr error
	)
	section.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		title := row.Find(".title").First()
		dateCell := row.Find(".date").First()
		if title.Length() == 0 || dateCell.Length() == 0 {
			return true
		}

		when, err := parseAnnouncementDate(strings.TrimSpace(dateCell.Text()))
		if err != nil {
			rowErr = err
			return false
		}

		a := scraper.Announcement{
			Symbol:   symbol,
			Date:     when,
			Title:    strings.TrimSpace(title.Text()),
			Category: category,
		}
		if href, ok := row.Find("a.pdf").Attr("href"); ok {
			a.Link, a.Kind = resolve(base, href), scraper.KindPDF
		} else if href, ok := row.Find("a.view").Attr("href"); ok {
			a.Link, a.Kind = resolve(base, href), scraper.KindView
		}
		page.Items = append(page.Items, a)
		return true
	})
	if rowErr != nil {
		return scraper.AnnouncementPage{}, rowErr
	}

	if href, ok := section.Find("a.next").Attr("href"); ok && strings.TrimSpace(href) != "" {
		page.Next = resolve(base, href)
	}
	return page, nil
}

// parseReports reads the #reports table: the report link in the first cell
// and its date in the third. Rows without a link are skipped. The tab is
// never paginated.
func parseReports(doc *goquery.Document, base *url.URL, symbol string) (scraper.AnnouncementPage, error) {
	section := doc.Find("#reports").First()
	if section.Length() == 0 {
		section = doc.Selection
	}

	var (
		page   scraper.AnnouncementPage
		rowErr error
	)
	section.Find("tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return true
		}
		link := cells.Eq(0).Find("a").First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}

		when, err := parseAnnouncementDate(strings.TrimSpace(cells.Eq(2).Text()))
		if err != nil {
			rowErr = err
			return false
		}

		page.Items = append(page.Items, scraper.Announcement{
			Symbol:   symbol,
			Date:     when,
			Title:    strings.TrimSpace(link.Text()),
			Category: ReportsCategory,
			Link:     resolve(base, href),
			Kind:     scraper.KindPDF,
		})
		return true
	})
	if rowErr != nil {
		return scraper.AnnouncementPage{}, rowErr
	}
	return page, nil
}

// FetchText fetches an HTML page and returns its visible text with runs of
// whitespace collapsed.
func (c *Client) FetchText(ctx context.Context, pageURL string) (string, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", &scraper.FetchError{URL: pageURL, Err: fmt.Errorf("parse html: %w", err)}
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

var announcementDateLayouts = []string{
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"1/2/2006", // month first
	"2 Jan 2006",
}

func parseAnnouncementDate(s string) (time.Time, error) {
	for _, layout := range announcementDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return scraper.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("announcement date %q: unrecognized format", s)
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
