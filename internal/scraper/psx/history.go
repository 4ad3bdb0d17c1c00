package psx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

// historyDateLayout is the date format of the first history column.
const historyDateLayout = "Jan 2, 2006"

// historyColumns is the number of cells in a history row:
// Date, Open, High, Low, Close, Volume.
const historyColumns = 6

// FetchPrices fetches the daily rows of unit.Symbol inside unit.Range. The
// portal serves whole calendar months, so one request is made per month the
// window touches and rows outside the window are dropped.
func (c *Client) FetchPrices(ctx context.Context, unit scraper.FetchUnit) ([]scraper.Price, error) {
	var all []scraper.Price
	for _, month := range scraper.SplitMonths(unit.Range.From, unit.Range.To) {
		rows, err := c.fetchMonth(ctx, unit.Symbol, month.From)
		if err != nil {
			return nil, attribute(err, unit.Symbol, unit.Range)
		}
		for _, p := range rows {
			if unit.Range.Contains(p.Date) {
				all = append(all, p)
			}
		}
	}

	slog.Info("retrieved psx data", "symbol", unit.Symbol,
		"from", unit.Range.From.Format(dateFormat), "to", unit.Range.To.Format(dateFormat),
		"count", len(all))

	return all, nil
}

func (c *Client) fetchMonth(ctx context.Context, symbol string, month time.Time) ([]scraper.Price, error) {
	params := url.Values{}
	params.Set("month", strconv.Itoa(int(month.Month())))
	params.Set("year", strconv.Itoa(month.Year()))
	params.Set("symbol", symbol)

	endpoint := c.baseURL + "/historical"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "text/html")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	prices, err := ParseHistory(body, symbol)
	if err != nil {
		return nil, &scraper.FetchError{URL: endpoint, Err: err}
	}
	return prices, nil
}

// ParseHistory parses the history table markup. Rows without <td> cells
// (headers) are skipped; any other malformed row fails the whole page.
func ParseHistory(r io.Reader, symbol string) ([]scraper.Price, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse history html: %w", err)
	}

	var (
		prices []scraper.Price
		rowErr error
	)
	doc.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return true
		}
		p, err := parseHistoryRow(cells, symbol)
		if err != nil {
			rowErr = fmt.Errorf("history row %d: %w", i, err)
			return false
		}
		prices = append(prices, p)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return prices, nil
}

func parseHistoryRow(cells *goquery.Selection, symbol string) (scraper.Price, error) {
	if cells.Length() < historyColumns {
		return scraper.Price{}, fmt.Errorf("expected %d cells, got %d", historyColumns, cells.Length())
	}

	text := func(i int) string { return strings.TrimSpace(cells.Eq(i).Text()) }

	date, err := time.Parse(historyDateLayout, text(0))
	if err != nil {
		return scraper.Price{}, fmt.Errorf("date %q: %w", text(0), err)
	}

	var vals [historyColumns - 1]float64
	for i := range vals {
		v, err := parseNumber(text(i + 1))
		if err != nil {
			return scraper.Price{}, err
		}
		vals[i] = v
	}

	return scraper.Price{
		Symbol: symbol,
		Date:   scraper.Day(date),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: int64(math.Round(vals[4])),
	}, nil
}

// parseNumber parses figures such as "1,234.50".
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("number %q: %w", s, err)
	}
	return v, nil
}
