// Package export writes price tables, ticker listings and announcements in
// the formats served by the HTTP API and printed by the CLI.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

var (
	priceHeader  = []string{"Symbol", "Date", "Open", "High", "Low", "Close", "Volume"}
	tickerHeader = []string{"Symbol", "Name", "Sector", "IsETF", "IsDebt"}
)

// PricesCSV writes one row per price under a header row.
func PricesCSV(w io.Writer, prices []scraper.Price) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(priceHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range prices {
		if err := cw.Write([]string{
			p.Symbol,
			p.Date.Format(time.DateOnly),
			formatFloat(p.Open),
			formatFloat(p.High),
			formatFloat(p.Low),
			formatFloat(p.Close),
			strconv.FormatInt(p.Volume, 10),
		}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// TickersCSV writes one row per ticker under a header row.
func TickersCSV(w io.Writer, tickers []scraper.Ticker) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tickerHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range tickers {
		if err := cw.Write([]string{
			t.Symbol,
			t.Name,
			t.Sector,
			strconv.FormatBool(t.IsETF),
			strconv.FormatBool(t.IsDebt),
		}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSON writes v as indented JSON followed by a newline.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
