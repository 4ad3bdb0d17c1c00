package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

func TestPricesCSV(t *testing.T) {
	var buf bytes.Buffer
	err := PricesCSV(&buf, []scraper.Price{
		{Symbol: "OGDC", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 118, High: 121.5, Low: 117.25, Close: 120, Volume: 2_000_000},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Symbol,Date,Open,High,Low,Close,Volume\nOGDC,2024-01-02,118,121.5,117.25,120,2000000\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPricesCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := PricesCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected header only, got %q", buf.String())
	}
}

func TestTickersCSV_QuotesFields(t *testing.T) {
	var buf bytes.Buffer
	err := TickersCSV(&buf, []scraper.Ticker{
		{Symbol: "OGDC", Name: "Oil & Gas Development Company Limited", Sector: "OIL & GAS EXPLORATION COMPANIES"},
		{Symbol: "NBP", Name: "National Bank of Pakistan, The", Sector: "COMMERCIAL BANKS", IsDebt: false},
		{Symbol: "MZNPETF", Name: "Meezan Pakistan ETF", Sector: "EXCHANGE TRADED FUNDS", IsETF: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[2] != `NBP,"National Bank of Pakistan, The",COMMERCIAL BANKS,false,false` {
		t.Errorf("comma in name not quoted: %s", lines[2])
	}
	if !strings.HasSuffix(lines[3], ",true,false") {
		t.Errorf("unexpected flags: %s", lines[3])
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, map[string]int{"count": 2}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"count\": 2\n}\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
