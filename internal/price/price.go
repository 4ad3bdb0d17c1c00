package price

import (
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

// Price is an archived daily OHLCV row.
type Price struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	CreatedAt time.Time `json:"createdAt"`
}

func fromRecord(p scraper.Price) Price {
	return Price{
		Symbol: p.Symbol,
		Date:   p.Date,
		Open:   p.Open,
		High:   p.High,
		Low:    p.Low,
		Close:  p.Close,
		Volume: p.Volume,
	}
}

// Record returns the row in the fetch layer's shape.
func (p Price) Record() scraper.Price {
	return scraper.Price{
		Symbol: p.Symbol,
		Date:   p.Date,
		Open:   p.Open,
		High:   p.High,
		Low:    p.Low,
		Close:  p.Close,
		Volume: p.Volume,
	}
}

// Records converts archived rows for export.
func Records(prices []Price) []scraper.Price {
	out := make([]scraper.Price, len(prices))
	for i, p := range prices {
		out[i] = p.Record()
	}
	return out
}
