package price

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	domain "github.com/ahmethakanbesel/psx-data/internal/price"
)

const (
	dateFormat = "2006-01-02"
	batchSize  = 500
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SavePrices inserts rows in batches. A row for an already stored
// (symbol, date) is ignored; the count returned covers new rows only.
func (r *Repository) SavePrices(ctx context.Context, prices []domain.Price) (int64, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	var total int64
	for batch := range slices.Chunk(prices, batchSize) {
		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*7)
		for j, p := range batch {
			placeholders[j] = "(?, ?, ?, ?, ?, ?, ?)"
			args = append(args, p.Symbol, p.Date.Format(dateFormat), p.Open, p.High, p.Low, p.Close, p.Volume)
		}

		query := fmt.Sprintf( //nolint:gosec // placeholders are not user input
			"INSERT OR IGNORE INTO prices (symbol, date, open, high, low, close, volume) VALUES %s",
			strings.Join(placeholders, ", "),
		)

		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("save prices: %w", err)
		}

		n, _ := res.RowsAffected()
		total += n
	}

	return total, nil
}

func (r *Repository) ListPrices(ctx context.Context, symbol string, from, to time.Time) ([]domain.Price, error) {
	const query = `SELECT id, symbol, date, open, high, low, close, volume, created_at
		FROM prices
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query, symbol, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var prices []domain.Price
	for rows.Next() {
		var p domain.Price
		var dateStr, createdStr string
		if err := rows.Scan(&p.ID, &p.Symbol, &dateStr, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &createdStr); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		p.Date, _ = time.Parse(dateFormat, dateStr)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		prices = append(prices, p)
	}

	return prices, rows.Err()
}

func (r *Repository) ExistingDates(ctx context.Context, symbol string, from, to time.Time) (map[time.Time]bool, error) {
	const query = `SELECT date FROM prices
		WHERE symbol = ? AND date >= ? AND date <= ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("existing dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	dates := make(map[time.Time]bool)
	for rows.Next() {
		var dateStr string
		if err := rows.Scan(&dateStr); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		t, _ := time.Parse(dateFormat, dateStr)
		dates[t] = true
	}

	return dates, rows.Err()
}
