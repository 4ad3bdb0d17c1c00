package announcement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/ahmethakanbesel/psx-data/internal/announcement"
)

const dateFormat = "2006-01-02"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save stores announcements in one transaction. An announcement already
// archived under the same symbol, date, title and category is left as is.
func (r *Repository) Save(ctx context.Context, items []domain.Announcement) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save announcements: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO announcements
		(symbol, date, title, category, link, kind, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("save announcements: prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var total int64
	for _, a := range items {
		res, err := stmt.ExecContext(ctx, a.Symbol, a.Date.Format(dateFormat), a.Title, a.Category, a.Link, a.Kind, a.Content)
		if err != nil {
			return 0, fmt.Errorf("save announcement %q: %w", a.Title, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save announcements: commit: %w", err)
	}
	return total, nil
}

// List returns archived announcements on or after since, newest first. An
// empty category matches all categories.
func (r *Repository) List(ctx context.Context, symbol, category string, since time.Time) ([]domain.Announcement, error) {
	query := `SELECT id, symbol, date, title, category, link, kind, content, created_at
		FROM announcements
		WHERE symbol = ? AND date >= ?`
	args := []any{symbol, since.Format(dateFormat)}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY date DESC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []domain.Announcement
	for rows.Next() {
		var a domain.Announcement
		var dateStr, createdStr string
		if err := rows.Scan(&a.ID, &a.Symbol, &dateStr, &a.Title, &a.Category, &a.Link, &a.Kind, &a.Content, &createdStr); err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		a.Date, _ = time.Parse(dateFormat, dateStr)
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		items = append(items, a)
	}

	return items, rows.Err()
}
