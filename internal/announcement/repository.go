package announcement

import (
	"context"
	"time"
)

type Repository interface {
	Save(ctx context.Context, items []Announcement) (int64, error)
	List(ctx context.Context, symbol, category string, since time.Time) ([]Announcement, error)
}
