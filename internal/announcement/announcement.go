package announcement

import (
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

// Announcement is an archived company announcement.
type Announcement struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Link      string    `json:"link,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func fromRecord(a scraper.Announcement) Announcement {
	return Announcement{
		Symbol:   a.Symbol,
		Date:     a.Date,
		Title:    a.Title,
		Category: a.Category,
		Link:     a.Link,
		Kind:     a.Kind,
		Content:  a.Content,
	}
}
