package announcement

import (
	"strings"

	"github.com/ahmethakanbesel/psx-data/internal/apperror"
	"github.com/ahmethakanbesel/psx-data/internal/reader"
)

type GetReportsRequest struct {
	Symbol         string
	Tab            string
	Years          int
	IncludeContent bool
}

func (r GetReportsRequest) Validate() *apperror.AppError {
	if _, err := reader.NormalizeSymbols([]string{r.Symbol}); err != nil {
		return apperror.New(apperror.BadRequest, err.Error())
	}
	if r.Years < 0 {
		return apperror.New(apperror.BadRequest, "years must not be negative")
	}
	return nil
}

func (r GetReportsRequest) symbol() string {
	return strings.ToUpper(strings.TrimSpace(r.Symbol))
}

// Origin tells where a response's announcements came from.
type Origin string

const (
	OriginLive    Origin = "live"
	OriginArchive Origin = "archive"
)

type GetReportsResponse struct {
	Announcements []Announcement `json:"announcements"`
	Origin        Origin         `json:"origin"`
	Warning       string         `json:"warning,omitempty"`
}
