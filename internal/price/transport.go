package price

import (
	"strings"
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/apperror"
	"github.com/ahmethakanbesel/psx-data/internal/job"
	"github.com/ahmethakanbesel/psx-data/internal/reader"
)

type GetPricesRequest struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Format    string // "json" or "csv"
}

func (r GetPricesRequest) Validate() *apperror.AppError {
	if _, err := reader.NormalizeSymbols([]string{r.Symbol}); err != nil {
		return apperror.New(apperror.BadRequest, err.Error())
	}
	if r.StartDate.IsZero() {
		return apperror.New(apperror.BadRequest, "startDate is required")
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		return apperror.New(apperror.BadRequest, "endDate must be after startDate")
	}
	if r.Format != "" && r.Format != "json" && r.Format != "csv" {
		return apperror.New(apperror.BadRequest, "format must be json or csv")
	}
	return nil
}

func (r GetPricesRequest) symbol() string {
	return strings.ToUpper(strings.TrimSpace(r.Symbol))
}

type GetPricesResponse struct {
	Prices   []Price  `json:"prices"`
	Coverage float64  `json:"coverage"`
	Job      *job.Job `json:"job,omitempty"`
}
