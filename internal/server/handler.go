package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/announcement"
	"github.com/ahmethakanbesel/psx-data/internal/apperror"
	"github.com/ahmethakanbesel/psx-data/internal/export"
	"github.com/ahmethakanbesel/psx-data/internal/job"
	"github.com/ahmethakanbesel/psx-data/internal/price"
	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

const dateFormat = "2006-01-02"

// TickerLister returns the live exchange listing.
type TickerLister interface {
	Tickers(ctx context.Context) ([]scraper.Ticker, error)
}

// Deps are the services the handlers call. Stats is optional.
type Deps struct {
	Prices        *price.Service
	Jobs          *job.Service
	Announcements *announcement.Service
	Tickers       TickerLister
	Stats         func() job.Stats
}

type handler struct {
	priceSvc        *price.Service
	jobSvc          *job.Service
	announcementSvc *announcement.Service
	tickers         TickerLister
	stats           func() job.Stats
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.stats != nil {
		body["workers"] = h.stats()
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handler) listTickers(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "csv" {
		writeError(w, http.StatusBadRequest, "format must be json or csv")
		return
	}

	tickers, err := h.tickers.Tickers(r.Context())
	if err != nil {
		writeAppError(w, r, apperror.FromScraper(err))
		return
	}

	if format == "csv" {
		writeCSV(w, "tickers.csv", func(w http.ResponseWriter) error { return export.TickersCSV(w, tickers) })
		return
	}
	writeJSON(w, http.StatusOK, tickers)
}

func (h *handler) getPrices(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	startDateStr := r.URL.Query().Get("startDate")
	if startDateStr == "" {
		writeError(w, http.StatusBadRequest, "startDate is required")
		return
	}
	startDate, err := time.Parse(dateFormat, startDateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate format, expected YYYY-MM-DD")
		return
	}

	var endDate time.Time
	if v := r.URL.Query().Get("endDate"); v != "" {
		endDate, err = time.Parse(dateFormat, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate format, expected YYYY-MM-DD")
			return
		}
	}

	format := r.URL.Query().Get("format")

	req := price.GetPricesRequest{
		Symbol:    symbol,
		StartDate: startDate,
		EndDate:   endDate,
		Format:    format,
	}

	if appErr := req.Validate(); appErr != nil {
		writeError(w, appErr.HTTPStatus(), appErr.Message())
		return
	}

	resp, err := h.priceSvc.GetPrices(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	if format == "csv" {
		if resp.Job != nil {
			w.Header().Set("X-Job-ID", strconv.FormatInt(resp.Job.ID, 10))
		}
		writeCSV(w, "prices.csv", func(w http.ResponseWriter) error { return export.PricesCSV(w, price.Records(resp.Prices)) })
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var years int
	if v := q.Get("years"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid years, expected an integer")
			return
		}
		years = n
	}

	req := announcement.GetReportsRequest{
		Symbol:         r.PathValue("symbol"),
		Tab:            q.Get("tab"),
		Years:          years,
		IncludeContent: q.Get("content") == "true",
	}

	resp, err := h.announcementSvc.GetReports(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getJob(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	req := job.GetJobRequest{ID: id}
	if appErr := req.Validate(); appErr != nil {
		writeError(w, appErr.HTTPStatus(), appErr.Message())
		return
	}

	j, err := h.jobSvc.Get(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, j)
}

func (h *handler) listJobs(w http.ResponseWriter, r *http.Request) {
	req := job.ListJobsRequest{
		Symbol: r.URL.Query().Get("symbol"),
	}

	jobs, err := h.jobSvc.List(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

// writeAppError reports coded errors with their status and anything else
// as an internal error.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		writeError(w, ae.HTTPStatus(), ae.Message())
		return
	}
	slog.Error("request failed", "path", r.URL.Path, "requestID", RequestID(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}
