package announcement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmethakanbesel/psx-data/internal/apperror"
	"github.com/ahmethakanbesel/psx-data/internal/reader"
	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

// Fetcher reads announcements from the exchange.
type Fetcher interface {
	Reports(ctx context.Context, symbol string, opts reader.ReportsOptions) ([]scraper.Announcement, error)
}

// Defaults fill in request fields left empty.
type Defaults struct {
	Tab      string
	Years    int
	MaxPages int
}

type Service struct {
	repo     Repository
	fetcher  Fetcher
	defaults Defaults
	now      func() time.Time
}

func NewService(repo Repository, fetcher Fetcher, defaults Defaults) *Service {
	return &Service{repo: repo, fetcher: fetcher, defaults: defaults, now: time.Now}
}

// GetReports fetches announcements live and archives them. When the
// exchange cannot be reached the archived announcements are served instead;
// an error is returned only when the archive has none either.
func (s *Service) GetReports(ctx context.Context, req GetReportsRequest) (*GetReportsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	opts := reader.ReportsOptions{
		Tab:            req.Tab,
		Years:          req.Years,
		MaxPages:       s.defaults.MaxPages,
		IncludeContent: req.IncludeContent,
	}
	if opts.Tab == "" {
		opts.Tab = s.defaults.Tab
	}
	if opts.Years == 0 {
		opts.Years = s.defaults.Years
	}
	symbol := req.symbol()

	fetched, fetchErr := s.fetcher.Reports(ctx, symbol, opts)
	if len(fetched) == 0 && fetchErr != nil {
		return s.fromArchive(ctx, symbol, opts, fetchErr)
	}

	items := make([]Announcement, len(fetched))
	for i, a := range fetched {
		items[i] = fromRecord(a)
	}

	n, err := s.repo.Save(ctx, items)
	if err != nil {
		slog.Error("archive announcements", "symbol", symbol, "error", err)
	} else {
		slog.Info("archived announcements", "symbol", symbol, "tab", opts.Tab, "new", n, "fetched", len(items))
	}

	resp := &GetReportsResponse{Announcements: items, Origin: OriginLive}
	if fetchErr != nil {
		resp.Warning = fetchErr.Error()
	}
	return resp, nil
}

func (s *Service) fromArchive(ctx context.Context, symbol string, opts reader.ReportsOptions, fetchErr error) (*GetReportsResponse, error) {
	years := opts.Years
	if years <= 0 {
		years = reader.DefaultReportYears
	}
	since := scraper.Day(s.now()).AddDate(-years, 0, 0)

	items, err := s.repo.List(ctx, symbol, opts.Tab, since)
	if err != nil {
		return nil, fmt.Errorf("list archived announcements: %w", err)
	}
	if len(items) == 0 {
		return nil, apperror.FromScraper(fmt.Errorf("fetch announcements: %w", fetchErr))
	}

	slog.Warn("serving archived announcements", "symbol", symbol, "count", len(items), "error", fetchErr)
	return &GetReportsResponse{Announcements: items, Origin: OriginArchive, Warning: fetchErr.Error()}, nil
}
