package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/psx-data/internal/export"
	"github.com/ahmethakanbesel/psx-data/internal/reader"
	"github.com/ahmethakanbesel/psx-data/internal/scraper"
)

const dateFormat = "2006-01-02"

var stocksCmd = &cobra.Command{
	Use:   "stocks [symbol...]",
	Short: "Print daily prices as CSV",
	Long: `Fetches daily OHLCV rows for the given symbols, or for every listed
non-debt symbol with --all, and prints them as CSV ordered by symbol and date.
Rows that could be fetched are printed even when some requests failed.`,
	RunE: runStocks,
}

var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "Print the exchange symbol listing as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rd, closeReader := newReader(cfg)
		defer closeReader()

		tickers, err := rd.Tickers(cmd.Context())
		if err != nil {
			return err
		}
		return export.TickersCSV(os.Stdout, tickers)
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports <symbol>",
	Short: "Print a company's announcements as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runReports,
}

func init() {
	stocksCmd.Flags().String("start", "", "first day, YYYY-MM-DD (required)")
	stocksCmd.Flags().String("end", "", "last day, YYYY-MM-DD (default: today)")
	stocksCmd.Flags().Bool("all", false, "fetch every listed non-debt symbol")
	_ = stocksCmd.MarkFlagRequired("start")

	reportsCmd.Flags().String("tab", "", "announcement category, e.g. \"Financial Results\" or \"Financial Reports\" (default from config)")
	reportsCmd.Flags().Int("years", 0, "how many years back to read (default from config)")
	reportsCmd.Flags().Bool("content", false, "include the text of view-only announcements")
}

func runStocks(cmd *cobra.Command, args []string) error {
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	all, _ := cmd.Flags().GetBool("all")

	start, err := time.Parse(dateFormat, startStr)
	if err != nil {
		return fmt.Errorf("invalid --start %q, expected YYYY-MM-DD", startStr)
	}
	end := time.Now()
	if endStr != "" {
		if end, err = time.Parse(dateFormat, endStr); err != nil {
			return fmt.Errorf("invalid --end %q, expected YYYY-MM-DD", endStr)
		}
	}

	rd, closeReader := newReader(cfg)
	defer closeReader()
	symbols := args
	if all {
		if len(args) > 0 {
			return errors.New("--all takes no symbols")
		}
		if symbols, err = rd.Equities(cmd.Context()); err != nil {
			return err
		}
	}

	prices, fetchErr := rd.Stocks(cmd.Context(), symbols, start, end)
	var ve *scraper.ValidationError
	if errors.As(fetchErr, &ve) {
		return fetchErr
	}
	if err := export.PricesCSV(os.Stdout, prices); err != nil {
		return err
	}
	if fetchErr != nil {
		failed := scraper.FetchErrors(fetchErr)
		slog.Warn("some requests failed", "failed_units", len(failed), "rows", len(prices))
		return fetchErr
	}
	return nil
}

func runReports(cmd *cobra.Command, args []string) error {
	tab, _ := cmd.Flags().GetString("tab")
	years, _ := cmd.Flags().GetInt("years")
	content, _ := cmd.Flags().GetBool("content")

	opts := reader.ReportsOptions{
		Tab:            tab,
		Years:          years,
		MaxPages:       cfg.Reports.MaxPages,
		IncludeContent: content,
	}
	if opts.Tab == "" {
		opts.Tab = cfg.Reports.Tab
	}
	if opts.Years == 0 {
		opts.Years = cfg.Reports.Years
	}

	rd, closeReader := newReader(cfg)
	defer closeReader()

	items, fetchErr := rd.Reports(cmd.Context(), args[0], opts)
	if len(items) == 0 && fetchErr != nil {
		return fetchErr
	}
	if items == nil {
		items = []scraper.Announcement{}
	}
	if err := export.JSON(os.Stdout, items); err != nil {
		return err
	}
	return fetchErr
}
