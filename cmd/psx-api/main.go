// Command psx-api serves and prints Pakistan Stock Exchange prices, the
// symbol listing and company announcements.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/psx-data/internal/config"
	"github.com/ahmethakanbesel/psx-data/internal/platform/browser"
	"github.com/ahmethakanbesel/psx-data/internal/reader"
	"github.com/ahmethakanbesel/psx-data/internal/scraper/psx"
)

var cfg *config.Config

func main() {
	// Interrupting a CLI fetch cancels outstanding requests; rows already
	// merged are still printed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "psx-api",
	Short:         "Pakistan Stock Exchange data reader",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Log.Level = level
		}
		return setupLogger(cfg.Log)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml or ~/.psx/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stocksCmd)
	rootCmd.AddCommand(tickersCmd)
	rootCmd.AddCommand(reportsCmd)
}

// setupLogger installs the default slog handler. Logs go to stderr so CLI
// output on stdout stays machine readable.
func setupLogger(lc config.LogConfig) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(lc.Level))); err != nil {
		return fmt.Errorf("log level %q: %w", lc.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if lc.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// newReader wires the fetch client and reader from the configuration. The
// returned func stops the headless browser if one was started.
func newReader(c *config.Config) (*reader.Reader, func()) {
	opts := []psx.Option{
		psx.WithBaseURL(c.Fetch.BaseURL),
		psx.WithClient(&http.Client{Timeout: c.Fetch.Timeout}),
		psx.WithRateLimit(c.Fetch.RateLimit),
	}
	closeFn := func() {}
	if c.Browser.Enabled {
		renderer := browser.New(browser.Config{
			Timeout:   c.Fetch.Timeout,
			Settle:    c.Browser.Settle,
			NoSandbox: c.Browser.NoSandbox,
		})
		opts = append(opts, psx.WithRenderer(renderer))
		closeFn = renderer.Close
	}

	client := psx.New(opts...)
	rd := reader.New(client, client,
		reader.WithWorkers(c.Fetch.Concurrency),
		reader.WithChunkDays(c.Fetch.ChunkDays),
		reader.WithRetry(c.Fetch.Retries, c.Fetch.RetryBackoff),
	)
	return rd, closeFn
}
