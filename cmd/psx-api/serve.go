package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/psx-data/internal/announcement"
	"github.com/ahmethakanbesel/psx-data/internal/job"
	"github.com/ahmethakanbesel/psx-data/internal/platform/sqlite"
	"github.com/ahmethakanbesel/psx-data/internal/price"
	announcementrepo "github.com/ahmethakanbesel/psx-data/internal/repository/announcement"
	jobrepo "github.com/ahmethakanbesel/psx-data/internal/repository/job"
	pricerepo "github.com/ahmethakanbesel/psx-data/internal/repository/price"
	"github.com/ahmethakanbesel/psx-data/internal/scheduler"
	"github.com/ahmethakanbesel/psx-data/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background fetch workers",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	// Root context: cancelled on SIGINT/SIGTERM so in-flight fetch workers
	// stop promptly during graceful shutdown.
	rootCtx, rootCancel := context.WithCancel(cmd.Context())
	defer rootCancel()

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Repositories
	priceRepo := pricerepo.NewRepository(db.DB)
	jobRepo := jobrepo.NewRepository(db.DB)
	announcementRepo := announcementrepo.NewRepository(db.DB)

	rd, closeReader := newReader(cfg)
	defer closeReader()

	// Services
	jobSvc := job.NewService(jobRepo)
	priceSvc := price.NewService(priceRepo, jobRepo, rd)
	announcementSvc := announcement.NewService(announcementRepo, rd, announcement.Defaults{
		Tab:      cfg.Reports.Tab,
		Years:    cfg.Reports.Years,
		MaxPages: cfg.Reports.MaxPages,
	})

	// Worker pool: picks up pending jobs in the background
	pool := job.NewWorkerPool(jobRepo, priceSvc, cfg.Workers)
	priceSvc.SetNotify(pool.Notify)
	poolDone := make(chan struct{})
	go func() {
		pool.Run(rootCtx)
		close(poolDone)
	}()

	// Re-queue interrupted jobs (pending/running) so workers pick them up.
	if err := jobSvc.RecoverStaleJobs(rootCtx); err != nil {
		slog.Error("failed to recover stale jobs", "error", err)
	}
	pool.Notify()

	if cfg.Schedule.Cron != "" {
		sched, err := scheduler.New(rootCtx, priceSvc, cfg.Schedule.Symbols, cfg.Schedule.LookbackDays)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		if err := sched.Register(cfg.Schedule.Cron); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := server.New(rootCtx, cfg.Port, server.Deps{
		Prices:        priceSvc,
		Jobs:          jobSvc,
		Announcements: announcementSvc,
		Tickers:       rd,
		Stats:         pool.Stats,
	})

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	select {
	case <-rootCtx.Done():
	case err := <-serveErr:
		rootCancel()
		<-poolDone
		return fmt.Errorf("server: %w", err)
	}

	// Cancel root context first so in-flight requests (and their fetch
	// workers) begin winding down immediately.
	rootCancel()

	// Wait for worker pool to drain before shutting down HTTP.
	<-poolDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}
