package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/statdeck/ladderd/internal/backlog"
	"github.com/statdeck/ladderd/internal/cache"
	"github.com/statdeck/ladderd/internal/config"
	"github.com/statdeck/ladderd/internal/fetcher"
	"github.com/statdeck/ladderd/internal/ingest"
	"github.com/statdeck/ladderd/internal/notify"
	"github.com/statdeck/ladderd/internal/scheduler"
	"github.com/statdeck/ladderd/internal/server"
	"github.com/statdeck/ladderd/internal/store"
)

// Cron cadences, all in UTC. The periodic cadence fires 25 minutes past
// every second hour; the remote publishes each 2-hour window shortly after
// it closes, and snapshot identifiers are derived from now-120min, so every
// trigger sees a published window.
const (
	periodicSpec = "25 */2 * * *"
	dailySpec    = "50 3 * * *"
	monthlySpec  = "10 5 * * *"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	cancel()

	pgStore := store.NewPostgres(db)
	if err := pgStore.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	reportCache, err := cache.New(cfg.CacheDir)
	if err != nil {
		slog.Error("failed to init cache", "error", err)
		os.Exit(1)
	}

	client := fetcher.New(cfg.RankingAPIURL)
	tracker := backlog.New(pgStore)

	var sink notify.Notifier = notify.Noop{}
	if cfg.NotifyWebhookURL != "" {
		sink = notify.NewWebhook(cfg.NotifyWebhookURL)
	}

	orch := ingest.New(client, pgStore, tracker, sink, cfg.BacklogDelay, cfg.EventsDisabled)

	// Run the periodic ingestion once immediately on startup.
	slog.Info("running initial periodic ingestion")
	orch.RunPeriodic(context.Background())

	sched := scheduler.New([]scheduler.Job{
		{Name: "periodic", Spec: periodicSpec, Run: orch.RunPeriodic},
		{Name: "daily", Spec: dailySpec, Run: orch.RunDaily},
		{Name: "monthly", Spec: monthlySpec, Run: orch.RunMonthly},
	})
	if err := sched.Start(context.Background()); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	srv := server.New(cfg, reportCache, pgStore)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
