package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/srijanfest/treasurehunt/internal/config"
	"github.com/srijanfest/treasurehunt/internal/database"
	"github.com/srijanfest/treasurehunt/internal/migrations"
	"github.com/srijanfest/treasurehunt/internal/notify"
	"github.com/srijanfest/treasurehunt/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	store := server.NewSQLiteStore(db)
	if err := server.SeedDemo(ctx, logger, store); err != nil {
		return fmt.Errorf("seeding demo data: %w", err)
	}

	// --- Notification worker ---
	// Live delivery goes to connected SSE subscribers; undeliverable
	// rows stay as in-app records.
	broker := server.NewBroker()
	sender := notify.SenderFunc(func(ctx context.Context, n notify.Notification) error {
		broker.Publish(n.TeamID, server.HuntEvent{
			Type:  "notification",
			Title: n.Title,
			Body:  n.Body,
		})
		return nil
	})
	worker := notify.NewWorker(notify.NewStore(db), sender, logger,
		cfg.NotifyInterval, cfg.NotifyMaxAttempts)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, store, db, broker)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("starting notification worker", "interval", cfg.NotifyInterval)
		return worker.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
