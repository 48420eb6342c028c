package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"gastos/internal/amqp"
	"gastos/internal/backend"
	"gastos/internal/config"
	"gastos/internal/export"
	exportgoogle "gastos/internal/export/google"
	applog "gastos/internal/log"
	"gastos/internal/worker"
)

// sessionPruner is implemented by backends with persistent sessions.
type sessionPruner interface {
	PruneSessions(ctx context.Context) (int64, error)
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting gastos-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	res, err := backend.Open(cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to open data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	// Sheet export is optional; without it the worker only maintains totals.
	var writer export.RecordWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := exportgoogle.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewTotalsWorker(res.Store, res.Store, writer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catch up on anything missed while the worker was down.
	if err := w.Reconcile(ctx); err != nil {
		logger.Error("Startup reconcile failed", "error", err)
		// Keep going; the periodic pass will retry.
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeRecordEvents(ctx, func(event *amqp.RecordEvent) error {
			return w.HandleRecordEvent(ctx, event)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return w.RunReconcileLoop(ctx, cfg.ReconcileInterval)
	})

	if pruner, ok := res.Store.(sessionPruner); ok {
		g.Go(func() error {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					n, err := pruner.PruneSessions(ctx)
					if err != nil {
						logger.Error("Session pruning failed", "error", err)
						continue
					}
					if n > 0 {
						logger.Info("Pruned expired sessions", "count", n)
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
