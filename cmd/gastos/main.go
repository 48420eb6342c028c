package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"gastos/internal/amqp"
	"gastos/internal/backend"
	"gastos/internal/cache"
	"gastos/internal/config"
	"gastos/internal/filestore"
	apphttp "gastos/internal/http"
	"gastos/internal/live"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

// fanoutNotifier wakes live subscriptions and drops cached dashboard views
// after every write.
type fanoutNotifier struct {
	hub        *live.Hub
	dashboards *services.DashboardService
}

func (n *fanoutNotifier) Notify(uid, collection string) {
	n.dashboards.Invalidate(uid)
	n.hub.Notify(uid, collection)
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

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

	// Event publishing is best effort: the API stays up without the broker.
	var publisher services.EventPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, running without event publishing", "error", err)
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	receipts, err := filestore.NewDisk(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		logger.Error("Failed to prepare receipt storage", "error", err, "dir", cfg.UploadDir)
		os.Exit(1)
	}

	hub := live.NewHub(res.Store)
	dashboards := services.NewDashboardService(res.Store, res.Store, cfg.DefaultLocale)
	notifier := &fanoutNotifier{hub: hub, dashboards: dashboards}

	cacheManager := cache.NewManager()
	cacheManager.Register(dashboards.ViewCache())
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:       ":" + cfg.Port,
		Records:    services.NewRecordService(res.Store, res.Store, notifier, publisher),
		Payments:   services.NewPaymentService(res.Store, res.Store, receipts, notifier),
		Dashboards: dashboards,
		Auth:       services.NewAuthService(res.Store, res.Store, cfg.SessionTTL),
		Users:      res.Store,
		Hub:        hub,
		ReceiptDir: receipts.Dir(),
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 0 // event streams stay open indefinitely
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting gastos server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
