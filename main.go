package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lewisian8787/wrestleguess/app"
	"github.com/lewisian8787/wrestleguess/config"
	"github.com/lewisian8787/wrestleguess/handlers"
	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/metrics"
	"github.com/lewisian8787/wrestleguess/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Configure(cfg.ToLoggingConfig())
	cfg.LogConfiguration()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		logging.Fatalf("Failed to open %s backend: %v", cfg.DBDriver, err)
	}
	defer stores.Close()
	logging.Infof("Using %s backend", stores.Driver)

	m := metrics.Default()

	hub := handlers.NewHub(m)
	go hub.Run(ctx)

	notifiers := services.MultiNotifier{hub}
	if cfg.AMQPURL != "" {
		publisher, err := services.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logging.Warnf("AMQP notifications disabled: %v", err)
		} else {
			defer publisher.Close()
			notifiers = append(notifiers, publisher)
		}
	}

	svc := app.NewServices(cfg, stores, notifiers, m)
	if _, err := svc.Seeder.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		logging.Errorf("Admin seeding failed: %v", err)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:         svc.Auth,
		Scoring:      svc.Scoring,
		Picks:        svc.Picks,
		Leaderboards: svc.Leaderboards,
		Hub:          hub,
		DB:           stores.DB,
		Metrics:      m,
		CORSOrigins:  cfg.CORSOrigins,
		BehindProxy:  cfg.BehindProxy,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logging.Infof("Server starting on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf("HTTP server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("Server shutdown failed: %v", err)
	}
	logging.Info("Server stopped")
}
