// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"benefit-orchestrator/internal/api"
	"benefit-orchestrator/internal/bootstrap"
	"benefit-orchestrator/internal/common/camunda"
	"benefit-orchestrator/internal/common/config"
	"benefit-orchestrator/internal/common/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	components, err := bootstrap.Build(ctx, cfg, bootstrap.Options{}, zapLog)
	if err != nil {
		zapLog.Fatal("bootstrap failed", zap.Error(err))
	}
	defer components.Close(zapLog)

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = bootstrap.RetryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	regs := registrations(cfg, components, log)
	checkRegistry("configs/activity-registry.json", regs, zapLog)

	workers := camunda.OpenWorkers(zeebe.GetClient(), cfg, regs, zapLog)
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health, Metrics & API Server ---
	checks := append([]api.ReadinessCheck{{Name: "zeebe", Check: zeebe.HealthCheck}}, components.Checks...)
	server := api.NewServer(api.Dependencies{
		Store:   components.Store,
		Matcher: components.Matcher,
		Router:  components.Router,
		Driver:  components.Driver,
		Checks:  checks,
	}, log).NewHTTPServer(cfg.Server.Address)

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}

	camunda.CloseWorkers(workers, zapLog)

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}
