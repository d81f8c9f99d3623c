package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"indexnow-go/internal/config"
	"indexnow-go/internal/handler"
	"indexnow-go/pkg/audit"
	"indexnow-go/pkg/logger"
	"indexnow-go/pkg/metrics"
	"indexnow-go/pkg/storage"
)

type Application struct {
	configPath string
	debug      bool
}

func main() {
	app := &Application{}

	flag.StringVar(&app.configPath, "config", os.Getenv("INDEXNOW_CONFIG"), "Configuration file path (env: INDEXNOW_CONFIG)")
	flag.BoolVar(&app.debug, "debug", false, "Enable debug mode")
	flag.Parse()

	if err := app.Run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

// Run serves audit statistics until SIGINT or SIGTERM
func (app *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.NewManager().Load(app.configPath)
	if err != nil {
		return err
	}
	if app.debug {
		cfg.Logger.Level = "debug"
	}

	baseLog := logger.New(cfg.Logger)
	logger.SetGlobalLogger(baseLog)
	serverLog := baseLog.WithField("component", "stats_server")

	auditLog := audit.New(audit.Config{
		Dir:           cfg.Audit.Dir,
		FileName:      cfg.Audit.FileName,
		MaxFileSize:   cfg.Audit.MaxFileSize,
		StatsWindow:   cfg.Audit.StatsWindow,
		WarnThreshold: cfg.Audit.WarnThreshold,
		Log:           baseLog,
	})

	controllerConfig := handler.ControllerConfig{
		Audit:   auditLog,
		Metrics: metrics.New(auditLog, cfg.Audit.StatsWindow).Handler(),
	}

	fileStore, err := storage.NewFileStorage(storage.StorageConfig{DataDir: cfg.Storage.DataDir})
	if err != nil {
		serverLog.WithError(err).Warn("Submission history unavailable")
	} else {
		controllerConfig.Tracker = storage.NewSubmissionTracker(fileStore)
	}

	server := handler.NewApp(handler.NewController(controllerConfig))
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		serverLog.WithFields(map[string]interface{}{
			"addr":      addr,
			"audit_log": auditLog.Path(),
		}).Info("Stats server listening")
		errCh <- server.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	serverLog.Info("Shutdown signal received, shutting down gracefully")
	if err := server.ShutdownWithTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	serverLog.Info("Server stopped")
	return nil
}
