package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/jerardpelaez/wedding-calendar/internal/cli"
	apphttp "github.com/jerardpelaez/wedding-calendar/internal/http"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, os.Stdout, false).WithComponent(applog.ComponentHTTP)

	b, err := cli.OpenBackend(context.Background(), cfg, logger, nil)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Objects: b.Objects,
		Ready:   b.Ready,
		Metrics: b.Metrics,
		Logger:  logger,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := b.Close(); err != nil {
			logger.Error("Backend close error", "error", err)
		}
	})

	logger.Info("Starting planner server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"bucket", cfg.ObjectStoreBucket)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		_ = b.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
