package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garnizeh/cddrecords/api"
	"github.com/garnizeh/cddrecords/internal/app"
	"github.com/garnizeh/cddrecords/internal/config"
	"github.com/garnizeh/cddrecords/internal/db"
	"github.com/garnizeh/cddrecords/internal/routing"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	api.SetLogger(logger)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("starting cdd server",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("profile", cfg.Profile),
		slog.String("primary", cfg.Primary),
	)

	ctx := context.Background()

	prom := prometheus.NewRegistry()
	prom.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	reg, err := routing.Open(ctx, cfg, db.NewMetrics(prom), logger)
	if err != nil {
		logger.Error("failed to open stores", slog.Any("err", err))
		os.Exit(1)
	}

	if cfg.MigrateOnStart {
		if err := reg.Migrate(ctx); err != nil {
			logger.Error("failed to migrate", slog.Any("err", err))
			os.Exit(1)
		}
	}

	// every repository is built now so a disabled or unbound store fails here
	if _, err := app.Build(ctx, reg, app.Options{
		Legacy:    cfg.LegacyBound(),
		Documents: cfg.Profile == config.ProfileFull,
	}, logger); err != nil {
		logger.Error("failed to build repositories", slog.Any("err", err))
		_ = reg.Close(ctx)
		os.Exit(1)
	}

	handler := api.SetupRoutes(reg, cfg.APITimeout, version, buildTime, prom, prom)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("err", err))
	}

	if err := reg.Close(ctx); err != nil {
		logger.Error("error closing stores", slog.Any("err", err))
	}

	logger.Info("server exited")
}
