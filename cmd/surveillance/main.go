package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/aggregate"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/config"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/detect"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/graph"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/metrics"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/monitor"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/resolve"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/server"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/surveillance.local.yaml", "path to config file")
	flag.Parse()

	// Env overrides referenced by ${VAR} in the config file.
	_ = godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting surveillance engine",
		"build", version.String(),
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"graph_uri", cfg.Graph.URI,
		"lookback_hours", cfg.Detection.LookbackHours,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Metrics registry and endpoint
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	metricsSrv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: metricsHandler(cfg.Metrics.Path, promhttp.HandlerFor(
			registry, promhttp.HandlerOpts{},
		)),
	}
	go func() {
		logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
		if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Connect to the graph store
	logger.Info("connecting to graph store", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)

	client, err := graph.NewClient(ctx, cfg.Graph, logger, m)
	if err != nil {
		logger.Error("failed to connect to graph store", "error", err)
		os.Exit(1)
	}
	defer client.Close(context.Background())

	logger.Info("graph store connected")

	// Detection pipeline
	detectors := []detect.Detector{
		detect.NewSpoofing(client, cfg.Detection.Spoofing, logger),
		detect.NewLayering(client, cfg.Detection.Layering, logger),
	}
	agg := aggregate.New(detectors, cfg.Detection.Scoring, cfg.Detection.DedupJaccard, logger, m)

	lookback := time.Duration(cfg.Detection.LookbackHours) * time.Hour
	sched := monitor.New(agg, cfg.Monitoring, lookback, logger, m)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// HTTP API
	resolver := resolve.New(client, logger)
	srv := server.New(cfg.Server, lookback, sched, resolver, client, logger)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start http server", "error", err)
		os.Exit(1)
	}

	logger.Info("surveillance engine running",
		"api_port", cfg.Server.Port,
		"monitoring_enabled", cfg.Monitoring.Enabled,
	)

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown failed", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
}

func metricsHandler(path string, h http.Handler) http.Handler {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, h)
	return mux
}
