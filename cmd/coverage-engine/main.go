package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coveragestack/coverage-engine/internal/api"
	"github.com/coveragestack/coverage-engine/internal/cache"
	"github.com/coveragestack/coverage-engine/internal/config"
	"github.com/coveragestack/coverage-engine/internal/engine"
	"github.com/coveragestack/coverage-engine/internal/metrics"
	"github.com/coveragestack/coverage-engine/internal/repo"
	"github.com/coveragestack/coverage-engine/internal/services"
	"github.com/coveragestack/coverage-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting coverage-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cacheProvider cache.Provider = cache.NewMemoryProvider()
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Warn("redis cache unavailable, falling back to in-memory", slog.Any("error", err))
		} else {
			cacheProvider = provider
		}
	}
	defer cacheProvider.Close()

	inventoryClient := repo.NewInventoryClient(
		cfg.Clients.Inventory.BaseURL,
		cfg.Clients.Inventory.HistoryPath,
		cfg.Clients.Inventory.Timeout,
		cacheProvider,
		cfg.Cache.HistoryTTL,
	)

	ruleEngine, err := engine.NewActionRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load action rule pack", slog.Any("error", err))
		os.Exit(1)
	}

	thresholds := engine.Thresholds{
		DiscoveryTool:         cfg.Analytics.DiscoveryTool,
		SecurityTools:         cfg.Analytics.SecurityTools,
		GapTool:               cfg.Analytics.GapTool,
		ActivityThresholdDays: cfg.Analytics.ActivityThresholdDays,
		StableDaysThreshold:   cfg.Analytics.StableDaysThreshold,
		LowChangeThreshold:    cfg.Analytics.LowChangeThreshold,
		RecentLookbackDays:    cfg.Analytics.RecentLookbackDays,
		TrailingWindowDays:    cfg.Analytics.TrailingWindowDays,
		StabilityDamping:      cfg.Analytics.StabilityDamping,
	}
	aggregator := engine.NewAggregator(logger, thresholds, ruleEngine)

	analyticsService := services.NewAnalyticsService(logger, inventoryClient, aggregator)

	server := api.NewServer(logger, analyticsService, cfg.Server.Address)

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("coverage-engine stopped")
}
