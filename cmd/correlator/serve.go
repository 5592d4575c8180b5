package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/meeting-correlator/internal/api"
	"github.com/miradorstack/meeting-correlator/internal/cache"
	"github.com/miradorstack/meeting-correlator/internal/config"
	"github.com/miradorstack/meeting-correlator/internal/metrics"
	"github.com/miradorstack/meeting-correlator/internal/review"
	"github.com/miradorstack/meeting-correlator/internal/services"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Correlator gRPC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting meeting-correlator", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var provider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		redisProvider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("redis cache unavailable", utils.Error(err))
		} else {
			provider = redisProvider
		}
	}
	defer provider.Close()

	var store review.Store
	if _, ok := provider.(cache.NoopProvider); !ok {
		store = review.NewCacheStore(provider, "", cfg.Cache.ResultTTL)
	}

	pipeline, err := buildPipeline(cfg, logger, store)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	service := services.NewCorrelationService(
		logger,
		pipeline,
		services.NewLimiter(cfg.Limits.Rate, cfg.Limits.Burst),
		services.CacheOptions{Provider: provider, TTL: cfg.Cache.ResultTTL, KeyPrefix: cfg.Cache.KeyPrefix},
	)

	server, err := api.NewServer(cfg.Server, service, logger)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
				logger.Error("metrics server exited", utils.Error(err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", utils.Error(serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", utils.Error(err))
		}
		cancelMetrics()
	}

	logger.Info("meeting-correlator stopped", slog.Duration("p95", service.LatencyP95()))
	return nil
}
