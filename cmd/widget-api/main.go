package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/booking-widget/internal/api/router"
	appconfig "github.com/wolfman30/booking-widget/internal/config"
	"github.com/wolfman30/booking-widget/internal/observability/metrics"
	"github.com/wolfman30/booking-widget/internal/scheduling"
	"github.com/wolfman30/booking-widget/internal/widget"
	"github.com/wolfman30/booking-widget/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking widget API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Widget config comes from Redis when a widget id is set, else from a file
	var (
		source      appconfig.Source
		configAdmin *appconfig.Handler
	)
	if cfg.WidgetID != "" && cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		cancel()
		store := appconfig.NewStore(redisClient)
		source = appconfig.StoreSource{Store: store, WidgetID: cfg.WidgetID}
		configAdmin = appconfig.NewHandler(store, logger)
		logger.Info("widget config from redis", "widget_id", cfg.WidgetID)
	} else {
		w, err := appconfig.LoadWidget(cfg.WidgetConfigPath)
		if err != nil {
			logger.Error("failed to load widget config", "path", cfg.WidgetConfigPath, "error", err)
			os.Exit(1)
		}
		if _, err := w.ActiveServices(); err != nil {
			logger.Error("widget config has nothing to book", "error", err)
			os.Exit(1)
		}
		source = appconfig.StaticSource{Config: w}
		logger.Info("widget config from file", "path", cfg.WidgetConfigPath, "services", len(w.Services))
	}

	if cfg.ProviderBaseURL == "" || cfg.ProviderOrgID == "" {
		logger.Error("PROVIDER_BASE_URL and PROVIDER_ORGANIZATION_ID are required")
		os.Exit(1)
	}
	provider := scheduling.NewClient(cfg.ProviderBaseURL, cfg.ProviderOrgID, cfg.ProviderAPIKey, logger,
		scheduling.WithTimeout(cfg.ProviderTimeout),
		scheduling.WithAPIKeyHeader(cfg.ProviderAPIKeyHeader),
	)

	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)
	sessions := widget.NewSessions(cfg.SessionTTL, bookingMetrics)
	deps := widget.Dependencies{
		Provider:     provider,
		Metrics:      bookingMetrics,
		Location:     cfg.Location(),
		FetchTimeout: cfg.ProviderTimeout,
		LogLevel:     cfg.LogLevel,
	}

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		Widget:             widget.NewHandler(source, deps.NewFlow, sessions, logger),
		WidgetConfig:       configAdmin,
		AdminAuthSecret:    cfg.AdminAuthSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          cfg.RateLimitRPS,
		RateBurst:          cfg.RateLimitBurst,
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.Run(sweepCtx, time.Minute)

	// Create HTTP server; the write timeout leaves room for a primary and a
	// fallback booking call
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.ProviderTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
