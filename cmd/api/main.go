package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/rfid-assistant/internal/api/router"
	"github.com/wolfman30/rfid-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/rfid-assistant/internal/config"
	httpmiddleware "github.com/wolfman30/rfid-assistant/internal/http/middleware"
	"github.com/wolfman30/rfid-assistant/internal/webchat"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting rfid-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
		"session_store", cfg.SessionStore,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	metricsHandler, registry := setupMetrics()

	rt, err := bootstrap.BuildRuntime(ctx, cfg, logger, registry)
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to close runtime", "error", err)
		}
	}()

	secret, err := bootstrap.SessionSecret(cfg, logger)
	if err != nil {
		logger.Error("failed to resolve session secret", "error", err)
		os.Exit(1)
	}
	tokens, err := httpmiddleware.NewSessionTokens(secret, cfg.SessionTTL, strings.EqualFold(cfg.Env, "production"))
	if err != nil {
		logger.Error("failed to create session tokens", "error", err)
		os.Exit(1)
	}

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		WebChat:            webchat.NewHandler(rt.Service, tokens, logger),
		SessionTokens:      tokens,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       healthChecks(rt),
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg),
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
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics returns the /metrics handler and the registry components register on.
// writeTimeout leaves room for a full retry cycle. The completion client
// clamps maxRetries below 1 to a single attempt, so the same floor applies here.
func writeTimeout(cfg *appconfig.Config) time.Duration {
	attempts := max(cfg.LLMMaxRetries, 1)
	return time.Duration(attempts)*(cfg.LLMTimeout+cfg.LLMRetryDelay) + 15*time.Second
}

func setupMetrics() (http.Handler, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), registry
}

func healthChecks(rt *bootstrap.Runtime) map[string]router.HealthCheck {
	if rt.Redis == nil {
		return nil
	}
	return map[string]router.HealthCheck{
		"redis": func(ctx context.Context) error { return rt.Redis.Ping(ctx).Err() },
	}
}
