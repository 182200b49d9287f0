package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/rfid-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/rfid-assistant/internal/config"
	"github.com/wolfman30/rfid-assistant/internal/observability/metrics"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, registry := setupMetrics()
	if handler == nil || registry == nil {
		t.Fatalf("expected non-nil handler and registry")
	}

	chatMetrics := metrics.NewChatMetrics(registry)
	chatMetrics.ObserveQuestion("ok")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "rfid_assistant_chat_questions_total") {
		t.Fatalf("expected question counter to be exported")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go collector to be registered")
	}
}

func TestHealthChecksWithoutRedis(t *testing.T) {
	if checks := healthChecks(&bootstrap.Runtime{}); checks != nil {
		t.Fatalf("expected no checks without redis, got %d", len(checks))
	}
}

func TestHealthChecksPingRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	checks := healthChecks(&bootstrap.Runtime{Redis: client})
	check, ok := checks["redis"]
	if !ok {
		t.Fatalf("expected redis check")
	}
	if err := check(context.Background()); err != nil {
		t.Fatalf("expected healthy redis, got %v", err)
	}

	mr.Close()
	if err := check(context.Background()); err == nil {
		t.Fatalf("expected error after redis stopped")
	}
}

func TestWriteTimeoutCoversEveryAttempt(t *testing.T) {
	cfg := &appconfig.Config{LLMTimeout: 30 * time.Second, LLMRetryDelay: 2 * time.Second, LLMMaxRetries: 3}
	if got, want := writeTimeout(cfg), 3*32*time.Second+15*time.Second; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	for _, retries := range []int{0, -2} {
		cfg.LLMMaxRetries = retries
		if got := writeTimeout(cfg); got <= cfg.LLMTimeout {
			t.Fatalf("maxRetries=%d: write timeout %s does not cover one %s attempt", retries, got, cfg.LLMTimeout)
		}
	}
}
