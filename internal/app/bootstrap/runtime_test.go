package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/rfid-assistant/internal/config"
	"github.com/wolfman30/rfid-assistant/internal/conversation"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		Env:           "test",
		LLMProvider:   appconfig.ProviderGeminiREST,
		GeminiAPIKey:  "test-key",
		GeminiModelID: "gemini-1.5-pro",
		GeminiBaseURL: "http://127.0.0.1:1",
		LLMTimeout:    time.Second,
		LLMMaxRetries: 3,
		LLMRetryDelay: time.Millisecond,
		HistoryWindow: 10,
		SessionStore:  appconfig.SessionStoreMemory,
		SessionTTL:    time.Hour,
		AWSRegion:     "us-east-1",
	}
}

func TestBuildRuntimeRequiresConfig(t *testing.T) {
	_, err := BuildRuntime(context.Background(), nil, nil, nil)
	require.Error(t, err)
}

func TestBuildRuntimeWithMemoryStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := BuildRuntime(ctx, testConfig(), logging.Discard(), prometheus.NewRegistry())
	require.NoError(t, err)
	require.NotNil(t, rt.Service)
	require.NotNil(t, rt.Completion)
	assert.Nil(t, rt.Redis)
	assert.IsType(t, &conversation.MemoryStore{}, rt.Store)
	assert.NoError(t, rt.Close())
}

func TestBuildRuntimeRejectsMissingAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = ""

	_, err := BuildRuntime(context.Background(), cfg, logging.Discard(), prometheus.NewRegistry())
	require.Error(t, err)
}

func TestBuildSessionStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.SessionStore = appconfig.SessionStoreRedis
	cfg.RedisAddr = mr.Addr()

	store, client, err := BuildSessionStore(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()
	assert.IsType(t, &conversation.RedisStore{}, store)
}

func TestBuildSessionStoreRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.SessionStore = appconfig.SessionStoreRedis
	cfg.RedisAddr = addr

	_, _, err := BuildSessionStore(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
}

func TestBuildSessionStoreUnknown(t *testing.T) {
	cfg := testConfig()
	cfg.SessionStore = "postgres"

	_, _, err := BuildSessionStore(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
}

func TestBuildRedisClientDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.RedisAddr = "  "
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, nil, true))
}

func TestSessionSecret(t *testing.T) {
	cfg := testConfig()
	cfg.SessionSecret = " configured "
	secret, err := SessionSecret(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "configured", secret)

	cfg.SessionSecret = ""
	secret, err = SessionSecret(cfg, logging.Discard())
	require.NoError(t, err)
	assert.Len(t, secret, 64)

	cfg.Env = "production"
	_, err = SessionSecret(cfg, logging.Discard())
	require.Error(t, err)
}
