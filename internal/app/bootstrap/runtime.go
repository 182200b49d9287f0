package bootstrap

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/rfid-assistant/internal/chat"
	"github.com/wolfman30/rfid-assistant/internal/completion"
	appconfig "github.com/wolfman30/rfid-assistant/internal/config"
	"github.com/wolfman30/rfid-assistant/internal/conversation"
	"github.com/wolfman30/rfid-assistant/internal/observability/metrics"
	"github.com/wolfman30/rfid-assistant/internal/prompt"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

const memorySweepInterval = 5 * time.Minute

// Runtime bundles the collaborators every surface needs.
type Runtime struct {
	Service    *chat.Service
	Store      conversation.SessionStore
	Completion *completion.Client
	Redis      *redis.Client

	closers []func() error
}

// Close releases transports and connections held by the runtime.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildRuntime wires the session store, completion client and chat service
// from config. reg may be nil to register on the default registry.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg prometheus.Registerer) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rt := &Runtime{}
	store, redisClient, err := BuildSessionStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.Store = store
	if redisClient != nil {
		rt.Redis = redisClient
		rt.closers = append(rt.closers, redisClient.Close)
	}

	client, closeTransport, err := BuildCompletionClient(ctx, cfg, logger, metrics.NewCompletionMetrics(reg))
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Completion = client
	if closeTransport != nil {
		rt.closers = append(rt.closers, closeTransport)
	}

	assembler := prompt.NewAssembler(prompt.WithWindow(cfg.HistoryWindow))
	logger.Info("chat runtime ready", "provider", cfg.LLMProvider, "history_window", assembler.Window())
	rt.Service = chat.NewService(store, assembler, client, logger, metrics.NewChatMetrics(reg))
	return rt, nil
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore returns the configured session store. The Redis client is
// returned too so callers can health-check and close it.
func BuildSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.SessionStore, *redis.Client, error) {
	switch cfg.SessionStore {
	case appconfig.SessionStoreRedis:
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, nil, fmt.Errorf("bootstrap: redis session store unavailable at %q", cfg.RedisAddr)
		}
		logger.Info("using redis session store", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
		return conversation.NewRedisStore(client, cfg.SessionTTL), client, nil
	case appconfig.SessionStoreMemory, "":
		store := conversation.NewMemoryStore(cfg.SessionTTL)
		go sweepMemoryStore(ctx, store, logger)
		logger.Info("using in-memory session store", "ttl", cfg.SessionTTL)
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown session store %q", cfg.SessionStore)
	}
}

func sweepMemoryStore(ctx context.Context, store *conversation.MemoryStore, logger *logging.Logger) {
	ticker := time.NewTicker(memorySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				logger.Debug("expired sessions swept", "count", n, "remaining", store.Len())
			}
		}
	}
}

// SessionSecret returns the cookie signing secret. Outside production a random
// secret is generated when none is configured; sessions then do not survive a restart.
func SessionSecret(cfg *appconfig.Config, logger *logging.Logger) (string, error) {
	if secret := strings.TrimSpace(cfg.SessionSecret); secret != "" {
		return secret, nil
	}
	if strings.EqualFold(cfg.Env, "production") {
		return "", fmt.Errorf("bootstrap: SESSION_SECRET is required in production")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("bootstrap: generate session secret: %w", err)
	}
	if logger != nil {
		logger.Warn("SESSION_SECRET not set; using an ephemeral secret")
	}
	return hex.EncodeToString(buf), nil
}
