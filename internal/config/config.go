package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported completion providers.
const (
	ProviderGeminiREST = "gemini-rest"
	ProviderGeminiSDK  = "gemini-sdk"
	ProviderBedrock    = "bedrock"
)

// Supported session stores.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Completion endpoint
	LLMProvider    string
	GeminiAPIKey   string
	GeminiModelID  string
	GeminiBaseURL  string
	LLMTimeout     time.Duration
	LLMMaxRetries  int
	LLMRetryDelay  time.Duration
	HistoryWindow  int
	BedrockModelID string

	// Sessions
	SessionStore  string
	SessionTTL    time.Duration
	SessionSecret string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", ProviderGeminiREST))),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-1.5-pro"),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		LLMMaxRetries:  getEnvAsInt("LLM_MAX_RETRIES", 3),
		LLMRetryDelay:  getEnvAsDuration("LLM_RETRY_DELAY", 2*time.Second),
		HistoryWindow:  getEnvAsInt("HISTORY_WINDOW", 10),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),

		SessionStore:  strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", SessionStoreMemory))),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
