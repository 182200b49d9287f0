package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/rfid-assistant/internal/config"
	"github.com/wolfman30/rfid-assistant/internal/completion"
	"github.com/wolfman30/rfid-assistant/internal/observability/metrics"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

// BuildCompletionClient wraps the configured transport with the retrying
// client. The returned closer may be nil.
func BuildCompletionClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, m *metrics.CompletionMetrics) (*completion.Client, func() error, error) {
	transport, closer, err := BuildTransport(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	client := completion.NewClient(transport,
		completion.WithMaxRetries(cfg.LLMMaxRetries),
		completion.WithRetryDelay(cfg.LLMRetryDelay),
		completion.WithTimeout(cfg.LLMTimeout),
		completion.WithLogger(logger),
		completion.WithMetrics(m),
	)
	logger.Info("completion client configured",
		"provider", transport.Name(),
		"max_retries", cfg.LLMMaxRetries,
		"retry_delay", cfg.LLMRetryDelay,
		"timeout", cfg.LLMTimeout,
	)
	return client, closer, nil
}

// BuildTransport selects the completion transport named by LLM_PROVIDER.
func BuildTransport(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (completion.Transport, func() error, error) {
	switch cfg.LLMProvider {
	case appconfig.ProviderGeminiREST, "":
		transport, err := completion.NewRESTTransport(completion.RESTConfig{
			BaseURL:    cfg.GeminiBaseURL,
			Model:      cfg.GeminiModelID,
			APIKey:     cfg.GeminiAPIKey,
			HTTPClient: &http.Client{},
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini rest transport: %w", err)
		}
		return transport, nil, nil

	case appconfig.ProviderGeminiSDK:
		transport, err := completion.NewGenAITransport(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini sdk transport: %w", err)
		}
		return transport, transport.Close, nil

	case appconfig.ProviderBedrock:
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		transport, err := completion.NewBedrockTransport(bedrockruntime.NewFromConfig(awsCfg, completion.DisableSDKRetries), cfg.BedrockModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: bedrock transport: %w", err)
		}
		return transport, nil, nil

	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown llm provider %q", cfg.LLMProvider)
	}
}

// LoadAWSConfig centralizes AWS SDK initialization so every binary shares the
// same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}
	return awsCfg, nil
}
