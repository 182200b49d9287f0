package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wolfman30/rfid-assistant/internal/prompt"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

const (
	// DefaultGeminiBaseURL is the public Generative Language API host.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultGeminiModel is used when no model id is configured.
	DefaultGeminiModel = "gemini-1.5-pro"

	maxResponseBytes = 4 << 20
	logPreviewChars  = 500
)

// RESTConfig configures the raw generateContent transport.
type RESTConfig struct {
	BaseURL    string
	Model      string
	APIKey     string
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// RESTTransport posts to the Gemini generateContent endpoint with plain JSON.
type RESTTransport struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewRESTTransport validates cfg and builds the endpoint URL. The API key is
// sent per request in the x-goog-api-key header, never in the URL.
func NewRESTTransport(cfg RESTConfig) (*RESTTransport, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("completion: gemini api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("completion: invalid base url: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &RESTTransport{
		endpoint:   fmt.Sprintf("%s/v1beta/models/%s:generateContent", baseURL, url.PathEscape(model)),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (t *RESTTransport) Name() string { return "gemini-rest" }

type restPart struct {
	Text *string `json:"text,omitempty"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"top_p"`
	TopK            int32   `json:"top_k"`
	MaxOutputTokens int32   `json:"max_output_tokens"`
}

type restRequest struct {
	Contents         []restContent        `json:"contents"`
	GenerationConfig restGenerationConfig `json:"generationConfig"`
}

type restResponse struct {
	Candidates []struct {
		Content *restContent `json:"content"`
	} `json:"candidates"`
}

func (t *RESTTransport) Generate(ctx context.Context, payload prompt.Payload) (string, error) {
	body, err := json.Marshal(newRESTRequest(payload))
	if err != nil {
		return "", fmt.Errorf("completion: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("completion: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("completion: read response: %w", err)
	}
	t.logger.Info("completion response received",
		"status", resp.StatusCode,
		"body_preview", truncate(string(raw), logPreviewChars),
	)

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), logPreviewChars)}
	}
	return extractRESTText(raw)
}

func newRESTRequest(payload prompt.Payload) restRequest {
	contents := make([]restContent, 0, len(payload.Entries))
	for _, entry := range payload.Entries {
		text := entry.Text
		contents = append(contents, restContent{
			Role:  geminiRole(entry.Role),
			Parts: []restPart{{Text: &text}},
		})
	}
	return restRequest{
		Contents: contents,
		GenerationConfig: restGenerationConfig{
			Temperature:     payload.Config.Temperature,
			TopP:            payload.Config.TopP,
			TopK:            payload.Config.TopK,
			MaxOutputTokens: payload.Config.MaxOutputTokens,
		},
	}
}

// extractRESTText reads candidates[0].content.parts[0].text. A body that does
// not parse or lacks that path is an empty result.
func extractRESTText(raw []byte) (string, error) {
	var parsed restResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode body: %v", ErrEmptyResult, err)
	}
	if len(parsed.Candidates) == 0 {
		return "", ErrEmptyResult
	}
	content := parsed.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0].Text == nil {
		return "", ErrEmptyResult
	}
	return *content.Parts[0].Text, nil
}

// geminiRole maps entry roles onto Gemini's two-party protocol, where the
// instruction is spoken by the user.
func geminiRole(role prompt.Role) string {
	if role == prompt.RoleAssistant {
		return "model"
	}
	return "user"
}
