package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/wolfman30/rfid-assistant/internal/prompt"
)

// GenAITransport calls Gemini through the official generative-ai-go SDK.
type GenAITransport struct {
	client  *genai.Client
	modelID string
}

// NewGenAITransport creates the SDK client. Extra options are appended after the API key.
func NewGenAITransport(ctx context.Context, apiKey, modelID string, opts ...option.ClientOption) (*GenAITransport, error) {
	return newGenAITransport(ctx, apiKey, modelID, http.DefaultTransport, opts...)
}

func newGenAITransport(ctx context.Context, apiKey, modelID string, base http.RoundTripper, opts ...option.ClientOption) (*GenAITransport, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("completion: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultGeminiModel
	}

	httpClient := &http.Client{Transport: &singleAttemptRoundTripper{base: base, apiKey: apiKey}}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("completion: failed to create gemini client: %w", err)
	}
	return &GenAITransport{client: client, modelID: modelID}, nil
}

func (t *GenAITransport) Name() string { return "gemini-sdk" }

func (t *GenAITransport) Generate(ctx context.Context, payload prompt.Payload) (string, error) {
	if len(payload.Entries) == 0 {
		return "", errors.New("completion: gemini requires at least one entry")
	}

	model := t.client.GenerativeModel(t.modelID)
	model.SetTemperature(payload.Config.Temperature)
	model.SetTopP(payload.Config.TopP)
	model.SetTopK(payload.Config.TopK)
	model.SetMaxOutputTokens(payload.Config.MaxOutputTokens)

	cs := model.StartChat()
	cs.History = genAIHistory(payload.Entries[:len(payload.Entries)-1])

	resp, err := cs.SendMessage(ctx, genai.Text(payload.Question()))
	if err != nil {
		return "", classifyGenAIError(err)
	}
	return genAIText(resp)
}

// Close releases resources held by the Gemini client.
func (t *GenAITransport) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

// singleAttemptRoundTripper keeps the SDK from retrying on its own. The
// generated client retries 503 answers it sees as *googleapi.Error, so 5xx
// replies are returned as *StatusError transport errors instead. It also
// sets the API key, which the SDK ignores once a custom HTTP client is given.
type singleAttemptRoundTripper struct {
	base   http.RoundTripper
	apiKey string
}

func (rt *singleAttemptRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("x-goog-api-key", rt.apiKey)
	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusInternalServerError {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), logPreviewChars)}
}

func genAIHistory(entries []prompt.Entry) []*genai.Content {
	history := make([]*genai.Content, 0, len(entries))
	for _, entry := range entries {
		history = append(history, &genai.Content{
			Role:  geminiRole(entry.Role),
			Parts: []genai.Part{genai.Text(entry.Text)},
		})
	}
	return history
}

func genAIText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResult
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", ErrEmptyResult
	}
	text, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return "", ErrEmptyResult
	}
	return string(text), nil
}

// classifyGenAIError maps SDK errors onto the retry taxonomy. Blocked prompts
// and candidates are treated as empty results since resending will not help.
func classifyGenAIError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("%w: %v", ErrEmptyResult, err)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.Code, Body: truncate(apiErr.Message, logPreviewChars)}
	}
	return fmt.Errorf("completion: gemini request failed: %w", err)
}
