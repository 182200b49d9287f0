package completion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/rfid-assistant/internal/conversation"
	"github.com/wolfman30/rfid-assistant/internal/prompt"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

func newRESTForServer(t *testing.T, server *httptest.Server) *RESTTransport {
	t.Helper()
	tr, err := NewRESTTransport(RESTConfig{
		BaseURL:    server.URL,
		Model:      "gemini-1.5-pro",
		APIKey:     "test-key",
		HTTPClient: server.Client(),
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)
	return tr
}

func TestSendReturnsCandidateTextWithoutRetry(t *testing.T) {
	var hits int32
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-1.5-pro:generateContent", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"- Reader: FX9600\n- Tags: Retail Tags"}]}}]}`))
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	client := newTestClient(newRESTForServer(t, server), sleeper)
	turns := []conversation.Turn{conversation.NewUserTurn("hi"), conversation.NewAssistantTurn("hello")}
	reply := client.Send(context.Background(), prompt.NewAssembler().Build(turns, "warehouse?"))

	assert.Equal(t, "- Reader: FX9600\n- Tags: Retail Tags", reply)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Empty(t, sleeper.delays)

	contents := captured["contents"].([]any)
	require.Len(t, contents, 5)
	roles := make([]string, 0, len(contents))
	for _, c := range contents {
		roles = append(roles, c.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"user", "model", "user", "model", "user"}, roles)
	last := contents[4].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"]
	assert.Equal(t, "warehouse?", last)

	genCfg := captured["generationConfig"].(map[string]any)
	assert.InDelta(t, 0.7, genCfg["temperature"], 1e-6)
	assert.InDelta(t, 0.95, genCfg["top_p"], 1e-6)
	assert.EqualValues(t, 40, genCfg["top_k"])
	assert.EqualValues(t, 250, genCfg["max_output_tokens"])
}

func TestSendRetriesServerErrorsThenGivesUp(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	client := newTestClient(newRESTForServer(t, server), sleeper, WithMaxRetries(3), WithRetryDelay(2*time.Second))
	reply := client.Send(context.Background(), testPayload())

	assert.Equal(t, FallbackServiceTrouble, reply)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeper.delays)
}

func TestSendEmptyCandidatesReturnsClarification(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	result := newTestClient(newRESTForServer(t, server), sleeper).Do(context.Background(), testPayload())

	assert.Equal(t, FallbackClarification, result.Text)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Empty(t, sleeper.delays)
}

func TestSendTransportFailureReturnsTechnicalIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	tr := newRESTForServer(t, server)
	server.Close()

	sleeper := &recordingSleeper{}
	result := newTestClient(tr, sleeper).Do(context.Background(), testPayload())

	assert.Equal(t, FallbackTechnicalIssue, result.Text)
	assert.Equal(t, 3, result.Attempts)
	assert.Len(t, sleeper.delays, 2)
}

func TestSendTimeoutCountsAsTransportFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	result := newTestClient(newRESTForServer(t, server), &recordingSleeper{},
		WithTimeout(20*time.Millisecond), WithMaxRetries(2)).Do(context.Background(), testPayload())

	assert.Equal(t, OutcomeTechnicalIssue, result.Outcome)
	assert.Equal(t, 2, result.Attempts)
}

func TestExtractRESTText(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  string
		empty bool
	}{
		{"valid", `{"candidates":[{"content":{"parts":[{"text":"  spaced  "}]}}]}`, "  spaced  ", false},
		{"first part only", `{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}]}`, "a", false},
		{"no candidates key", `{}`, "", true},
		{"missing content", `{"candidates":[{"finishReason":"SAFETY"}]}`, "", true},
		{"no parts", `{"candidates":[{"content":{"parts":[]}}]}`, "", true},
		{"part without text", `{"candidates":[{"content":{"parts":[{}]}}]}`, "", true},
		{"blank text kept verbatim", `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, "  ", false},
		{"empty text kept verbatim", `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`, "", false},
		{"malformed", `not json`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractRESTText([]byte(tt.body))
			if tt.empty {
				assert.ErrorIs(t, err, ErrEmptyResult)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRESTTransportValidation(t *testing.T) {
	_, err := NewRESTTransport(RESTConfig{})
	assert.Error(t, err)

	tr, err := NewRESTTransport(RESTConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultGeminiBaseURL+"/v1beta/models/"+DefaultGeminiModel+":generateContent", tr.endpoint)
	assert.Equal(t, "gemini-rest", tr.Name())
}
