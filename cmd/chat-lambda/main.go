package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/wolfman30/rfid-assistant/internal/app/bootstrap"
	"github.com/wolfman30/rfid-assistant/internal/chat"
	appconfig "github.com/wolfman30/rfid-assistant/internal/config"
	"github.com/wolfman30/rfid-assistant/internal/webchat"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

// asker is the part of chat.Service the function needs.
type asker interface {
	Ask(ctx context.Context, sessionID, question string) (chat.Reply, error)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if cfg.SessionStore != appconfig.SessionStoreRedis {
		logger.Warn("lambda without redis session store; history will not survive cold starts", "session_store", cfg.SessionStore)
	}

	rt, err := bootstrap.BuildRuntime(context.Background(), cfg, logger, nil)
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, rt.Service, logger, evt)
	})
}

func handle(ctx context.Context, svc asker, logger *logging.Logger, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}

	if path != "/chat" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}
	if method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply, err := svc.Ask(ctx, sessionID, req.Text)
	if err != nil {
		status := webchat.StatusForError(err)
		if status == http.StatusInternalServerError {
			logger.Error("chat-lambda: failed to answer", "error", err, "session_id", sessionID)
		}
		return events.APIGatewayV2HTTPResponse{StatusCode: status, Body: http.StatusText(status)}, nil
	}

	out, err := json.Marshal(chatResponse{SessionID: reply.SessionID, Reply: reply.Text})
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusOK,
		Body:       string(out),
		Headers:    map[string]string{"content-type": "application/json"},
	}, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(evt.Body)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
