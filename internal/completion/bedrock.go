package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/wolfman30/rfid-assistant/internal/prompt"
)

// ConverseAPI is the slice of the Bedrock runtime client used here.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// httpStatusCoder is implemented by SDK response errors that carry a status.
type httpStatusCoder interface {
	HTTPStatusCode() int
}

// BedrockTransport sends the payload through the Bedrock Converse API.
type BedrockTransport struct {
	api     ConverseAPI
	modelID string
}

// DisableSDKRetries turns off the SDK retryer so each Generate call is a
// single HTTP request. Client.Do owns the attempt count and the delay.
func DisableSDKRetries(o *bedrockruntime.Options) {
	o.Retryer = aws.NopRetryer{}
}

func NewBedrockTransport(api ConverseAPI, modelID string) (*BedrockTransport, error) {
	if api == nil {
		return nil, errors.New("completion: bedrock converse client cannot be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("completion: bedrock model id is required")
	}
	return &BedrockTransport{api: api, modelID: modelID}, nil
}

func (t *BedrockTransport) Name() string { return "bedrock" }

// Generate sends the instruction as the opening user message, the same way
// the Gemini transports do. Top-k has no Converse equivalent and is not sent.
func (t *BedrockTransport) Generate(ctx context.Context, payload prompt.Payload) (string, error) {
	out, err := t.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:  aws.String(t.modelID),
		Messages: bedrockMessages(payload.Entries),
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(payload.Config.MaxOutputTokens),
			Temperature: aws.Float32(payload.Config.Temperature),
			TopP:        aws.Float32(payload.Config.TopP),
		},
	}, DisableSDKRetries)
	if err != nil {
		var coder httpStatusCoder
		if errors.As(err, &coder) && coder.HTTPStatusCode() > 0 {
			return "", &StatusError{StatusCode: coder.HTTPStatusCode(), Body: truncate(err.Error(), logPreviewChars)}
		}
		return "", fmt.Errorf("completion: bedrock request failed: %w", err)
	}
	return bedrockText(out)
}

// bedrockMessages folds consecutive entries with the same role into one
// message because Converse requires strictly alternating roles.
func bedrockMessages(entries []prompt.Entry) []brtypes.Message {
	messages := make([]brtypes.Message, 0, len(entries))
	for _, entry := range entries {
		role := brtypes.ConversationRoleUser
		if entry.Role == prompt.RoleAssistant {
			role = brtypes.ConversationRoleAssistant
		}
		block := &brtypes.ContentBlockMemberText{Value: entry.Text}
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content = append(messages[n-1].Content, block)
			continue
		}
		messages = append(messages, brtypes.Message{Role: role, Content: []brtypes.ContentBlock{block}})
	}
	return messages
}

func bedrockText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", ErrEmptyResult
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", ErrEmptyResult
	}
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			return textBlock.Value, nil
		}
	}
	return "", ErrEmptyResult
}
