package conversation

import (
	"context"
	"errors"
)

// ErrSessionIDRequired is returned when a store is called without a session id.
var ErrSessionIDRequired = errors.New("conversation: session id required")

// ErrUnknownRole rejects turns that are neither user nor assistant.
var ErrUnknownRole = errors.New("conversation: unknown turn role")

// SessionStore keeps sessions alive for the lifetime of a chat tab.
// Load returns an empty session for ids it has never seen.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	AppendTurn(ctx context.Context, sessionID string, turn Turn) error
	SaveContext(ctx context.Context, sessionID string, values map[string]string) error
	Delete(ctx context.Context, sessionID string) error
}
