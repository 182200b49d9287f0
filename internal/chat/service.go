// Package chat runs one visitor question through the session store, the
// prompt assembler and the completion client.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/rfid-assistant/internal/conversation"
	"github.com/wolfman30/rfid-assistant/internal/observability/metrics"
	"github.com/wolfman30/rfid-assistant/internal/prompt"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

var (
	// ErrEmptyQuestion is returned for blank input.
	ErrEmptyQuestion = errors.New("chat: question is empty")
	// ErrSessionBusy is returned while an earlier question of the same session is still waiting on the model.
	ErrSessionBusy = errors.New("chat: session already has a question in flight")
)

// Completer turns a payload into the text shown to the visitor. It does not fail.
type Completer interface {
	Send(ctx context.Context, payload prompt.Payload) string
}

// Reply is the result of one question.
type Reply struct {
	SessionID string
	Text      string
	Turns     []conversation.Turn
	Context   map[string]string
}

// Service owns the per-question control flow. Sessions never share state; at
// most one question per session is processed at a time.
type Service struct {
	store     conversation.SessionStore
	assembler *prompt.Assembler
	completer Completer
	logger    *logging.Logger
	metrics   *metrics.ChatMetrics

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService wires the collaborators. metrics may be nil.
func NewService(store conversation.SessionStore, assembler *prompt.Assembler, completer Completer, logger *logging.Logger, m *metrics.ChatMetrics) *Service {
	if store == nil {
		panic("chat: session store cannot be nil")
	}
	if completer == nil {
		panic("chat: completer cannot be nil")
	}
	if assembler == nil {
		assembler = prompt.NewAssembler()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		assembler: assembler,
		completer: completer,
		logger:    logger,
		metrics:   m,
		inflight:  make(map[string]struct{}),
	}
}

// Ask records question as a user turn, captures context keywords, asks the
// model with the trailing window and records the reply as an assistant turn.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (Reply, error) {
	if strings.TrimSpace(question) == "" {
		s.metrics.ObserveQuestion("empty")
		return Reply{}, ErrEmptyQuestion
	}
	if sessionID == "" {
		return Reply{}, conversation.ErrSessionIDRequired
	}
	if !s.acquire(sessionID) {
		s.metrics.ObserveQuestion("busy")
		return Reply{}, ErrSessionBusy
	}
	defer s.release(sessionID)

	logger := s.logger.With("session_id", sessionID)

	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		s.metrics.ObserveQuestion("error")
		return Reply{}, fmt.Errorf("chat: load session: %w", err)
	}

	userTurn := conversation.NewUserTurn(question)
	session.Append(userTurn)
	if err := s.store.AppendTurn(ctx, sessionID, userTurn); err != nil {
		s.metrics.ObserveQuestion("error")
		return Reply{}, fmt.Errorf("chat: record question: %w", err)
	}

	if captured := session.CaptureContext(question); len(captured) > 0 {
		values := make(map[string]string, len(captured))
		for _, key := range captured {
			values[key] = question
			s.metrics.ObserveContext(key)
		}
		if err := s.store.SaveContext(ctx, sessionID, values); err != nil {
			s.metrics.ObserveQuestion("error")
			return Reply{}, fmt.Errorf("chat: save context: %w", err)
		}
		logger.Debug("context captured", "keys", captured)
	}

	payload := s.assembler.Build(session.Turns(), question)
	logger.Info("question received", "turns", session.Len(), "entries", len(payload.Entries))

	text := s.completer.Send(ctx, payload)

	assistantTurn := conversation.NewAssistantTurn(text)
	session.Append(assistantTurn)
	if err := s.store.AppendTurn(ctx, sessionID, assistantTurn); err != nil {
		s.metrics.ObserveQuestion("error")
		return Reply{}, fmt.Errorf("chat: record reply: %w", err)
	}

	s.metrics.ObserveQuestion("ok")
	return Reply{
		SessionID: sessionID,
		Text:      text,
		Turns:     session.Turns(),
		Context:   session.Context(),
	}, nil
}

// History returns the stored session, empty when unknown.
func (s *Service) History(ctx context.Context, sessionID string) (*conversation.Session, error) {
	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chat: load session: %w", err)
	}
	return session, nil
}

// End drops all state of a session.
func (s *Service) End(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("chat: end session: %w", err)
	}
	s.logger.Info("session ended", "session_id", sessionID)
	return nil
}

// busy reports whether sessionID has a question in flight.
func (s *Service) busy(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[sessionID]
	return ok
}

func (s *Service) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[sessionID]; busy {
		return false
	}
	s.inflight[sessionID] = struct{}{}
	return true
}

func (s *Service) release(sessionID string) {
	s.mu.Lock()
	delete(s.inflight, sessionID)
	s.mu.Unlock()
}
