package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const sessionKeyPrefix = "rfid_session:"

// RedisStore keeps each session as a turn list plus a context hash. Every
// write refreshes the TTL on both keys so a session lives as long as it is used.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. ttl <= 0 disables expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("rfid.internal.conversation.redis_store"),
		ttl:    ttl,
	}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	ctx, span := s.tracer.Start(ctx, "conversation.session.load",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	pipe := s.redis.Pipeline()
	turnsCmd := pipe.LRange(ctx, turnsKey(sessionID), 0, -1)
	contextCmd := pipe.HGetAll(ctx, contextKey(sessionID))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}

	session := NewSession(sessionID)
	for _, raw := range turnsCmd.Val() {
		var turn Turn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("conversation: decode turn: %w", err)
		}
		if !turn.Role.Valid() {
			span.RecordError(ErrUnknownRole)
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, turn.Role)
		}
		session.Append(turn)
	}
	for k, v := range contextCmd.Val() {
		session.context[k] = v
	}
	span.SetAttributes(attribute.Int("session.turns", session.Len()))
	return session, nil
}

func (s *RedisStore) AppendTurn(ctx context.Context, sessionID string, turn Turn) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	if !turn.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, turn.Role)
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("conversation: marshal turn: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "conversation.session.append_turn")
	defer span.End()

	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, turnsKey(sessionID), data)
	s.expire(ctx, pipe, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: append turn: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveContext(ctx context.Context, sessionID string, values map[string]string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	if len(values) == 0 {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "conversation.session.save_context")
	defer span.End()

	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, contextKey(sessionID), fields)
	s.expire(ctx, pipe, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: save context: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	ctx, span := s.tracer.Start(ctx, "conversation.session.delete")
	defer span.End()

	if err := s.redis.Del(ctx, turnsKey(sessionID), contextKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) expire(ctx context.Context, pipe redis.Pipeliner, sessionID string) {
	if s.ttl <= 0 {
		return
	}
	pipe.Expire(ctx, turnsKey(sessionID), s.ttl)
	pipe.Expire(ctx, contextKey(sessionID), s.ttl)
}

func turnsKey(sessionID string) string {
	return sessionKeyPrefix + sessionID + ":turns"
}

func contextKey(sessionID string) string {
	return sessionKeyPrefix + sessionID + ":context"
}
