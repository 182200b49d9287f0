package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	session  *Session
	lastSeen time.Time
}

// MemoryStore keeps sessions in process memory. Sessions idle for longer than
// the TTL are dropped on the next access or sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory store. A ttl <= 0 keeps sessions until Delete.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(sessionID)
	if entry == nil {
		return NewSession(sessionID), nil
	}
	return entry.session.clone(), nil
}

func (s *MemoryStore) AppendTurn(ctx context.Context, sessionID string, turn Turn) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	if !turn.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, turn.Role)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.touch(sessionID)
	entry.session.Append(turn)
	return nil
}

func (s *MemoryStore) SaveContext(ctx context.Context, sessionID string, values map[string]string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	if len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.touch(sessionID)
	for k, v := range values {
		entry.session.context[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id := range s.sessions {
		if s.live(id) == nil {
			removed++
		}
	}
	return removed
}

// Len returns the number of sessions currently held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// live returns the entry for id, evicting it first if it has expired. Caller holds mu.
func (s *MemoryStore) live(id string) *memoryEntry {
	entry, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if s.ttl > 0 && s.now().Sub(entry.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil
	}
	return entry
}

// touch returns a live entry for id, creating it if needed. Caller holds mu.
func (s *MemoryStore) touch(id string) *memoryEntry {
	entry := s.live(id)
	if entry == nil {
		entry = &memoryEntry{session: NewSession(id)}
		s.sessions[id] = entry
	}
	entry.lastSeen = s.now()
	return entry
}
