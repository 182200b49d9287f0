package conversation

import "strings"

// Keys of the session context map.
const (
	ContextLocation  = "location"
	ContextPromotion = "promotion"
)

// contextKeywords are matched case-insensitively against user input.
var contextKeywords = []string{ContextLocation, ContextPromotion}

// Session is the state owned by a single chat tab: the ordered conversation
// plus the free-form context captured from what the visitor typed.
// A Session is not safe for concurrent use; chat.Service serializes access per id.
type Session struct {
	ID      string
	turns   []Turn
	context map[string]string
}

// NewSession returns an empty session.
func NewSession(id string) *Session {
	return &Session{ID: id, context: make(map[string]string)}
}

// Append pushes turn to the end of the conversation.
func (s *Session) Append(turn Turn) {
	s.turns = append(s.turns, turn)
}

// Turns returns a copy of the conversation in chronological order.
func (s *Session) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns recorded so far.
func (s *Session) Len() int {
	return len(s.turns)
}

// CaptureContext stores raw under every keyword it mentions, overwriting any
// earlier value for that keyword. It returns the keys that were set.
func (s *Session) CaptureContext(raw string) []string {
	lowered := strings.ToLower(raw)
	var captured []string
	for _, keyword := range contextKeywords {
		if strings.Contains(lowered, keyword) {
			s.context[keyword] = raw
			captured = append(captured, keyword)
		}
	}
	return captured
}

// Context returns a copy of the captured context map.
func (s *Session) Context() map[string]string {
	out := make(map[string]string, len(s.context))
	for k, v := range s.context {
		out[k] = v
	}
	return out
}

func (s *Session) clone() *Session {
	return &Session{ID: s.ID, turns: s.Turns(), context: s.Context()}
}
