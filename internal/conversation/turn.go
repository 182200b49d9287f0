package conversation

import "time"

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one message in a conversation. Turns are never edited after creation.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserTurn records text submitted by the visitor.
func NewUserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text, CreatedAt: time.Now().UTC()}
}

// NewAssistantTurn records a reply shown to the visitor.
func NewAssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text, CreatedAt: time.Now().UTC()}
}
