// Package prompt turns a session's conversation into the ordered entry list
// sent to the completion endpoint.
package prompt

import "github.com/wolfman30/rfid-assistant/internal/conversation"

// Role is the protocol-level label of an entry. Transports map these onto
// their own wire names ("model" for Gemini, "assistant" for Bedrock).
type Role string

const (
	RoleInstruction Role = "instruction"
	RoleAssistant   Role = "assistant"
	RoleUser        Role = "user"
)

// DefaultWindow is how many trailing turns are replayed with each question.
const DefaultWindow = 10

// Entry is one element of the outgoing request.
type Entry struct {
	Role Role
	Text string
}

// GenerationConfig carries sampling parameters for the endpoint.
type GenerationConfig struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// DefaultGenerationConfig returns the constant sampling settings used for every request.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 250,
	}
}

// Payload is the full request handed to a completion client.
type Payload struct {
	Entries []Entry
	Config  GenerationConfig
}

// Question returns the text of the final entry, or "" for an empty payload.
func (p Payload) Question() string {
	if len(p.Entries) == 0 {
		return ""
	}
	return p.Entries[len(p.Entries)-1].Text
}

// Assembler builds payloads. It holds no per-session state and is safe to share.
type Assembler struct {
	window      int
	instruction string
	ack         string
	config      GenerationConfig
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithWindow overrides the number of trailing turns replayed. n <= 0 is ignored.
func WithWindow(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.window = n
		}
	}
}

// NewAssembler returns an assembler using SystemInstruction, PrimingAcknowledgment
// and DefaultGenerationConfig.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		window:      DefaultWindow,
		instruction: SystemInstruction,
		ack:         PrimingAcknowledgment,
		config:      DefaultGenerationConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Window returns the configured trailing window size.
func (a *Assembler) Window() int {
	return a.window
}

// Build emits the instruction, the priming acknowledgment, the trailing window of
// turns and finally question. question is always last even when the caller has
// already recorded it as the newest turn.
func (a *Assembler) Build(turns []conversation.Turn, question string) Payload {
	history := TrailingWindow(turns, a.window)

	entries := make([]Entry, 0, len(history)+3)
	entries = append(entries,
		Entry{Role: RoleInstruction, Text: a.instruction},
		Entry{Role: RoleAssistant, Text: a.ack},
	)
	for _, turn := range history {
		role := RoleUser
		if turn.Role == conversation.RoleAssistant {
			role = RoleAssistant
		}
		entries = append(entries, Entry{Role: role, Text: turn.Text})
	}
	entries = append(entries, Entry{Role: RoleUser, Text: question})

	return Payload{Entries: entries, Config: a.config}
}

// TrailingWindow returns the last n turns, or all of them when there are n or fewer.
func TrailingWindow(turns []conversation.Turn, n int) []conversation.Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
