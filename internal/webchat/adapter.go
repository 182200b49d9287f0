package webchat

import (
	"time"

	"github.com/wolfman30/rfid-assistant/internal/conversation"
)

// HistoryMessage is a simplified turn for history responses and page rendering.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Bubble returns the CSS class used to render the message.
func (m HistoryMessage) Bubble() string {
	if m.Role == string(conversation.RoleUser) {
		return "user-bubble"
	}
	return "assistant-bubble"
}

func historyFromTurns(turns []conversation.Turn) []HistoryMessage {
	history := make([]HistoryMessage, 0, len(turns))
	for _, turn := range turns {
		history = append(history, historyMessage(turn))
	}
	return history
}

func historyMessage(turn conversation.Turn) HistoryMessage {
	msg := HistoryMessage{Role: string(turn.Role), Text: turn.Text}
	if !turn.CreatedAt.IsZero() {
		msg.Timestamp = turn.CreatedAt.UTC().Format(time.RFC3339)
	}
	return msg
}

func lastAssistant(turns []conversation.Turn) (conversation.Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == conversation.RoleAssistant {
			return turns[i], true
		}
	}
	return conversation.Turn{}, false
}
