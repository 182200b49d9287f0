package main

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/rfid-assistant/internal/chat"
	"github.com/wolfman30/rfid-assistant/internal/conversation"
	"github.com/wolfman30/rfid-assistant/internal/prompt"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

type scriptedInput struct {
	lines []string
	end   error
}

func (s *scriptedInput) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", s.end
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

type echoCompleter struct{}

func (echoCompleter) Send(_ context.Context, payload prompt.Payload) string {
	return "re: " + payload.Question()
}

func newTestREPL(lines []string, end error) (*repl, *bytes.Buffer, *chat.Service) {
	svc := chat.NewService(conversation.NewMemoryStore(time.Hour), prompt.NewAssembler(), echoCompleter{}, logging.Discard(), nil)
	var out bytes.Buffer
	return &repl{
		svc:       svc,
		in:        &scriptedInput{lines: lines, end: end},
		out:       &out,
		render:    func(s string) string { return s },
		sessionID: "cli-1",
	}, &out, svc
}

func TestREPLAsksAndPrintsReplies(t *testing.T) {
	r, out, svc := newTestREPL([]string{"Where is the promotion page?", "", "/context", "/quit", "never read"}, io.EOF)

	require.NoError(t, r.run(context.Background()))

	assert.Contains(t, out.String(), "re: Where is the promotion page?")
	assert.Contains(t, out.String(), "promotion: Where is the promotion page?")

	session, err := svc.History(context.Background(), "cli-1")
	require.NoError(t, err)
	assert.Equal(t, 2, session.Len())
}

func TestREPLResetStartsNewSession(t *testing.T) {
	r, out, svc := newTestREPL([]string{"hello", "/reset", "/history"}, liner.ErrPromptAborted)

	require.NoError(t, r.run(context.Background()))

	assert.NotEqual(t, "cli-1", r.sessionID)
	assert.Contains(t, out.String(), "started a new conversation")

	old, err := svc.History(context.Background(), "cli-1")
	require.NoError(t, err)
	assert.Zero(t, old.Len())
}

func TestREPLHistoryAndUnknownCommand(t *testing.T) {
	r, out, _ := newTestREPL([]string{"first question", "/history", "/bogus"}, io.EOF)

	require.NoError(t, r.run(context.Background()))

	assert.Contains(t, out.String(), "you: first question")
	assert.Contains(t, out.String(), "unknown command /bogus")
}
