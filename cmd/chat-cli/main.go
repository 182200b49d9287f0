package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/peterh/liner"

	"github.com/wolfman30/rfid-assistant/internal/app/bootstrap"
	"github.com/wolfman30/rfid-assistant/internal/chat"
	appconfig "github.com/wolfman30/rfid-assistant/internal/config"
	"github.com/wolfman30/rfid-assistant/internal/conversation"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#0B204C")).Bold(true)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A90D9"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D98E04"))
)

// chatService is the part of chat.Service the terminal needs.
type chatService interface {
	Ask(ctx context.Context, sessionID, question string) (chat.Reply, error)
	History(ctx context.Context, sessionID string) (*conversation.Session, error)
	End(ctx context.Context, sessionID string) error
}

// lineReader yields one line of input per call.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

type repl struct {
	svc       chatService
	in        lineReader
	out       io.Writer
	render    func(string) string
	sessionID string
}

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	// Terminal sessions live as long as the process.
	cfg.SessionStore = appconfig.SessionStoreMemory
	logger := logging.New(cfg.LogLevel)
	if os.Getenv("LOG_LEVEL") == "" {
		logger = logging.NewWithWriter("error", os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.BuildRuntime(ctx, cfg, logger, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, warningStyle.Render("[Error]"), err)
		os.Exit(1)
	}
	defer rt.Close()

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	historyFile := filepath.Join(os.TempDir(), "rfid_assistant_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
		line.Close()
	}()

	r := &repl{
		svc:       rt.Service,
		in:        historyRecorder{line},
		out:       os.Stdout,
		render:    newMarkdownRenderer(),
		sessionID: uuid.NewString(),
	}
	fmt.Fprintln(r.out, promptStyle.Render("Green Futurz")+" "+dimStyle.Render("Welcome to Green Futurz's AI Assistant. /help for commands."))
	if err := r.run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, warningStyle.Render("[Error]"), err)
		os.Exit(1)
	}
}

// historyRecorder appends non-empty input to the liner history.
type historyRecorder struct{ line *liner.State }

func (h historyRecorder) Prompt(prompt string) (string, error) {
	input, err := h.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		h.line.AppendHistory(input)
	}
	return input, nil
}

func newMarkdownRenderer() func(string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return func(s string) string { return s }
	}
	return func(s string) string {
		rendered, err := renderer.Render(s)
		if err != nil {
			return s
		}
		return rendered
	}
}

func (r *repl) run(ctx context.Context) error {
	for {
		input, err := r.in.Prompt(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if quit, err := r.command(ctx, input); err != nil || quit {
				return err
			}
			continue
		}

		fmt.Fprintln(r.out, dimStyle.Render("thinking..."))
		reply, err := r.svc.Ask(ctx, r.sessionID, input)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, r.render(reply.Text))
	}
}

func (r *repl) command(ctx context.Context, input string) (bool, error) {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(r.out, "/history  show the conversation so far")
		fmt.Fprintln(r.out, "/context  show captured location and promotion notes")
		fmt.Fprintln(r.out, "/reset    start a new conversation")
		fmt.Fprintln(r.out, "/quit     leave")
	case "/history":
		session, err := r.svc.History(ctx, r.sessionID)
		if err != nil {
			return false, err
		}
		for _, turn := range session.Turns() {
			if turn.Role == conversation.RoleUser {
				fmt.Fprintln(r.out, userStyle.Render("you: "+turn.Text))
				continue
			}
			fmt.Fprintln(r.out, r.render(turn.Text))
		}
	case "/context":
		session, err := r.svc.History(ctx, r.sessionID)
		if err != nil {
			return false, err
		}
		values := session.Context()
		if len(values) == 0 {
			fmt.Fprintln(r.out, dimStyle.Render("no context captured"))
		}
		for _, key := range []string{conversation.ContextLocation, conversation.ContextPromotion} {
			if v, ok := values[key]; ok {
				fmt.Fprintf(r.out, "%s: %s\n", key, v)
			}
		}
	case "/reset":
		if err := r.svc.End(ctx, r.sessionID); err != nil {
			return false, err
		}
		r.sessionID = uuid.NewString()
		fmt.Fprintln(r.out, dimStyle.Render("started a new conversation"))
	default:
		fmt.Fprintln(r.out, warningStyle.Render("unknown command "+input))
	}
	return false, nil
}
