// Package webchat serves the browser chat surface: the page, a JSON API and a
// websocket that streams replies together with a loading signal.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/rfid-assistant/internal/chat"
	"github.com/wolfman30/rfid-assistant/internal/conversation"
	"github.com/wolfman30/rfid-assistant/internal/http/middleware"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

const maxQuestionBytes = 16 << 10

// ChatService is the part of chat.Service the surface needs.
type ChatService interface {
	Ask(ctx context.Context, sessionID, question string) (chat.Reply, error)
	History(ctx context.Context, sessionID string) (*conversation.Session, error)
	End(ctx context.Context, sessionID string) error
}

// CookieClearer expires the session cookie when a session ends.
type CookieClearer interface {
	ClearCookie(w http.ResponseWriter)
}

// Handler manages page, API and websocket traffic for chat sessions.
type Handler struct {
	service ChatService
	cookies CookieClearer
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // sessionID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.conn, msg)
}

// InboundMessage is what the page sends over the websocket.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the page.
type OutboundMessage struct {
	Type      string           `json:"type"` // "session", "history", "loading", "message", "error", "pong"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Loading   *bool            `json:"loading,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

type chatRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	SessionID string           `json:"session_id"`
	Reply     string           `json:"reply"`
	Turns     []HistoryMessage `json:"turns"`
}

type historyResponse struct {
	SessionID string            `json:"session_id"`
	Turns     []HistoryMessage  `json:"turns"`
	Context   map[string]string `json:"context"`
}

// NewHandler creates a web chat handler. cookies may be nil.
func NewHandler(service ChatService, cookies CookieClearer, logger *logging.Logger) *Handler {
	if service == nil {
		panic("webchat: chat service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:  service,
		cookies:  cookies,
		logger:   logger,
		sessions: make(map[string]*wsConn),
	}
}

// HandlePage renders the chat page with the session's bubbles.
func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	session, err := h.service.History(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("webchat: failed to load session", "error", err, "session_id", sessionID)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, newPageData(historyFromTurns(session.Turns()))); err != nil {
		h.logger.Error("webchat: failed to render page", "error", err)
	}
}

// HandleChat answers one question over plain HTTP.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// The reply is recorded even when the caller goes away mid-completion.
	reply, err := h.service.Ask(context.WithoutCancel(r.Context()), sessionID, req.Text)
	if err != nil {
		status := StatusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("webchat: failed to answer", "error", err, "session_id", sessionID)
		}
		http.Error(w, messageForStatus(status), status)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: reply.SessionID,
		Reply:     reply.Text,
		Turns:     historyFromTurns(reply.Turns),
	})
}

// HandleHistory returns the session's turns and captured context.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	session, err := h.service.History(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("webchat: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		SessionID: sessionID,
		Turns:     historyFromTurns(session.Turns()),
		Context:   session.Context(),
	})
}

// HandleEndSession drops the session state, closes its socket and clears the cookie.
func (h *Handler) HandleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if err := h.service.End(r.Context(), sessionID); err != nil {
		h.logger.Error("webchat: failed to end session", "error", err, "session_id", sessionID)
		http.Error(w, "failed to end session", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	wsc, ok := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	if ok {
		_ = wsc.conn.Close()
	}

	if h.cookies != nil {
		h.cookies.ClearCookie(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	// Server read/write timeouts carry over to the hijacked connection.
	_ = conn.SetDeadline(time.Time{})

	wsc := &wsConn{conn: conn}
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		_ = wsc.send(OutboundMessage{Type: "error", Text: "session unavailable"})
		return
	}
	ctx := r.Context()

	_ = wsc.send(OutboundMessage{Type: "session", SessionID: sessionID})

	if session, err := h.service.History(ctx, sessionID); err == nil && session.Len() > 0 {
		_ = wsc.send(OutboundMessage{Type: "history", Messages: historyFromTurns(session.Turns())})
	}

	// Register connection; a newer socket for the same session replaces the old one.
	h.mu.Lock()
	h.sessions[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[sessionID] == wsc {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
	}()

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = wsc.send(OutboundMessage{Type: "pong"})
		case "message":
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			h.processMessage(ctx, wsc, sessionID, msg.Text)
		}
	}
}

func (h *Handler) processMessage(ctx context.Context, wsc *wsConn, sessionID, text string) {
	_ = wsc.send(loadingMessage(true))
	reply, err := h.service.Ask(ctx, sessionID, text)
	_ = wsc.send(loadingMessage(false))

	if err != nil {
		status := StatusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("webchat: failed to answer", "error", err, "session_id", sessionID)
		}
		_ = wsc.send(OutboundMessage{Type: "error", Text: messageForStatus(status)})
		return
	}

	out := OutboundMessage{
		Type:      "message",
		Role:      string(conversation.RoleAssistant),
		Text:      reply.Text,
		SessionID: sessionID,
	}
	if turn, ok := lastAssistant(reply.Turns); ok {
		out.Timestamp = turn.CreatedAt.UTC().Format(time.RFC3339)
	}
	_ = wsc.send(out)
}

func loadingMessage(on bool) OutboundMessage {
	return OutboundMessage{Type: "loading", Loading: &on}
}

// StatusForError maps chat errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion), errors.Is(err, conversation.ErrSessionIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrSessionBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func messageForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Please enter a question."
	case http.StatusConflict:
		return "Still working on your previous question."
	default:
		return "Sorry, something went wrong. Please try again."
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
