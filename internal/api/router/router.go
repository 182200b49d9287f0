package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/rfid-assistant/internal/http/middleware"
	"github.com/wolfman30/rfid-assistant/internal/webchat"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	WebChat            *webchat.Handler
	SessionTokens      *httpmiddleware.SessionTokens
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Checks run by /health; a failing check turns the response into 503.
	HealthChecks map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.Logger != nil {
			public.Use(httpmiddleware.RequestLogger(cfg.Logger))
		}
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Session-scoped chat surface
	if cfg.WebChat != nil && cfg.SessionTokens != nil {
		r.Group(func(chat chi.Router) {
			chat.Use(httpmiddleware.Session(cfg.SessionTokens))
			if cfg.Logger != nil {
				chat.Use(httpmiddleware.RequestLogger(cfg.Logger))
			}
			chat.Get("/", cfg.WebChat.HandlePage)
			chat.Get("/ws", cfg.WebChat.HandleWebSocket)
			chat.Route("/api", func(api chi.Router) {
				api.Post("/chat", cfg.WebChat.HandleChat)
				api.Get("/history", cfg.WebChat.HandleHistory)
				api.Delete("/session", cfg.WebChat.HandleEndSession)
			})
		})
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := map[string]string{"status": "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp[name] = err.Error()
				resp["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
