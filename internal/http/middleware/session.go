package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookieName holds the signed session token.
const SessionCookieName = "rfid_session"

type sessionContextKey struct{}

// SessionTokens signs and verifies the HS256 tokens that carry a browser tab's
// session id in the sub claim.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessionTokens creates a signer. secure marks the cookie Secure (production).
func NewSessionTokens(secret string, ttl time.Duration, secure bool) (*SessionTokens, error) {
	if secret == "" {
		return nil, errors.New("middleware: session secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionTokens{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}, nil
}

// Issue returns a signed token for sessionID.
func (s *SessionTokens) Issue(sessionID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse validates token and returns the session id it carries.
func (s *SessionTokens) Parse(token string) (string, error) {
	claims, err := s.parseClaims(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *SessionTokens) parseClaims(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// stale reports whether less than half of the token lifetime remains.
func (s *SessionTokens) stale(claims *jwt.RegisteredClaims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Sub(s.now()) < s.ttl/2
}

// Cookie builds the cookie carrying token.
func (s *SessionTokens) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie.
func (s *SessionTokens) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session resolves the caller's session id from the cookie, or starts a new
// session and sets the cookie when it is missing or does not verify. A valid
// token past half its lifetime is re-issued for the same session id, so an
// active tab keeps its conversation.
func Session(tokens *SessionTokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				if claims, err := tokens.parseClaims(cookie.Value); err == nil {
					if tokens.stale(claims) {
						if token, err := tokens.Issue(claims.Subject); err == nil {
							http.SetCookie(w, tokens.Cookie(token))
						}
					}
					next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), claims.Subject)))
					return
				}
			}

			sessionID := uuid.NewString()
			token, err := tokens.Issue(sessionID)
			if err != nil {
				http.Error(w, "failed to start session", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, tokens.Cookie(token))
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}

// WithSessionID stores a session id on ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sessionID)
}

// SessionIDFromContext returns the session id set by Session.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionContextKey{}).(string)
	return sessionID, ok && sessionID != ""
}
