package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/bus-tracker/internal/auth"
	"github.com/ukydev/bus-tracker/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	SessionContextKey   contextKey = "session"
	RequestIDContextKey contextKey = "request_id"
)

// LoginPath is where unauthenticated conductors are sent.
const LoginPath = "/login"

// SessionMiddleware gates conductor pages behind a valid session cookie
type SessionMiddleware struct {
	store  *auth.CookieStore
	logger logrus.FieldLogger
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(store *auth.CookieStore, logger logrus.FieldLogger) *SessionMiddleware {
	return &SessionMiddleware{store: store, logger: logger}
}

// RequireConductor redirects to the login page unless the request carries a valid
// session, and otherwise adds the session to the request context.
func (m *SessionMiddleware) RequireConductor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.store.Get(r)
		if err != nil {
			if err == auth.ErrExpiredSession {
				m.logger.WithField("path", r.URL.Path).Debug("Expired conductor session")
				m.store.Clear(w)
			}
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// GetSessionFromContext extracts the conductor session from request context
func GetSessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(SessionContextKey).(*models.Session)
	return session, ok
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, session)
}

// RequireAdminKey rejects requests without a matching X-Admin-Key header when
// the auth service has an admin key configured.
func RequireAdminKey(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authService.AdminKeyRequired() {
				next.ServeHTTP(w, r)
				return
			}
			if !authService.CheckAdminKey(r.Header.Get("X-Admin-Key")) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "Invalid admin key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
