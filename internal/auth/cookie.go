package auth

import (
	"net/http"

	"github.com/ukydev/bus-tracker/internal/config"
	"github.com/ukydev/bus-tracker/internal/models"
)

// CookieStore reads and writes the session cookie.
type CookieStore struct {
	name   string
	secure bool
	svc    *Service
}

// NewCookieStore creates a cookie store for sessions issued by svc
func NewCookieStore(svc *Service, cfg config.SessionConfig) *CookieStore {
	return &CookieStore{name: cfg.CookieName, secure: cfg.Secure, svc: svc}
}

// Name returns the cookie name
func (c *CookieStore) Name() string {
	return c.name
}

// Set issues a session for busName and attaches it to the response.
func (c *CookieStore) Set(w http.ResponseWriter, busName string) error {
	token, err := c.svc.IssueSession(busName)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.svc.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the session cookie.
func (c *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Get returns the session carried by the request, if it is present and valid.
func (c *CookieStore) Get(r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return nil, ErrInvalidSession
	}
	return c.svc.ValidateSession(cookie.Value)
}
