package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ukydev/bus-tracker/internal/config"
	"github.com/ukydev/bus-tracker/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidUsernameFormat = errors.New("invalid username format")
	ErrInvalidCredentials    = errors.New("invalid password")
	ErrInvalidSession        = errors.New("invalid session")
	ErrExpiredSession        = errors.New("session expired")
)

// Service handles conductor authentication and session tokens
type Service struct {
	secret         []byte
	sessionTTL     time.Duration
	usernameSuffix string
	passwordSuffix string
	adminKeyHash   []byte
	now            func() time.Time
}

// NewService creates a new authentication service
func NewService(session config.SessionConfig, conductor config.ConductorConfig, admin config.AdminConfig) *Service {
	s := &Service{
		secret:         []byte(session.Secret),
		sessionTTL:     session.TTL,
		usernameSuffix: conductor.UsernameSuffix,
		passwordSuffix: conductor.PasswordSuffix,
		now:            time.Now,
	}
	if admin.KeyHash != "" {
		s.adminKeyHash = []byte(admin.KeyHash)
	}
	return s
}

// BusNameFromUsername extracts the bus name from a conductor username such as "42-con".
func (s *Service) BusNameFromUsername(username string) (string, error) {
	if !strings.HasSuffix(username, s.usernameSuffix) {
		return "", ErrInvalidUsernameFormat
	}
	busName := strings.TrimSuffix(username, s.usernameSuffix)
	if busName == "" {
		return "", ErrInvalidUsernameFormat
	}
	return busName, nil
}

// Authenticate checks conductor credentials and returns the bus name they unlock.
//
// The password is derived from the bus name itself (bus name followed by a fixed
// suffix). It is a placeholder scheme kept for compatibility with existing
// conductor devices, not a security boundary.
func (s *Service) Authenticate(username, password string) (string, error) {
	busName, err := s.BusNameFromUsername(username)
	if err != nil {
		return "", err
	}
	expected := busName + s.passwordSuffix
	if subtle.ConstantTimeCompare([]byte(password), []byte(expected)) != 1 {
		return "", ErrInvalidCredentials
	}
	return busName, nil
}

// IssueSession signs a session token bound to a bus name
func (s *Service) IssueSession(busName string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"bus": busName,
		"iat": now.Unix(),
		"exp": now.Add(s.sessionTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// ValidateSession verifies a session token and returns its session
func (s *Service) ValidateSession(tokenString string) (*models.Session, error) {
	if tokenString == "" {
		return nil, ErrInvalidSession
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSession
		}
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}

	bus, ok := claims["bus"].(string)
	if !ok || bus == "" {
		return nil, ErrInvalidSession
	}
	return &models.Session{Bus: bus}, nil
}

// SessionTTL returns how long issued sessions stay valid
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// HashAdminKey hashes an admin key using bcrypt
func HashAdminKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("admin key must not be empty")
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash admin key: %w", err)
	}
	return string(bytes), nil
}

// AdminKeyRequired reports whether add-bus calls must present an admin key
func (s *Service) AdminKeyRequired() bool {
	return len(s.adminKeyHash) > 0
}

// CheckAdminKey checks a presented key against the configured hash
func (s *Service) CheckAdminKey(key string) bool {
	if !s.AdminKeyRequired() {
		return true
	}
	return bcrypt.CompareHashAndPassword(s.adminKeyHash, []byte(key)) == nil
}
