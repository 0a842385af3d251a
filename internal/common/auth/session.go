// internal/common/auth/session.go
package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"workshop-onboarding/internal/common/errors"
	"workshop-onboarding/internal/models"
)

// Session is the credential context handed to every backend client. It is created at
// login (or restored from the token store) and torn down once on the first rejection.
type Session struct {
	mu          sync.Mutex
	token       string
	username    string
	expiresAt   time.Time
	invalidated bool
	hooks       []func()
	now         func() time.Time
}

// NewSession wraps a bearer token. When the token is a JWT its exp claim sets the expiry;
// opaque tokens never expire locally. The signature is not checked here, the backend does that.
func NewSession(token, username string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.NewSessionMissingError()
	}

	s := &Session{token: token, username: username, now: time.Now}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if claims.ExpiresAt != nil {
			s.expiresAt = claims.ExpiresAt.Time
		}
		if s.username == "" {
			s.username = claims.Subject
		}
	}
	return s, nil
}

// FromStored rebuilds a session persisted by a TokenStore.
func FromStored(stored *models.StoredSession) (*Session, error) {
	if stored == nil {
		return nil, errors.NewSessionMissingError()
	}
	s, err := NewSession(stored.Token, stored.Username)
	if err != nil {
		return nil, err
	}
	if s.expiresAt.IsZero() {
		s.expiresAt = stored.ExpiresAt
	}
	return s, nil
}

// Token returns the bearer token, or an error once the session ended.
func (s *Session) Token() (string, error) {
	s.mu.Lock()
	if s.invalidated {
		s.mu.Unlock()
		return "", errors.NewSessionMissingError()
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		expiredAt := s.expiresAt
		s.mu.Unlock()
		s.Invalidate()
		return "", errors.NewSessionExpiredError(expiredAt)
	}
	token := s.token
	s.mu.Unlock()
	return token, nil
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Valid reports whether Token would currently succeed.
func (s *Session) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.invalidated && (s.expiresAt.IsZero() || s.now().Before(s.expiresAt))
}

// OnInvalidate registers a teardown hook. Hooks run once, in registration order.
// Registering on an already invalidated session runs fn immediately.
func (s *Session) OnInvalidate(fn func()) {
	s.mu.Lock()
	if s.invalidated {
		s.mu.Unlock()
		fn()
		return
	}
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Invalidate ends the session and runs the teardown hooks.
func (s *Session) Invalidate() {
	s.mu.Lock()
	if s.invalidated {
		s.mu.Unlock()
		return
	}
	s.invalidated = true
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Stored returns the persistable form of the session.
func (s *Session) Stored() models.StoredSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.StoredSession{
		Token:     s.token,
		Username:  s.username,
		ExpiresAt: s.expiresAt,
		CreatedAt: s.now().UTC(),
	}
}
