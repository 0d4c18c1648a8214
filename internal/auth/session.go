package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/Keratosis/Budget-tracker-application/internal/core"
)

// Session is the handle every ledger operation receives instead of a
// process-global current user.
type Session struct {
	Token    string
	UserID   int64
	Username string
}

// Sessions issues, validates and revokes session handles. It is an
// in-memory registry: sessions live for the process lifetime only.
type Sessions struct {
	mu     sync.Mutex
	active map[string]Session
}

func NewSessions() *Sessions {
	return &Sessions{active: make(map[string]Session)}
}

// Issue creates a session for a freshly authenticated user.
func (s *Sessions) Issue(user core.User) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	sess := Session{Token: token, UserID: user.ID, Username: user.Username}
	s.mu.Lock()
	s.active[token] = sess
	s.mu.Unlock()
	return &sess, nil
}

// Validate checks that sess is a live session issued by this registry.
// A nil or revoked session fails with core.ErrUnauthenticated.
func (s *Sessions) Validate(sess *Session) error {
	if sess == nil {
		return core.ErrUnauthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	known, ok := s.active[sess.Token]
	if !ok || known.UserID != sess.UserID {
		return core.ErrUnauthenticated
	}
	return nil
}

// Revoke ends a session; the handle is unauthenticated afterwards.
func (s *Sessions) Revoke(sess *Session) {
	if sess == nil {
		return
	}
	s.mu.Lock()
	delete(s.active, sess.Token)
	s.mu.Unlock()
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
