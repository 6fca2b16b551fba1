package vault

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sphereryder/passvault/internal/crypto"
)

// Session represents one authenticated session. It owns the derived
// session key; the key lives only as long as the session and is
// overwritten, not merely dereferenced, when the session closes.
// Exactly one key is alive per session and it is never shared.
type Session struct {
	id       string
	username string

	mu  sync.Mutex
	key []byte
}

func newSession(username string, key []byte) *Session {
	return &Session{
		id:       uuid.NewString(),
		username: username,
		key:      key,
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Username returns the authenticated username
func (s *Session) Username() string {
	return s.username
}

// Close revokes the session and scrubs the key from memory.
// Safe to call more than once and on all exit paths.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	crypto.ClearBytes(s.key)
	s.key = nil
}

// sessionKey returns the live key or ErrNotAuthenticated after Close
func (s *Session) sessionKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, ErrNotAuthenticated
	}
	return s.key, nil
}

// replaceKey swaps in a copy of newKey, scrubbing the previous key.
// Used after a successful master password rotation.
func (s *Session) replaceKey(newKey []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	crypto.ClearBytes(s.key)
	s.key = append([]byte(nil), newKey...)
}
