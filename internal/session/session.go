// Package session keeps per-browser state for the web handlers.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"planos/internal/auth"
)

// Session is the state of one browser. It is safe for concurrent use.
type Session struct {
	id        string
	csrfToken string

	mu         sync.Mutex
	oauthState string
	user       *auth.Profile
	credential []byte
	lastSeen   time.Time
}

func newSession(id string, now time.Time) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	return &Session{id: id, csrfToken: token, lastSeen: now}, nil
}

// ID returns the identifier carried by the session cookie.
func (s *Session) ID() string {
	return s.id
}

// OAuthState returns the pending anti-forgery token, minting one when none is stored.
func (s *Session) OAuthState() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.oauthState != "" {
		return s.oauthState, nil
	}
	state, err := auth.GenerateState()
	if err != nil {
		return "", err
	}
	s.oauthState = state
	return state, nil
}

// PendingOAuthState returns the stored token without minting a new one.
func (s *Session) PendingOAuthState() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oauthState, s.oauthState != ""
}

// ConsumeOAuthState drops the pending token so it cannot be replayed.
func (s *Session) ConsumeOAuthState() {
	s.mu.Lock()
	s.oauthState = ""
	s.mu.Unlock()
}

func (s *Session) SetCurrentUser(profile auth.Profile) {
	s.mu.Lock()
	s.user = &profile
	s.mu.Unlock()
}

func (s *Session) CurrentUser() (auth.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return auth.Profile{}, false
	}
	return *s.user, true
}

func (s *Session) SetCredential(credential []byte) {
	s.mu.Lock()
	s.credential = append([]byte(nil), credential...)
	s.mu.Unlock()
}

func (s *Session) Credential() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential == nil {
		return nil
	}
	return append([]byte(nil), s.credential...)
}

// Clear signs the browser out by removing the user and credential.
func (s *Session) Clear() {
	s.mu.Lock()
	s.user = nil
	s.credential = nil
	s.mu.Unlock()
}

// CSRFToken returns the token form posts must echo back.
func (s *Session) CSRFToken() string {
	return s.csrfToken
}

// touch records activity and reports whether the session had been idle longer than timeout.
func (s *Session) touch(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := timeout > 0 && now.Sub(s.lastSeen) > timeout
	s.lastSeen = now
	return expired
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// moveTo hands the signed-in state over to dst and empties s.
func (s *Session) moveTo(dst *Session) {
	s.mu.Lock()
	user, credential, state := s.user, s.credential, s.oauthState
	s.user, s.credential, s.oauthState = nil, nil, ""
	s.mu.Unlock()

	dst.mu.Lock()
	dst.user, dst.credential, dst.oauthState = user, credential, state
	dst.mu.Unlock()
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
