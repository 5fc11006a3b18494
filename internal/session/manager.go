package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the session id.
const CookieName = "planos_session"

type contextKey struct{}

// Manager owns the process-local session table.
type Manager struct {
	idleTimeout  time.Duration
	secureCookie bool
	logger       *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager creates a Manager. Sessions idle for longer than idleTimeout are
// discarded on their next lookup and swept in the background every idleTimeout
// until Stop is called; zero disables expiry.
func NewManager(idleTimeout time.Duration, secureCookie bool, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		idleTimeout:  idleTimeout,
		secureCookie: secureCookie,
		logger:       logger,
		now:          time.Now,
		sessions:     make(map[string]*Session),
		stopCh:       make(chan struct{}),
	}
	if idleTimeout > 0 {
		go m.cleanupLoop()
	}
	return m
}

// Stop ends the background sweep.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Lookup returns the live session for id.
func (m *Manager) Lookup(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if sess.touch(m.now(), m.idleTimeout) {
		delete(m.sessions, id)
		m.logger.Debug("session expired", "session", id)
		return nil, false
	}
	return sess, true
}

// Create registers a fresh session.
func (m *Manager) Create() (*Session, error) {
	sess, err := newSession(uuid.NewString(), m.now())
	if err != nil {
		return nil, fmt.Errorf("session: generate token: %w", err)
	}
	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()
	return sess, nil
}

// Rotate moves the state of sess under a fresh id, sets the new cookie and
// forgets the old id. sess is left empty.
func (m *Manager) Rotate(w http.ResponseWriter, sess *Session) (*Session, error) {
	fresh, err := newSession(uuid.NewString(), m.now())
	if err != nil {
		return nil, fmt.Errorf("session: generate token: %w", err)
	}
	sess.moveTo(fresh)

	m.mu.Lock()
	delete(m.sessions, sess.id)
	m.sessions[fresh.id] = fresh
	m.mu.Unlock()

	m.setCookie(w, fresh)
	m.logger.Debug("session rotated", "session", fresh.id)
	return fresh, nil
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Middleware resolves the session from the request cookie, creating one when
// absent or expired, and stores it in the request context.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *Session
			if cookie, err := r.Cookie(CookieName); err == nil {
				sess, _ = m.Lookup(cookie.Value)
			}

			if sess == nil {
				created, err := m.Create()
				if err != nil {
					m.logger.Error("failed to create session", "error", err)
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				sess = created
				m.setCookie(w, sess)
			}

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
		})
	}
}

func (m *Manager) setCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.idleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep(time.Now())
		case <-m.stopCh:
			return
		}
	}
}

// sweep drops every session idle for longer than the timeout at now.
func (m *Manager) sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if sess.idleSince(now) > m.idleTimeout {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Debug("expired sessions swept", "removed", removed, "remaining", len(m.sessions))
	}
	return removed
}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Session)
	return sess, ok && sess != nil
}
