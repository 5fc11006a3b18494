package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"planos/internal/auth"
	"planos/internal/config"
	"planos/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authenticatorStub struct {
	mu            sync.Mutex
	authURL       func(state string) (string, error)
	exchange      func(ctx context.Context, state, callbackURL string) (*auth.Identity, error)
	allowed       func(email string) bool
	exchangeCalls int
	lastCallback  string
}

func (a *authenticatorStub) AuthURL(state string) (string, error) {
	if a.authURL != nil {
		return a.authURL(state)
	}
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state), nil
}

func (a *authenticatorStub) Exchange(ctx context.Context, state, callbackURL string) (*auth.Identity, error) {
	a.mu.Lock()
	a.exchangeCalls++
	a.lastCallback = callbackURL
	a.mu.Unlock()
	if a.exchange != nil {
		return a.exchange(ctx, state, callbackURL)
	}
	return nil, errors.New("exchange not configured")
}

func (a *authenticatorStub) IsEmailAllowed(email string) bool {
	if a.allowed != nil {
		return a.allowed(email)
	}
	return true
}

func (a *authenticatorStub) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.exchangeCalls
}

type recorderStub struct {
	mu            sync.Mutex
	logins        map[string]int
	guestSessions int
	stateMismatch int
	exports       map[string]int
}

func newRecorderStub() *recorderStub {
	return &recorderStub{logins: map[string]int{}, exports: map[string]int{}}
}

func (r *recorderStub) RecordLogin(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins[outcome]++
}

func (r *recorderStub) RecordGuestSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guestSessions++
}

func (r *recorderStub) RecordStateMismatch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateMismatch++
}

func (r *recorderStub) RecordExport(format string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports[format]++
}

func oauthConfig() config.Config {
	return config.Config{
		Environment:        "development",
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		GoogleRedirectURL:  "http://localhost:8501",
		AllowedOrigins:     []string{"http://localhost:8501"},
	}
}

func guestConfig() config.Config {
	cfg := oauthConfig()
	cfg.GoogleClientID = ""
	cfg.GoogleClientSecret = ""
	return cfg
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	manager := session.NewManager(time.Hour, false, discardLogger())
	t.Cleanup(manager.Stop)
	sess, err := manager.Create()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}
