package session

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planos/internal/auth"
)

func newTestManager(t *testing.T, idle time.Duration) *Manager {
	t.Helper()
	m := NewManager(idle, false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(m.Stop)
	return m
}

func TestOAuthStateIsIdempotentUntilConsumed(t *testing.T) {
	sess, err := newTestManager(t, 0).Create()
	require.NoError(t, err)

	first, err := sess.OAuthState()
	require.NoError(t, err)
	second, err := sess.OAuthState()
	require.NoError(t, err)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)

	pending, ok := sess.PendingOAuthState()
	assert.True(t, ok)
	assert.Equal(t, first, pending)

	sess.ConsumeOAuthState()
	_, ok = sess.PendingOAuthState()
	assert.False(t, ok)

	third, err := sess.OAuthState()
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestOAuthStateConcurrentCallersAgree(t *testing.T) {
	sess, err := newTestManager(t, 0).Create()
	require.NoError(t, err)

	const workers = 10
	states := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i], _ = sess.OAuthState()
		}(i)
	}
	wg.Wait()

	for _, s := range states {
		assert.Equal(t, states[0], s)
	}
}

func TestClearRemovesUserAndCredential(t *testing.T) {
	sess, err := newTestManager(t, 0).Create()
	require.NoError(t, err)

	sess.SetCurrentUser(auth.Profile{ID: 1, Email: "a@b.com"})
	sess.SetCredential([]byte(`{"access_token":"x"}`))

	user, ok := sess.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, []byte(`{"access_token":"x"}`), sess.Credential())

	sess.Clear()

	_, ok = sess.CurrentUser()
	assert.False(t, ok)
	assert.Nil(t, sess.Credential())
}

func TestCredentialIsCopied(t *testing.T) {
	sess, err := newTestManager(t, 0).Create()
	require.NoError(t, err)

	blob := []byte("token")
	sess.SetCredential(blob)
	blob[0] = 'X'

	assert.Equal(t, []byte("token"), sess.Credential())
}

func TestCSRFTokenIsStablePerSession(t *testing.T) {
	m := newTestManager(t, 0)
	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)

	assert.Len(t, a.CSRFToken(), 64)
	assert.Equal(t, a.CSRFToken(), a.CSRFToken())
	assert.NotEqual(t, a.CSRFToken(), b.CSRFToken())
}

func TestLookupExpiresIdleSessions(t *testing.T) {
	m := newTestManager(t, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	sess, err := m.Create()
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	found, ok := m.Lookup(sess.ID())
	require.True(t, ok)
	assert.Same(t, sess, found)

	now = now.Add(2 * time.Minute)
	_, ok = m.Lookup(sess.ID())
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestSweepDropsSessionsNeverLookedUpAgain(t *testing.T) {
	m := newTestManager(t, time.Hour)
	for i := 0; i < 50; i++ {
		_, err := m.Create()
		require.NoError(t, err)
	}
	require.Equal(t, 50, m.Len())

	assert.Equal(t, 0, m.sweep(time.Now().Add(30*time.Minute)))
	assert.Equal(t, 50, m.Len())

	assert.Equal(t, 50, m.sweep(time.Now().Add(2*time.Hour)))
	assert.Equal(t, 0, m.Len())
}

func TestBackgroundSweepEvictsCookielessTraffic(t *testing.T) {
	m := newTestManager(t, 10*time.Millisecond)
	handler := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 100; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	assert.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRotateReKeysSignedInState(t *testing.T) {
	m := newTestManager(t, time.Hour)
	planted, err := m.Create()
	require.NoError(t, err)
	planted.SetCurrentUser(auth.Profile{ID: 7, Email: "v@x.com"})
	planted.SetCredential([]byte("token"))

	rec := httptest.NewRecorder()
	fresh, err := m.Rotate(rec, planted)
	require.NoError(t, err)

	assert.NotEqual(t, planted.ID(), fresh.ID())
	assert.NotEqual(t, planted.CSRFToken(), fresh.CSRFToken())

	_, ok := m.Lookup(planted.ID())
	assert.False(t, ok, "old id must stop resolving")
	_, ok = planted.CurrentUser()
	assert.False(t, ok)
	assert.Nil(t, planted.Credential())

	found, ok := m.Lookup(fresh.ID())
	require.True(t, ok)
	user, ok := found.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "v@x.com", user.Email)
	assert.Equal(t, []byte("token"), found.Credential())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, fresh.ID(), cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestMiddlewareCreatesSessionAndSetsCookie(t *testing.T) {
	m := newTestManager(t, time.Hour)

	var seen *Session
	handler := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = sess
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, seen.ID(), cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestMiddlewareReusesExistingSession(t *testing.T) {
	m := newTestManager(t, time.Hour)
	existing, err := m.Create()
	require.NoError(t, err)

	var seen *Session
	handler := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: existing.ID()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Same(t, existing, seen)
	assert.Empty(t, rec.Result().Cookies())
}

func TestMiddlewareReplacesUnknownSession(t *testing.T) {
	m := newTestManager(t, time.Hour)

	handler := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "stale"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "stale", cookies[0].Value)
	assert.Equal(t, 1, m.Len())
}

func TestFromContextWithoutSession(t *testing.T) {
	_, ok := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
