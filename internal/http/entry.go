package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"planos/internal/auth"
	"planos/internal/config"
	"planos/internal/metrics"
	"planos/internal/session"
)

const (
	noticeStateMismatch = "Token de estado inválido. Tente novamente."
	noticeGuestMode     = "Executando em modo convidado. Configure o OAuth para habilitar login Google."
	noticeLogin         = "Conecte-se com sua conta Google para acessar seus planos."
)

// Authenticator is the identity provider client used by the entry flow.
type Authenticator interface {
	AuthURL(state string) (string, error)
	Exchange(ctx context.Context, state, callbackURL string) (*auth.Identity, error)
	IsEmailAllowed(email string) bool
}

// UserProvisioner maps identities onto local users.
type UserProvisioner interface {
	EnsureGuestUser(ctx context.Context) (auth.Profile, error)
	EnsureUser(ctx context.Context, identity auth.Identity) (auth.Profile, error)
}

// EntryState is where a session stands after the entry flow ran.
type EntryState int

const (
	StateNoSession EntryState = iota
	StateAuthenticated
	StateGuest
)

func (s EntryState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateGuest:
		return "guest"
	default:
		return "no_session"
	}
}

// Notice is a message shown above the page content.
type Notice struct {
	Level   string
	Message string
}

// EntryOutcome is the result of resolving a page entry.
type EntryOutcome struct {
	State   EntryState
	User    auth.Profile
	AuthURL string
	Notices []Notice
	// Redirect is set after a completed callback so the code and state are
	// dropped from the address bar.
	Redirect bool
}

// LoginPrompt reports whether the outcome renders the login prompt only.
func (o EntryOutcome) LoginPrompt() bool {
	return o.State == StateNoSession && o.AuthURL != ""
}

// EntryController resolves who is behind a session on every page entry:
// the session user, an OAuth callback, the login prompt or the guest account.
type EntryController struct {
	authenticator  Authenticator
	users          UserProvisioner
	oauthAvailable bool
	redirectURL    string
	metrics        metrics.Recorder
	logger         *slog.Logger
}

// NewEntryController wires the entry flow. A nil recorder disables metrics.
func NewEntryController(cfg config.Config, authenticator Authenticator, users UserProvisioner, recorder metrics.Recorder, logger *slog.Logger) *EntryController {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EntryController{
		authenticator:  authenticator,
		users:          users,
		oauthAvailable: cfg.OAuthAvailable() && authenticator != nil,
		redirectURL:    cfg.GoogleRedirectURL,
		metrics:        recorder,
		logger:         logger,
	}
}

// OAuthAvailable reports whether logins go through the identity provider.
func (c *EntryController) OAuthAvailable() bool {
	return c.oauthAvailable
}

// Resolve runs the entry sequence for sess against the request query.
// Errors end the request without establishing a user: auth.ErrAuthExchange
// and auth.ErrAccessDenied come from a failed callback, anything else from
// persistence.
func (c *EntryController) Resolve(ctx context.Context, sess *session.Session, query url.Values) (EntryOutcome, error) {
	if user, ok := sess.CurrentUser(); ok {
		return authenticated(user), nil
	}

	var notices []Notice

	code, state := query.Get("code"), query.Get("state")
	if code != "" && state != "" {
		expected, ok := sess.PendingOAuthState()
		if !ok || state != expected {
			c.metrics.RecordStateMismatch()
			c.logger.Warn("oauth callback: state mismatch", "session", sess.ID())
			notices = append(notices, Notice{Level: "warning", Message: noticeStateMismatch})
		} else {
			return c.completeCallback(ctx, sess, expected, query)
		}
	}

	if c.oauthAvailable {
		outcome, err := c.loginPrompt(sess, notices)
		if err == nil {
			return outcome, nil
		}
		if !errors.Is(err, auth.ErrConfiguration) {
			return EntryOutcome{}, err
		}
		c.logger.Warn("oauth misconfigured, falling back to guest mode", "error", err)
	}

	guest, err := c.users.EnsureGuestUser(ctx)
	if err != nil {
		return EntryOutcome{}, fmt.Errorf("ensure guest user: %w", err)
	}
	sess.SetCurrentUser(guest)
	c.metrics.RecordGuestSession()

	outcome := authenticated(guest)
	outcome.Notices = append(notices, Notice{Level: "info", Message: noticeGuestMode})
	return outcome, nil
}

func (c *EntryController) completeCallback(ctx context.Context, sess *session.Session, state string, query url.Values) (EntryOutcome, error) {
	sess.ConsumeOAuthState()

	identity, err := c.authenticator.Exchange(ctx, state, c.callbackURL(query))
	if err != nil {
		c.metrics.RecordLogin(metrics.OutcomeFailure)
		return EntryOutcome{}, err
	}
	if !identity.EmailVerified {
		c.metrics.RecordLogin(metrics.OutcomeDenied)
		c.logger.Warn("oauth callback: email not verified", "email", identity.Email)
		return EntryOutcome{}, fmt.Errorf("%w: email not verified", auth.ErrAccessDenied)
	}
	if !c.authenticator.IsEmailAllowed(identity.Email) {
		c.metrics.RecordLogin(metrics.OutcomeDenied)
		c.logger.Warn("oauth callback: email not allowed", "email", identity.Email)
		return EntryOutcome{}, fmt.Errorf("%w: %s", auth.ErrAccessDenied, identity.Email)
	}

	profile, err := c.users.EnsureUser(ctx, *identity)
	if err != nil {
		c.metrics.RecordLogin(metrics.OutcomeFailure)
		return EntryOutcome{}, fmt.Errorf("ensure user: %w", err)
	}

	sess.SetCurrentUser(profile)
	sess.SetCredential(identity.Credential)
	c.metrics.RecordLogin(metrics.OutcomeSuccess)
	c.logger.Info("oauth login successful", "user_id", profile.ID, "email", profile.Email)

	outcome := authenticated(profile)
	outcome.Redirect = true
	return outcome, nil
}

func (c *EntryController) loginPrompt(sess *session.Session, notices []Notice) (EntryOutcome, error) {
	state, err := sess.OAuthState()
	if err != nil {
		return EntryOutcome{}, fmt.Errorf("generate oauth state: %w", err)
	}
	authURL, err := c.authenticator.AuthURL(state)
	if err != nil {
		return EntryOutcome{}, err
	}
	return EntryOutcome{
		State:   StateNoSession,
		AuthURL: authURL,
		Notices: append(notices, Notice{Level: "info", Message: noticeLogin}),
	}, nil
}

// callbackURL rebuilds the redirect target the provider called back on.
func (c *EntryController) callbackURL(query url.Values) string {
	base := strings.TrimSpace(c.redirectURL)
	if base == "" {
		base = "/"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + query.Encode()
}

func authenticated(user auth.Profile) EntryOutcome {
	state := StateAuthenticated
	if user.IsGuest() {
		state = StateGuest
	}
	return EntryOutcome{State: state, User: user}
}

// EntryHandler serves the entry page and logout.
type EntryHandler struct {
	controller *EntryController
	sessions   *session.Manager
	views      *renderer
	logger     *slog.Logger
}

// NewEntryHandler creates the entry page handler. Sessions are re-keyed
// through sessions once a login completes.
func NewEntryHandler(controller *EntryController, sessions *session.Manager, views *renderer, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{controller: controller, sessions: sessions, views: views, logger: logger}
}

// Index handles GET /.
func (h *EntryHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	outcome, err := h.controller.Resolve(r.Context(), sess, r.URL.Query())
	if err != nil {
		h.renderEntryError(w, r, err)
		return
	}
	if outcome.Redirect {
		if _, err := h.sessions.Rotate(w, sess); err != nil {
			h.renderEntryError(w, r, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := h.views.page(r, "Início", outcome.Notices...)
	if outcome.LoginPrompt() {
		data.Content = loginView{AuthURL: outcome.AuthURL}
		h.views.render(w, http.StatusOK, "login", data)
		return
	}

	user := outcome.User
	data.User = &user
	data.Content = homeView{Guest: outcome.State == StateGuest}
	h.views.render(w, http.StatusOK, "home", data)
}

// Logout handles POST /logout.
func (h *EntryHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		sess.Clear()
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *EntryHandler) renderEntryError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Não foi possível carregar sua sessão. Tente novamente."
	switch {
	case errors.Is(err, auth.ErrAccessDenied):
		status = http.StatusForbidden
		message = "Sua conta não está autorizada a acessar esta aplicação."
	case errors.Is(err, auth.ErrAuthExchange), errors.Is(err, auth.ErrStateMismatch):
		status = http.StatusBadGateway
		message = "Falha ao concluir o login com Google. Clique em entrar novamente."
	}
	h.logger.Error("entry failed", "error", err, "status", status)

	data := h.views.page(r, "Erro")
	data.Content = errorView{Message: message, Retry: true}
	h.views.render(w, status, "error", data)
}

type loginView struct {
	AuthURL string
}

type homeView struct {
	Guest bool
}

type errorView struct {
	Message string
	Retry   bool
}
