package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleIssuer = "https://accounts.google.com"

// GoogleAuthenticator handles Google OAuth 2.0 / OIDC authentication.
// Provider discovery happens on the first exchange so the service can start offline.
type GoogleAuthenticator struct {
	config         *oauth2.Config
	issuer         string
	allowedDomains map[string]struct{}
	allowedEmails  map[string]struct{}

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

// NewGoogleAuthenticator creates a new GoogleAuthenticator.
func NewGoogleAuthenticator(clientID, clientSecret, redirectURL string, allowedDomains, allowedEmails []string) *GoogleAuthenticator {
	config := &oauth2.Config{
		ClientID:     strings.TrimSpace(clientID),
		ClientSecret: strings.TrimSpace(clientSecret),
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return &GoogleAuthenticator{
		config:         config,
		issuer:         googleIssuer,
		allowedDomains: normalizeSet(allowedDomains),
		allowedEmails:  normalizeSet(allowedEmails),
	}
}

func normalizeSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func (g *GoogleAuthenticator) configured() bool {
	return g.config != nil && g.config.ClientID != "" && g.config.ClientSecret != ""
}

// AuthURL generates the Google consent URL carrying state.
func (g *GoogleAuthenticator) AuthURL(state string) (string, error) {
	if !g.configured() {
		return "", ErrConfiguration
	}
	return g.config.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// Exchange validates the callback against state, redeems the code and
// verifies the returned ID token.
func (g *GoogleAuthenticator) Exchange(ctx context.Context, state, callbackURL string) (*Identity, error) {
	if !g.configured() {
		return nil, ErrConfiguration
	}

	parsed, err := url.Parse(callbackURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse callback: %w", ErrAuthExchange, err)
	}
	query := parsed.Query()

	if providerErr := query.Get("error"); providerErr != "" {
		if desc := query.Get("error_description"); desc != "" {
			providerErr += ": " + desc
		}
		return nil, fmt.Errorf("%w: provider returned %s", ErrAuthExchange, providerErr)
	}
	if state == "" || query.Get("state") != state {
		return nil, ErrStateMismatch
	}
	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrAuthExchange)
	}

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %w", ErrAuthExchange, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: no id_token in response", ErrAuthExchange)
	}

	verifier, err := g.loadVerifier(ctx)
	if err != nil {
		return nil, err
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: verify id_token: %w", ErrAuthExchange, err)
	}

	var claims GoogleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: parse claims: %w", ErrAuthExchange, err)
	}

	credential, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("%w: encode token: %w", ErrAuthExchange, err)
	}

	return &Identity{
		SubjectID:     claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		DisplayName:   claims.Name,
		PictureURL:    claims.Picture,
		Credential:    credential,
	}, nil
}

func (g *GoogleAuthenticator) loadVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifier != nil {
		return g.verifier, nil
	}

	// The provider keeps ctx for later key refreshes, so it must outlive the request.
	provider, err := oidc.NewProvider(context.WithoutCancel(ctx), g.issuer)
	if err != nil {
		return nil, fmt.Errorf("%w: oidc discovery: %w", ErrAuthExchange, err)
	}
	g.verifier = provider.Verifier(&oidc.Config{ClientID: g.config.ClientID})
	return g.verifier, nil
}

// IsEmailAllowed checks if the given email is allowed based on domain/email allowlists.
func (g *GoogleAuthenticator) IsEmailAllowed(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, ok := g.allowedEmails[email]; ok {
		return true
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 {
		if _, ok := g.allowedDomains[parts[1]]; ok {
			return true
		}
	}

	// Empty allowlists admit everyone.
	return len(g.allowedDomains) == 0 && len(g.allowedEmails) == 0
}

// HasAllowlist returns true if any allowlist restrictions are configured.
func (g *GoogleAuthenticator) HasAllowlist() bool {
	return len(g.allowedDomains) > 0 || len(g.allowedEmails) > 0
}

// GenerateState generates a cryptographically secure random state string.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
