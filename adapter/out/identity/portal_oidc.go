// Package identity implements portal login over OpenID Connect.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/httputil"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ErrNoIDToken is returned when the token response carries no id_token.
var ErrNoIDToken = errors.New("token response did not include an id_token")

// Config holds the OpenID Connect client settings.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Provider authenticates the portal user and verifies their ID token.
type Provider struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	httpClient   *http.Client
}

var _ out.IdentityProvider = (*Provider)(nil)

// New runs OIDC discovery against cfg.IssuerURL.
func New(ctx context.Context, cfg Config, httpClient *http.Client) (*Provider, error) {
	provider, err := oidc.NewProvider(httputil.WithClient(ctx, httpClient), cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", cfg.IssuerURL, err)
	}
	return NewWithVerifier(
		cfg,
		provider.Endpoint(),
		provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		httpClient,
	), nil
}

// NewWithVerifier builds a Provider from an explicit endpoint and verifier.
func NewWithVerifier(cfg Config, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier, httpClient *http.Client) *Provider {
	return &Provider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier:   verifier,
		httpClient: httpClient,
	}
}

// AuthCodeURL always asks the user to sign in again.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "login"))
}

type claims struct {
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	Name          string   `json:"name"`
}

// Authenticate exchanges code and returns the verified identity.
func (p *Provider) Authenticate(ctx context.Context, code string) (*domain.Identity, error) {
	ctx = httputil.WithClient(ctx, p.httpClient)

	tok, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	var c claims
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}

	return &domain.Identity{
		Email:         domain.NormalizeEmail(c.Email),
		EmailVerified: bool(c.EmailVerified),
		Name:          c.Name,
		Subject:       idToken.Subject,
	}, nil
}

// flexBool accepts both true and "true".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(strings.ToLower(string(data)), `"`) {
	case "true":
		*b = true
	default:
		*b = false
	}
	return nil
}
