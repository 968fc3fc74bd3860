package out

import (
	"context"

	"portal_server/core/domain"

	"golang.org/x/oauth2"
)

// IdentityProvider runs the OpenID Connect portal login.
type IdentityProvider interface {
	// AuthCodeURL returns the provider URL the browser is sent to.
	AuthCodeURL(state string) string

	// Authenticate exchanges code and returns the verified ID token claims.
	Authenticate(ctx context.Context, code string) (*domain.Identity, error)
}

// GmailAuthorizer runs the Gmail data-access OAuth grant.
type GmailAuthorizer interface {
	// AuthCodeURL returns the consent URL, hinting the expected account.
	AuthCodeURL(state, loginHint string) string

	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// TokenSource returns a refreshing token source seeded with tok.
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
}
