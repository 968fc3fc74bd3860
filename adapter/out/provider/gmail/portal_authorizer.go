package gmail

import (
	"context"
	"net/http"

	"portal_server/core/port/out"
	"portal_server/pkg/httputil"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// AuthorizerConfig holds the Gmail OAuth client settings.
type AuthorizerConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Authorizer runs the offline Gmail grant with the gmail.modify scope.
type Authorizer struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewAuthorizer creates an Authorizer against Google's OAuth endpoint.
func NewAuthorizer(cfg AuthorizerConfig, httpClient *http.Client) *Authorizer {
	return &Authorizer{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gmail.GmailModifyScope},
			Endpoint:     google.Endpoint,
		},
		httpClient: httpClient,
	}
}

var _ out.GmailAuthorizer = (*Authorizer)(nil)

// AuthCodeURL requests a refresh token and always shows the consent screen so
// Google re-issues one on reconnect.
func (a *Authorizer) AuthCodeURL(state, loginHint string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	}
	if loginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", loginHint))
	}
	return a.config.AuthCodeURL(state, opts...)
}

// Exchange trades the callback code for tokens.
func (a *Authorizer) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return a.config.Exchange(httputil.WithClient(ctx, a.httpClient), code)
}

// TokenSource returns a refreshing source for tok.
func (a *Authorizer) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return a.config.TokenSource(httputil.WithClient(ctx, a.httpClient), tok)
}
