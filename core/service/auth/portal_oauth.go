package auth

import (
	"context"
	"errors"
	"time"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/apperr"
	"portal_server/pkg/logger"

	"golang.org/x/oauth2"
)

// LoginResult is what the portal callback needs to finish a login.
type LoginResult struct {
	Email          string
	SessionToken   string
	ExpiresAt      time.Time
	GmailConnected bool
}

// OAuthService orchestrates the portal identity login and the Gmail grant.
// Both flows are bound together by the verified, lowercased email.
type OAuthService struct {
	identity  out.IdentityProvider
	gmailAuth out.GmailAuthorizer
	mail      out.MailProvider
	creds     out.CredentialStore
	allowlist *AllowlistService
	sessions  *SessionService
}

func NewOAuthService(
	identity out.IdentityProvider,
	gmailAuth out.GmailAuthorizer,
	mail out.MailProvider,
	creds out.CredentialStore,
	allowlist *AllowlistService,
	sessions *SessionService,
) *OAuthService {
	return &OAuthService{
		identity:  identity,
		gmailAuth: gmailAuth,
		mail:      mail,
		creds:     creds,
		allowlist: allowlist,
		sessions:  sessions,
	}
}

// LoginURL starts a portal login. The returned nonce must be stored in a
// browser cookie and handed back to CompleteLogin.
func (s *OAuthService) LoginURL() (url, nonce string, err error) {
	state, nonce, err := s.sessions.IssueLoginState()
	if err != nil {
		return "", "", apperr.InternalWithError(err)
	}
	return s.identity.AuthCodeURL(state), nonce, nil
}

// CompleteLogin finishes the portal callback: it verifies the login state,
// exchanges the code, checks the ID token, applies the allowlist and issues a session.
func (s *OAuthService) CompleteLogin(ctx context.Context, code, state, nonce string) (*LoginResult, error) {
	if code == "" {
		return nil, apperr.MissingField("code")
	}
	if err := s.sessions.VerifyLoginState(state, nonce); err != nil {
		logger.WithError(err).Warn("[OAuth Login] invalid state")
		return nil, apperr.InvalidToken("invalid or expired login state")
	}

	ident, err := s.identity.Authenticate(ctx, code)
	if err != nil {
		logger.WithError(err).Error("[OAuth Login] authentication failed")
		return nil, apperr.OAuthFailed("google", err)
	}
	if !ident.EmailVerified {
		logger.WithField("user", ident.Email).Warn("[OAuth Login] email not verified")
		return nil, apperr.Forbidden("email address is not verified")
	}
	email := domain.NormalizeEmail(ident.Email)
	if email == "" {
		return nil, apperr.Forbidden("identity has no email")
	}

	allowed, err := s.allowlist.IsAllowed(ctx, email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		logger.WithField("user", email).Warn("[OAuth Login] email not on allowlist")
		return nil, apperr.NotAllowlisted(email)
	}

	token, exp, err := s.sessions.IssueSession(email)
	if err != nil {
		return nil, apperr.InternalWithError(err)
	}

	connected, err := s.GmailConnected(ctx, email)
	if err != nil {
		logger.WithError(err).WithField("user", email).Warn("[OAuth Login] could not check Gmail credentials")
	}

	logger.WithField("user", email).Info("[OAuth Login] session issued (gmail connected: %v)", connected)
	return &LoginResult{
		Email:          email,
		SessionToken:   token,
		ExpiresAt:      exp,
		GmailConnected: connected,
	}, nil
}

// GmailConnectURL starts the Gmail grant for an authenticated session email.
func (s *OAuthService) GmailConnectURL(email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return "", apperr.Unauthorized("")
	}
	state, err := s.sessions.IssueGmailState(email)
	if err != nil {
		return "", apperr.InternalWithError(err)
	}
	return s.gmailAuth.AuthCodeURL(state, email), nil
}

// CompleteGmailConnect finishes the Gmail callback. The state must have been
// issued for sessionEmail and the authorized Gmail account must be the same
// address; otherwise nothing is stored.
func (s *OAuthService) CompleteGmailConnect(ctx context.Context, sessionEmail, state, code string) error {
	sessionEmail = domain.NormalizeEmail(sessionEmail)
	if sessionEmail == "" {
		return apperr.Unauthorized("")
	}
	if code == "" {
		return apperr.MissingField("code")
	}

	stateEmail, err := s.sessions.VerifyGmailState(state)
	if err != nil {
		logger.WithError(err).WithField("user", sessionEmail).Warn("[OAuth Gmail] invalid state")
		return apperr.InvalidToken("invalid or expired state")
	}
	if stateEmail != sessionEmail {
		logger.WithFields(map[string]any{"user": sessionEmail, "state_email": stateEmail}).
			Warn("[OAuth Gmail] state issued for a different session")
		return apperr.Forbidden("authorization was started by a different session")
	}

	tok, err := s.gmailAuth.Exchange(ctx, code)
	if err != nil {
		logger.WithError(err).WithField("user", sessionEmail).Error("[OAuth Gmail] code exchange failed")
		return apperr.OAuthFailed("gmail", err)
	}

	profileEmail, err := s.mail.ProfileEmail(ctx, s.gmailAuth.TokenSource(ctx, tok))
	if err != nil {
		logger.WithError(err).WithField("user", sessionEmail).Error("[OAuth Gmail] profile lookup failed")
		return apperr.ExternalError("gmail", err)
	}
	if domain.NormalizeEmail(profileEmail) != sessionEmail {
		logger.WithFields(map[string]any{"user": sessionEmail, "gmail_account": profileEmail}).
			Warn("[OAuth Gmail] account mismatch, credentials discarded")
		return apperr.AccountMismatch()
	}

	previous, err := s.creds.Load(ctx, sessionEmail)
	if err != nil && !errors.Is(err, out.ErrCredentialsNotFound) {
		logger.WithError(err).WithField("user", sessionEmail).Warn("[OAuth Gmail] could not read previous credentials")
	}
	if err := s.creds.Save(ctx, sessionEmail, domain.CredentialsFromToken(sessionEmail, tok, previous)); err != nil {
		logger.WithError(err).WithField("user", sessionEmail).Error("[OAuth Gmail] failed to save credentials")
		return apperr.StorageError("save gmail credentials", err)
	}

	logger.WithField("user", sessionEmail).Info("[OAuth Gmail] credentials stored")
	return nil
}

// GmailConnected reports whether credentials are stored for email.
func (s *OAuthService) GmailConnected(ctx context.Context, email string) (bool, error) {
	_, err := s.creds.Load(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, out.ErrCredentialsNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Disconnect forgets the Gmail credentials for email.
func (s *OAuthService) Disconnect(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if err := s.creds.Delete(ctx, email); err != nil {
		logger.WithError(err).WithField("user", email).Error("[OAuth Gmail] failed to delete credentials")
		return apperr.StorageError("delete gmail credentials", err)
	}
	logger.WithField("user", email).Info("[OAuth Gmail] disconnected")
	return nil
}

// TokenSource returns a Gmail token source for email that persists refreshes.
func (s *OAuthService) TokenSource(ctx context.Context, email string) (oauth2.TokenSource, error) {
	email = domain.NormalizeEmail(email)
	creds, err := s.creds.Load(ctx, email)
	if errors.Is(err, out.ErrCredentialsNotFound) {
		return nil, apperr.NotConnected()
	}
	if err != nil {
		return nil, apperr.StorageError("load gmail credentials", err)
	}
	if creds.RefreshToken == "" && creds.AccessToken == "" {
		return nil, apperr.NotConnected()
	}
	return &persistingTokenSource{
		ctx:   ctx,
		email: email,
		base:  s.gmailAuth.TokenSource(ctx, creds.Token()),
		store: s.creds,
		last:  creds,
	}, nil
}
