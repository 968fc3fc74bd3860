package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"portal_server/core/domain"
	"portal_server/pkg/apperr"

	"golang.org/x/oauth2"
)

type oauthFixture struct {
	svc       *OAuthService
	sessions  *SessionService
	identity  *fakeIdentity
	gmailAuth *fakeGmailAuth
	mail      *fakeMail
	creds     *memCredentialStore
}

func newOAuthFixture(t *testing.T) *oauthFixture {
	t.Helper()
	f := &oauthFixture{
		sessions: newTestSessions(t),
		identity: &fakeIdentity{ident: &domain.Identity{Email: "Alice@Example.com", EmailVerified: true}},
		gmailAuth: &fakeGmailAuth{token: &oauth2.Token{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			Expiry:       time.Now().Add(time.Hour),
		}},
		mail:  &fakeMail{profile: "alice@example.com"},
		creds: newMemCredentialStore(),
	}
	allow := NewAllowlistService(nil, []string{"alice@example.com", "bob@example.com"})
	f.svc = NewOAuthService(f.identity, f.gmailAuth, f.mail, f.creds, allow, f.sessions)
	return f
}

func stateFromURL(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u.Query().Get("state")
}

func TestOAuthService_CompleteLogin(t *testing.T) {
	f := newOAuthFixture(t)

	authURL, nonce, err := f.svc.LoginURL()
	if err != nil {
		t.Fatalf("LoginURL() error = %v", err)
	}
	res, err := f.svc.CompleteLogin(context.Background(), "code-1", stateFromURL(t, authURL), nonce)
	if err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
	if res.Email != "alice@example.com" {
		t.Errorf("Email = %q, want lowercased", res.Email)
	}
	if res.GmailConnected {
		t.Error("GmailConnected = true before any grant")
	}
	email, err := f.sessions.VerifySession(res.SessionToken)
	if err != nil || email != "alice@example.com" {
		t.Errorf("issued session verifies to %q, %v", email, err)
	}
	if d := time.Until(res.ExpiresAt) - 24*time.Hour; d > time.Minute || d < -time.Minute {
		t.Errorf("ExpiresAt %v not ~24h ahead", res.ExpiresAt)
	}
}

func TestOAuthService_CompleteLoginRejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(f *oauthFixture)
		badNonce bool
		wantCode string
	}{
		{
			name: "not allowlisted",
			mutate: func(f *oauthFixture) {
				f.identity.ident = &domain.Identity{Email: "eve@example.com", EmailVerified: true}
			},
			wantCode: apperr.CodeNotAllowlisted,
		},
		{
			name:     "unverified email",
			mutate:   func(f *oauthFixture) { f.identity.ident.EmailVerified = false },
			wantCode: apperr.CodeForbidden,
		},
		{
			name:     "exchange failure",
			mutate:   func(f *oauthFixture) { f.identity.err = errors.New("bad code") },
			wantCode: apperr.CodeOAuthFailed,
		},
		{
			name:     "state nonce mismatch",
			mutate:   func(f *oauthFixture) {},
			badNonce: true,
			wantCode: apperr.CodeInvalidToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOAuthFixture(t)
			tt.mutate(f)

			authURL, nonce, _ := f.svc.LoginURL()
			if tt.badNonce {
				nonce = "other"
			}
			_, err := f.svc.CompleteLogin(context.Background(), "code", stateFromURL(t, authURL), nonce)
			if !apperr.HasCode(err, tt.wantCode) {
				t.Errorf("CompleteLogin() error = %v, want %s", err, tt.wantCode)
			}
			if tt.badNonce && len(f.identity.codes) != 0 {
				t.Error("code was exchanged despite invalid state")
			}
		})
	}
}

func TestOAuthService_GmailConnect(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	connectURL, err := f.svc.GmailConnectURL("alice@example.com")
	if err != nil {
		t.Fatalf("GmailConnectURL() error = %v", err)
	}
	if len(f.gmailAuth.hints) != 1 || f.gmailAuth.hints[0] != "alice@example.com" {
		t.Errorf("login hint = %v", f.gmailAuth.hints)
	}

	if err := f.svc.CompleteGmailConnect(ctx, "alice@example.com", stateFromURL(t, connectURL), "code"); err != nil {
		t.Fatalf("CompleteGmailConnect() error = %v", err)
	}
	stored, err := f.creds.Load(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("credentials not stored: %v", err)
	}
	if stored.RefreshToken != "refresh-1" || stored.Email != "alice@example.com" {
		t.Errorf("stored = %+v", stored)
	}

	connected, err := f.svc.GmailConnected(ctx, "ALICE@example.com")
	if err != nil || !connected {
		t.Errorf("GmailConnected() = %v, %v", connected, err)
	}
}

func TestOAuthService_GmailAccountMismatchPersistsNothing(t *testing.T) {
	f := newOAuthFixture(t)
	f.mail.profile = "bob@example.com"
	ctx := context.Background()

	connectURL, _ := f.svc.GmailConnectURL("alice@example.com")
	err := f.svc.CompleteGmailConnect(ctx, "alice@example.com", stateFromURL(t, connectURL), "code")
	if !apperr.HasCode(err, apperr.CodeAccountMismatch) {
		t.Fatalf("CompleteGmailConnect() error = %v, want ACCOUNT_MISMATCH", err)
	}
	if f.creds.saves != 0 {
		t.Errorf("credential store written %d times", f.creds.saves)
	}
	for _, email := range []string{"alice@example.com", "bob@example.com"} {
		if ok, _ := f.svc.GmailConnected(ctx, email); ok {
			t.Errorf("credentials persisted for %s", email)
		}
	}
}

func TestOAuthService_GmailStateBoundToSession(t *testing.T) {
	f := newOAuthFixture(t)

	bobState, _ := f.sessions.IssueGmailState("bob@example.com")
	err := f.svc.CompleteGmailConnect(context.Background(), "alice@example.com", bobState, "code")
	if !apperr.HasCode(err, apperr.CodeForbidden) {
		t.Errorf("foreign state error = %v, want FORBIDDEN", err)
	}

	err = f.svc.CompleteGmailConnect(context.Background(), "alice@example.com", "garbage", "code")
	if !apperr.HasCode(err, apperr.CodeInvalidToken) {
		t.Errorf("garbage state error = %v, want INVALID_TOKEN", err)
	}

	session, _, _ := f.sessions.IssueSession("alice@example.com")
	err = f.svc.CompleteGmailConnect(context.Background(), "alice@example.com", session, "code")
	if !apperr.HasCode(err, apperr.CodeInvalidToken) {
		t.Errorf("session token used as state error = %v, want INVALID_TOKEN", err)
	}
	if f.creds.saves != 0 {
		t.Error("credentials stored for rejected callbacks")
	}
}

func TestOAuthService_ReconnectKeepsRefreshToken(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()
	f.creds.data["alice@example.com"] = &domain.GmailCredentials{
		Email:        "alice@example.com",
		AccessToken:  "old",
		RefreshToken: "refresh-old",
	}
	f.gmailAuth.token = &oauth2.Token{AccessToken: "new", Expiry: time.Now().Add(time.Hour)}

	connectURL, _ := f.svc.GmailConnectURL("alice@example.com")
	if err := f.svc.CompleteGmailConnect(ctx, "alice@example.com", stateFromURL(t, connectURL), "code"); err != nil {
		t.Fatalf("CompleteGmailConnect() error = %v", err)
	}
	stored, _ := f.creds.Load(ctx, "alice@example.com")
	if stored.AccessToken != "new" || stored.RefreshToken != "refresh-old" {
		t.Errorf("stored = %+v, want new access token and previous refresh token", stored)
	}
}

func TestOAuthService_DisconnectAndTokenSource(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	if _, err := f.svc.TokenSource(ctx, "alice@example.com"); !apperr.HasCode(err, apperr.CodeNotConnected) {
		t.Errorf("TokenSource() without credentials error = %v, want GMAIL_NOT_CONNECTED", err)
	}

	f.creds.data["alice@example.com"] = &domain.GmailCredentials{Email: "alice@example.com", AccessToken: "a", RefreshToken: "r"}
	ts, err := f.svc.TokenSource(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("TokenSource() error = %v", err)
	}
	tok, err := ts.Token()
	if err != nil || tok.AccessToken != "a" {
		t.Errorf("Token() = %v, %v", tok, err)
	}

	if err := f.svc.Disconnect(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if err := f.svc.Disconnect(ctx, "alice@example.com"); err != nil {
		t.Errorf("second Disconnect() error = %v, want nil", err)
	}
	if ok, _ := f.svc.GmailConnected(ctx, "alice@example.com"); ok {
		t.Error("still connected after disconnect")
	}
}
