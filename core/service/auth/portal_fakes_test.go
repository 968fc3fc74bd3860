package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/crypto"

	"golang.org/x/oauth2"
)

func newTestSessions(t *testing.T) *SessionService {
	t.Helper()
	signer, err := crypto.NewSigner([]byte(strings.Repeat("s", 32)))
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	return NewSessionService(signer, 24*time.Hour)
}

type memCredentialStore struct {
	mu    sync.Mutex
	data  map[string]*domain.GmailCredentials
	saves int
}

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{data: make(map[string]*domain.GmailCredentials)}
}

func (m *memCredentialStore) Load(_ context.Context, email string) (*domain.GmailCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[email]
	if !ok {
		return nil, out.ErrCredentialsNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCredentialStore) Save(_ context.Context, email string, creds *domain.GmailCredentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *creds
	m.data[email] = &cp
	m.saves++
	return nil
}

func (m *memCredentialStore) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, email)
	return nil
}

type memAllowlistRepo struct {
	emails []string
	found  bool
	puts   int
}

func (m *memAllowlistRepo) Get(context.Context) ([]string, bool, error) {
	return append([]string{}, m.emails...), m.found, nil
}

func (m *memAllowlistRepo) Put(_ context.Context, emails []string) error {
	m.emails = append([]string{}, emails...)
	m.found = true
	m.puts++
	return nil
}

type fakeIdentity struct {
	ident *domain.Identity
	err   error
	codes []string
}

func (f *fakeIdentity) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeIdentity) Authenticate(_ context.Context, code string) (*domain.Identity, error) {
	f.codes = append(f.codes, code)
	return f.ident, f.err
}

type fakeGmailAuth struct {
	token *oauth2.Token
	err   error
	hints []string
}

func (f *fakeGmailAuth) AuthCodeURL(state, loginHint string) string {
	f.hints = append(f.hints, loginHint)
	return "https://accounts.example.com/gmail?state=" + state
}

func (f *fakeGmailAuth) Exchange(context.Context, string) (*oauth2.Token, error) {
	return f.token, f.err
}

func (f *fakeGmailAuth) TokenSource(_ context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.StaticTokenSource(tok)
}

// fakeMail implements out.MailProvider; only ProfileEmail is meaningful here.
type fakeMail struct {
	out.MailProvider
	profile string
	err     error
}

func (f *fakeMail) ProfileEmail(context.Context, oauth2.TokenSource) (string, error) {
	return f.profile, f.err
}
