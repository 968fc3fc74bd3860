package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/kv"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestKV(t *testing.T) (*kv.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return kv.New(client), mr
}

var errBackendDown = errors.New("backend down")

// memStore is an in-memory CredentialStore whose failures can be toggled.
type memStore struct {
	mu      sync.Mutex
	data    map[string]domain.GmailCredentials
	failing bool
	saves   int
}

func newMemStore() *memStore {
	return &memStore{data: map[string]domain.GmailCredentials{}}
}

func (m *memStore) Load(ctx context.Context, email string) (*domain.GmailCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errBackendDown
	}
	c, ok := m.data[email]
	if !ok {
		return nil, out.ErrCredentialsNotFound
	}
	return &c, nil
}

func (m *memStore) Save(ctx context.Context, email string, creds *domain.GmailCredentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errBackendDown
	}
	m.saves++
	m.data[email] = *creds
	return nil
}

func (m *memStore) Delete(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errBackendDown
	}
	delete(m.data, email)
	return nil
}

func testCreds(email string) *domain.GmailCredentials {
	return &domain.GmailCredentials{
		Email:        email,
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.modify"},
	}
}
