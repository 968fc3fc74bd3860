package persistence

import (
	"context"
	"fmt"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/crypto"
)

// EncryptedCredentialStore seals access and refresh tokens before they reach
// the wrapped store.
type EncryptedCredentialStore struct {
	inner out.CredentialStore
	enc   *crypto.Encryptor
}

func NewEncryptedCredentialStore(inner out.CredentialStore, enc *crypto.Encryptor) *EncryptedCredentialStore {
	return &EncryptedCredentialStore{inner: inner, enc: enc}
}

var _ out.CredentialStore = (*EncryptedCredentialStore)(nil)

func (s *EncryptedCredentialStore) Load(ctx context.Context, email string) (*domain.GmailCredentials, error) {
	creds, err := s.inner.Load(ctx, email)
	if err != nil {
		return nil, err
	}

	plain := *creds
	if plain.AccessToken, err = s.open(creds.AccessToken); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if plain.RefreshToken, err = s.open(creds.RefreshToken); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	return &plain, nil
}

func (s *EncryptedCredentialStore) Save(ctx context.Context, email string, creds *domain.GmailCredentials) error {
	sealed := *creds
	var err error
	if sealed.AccessToken, err = s.seal(creds.AccessToken); err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	if sealed.RefreshToken, err = s.seal(creds.RefreshToken); err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}
	return s.inner.Save(ctx, email, &sealed)
}

func (s *EncryptedCredentialStore) Delete(ctx context.Context, email string) error {
	return s.inner.Delete(ctx, email)
}

func (s *EncryptedCredentialStore) seal(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	return s.enc.Encrypt(v)
}

func (s *EncryptedCredentialStore) open(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	return s.enc.Decrypt(v)
}
