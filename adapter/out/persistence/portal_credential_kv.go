// Package persistence provides storage adapters for credentials and user data.
package persistence

import (
	"context"
	"fmt"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/kv"
)

const credentialKeyPrefix = "portal:gmail:tokens:"

// KVCredentialStore keeps Gmail credentials in Redis under one key per email.
type KVCredentialStore struct {
	kv *kv.Store
}

// NewKVCredentialStore creates a Redis-backed credential store.
func NewKVCredentialStore(store *kv.Store) *KVCredentialStore {
	return &KVCredentialStore{kv: store}
}

var _ out.CredentialStore = (*KVCredentialStore)(nil)

func credentialKey(email string) string {
	return credentialKeyPrefix + domain.NormalizeEmail(email)
}

func (s *KVCredentialStore) Load(ctx context.Context, email string) (*domain.GmailCredentials, error) {
	var creds domain.GmailCredentials
	found, err := s.kv.GetJSON(ctx, credentialKey(email), &creds)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if !found {
		return nil, out.ErrCredentialsNotFound
	}
	return &creds, nil
}

func (s *KVCredentialStore) Save(ctx context.Context, email string, creds *domain.GmailCredentials) error {
	if err := s.kv.SetJSON(ctx, credentialKey(email), creds, 0); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *KVCredentialStore) Delete(ctx context.Context, email string) error {
	if err := s.kv.Delete(ctx, credentialKey(email)); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
