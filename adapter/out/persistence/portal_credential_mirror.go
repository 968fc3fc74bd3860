package persistence

import (
	"context"
	"errors"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/logger"
)

// MirroredCredentialStore reads and writes a primary store and falls back to a
// secondary one. With mirror set every write also goes to the secondary;
// otherwise the secondary is written only when the primary write fails.
type MirroredCredentialStore struct {
	primary   out.CredentialStore
	secondary out.CredentialStore
	mirror    bool
}

func NewMirroredCredentialStore(primary, secondary out.CredentialStore, mirror bool) *MirroredCredentialStore {
	return &MirroredCredentialStore{primary: primary, secondary: secondary, mirror: mirror}
}

var _ out.CredentialStore = (*MirroredCredentialStore)(nil)

func (s *MirroredCredentialStore) Load(ctx context.Context, email string) (*domain.GmailCredentials, error) {
	creds, err := s.primary.Load(ctx, email)
	if err == nil {
		return creds, nil
	}
	if !errors.Is(err, out.ErrCredentialsNotFound) {
		logger.WithField("op", "credentials.load").WithError(err).Warn("primary store failed, trying fallback")
	}

	fallback, fbErr := s.secondary.Load(ctx, email)
	if fbErr == nil {
		return fallback, nil
	}
	if errors.Is(fbErr, out.ErrCredentialsNotFound) && !errors.Is(err, out.ErrCredentialsNotFound) {
		return nil, err
	}
	return nil, fbErr
}

func (s *MirroredCredentialStore) Save(ctx context.Context, email string, creds *domain.GmailCredentials) error {
	err := s.primary.Save(ctx, email, creds)
	if err == nil && !s.mirror {
		return nil
	}
	if err != nil {
		logger.WithField("op", "credentials.save").WithError(err).Warn("primary store failed, writing fallback")
	}

	if fbErr := s.secondary.Save(ctx, email, creds); fbErr != nil {
		if err != nil {
			return errors.Join(err, fbErr)
		}
		logger.WithField("op", "credentials.mirror").WithError(fbErr).Warn("mirror write failed")
	}
	return nil
}

// Delete removes the record from both stores.
func (s *MirroredCredentialStore) Delete(ctx context.Context, email string) error {
	return errors.Join(s.primary.Delete(ctx, email), s.secondary.Delete(ctx, email))
}
