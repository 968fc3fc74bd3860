package out

import (
	"context"
	"errors"

	"portal_server/core/domain"
)

// ErrCredentialsNotFound is returned by CredentialStore.Load when nothing is stored for the email.
var ErrCredentialsNotFound = errors.New("gmail credentials not found")

// CredentialStore persists Gmail OAuth credentials keyed by lowercase email.
type CredentialStore interface {
	// Load returns the credentials for email or ErrCredentialsNotFound.
	Load(ctx context.Context, email string) (*domain.GmailCredentials, error)

	// Save replaces the credentials for email.
	Save(ctx context.Context, email string, creds *domain.GmailCredentials) error

	// Delete removes the credentials for email. Absent records are not an error.
	Delete(ctx context.Context, email string) error
}
