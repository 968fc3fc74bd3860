package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"portal_server/core/domain"
	"portal_server/core/port/out"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const credentialSchema = `
CREATE TABLE IF NOT EXISTS gmail_credentials (
	email         TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	token_type    TEXT NOT NULL DEFAULT '',
	expiry        TIMESTAMPTZ,
	scopes        TEXT[] NOT NULL DEFAULT '{}',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresCredentialStore implements out.CredentialStore using PostgreSQL.
type PostgresCredentialStore struct {
	db *sqlx.DB
}

// NewPostgresCredentialStore creates a new PostgresCredentialStore.
func NewPostgresCredentialStore(db *sqlx.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

var _ out.CredentialStore = (*PostgresCredentialStore)(nil)

// EnsureSchema creates the credentials table if it does not exist.
func (s *PostgresCredentialStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, credentialSchema)
	return err
}

type credentialRow struct {
	Email        string         `db:"email"`
	AccessToken  string         `db:"access_token"`
	RefreshToken string         `db:"refresh_token"`
	TokenType    string         `db:"token_type"`
	Expiry       sql.NullTime   `db:"expiry"`
	Scopes       pq.StringArray `db:"scopes"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (s *PostgresCredentialStore) Load(ctx context.Context, email string) (*domain.GmailCredentials, error) {
	var row credentialRow
	query := `
		SELECT email, access_token, refresh_token, token_type, expiry, scopes, updated_at
		FROM gmail_credentials
		WHERE email = $1`

	if err := s.db.GetContext(ctx, &row, query, domain.NormalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, out.ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	creds := &domain.GmailCredentials{
		Email:        row.Email,
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		TokenType:    row.TokenType,
		Scopes:       []string(row.Scopes),
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Expiry.Valid {
		creds.Expiry = row.Expiry.Time
	}
	return creds, nil
}

func (s *PostgresCredentialStore) Save(ctx context.Context, email string, creds *domain.GmailCredentials) error {
	query := `
		INSERT INTO gmail_credentials (email, access_token, refresh_token, token_type, expiry, scopes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			scopes = EXCLUDED.scopes,
			updated_at = EXCLUDED.updated_at`

	var expiry sql.NullTime
	if !creds.Expiry.IsZero() {
		expiry = sql.NullTime{Time: creds.Expiry, Valid: true}
	}
	scopes := creds.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	updatedAt := creds.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		domain.NormalizeEmail(email),
		creds.AccessToken,
		creds.RefreshToken,
		creds.TokenType,
		expiry,
		pq.Array(scopes),
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *PostgresCredentialStore) Delete(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM gmail_credentials WHERE email = $1`, domain.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
