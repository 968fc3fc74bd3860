package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"portal_server/core/domain"
	"portal_server/core/port/out"

	"github.com/goccy/go-json"
)

// FileCredentialStore keeps one JSON file per email in a private directory.
// File names are derived from a hash so emails never appear on disk.
type FileCredentialStore struct {
	dir string
}

// NewFileCredentialStore creates the directory with 0700 if needed.
func NewFileCredentialStore(dir string) (*FileCredentialStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}
	return &FileCredentialStore{dir: dir}, nil
}

var _ out.CredentialStore = (*FileCredentialStore)(nil)

func (s *FileCredentialStore) path(email string) string {
	sum := sha256.Sum256([]byte(domain.NormalizeEmail(email)))
	return filepath.Join(s.dir, "tokens-"+hex.EncodeToString(sum[:8])+".json")
}

func (s *FileCredentialStore) Load(ctx context.Context, email string) (*domain.GmailCredentials, error) {
	data, err := os.ReadFile(s.path(email))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, out.ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var creds domain.GmailCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return &creds, nil
}

// Save writes to a temp file and renames it so readers never see a partial file.
func (s *FileCredentialStore) Save(ctx context.Context, email string, creds *domain.GmailCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tokens-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(email)); err != nil {
		return fmt.Errorf("rename credentials: %w", err)
	}
	return nil
}

func (s *FileCredentialStore) Delete(ctx context.Context, email string) error {
	err := os.Remove(s.path(email))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
