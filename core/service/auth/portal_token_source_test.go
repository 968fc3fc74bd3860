package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"portal_server/core/domain"

	"golang.org/x/oauth2"
)

type sequenceSource struct {
	tokens []*oauth2.Token
	i      int
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	tok := s.tokens[s.i]
	if s.i < len(s.tokens)-1 {
		s.i++
	}
	return tok, nil
}

func TestPersistingTokenSource_SavesOnlyOnChange(t *testing.T) {
	store := newMemCredentialStore()
	last := &domain.GmailCredentials{Email: "alice@example.com", AccessToken: "a1", RefreshToken: "r1"}
	ts := &persistingTokenSource{
		ctx:   context.Background(),
		email: "alice@example.com",
		base: &sequenceSource{tokens: []*oauth2.Token{
			{AccessToken: "a1"},
			{AccessToken: "a2"},
		}},
		store: store,
		last:  last,
	}

	if _, err := ts.Token(); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if store.saves != 0 {
		t.Errorf("unchanged token persisted")
	}

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "a2" || store.saves != 1 {
		t.Fatalf("refreshed token = %s, saves = %d", tok.AccessToken, store.saves)
	}
	saved, _ := store.Load(context.Background(), "alice@example.com")
	if saved.AccessToken != "a2" || saved.RefreshToken != "r1" {
		t.Errorf("saved = %+v, want a2 with refresh token carried over", saved)
	}
}

func TestIsRevokedGrant(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retrieve error", fmt.Errorf("get: %w", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}), true},
		{"message only", errors.New(`oauth2: "invalid_grant" "Token has been expired or revoked."`), true},
		{"other", errors.New("googleapi: Error 500"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRevokedGrant(tt.err); got != tt.want {
				t.Errorf("IsRevokedGrant(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
