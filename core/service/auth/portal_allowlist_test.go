package auth

import (
	"context"
	"reflect"
	"testing"

	"portal_server/core/domain"
	"portal_server/pkg/apperr"
)

func TestAllowlistService_EnvFallback(t *testing.T) {
	s := NewAllowlistService(nil, []string{"Alice@Example.com", "alice@example.com", " bob@example.com"})

	list, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if list.Source != domain.AllowlistSourceEnv || list.Editable {
		t.Errorf("Get() = %+v, want read-only env list", list)
	}
	if want := []string{"alice@example.com", "bob@example.com"}; !reflect.DeepEqual(list.Emails, want) {
		t.Errorf("Emails = %v, want %v", list.Emails, want)
	}

	_, err = s.Update(context.Background(), "alice@example.com", []string{"alice@example.com"})
	if !apperr.HasCode(err, apperr.CodeReadOnly) {
		t.Errorf("Update() on env list error = %v, want READ_ONLY", err)
	}
}

func TestAllowlistService_EmptyFailsClosed(t *testing.T) {
	s := NewAllowlistService(&memAllowlistRepo{}, nil)

	ok, err := s.IsAllowed(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("IsAllowed() error = %v", err)
	}
	if ok {
		t.Error("empty allowlist admitted a user")
	}
}

func TestAllowlistService_StoredListWins(t *testing.T) {
	repo := &memAllowlistRepo{emails: []string{"carol@example.com"}, found: true}
	s := NewAllowlistService(repo, []string{"alice@example.com"})

	for email, want := range map[string]bool{
		"carol@example.com": true,
		"CAROL@example.com": true,
		"alice@example.com": false,
	} {
		got, err := s.IsAllowed(context.Background(), email)
		if err != nil {
			t.Fatalf("IsAllowed(%q) error = %v", email, err)
		}
		if got != want {
			t.Errorf("IsAllowed(%q) = %v, want %v", email, got, want)
		}
	}
}

func TestAllowlistService_SelfLockout(t *testing.T) {
	repo := &memAllowlistRepo{emails: []string{"alice@example.com", "bob@example.com"}, found: true}
	s := NewAllowlistService(repo, nil)

	_, err := s.Update(context.Background(), "alice@example.com", []string{"bob@example.com"})
	if !apperr.HasCode(err, apperr.CodeSelfLockout) {
		t.Fatalf("Update() error = %v, want SELF_LOCKOUT", err)
	}
	if repo.puts != 0 {
		t.Errorf("repository written %d times on rejected update", repo.puts)
	}
	if want := []string{"alice@example.com", "bob@example.com"}; !reflect.DeepEqual(repo.emails, want) {
		t.Errorf("stored list changed to %v", repo.emails)
	}
}

func TestAllowlistService_Update(t *testing.T) {
	tests := []struct {
		name     string
		emails   []string
		wantCode string
		want     []string
	}{
		{
			name:   "normalizes and dedupes",
			emails: []string{" ALICE@example.com", "dave@example.com", "alice@example.com", ""},
			want:   []string{"alice@example.com", "dave@example.com"},
		},
		{name: "empty", emails: []string{" ", ""}, wantCode: apperr.CodeBadRequest},
		{name: "invalid", emails: []string{"alice@example.com", "Bob <bob@example.com>"}, wantCode: apperr.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memAllowlistRepo{emails: []string{"alice@example.com"}, found: true}
			s := NewAllowlistService(repo, nil)

			list, err := s.Update(context.Background(), "Alice@Example.com", tt.emails)
			if tt.wantCode != "" {
				if !apperr.HasCode(err, tt.wantCode) {
					t.Errorf("Update() error = %v, want %s", err, tt.wantCode)
				}
				if repo.puts != 0 {
					t.Error("rejected update was stored")
				}
				return
			}
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if !reflect.DeepEqual(list.Emails, tt.want) || !reflect.DeepEqual(repo.emails, tt.want) {
				t.Errorf("Update() = %v, stored %v, want %v", list.Emails, repo.emails, tt.want)
			}
		})
	}
}

func TestAllowlistService_FirstWriteSeedsKV(t *testing.T) {
	repo := &memAllowlistRepo{}
	s := NewAllowlistService(repo, []string{"alice@example.com"})

	list, err := s.Update(context.Background(), "alice@example.com", []string{"alice@example.com", "bob@example.com"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if list.Source != domain.AllowlistSourceKV {
		t.Errorf("Source = %s, want kv", list.Source)
	}
	got, _ := s.Get(context.Background())
	if got.Source != domain.AllowlistSourceKV || len(got.Emails) != 2 {
		t.Errorf("Get() after update = %+v", got)
	}
}

func TestAllowlistService_NotAllowedSubmitter(t *testing.T) {
	repo := &memAllowlistRepo{emails: []string{"alice@example.com"}, found: true}
	s := NewAllowlistService(repo, nil)

	_, err := s.Update(context.Background(), "mallory@example.com", []string{"mallory@example.com"})
	if !apperr.HasCode(err, apperr.CodeForbidden) {
		t.Errorf("Update() error = %v, want FORBIDDEN", err)
	}
}
