package crypto

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte(strings.Repeat("k", 32))

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewSigner_RejectsShortSecret(t *testing.T) {
	if _, err := NewSigner([]byte("short")); !errors.Is(err, ErrWeakSecret) {
		t.Errorf("NewSigner() error = %v, want ErrWeakSecret", err)
	}
}

func TestSigner_RoundTrip(t *testing.T) {
	s, err := NewSigner(testSecret)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}

	token, issued, err := s.IssueFor(KindSession, "alice@example.com", "", 24*time.Hour)
	if err != nil {
		t.Fatalf("IssueFor() error = %v", err)
	}
	if strings.Count(token, ".") != 1 {
		t.Fatalf("token %q should contain exactly one separator", token)
	}
	if strings.ContainsAny(token, "+/=") {
		t.Errorf("token %q is not base64url without padding", token)
	}

	got, err := s.Verify(token, KindSession)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != issued {
		t.Errorf("Verify() = %+v, want %+v", got, issued)
	}

	wantExp := time.Now().Add(24 * time.Hour)
	if d := got.ExpiresAt().Sub(wantExp); d > time.Minute || d < -time.Minute {
		t.Errorf("exp %v not within a minute of now+24h", got.ExpiresAt())
	}
}

func TestSigner_RejectsSingleBitMutation(t *testing.T) {
	s, _ := NewSigner(testSecret)
	token, _, err := s.IssueFor(KindSession, "alice@example.com", "", time.Hour)
	if err != nil {
		t.Fatalf("IssueFor() error = %v", err)
	}

	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			mutated := []byte(token)
			mutated[i] ^= 1 << bit
			if string(mutated) == token {
				continue
			}
			if _, err := s.Verify(string(mutated), KindSession); err == nil {
				t.Fatalf("mutation at byte %d bit %d verified: %q", i, bit, mutated)
			}
		}
	}
}

func TestSigner_Expired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	s, _ := NewSigner(testSecret)

	token, _, err := s.WithClock(fixedClock(past)).IssueFor(KindSession, "alice@example.com", "", time.Hour)
	if err != nil {
		t.Fatalf("IssueFor() error = %v", err)
	}
	if _, err := s.Verify(token, KindSession); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestSigner_ExpiryBoundary(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	s, _ := NewSigner(testSecret)
	s = s.WithClock(fixedClock(now))

	token, err := s.Issue(Payload{Kind: KindSession, Email: "a@example.com", Exp: now.UnixMilli()})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := s.Verify(token, KindSession); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("token expiring exactly now: error = %v, want ErrTokenExpired", err)
	}
}

func TestSigner_KindConfusion(t *testing.T) {
	s, _ := NewSigner(testSecret)
	state, _, err := s.IssueFor(KindGmailState, "alice@example.com", "", 10*time.Minute)
	if err != nil {
		t.Fatalf("IssueFor() error = %v", err)
	}

	if _, err := s.Verify(state, KindSession); !errors.Is(err, ErrWrongKind) {
		t.Errorf("state token verified as session: error = %v, want ErrWrongKind", err)
	}
	if _, err := s.Verify(state, KindGmailState); err != nil {
		t.Errorf("Verify(gmail_state) error = %v", err)
	}
}

func TestSigner_DifferentSecret(t *testing.T) {
	a, _ := NewSigner(testSecret)
	b, _ := NewSigner([]byte(strings.Repeat("z", 32)))

	token, _, _ := a.IssueFor(KindSession, "alice@example.com", "", time.Hour)
	if _, err := b.Verify(token, KindSession); !errors.Is(err, ErrBadSignature) {
		t.Errorf("Verify() with other secret error = %v, want ErrBadSignature", err)
	}
}

func TestSigner_Malformed(t *testing.T) {
	s, _ := NewSigner(testSecret)
	notJSON := EncodeBase64URL([]byte("not json"))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMalformed},
		{"no separator", "abc", ErrMalformed},
		{"empty payload", ".sig", ErrMalformed},
		{"empty signature", "payload.", ErrMalformed},
		{"bad signature", "payload.sig", ErrBadSignature},
		{"signed garbage", notJSON + "." + s.Sign(notJSON), ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Verify(tt.token, KindSession); !errors.Is(err, tt.want) {
				t.Errorf("Verify(%q) error = %v, want %v", tt.token, err, tt.want)
			}
		})
	}
}

func TestSigner_RequiredClaims(t *testing.T) {
	s, _ := NewSigner(testSecret)
	exp := time.Now().Add(time.Hour).UnixMilli()

	tests := []struct {
		name string
		p    Payload
		want error
	}{
		{"session without email", Payload{Kind: KindSession, Exp: exp}, ErrMissingClaim},
		{"state without email", Payload{Kind: KindGmailState, Exp: exp}, ErrMissingClaim},
		{"login without nonce", Payload{Kind: KindLoginState, Exp: exp}, ErrMissingClaim},
		{"unknown kind", Payload{Kind: "admin", Email: "a@b.c", Exp: exp}, ErrUnknownKind},
		{"no exp", Payload{Kind: KindSession, Email: "a@b.c"}, ErrMissingExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Issue(tt.p); !errors.Is(err, tt.want) {
				t.Errorf("Issue() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSigner_VerifyRejectsSignedPayloadMissingEmail(t *testing.T) {
	s, _ := NewSigner(testSecret)
	encoded := EncodeBase64URL([]byte(`{"kind":"session","exp":9999999999999}`))
	token := encoded + "." + s.Sign(encoded)

	if _, err := s.Verify(token, KindSession); !errors.Is(err, ErrMissingClaim) {
		t.Errorf("Verify() error = %v, want ErrMissingClaim", err)
	}
}
