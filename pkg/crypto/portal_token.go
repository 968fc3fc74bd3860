package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// TokenKind discriminates the payloads signed with the same secret.
type TokenKind string

const (
	KindSession    TokenKind = "session"
	KindGmailState TokenKind = "gmail_state"
	KindLoginState TokenKind = "login_state"
)

// MinSecretLen is the shortest HMAC secret the signer accepts.
const MinSecretLen = 32

var (
	ErrWeakSecret    = errors.New("token secret too short")
	ErrMalformed     = errors.New("malformed token")
	ErrBadSignature  = errors.New("token signature mismatch")
	ErrTokenExpired  = errors.New("token expired")
	ErrWrongKind     = errors.New("unexpected token kind")
	ErrMissingClaim  = errors.New("token missing required claim")
	ErrUnknownKind   = errors.New("unknown token kind")
	ErrMissingExpiry = errors.New("token expiry required")
)

// Payload is the signed body of every portal token. Exp is epoch milliseconds.
type Payload struct {
	Kind  TokenKind `json:"kind"`
	Email string    `json:"email,omitempty"`
	Nonce string    `json:"nonce,omitempty"`
	Exp   int64     `json:"exp"`
}

// ExpiresAt returns Exp as a time.
func (p Payload) ExpiresAt() time.Time {
	return time.UnixMilli(p.Exp)
}

func (p Payload) validate() error {
	switch p.Kind {
	case KindSession, KindGmailState:
		if p.Email == "" {
			return fmt.Errorf("%w: email", ErrMissingClaim)
		}
	case KindLoginState:
		if p.Nonce == "" {
			return fmt.Errorf("%w: nonce", ErrMissingClaim)
		}
	default:
		return ErrUnknownKind
	}
	return nil
}

// Signer issues and verifies HMAC-SHA256 signed tokens of the form
// base64url(json(payload)) + "." + base64url(hmac(encodedPayload)).
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer keyed by secret.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Signer{secret: key, now: time.Now}, nil
}

// WithClock overrides the time source, for tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// Sign returns the base64url HMAC-SHA256 of encoded.
func (s *Signer) Sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return EncodeBase64URL(mac.Sum(nil))
}

// Issue signs p as-is. Exp must already be set.
func (s *Signer) Issue(p Payload) (string, error) {
	if p.Exp == 0 {
		return "", ErrMissingExpiry
	}
	if err := p.validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal token payload: %w", err)
	}
	encoded := EncodeBase64URL(raw)
	return encoded + "." + s.Sign(encoded), nil
}

// IssueFor builds a payload of the given kind expiring after ttl and signs it.
func (s *Signer) IssueFor(kind TokenKind, email, nonce string, ttl time.Duration) (string, Payload, error) {
	p := Payload{
		Kind:  kind,
		Email: email,
		Nonce: nonce,
		Exp:   s.now().Add(ttl).UnixMilli(),
	}
	token, err := s.Issue(p)
	return token, p, err
}

// Verify checks the signature, kind, required claims and expiry of token.
func (s *Signer) Verify(token string, kind TokenKind) (Payload, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || sig == "" {
		return Payload{}, ErrMalformed
	}
	if !hmac.Equal([]byte(sig), []byte(s.Sign(encoded))) {
		return Payload{}, ErrBadSignature
	}

	raw, err := DecodeBase64URL(encoded)
	if err != nil {
		return Payload{}, ErrMalformed
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, ErrMalformed
	}
	if p.Kind != kind {
		return Payload{}, ErrWrongKind
	}
	if err := p.validate(); err != nil {
		return Payload{}, err
	}
	if p.Exp <= s.now().UnixMilli() {
		return Payload{}, ErrTokenExpired
	}
	return p, nil
}
