package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"time"

	"portal_server/core/domain"
	"portal_server/pkg/crypto"
)

const (
	// GmailStateTTL bounds the Gmail consent round trip.
	GmailStateTTL = 10 * time.Minute
	// LoginStateTTL bounds the portal login round trip.
	LoginStateTTL = 10 * time.Minute

	DefaultSessionTTL = 24 * time.Hour
)

// ErrStateMismatch is returned when a login state nonce does not match its cookie.
var ErrStateMismatch = errors.New("login state mismatch")

// SessionService issues and verifies the signed tokens the portal hands to browsers.
type SessionService struct {
	signer *crypto.Signer
	ttl    time.Duration
}

func NewSessionService(signer *crypto.Signer, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{signer: signer, ttl: ttl}
}

// TTL is the session lifetime, also used as the cookie Max-Age.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// IssueSession returns a session token for email and its expiry.
func (s *SessionService) IssueSession(email string) (string, time.Time, error) {
	token, p, err := s.signer.IssueFor(crypto.KindSession, domain.NormalizeEmail(email), "", s.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, p.ExpiresAt(), nil
}

// VerifySession returns the email bound to a valid session token.
func (s *SessionService) VerifySession(token string) (string, error) {
	p, err := s.signer.Verify(token, crypto.KindSession)
	if err != nil {
		return "", err
	}
	return p.Email, nil
}

// IssueGmailState binds a Gmail consent redirect to email.
func (s *SessionService) IssueGmailState(email string) (string, error) {
	token, _, err := s.signer.IssueFor(crypto.KindGmailState, domain.NormalizeEmail(email), "", GmailStateTTL)
	return token, err
}

// VerifyGmailState returns the email a Gmail state token was issued for.
func (s *SessionService) VerifyGmailState(token string) (string, error) {
	p, err := s.signer.Verify(token, crypto.KindGmailState)
	if err != nil {
		return "", err
	}
	return p.Email, nil
}

// IssueLoginState returns a signed state parameter and the nonce the browser
// must present alongside it (in a cookie) on the callback.
func (s *SessionService) IssueLoginState() (state, nonce string, err error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	nonce = crypto.EncodeBase64URL(b)
	state, _, err = s.signer.IssueFor(crypto.KindLoginState, "", nonce, LoginStateTTL)
	if err != nil {
		return "", "", err
	}
	return state, nonce, nil
}

// VerifyLoginState checks state and that it was issued with nonce.
func (s *SessionService) VerifyLoginState(state, nonce string) error {
	p, err := s.signer.Verify(state, crypto.KindLoginState)
	if err != nil {
		return err
	}
	if nonce == "" || subtle.ConstantTimeCompare([]byte(p.Nonce), []byte(nonce)) != 1 {
		return ErrStateMismatch
	}
	return nil
}
