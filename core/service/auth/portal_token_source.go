package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"portal_server/core/domain"
	"portal_server/core/port/out"
	"portal_server/pkg/logger"

	"golang.org/x/oauth2"
)

const persistTimeout = 5 * time.Second

// persistingTokenSource writes refreshed tokens back to the credential store.
type persistingTokenSource struct {
	mu    sync.Mutex
	ctx   context.Context
	email string
	base  oauth2.TokenSource
	store out.CredentialStore
	last  *domain.GmailCredentials
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	if p.last != nil && tok.AccessToken == p.last.AccessToken {
		return tok, nil
	}

	creds := domain.CredentialsFromToken(p.email, tok, p.last)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.ctx), persistTimeout)
	defer cancel()
	if err := p.store.Save(ctx, p.email, creds); err != nil {
		// The token is still usable for this request; the next request refreshes again.
		logger.WithError(err).WithField("user", p.email).Warn("[OAuth] failed to persist refreshed Gmail token")
	} else {
		logger.WithField("user", p.email).Debug("[OAuth] persisted refreshed Gmail token")
	}
	p.last = creds
	return tok, nil
}

// IsRevokedGrant reports whether err means the stored refresh token no longer works.
func IsRevokedGrant(err error) bool {
	if err == nil {
		return false
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch re.ErrorCode {
		case "invalid_grant", "unauthorized_client", "invalid_client":
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "invalid_grant") ||
		strings.Contains(msg, "Token has been expired or revoked")
}
