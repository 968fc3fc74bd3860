package domain

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// NormalizeEmail lowercases and trims an address for use as an identity key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GmailCredentials is the OAuth2 token set granting Gmail access for one email.
type GmailCredentials struct {
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Token converts the stored credentials to an oauth2 token.
func (c *GmailCredentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// CredentialsFromToken builds a credential record for email. When the new token
// carries no refresh token (refresh responses often omit it) the previous one is kept.
func CredentialsFromToken(email string, tok *oauth2.Token, previous *GmailCredentials) *GmailCredentials {
	creds := &GmailCredentials{
		Email:        NormalizeEmail(email),
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		UpdatedAt:    time.Now().UTC(),
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		creds.Scopes = strings.Fields(scope)
	}
	if previous != nil {
		if creds.RefreshToken == "" {
			creds.RefreshToken = previous.RefreshToken
		}
		if len(creds.Scopes) == 0 {
			creds.Scopes = previous.Scopes
		}
	}
	return creds
}

// Identity is the verified result of a portal login.
type Identity struct {
	Email         string
	EmailVerified bool
	Name          string
	Subject       string
}

// SessionInfo describes the current portal session.
type SessionInfo struct {
	Email          string `json:"email"`
	GmailConnected bool   `json:"gmailConnected"`
}

// AllowlistSource says where the effective allowlist came from.
type AllowlistSource string

const (
	AllowlistSourceKV  AllowlistSource = "kv"
	AllowlistSourceEnv AllowlistSource = "env"
)

// Allowlist is the set of lowercase emails permitted to log in.
type Allowlist struct {
	Emails   []string        `json:"emails"`
	Source   AllowlistSource `json:"source"`
	Editable bool            `json:"editable"`
}

// Contains reports whether email (normalized) is on the list.
func (a *Allowlist) Contains(email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}
	for _, e := range a.Emails {
		if e == email {
			return true
		}
	}
	return false
}
