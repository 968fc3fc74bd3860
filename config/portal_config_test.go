package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", strings.Repeat("s", 32))
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "4000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.CredentialMode != CredentialStoreFile {
		t.Errorf("CredentialMode = %q, want file when REDIS_URL is unset", cfg.CredentialMode)
	}
	if cfg.PortalRedirectURL != "http://localhost:4000/auth/callback" {
		t.Errorf("PortalRedirectURL = %q", cfg.PortalRedirectURL)
	}
	if cfg.GmailRedirectURL != "http://localhost:4000/auth/gmail/callback" {
		t.Errorf("GmailRedirectURL = %q", cfg.GmailRedirectURL)
	}
	if len(cfg.PortalToken) != 48 {
		t.Errorf("generated PortalToken length = %d, want 48", len(cfg.PortalToken))
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should default to false for http base URL")
	}
}

func TestLoad_KVSelectedWhenRedisConfigured(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ALLOWED_EMAILS", " Alice@example.com , ,bob@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CredentialMode != CredentialStoreKV {
		t.Errorf("CredentialMode = %q, want kv", cfg.CredentialMode)
	}
	if len(cfg.AllowedEmails) != 2 || cfg.AllowedEmails[0] != "Alice@example.com" {
		t.Errorf("AllowedEmails = %v", cfg.AllowedEmails)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			SessionSecret:      strings.Repeat("x", 32),
			SessionTTL:         time.Hour,
			GoogleClientID:     "id",
			GoogleClientSecret: "secret",
			CredentialMode:     CredentialStoreFile,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.SessionSecret = "short" }, "SESSION_SECRET"},
		{"missing client", func(c *Config) { c.GoogleClientID = "" }, "GOOGLE_CLIENT_ID"},
		{"kv without redis", func(c *Config) { c.CredentialMode = CredentialStoreKV }, "REDIS_URL"},
		{"postgres without url", func(c *Config) { c.CredentialMode = CredentialStorePostgres }, "DATABASE_URL"},
		{"unknown backend", func(c *Config) { c.CredentialMode = "s3" }, "unknown CREDENTIAL_STORE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
