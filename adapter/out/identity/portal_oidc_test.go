package identity

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	testIssuer   = "https://issuer.example.com"
	testClientID = "portal-client"
)

type testIDP struct {
	key    *rsa.PrivateKey
	server *httptest.Server
	claims jwt.MapClaims
	noID   bool
}

func newTestIDP(t *testing.T) *testIDP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	idp := &testIDP{key: key}
	idp.server = httptest.NewServer(http.HandlerFunc(idp.token))
	t.Cleanup(idp.server.Close)
	return idp
}

func (idp *testIDP) token(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	body := map[string]any{
		"access_token": "access",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	if !idp.noID {
		tok, _ := jwt.NewWithClaims(jwt.SigningMethodRS256, idp.claims).SignedString(idp.key)
		body["id_token"] = tok
	}
	if r.PostForm.Get("code") == "bad" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (idp *testIDP) provider() *Provider {
	verifier := oidc.NewVerifier(
		testIssuer,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&idp.key.PublicKey}},
		&oidc.Config{ClientID: testClientID},
	)
	return NewWithVerifier(
		Config{ClientID: testClientID, ClientSecret: "secret", RedirectURL: "http://localhost/auth/callback"},
		oauth2.Endpoint{AuthURL: idp.server.URL + "/auth", TokenURL: idp.server.URL + "/token"},
		verifier,
		idp.server.Client(),
	)
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            testIssuer,
		"aud":            testClientID,
		"sub":            "10769150350006150715113082367",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"email":          "Alice@Example.com",
		"email_verified": true,
		"name":           "Alice",
	}
}

func TestAuthenticate(t *testing.T) {
	idp := newTestIDP(t)
	idp.claims = validClaims()

	id, err := idp.provider().Authenticate(context.Background(), "code")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Email != "alice@example.com" || !id.EmailVerified || id.Name != "Alice" {
		t.Errorf("identity = %+v", id)
	}
	if id.Subject != "10769150350006150715113082367" {
		t.Errorf("Subject = %q", id.Subject)
	}
}

func TestAuthenticate_StringEmailVerified(t *testing.T) {
	idp := newTestIDP(t)
	idp.claims = validClaims()
	idp.claims["email_verified"] = "true"

	id, err := idp.provider().Authenticate(context.Background(), "code")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !id.EmailVerified {
		t.Error("EmailVerified = false, want true")
	}
}

func TestAuthenticate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(idp *testIDP)
		code   string
	}{
		{"wrong audience", func(idp *testIDP) { idp.claims["aud"] = "someone-else" }, "code"},
		{"wrong issuer", func(idp *testIDP) { idp.claims["iss"] = "https://evil.example.com" }, "code"},
		{"expired", func(idp *testIDP) { idp.claims["exp"] = time.Now().Add(-time.Hour).Unix() }, "code"},
		{"no id token", func(idp *testIDP) { idp.noID = true }, "code"},
		{"exchange fails", func(idp *testIDP) {}, "bad"},
		{"foreign key", func(idp *testIDP) {
			other, _ := rsa.GenerateKey(rand.Reader, 2048)
			idp.key = other
		}, "code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idp := newTestIDP(t)
			idp.claims = validClaims()
			p := idp.provider()
			tt.mutate(idp)

			if _, err := p.Authenticate(context.Background(), tt.code); err == nil {
				t.Error("Authenticate() error = nil, want error")
			}
		})
	}
}

func TestAuthCodeURL(t *testing.T) {
	idp := newTestIDP(t)
	raw := idp.provider().AuthCodeURL("state-123")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-123" || q.Get("prompt") != "login" || q.Get("client_id") != testClientID {
		t.Errorf("query = %v", q)
	}
	for _, scope := range []string{"openid", "email", "profile"} {
		if !strings.Contains(q.Get("scope"), scope) {
			t.Errorf("scope %q missing from %q", scope, q.Get("scope"))
		}
	}
}
