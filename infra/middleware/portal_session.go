package middleware

import (
	"context"
	"strings"
	"time"

	"portal_server/pkg/apperr"
	"portal_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalsRequestID = "request_id"
	LocalsUserEmail = "user_email"

	SessionCookie    = "portal_session"
	LoginStateCookie = "portal_login_state"
)

// DefaultPublicPaths are reachable without a session.
var DefaultPublicPaths = []string{
	"/login",
	"/auth/callback",
	"/auth/gmail/callback",
	"/logout",
	"/health",
	"/ready",
	"/favicon.ico",
}

// SessionVerifier validates a session token and returns its email.
type SessionVerifier interface {
	VerifySession(token string) (string, error)
}

type SessionConfig struct {
	Verifier    SessionVerifier
	PublicPaths []string
	// LoginPath is where browser requests without a session are sent.
	LoginPath string
}

// Session gates every non-public path on a valid session cookie. API requests
// get a 401 envelope; page requests are redirected to the login page.
func Session(cfg SessionConfig) fiber.Handler {
	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if _, ok := public[path]; ok {
			return c.Next()
		}

		email, err := cfg.Verifier.VerifySession(c.Cookies(SessionCookie))
		if err != nil {
			if IsAPIPath(path) {
				return apperr.Unauthorized("")
			}
			return c.Redirect(cfg.LoginPath, fiber.StatusFound)
		}

		SetUser(c, email)
		return c.Next()
	}
}

// SetUser records the authenticated email for handlers and log lines.
func SetUser(c *fiber.Ctx, email string) {
	c.Locals(LocalsUserEmail, email)
	c.SetUserContext(context.WithValue(c.UserContext(), logger.UserEmailKey, email))
}

// GetUserEmail returns the email stored by Session.
func GetUserEmail(c *fiber.Ctx) (string, bool) {
	email, ok := c.Locals(LocalsUserEmail).(string)
	return email, ok && email != ""
}

// IsAPIPath reports whether path is under /api.
func IsAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// CookieOptions configures the cookies the portal sets.
type CookieOptions struct {
	Secure bool
}

// SetCookie writes an HttpOnly, SameSite=Lax cookie scoped to the whole site.
func (o CookieOptions) SetCookie(c *fiber.Ctx, name, value string, maxAge time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HTTPOnly: true,
		Secure:   o.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires name immediately.
func (o CookieOptions) ClearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   o.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
