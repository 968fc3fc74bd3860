package middleware

import (
	"crypto/subtle"

	"portal_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

const PortalTokenHeader = "X-Portal-Token"

// DefaultTokenExemptPaths are API paths the page calls before it knows the token.
var DefaultTokenExemptPaths = []string{"/api/config", "/api/session"}

// APIToken requires the shared portal token on /api requests.
func APIToken(token string, exempt []string) fiber.Handler {
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}
	want := []byte(token)

	return func(c *fiber.Ctx) error {
		if !IsAPIPath(c.Path()) || c.Method() == fiber.MethodOptions {
			return c.Next()
		}
		if _, ok := skip[c.Path()]; ok {
			return c.Next()
		}
		got := []byte(c.Get(PortalTokenHeader))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			return apperr.Unauthorized("missing or invalid portal token")
		}
		return c.Next()
	}
}
