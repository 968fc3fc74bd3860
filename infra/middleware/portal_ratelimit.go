package middleware

import (
	"time"

	"portal_server/pkg/apperr"
	"portal_server/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit limits requests per signed-in user, or per IP before sign-in.
func RateLimit(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if email, ok := GetUserEmail(c); ok {
				return "user:" + email
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, apperr.ErrRateLimited)
		},
	})
}
