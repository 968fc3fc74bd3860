package middleware

import (
	"time"

	"portal_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

// Latency records handler latency per route pattern.
func Latency(registry *metrics.LatencyRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		registry.Record(c.Method()+" "+c.Route().Path, time.Since(start))
		return err
	}
}
