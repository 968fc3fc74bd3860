package http

import (
	"context"
	"time"

	"portal_server/infra/database"
	"portal_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// CheckFunc adapts a ping function to HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Ping(ctx context.Context) error { return f(ctx) }

type namedCheck struct {
	name    string
	checker HealthChecker
}

type HealthHandler struct {
	checks  []namedCheck
	db      *pgxpool.Pool
	latency *metrics.LatencyRegistry
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// WithCheck adds a dependency that /ready must reach. A nil checker is
// reported as not configured.
func (h *HealthHandler) WithCheck(name string, checker HealthChecker) *HealthHandler {
	h.checks = append(h.checks, namedCheck{name: name, checker: checker})
	return h
}

// WithPostgres adds the pool to the readiness checks and reports its stats.
func (h *HealthHandler) WithPostgres(pool *pgxpool.Pool) *HealthHandler {
	h.db = pool
	if pool == nil {
		return h.WithCheck("postgres", nil)
	}
	return h.WithCheck("postgres", pool)
}

// WithLatency exposes the request latency registry on the metrics route.
func (h *HealthHandler) WithLatency(registry *metrics.LatencyRegistry) *HealthHandler {
	h.latency = registry
	return h
}

func (h *HealthHandler) Register(app fiber.Router) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allHealthy := true

	for _, check := range h.checks {
		if check.checker == nil {
			checks[check.name] = "not configured"
			continue
		}
		if err := check.checker.Ping(ctx); err != nil {
			checks[check.name] = "unhealthy"
			allHealthy = false
		} else {
			checks[check.name] = "healthy"
		}
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	body := fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.db != nil {
		body["postgres_pool"] = database.GetPoolStats(h.db)
	}
	return c.Status(statusCode).JSON(body)
}

// RegisterMetrics mounts the latency snapshot on an authenticated router.
func (h *HealthHandler) RegisterMetrics(router fiber.Router) {
	router.Get("/metrics", h.Metrics)
}

func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	if h.latency == nil {
		return c.JSON(fiber.Map{"ok": true, "latency": fiber.Map{}})
	}
	return c.JSON(fiber.Map{"ok": true, "latency": h.latency.Snapshot()})
}
