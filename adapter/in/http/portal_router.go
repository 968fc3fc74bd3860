package http

import (
	"strings"
	"time"

	"portal_server/infra/middleware"
	"portal_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// Handlers groups every route handler the portal serves. Nil handlers are skipped.
type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	Session   *SessionHandler
	Allowlist *AllowlistHandler
	Gmail     *GmailHandler
	Cookbook  *CookbookHandler
	Notes     *NotesHandler
	ChatLog   *ChatLogHandler
}

type RouterConfig struct {
	Sessions       middleware.SessionVerifier
	PortalToken    string
	AllowedOrigins []string
	// RateLimit is the per-user request budget per minute on /api; 0 disables it.
	RateLimit int
	HSTS      bool
	PublicDir string
	// Latency, when set, records per-route latency served at /api/metrics.
	Latency *metrics.LatencyRegistry
}

// SetupRoutes installs the middleware stack and routes on app.
func SetupRoutes(app *fiber.App, h *Handlers, cfg RouterConfig) {
	// Global middleware stack (order matters)
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Recover())
	app.Use(middleware.SecurityHeaders(cfg.HSTS))

	if len(cfg.AllowedOrigins) > 0 {
		app.Use("/api", cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
			AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders:     "Content-Type," + middleware.PortalTokenHeader,
			ExposeHeaders:    "X-Request-ID",
			AllowCredentials: true,
			MaxAge:           86400,
		}))
	}

	if h.Health != nil {
		h.Health.Register(app)
	}

	app.Use(middleware.Session(middleware.SessionConfig{
		Verifier:    cfg.Sessions,
		PublicPaths: middleware.DefaultPublicPaths,
	}))

	api := app.Group("/api",
		middleware.APIToken(cfg.PortalToken, middleware.DefaultTokenExemptPaths),
		middleware.NoStore(),
	)
	if cfg.RateLimit > 0 {
		api.Use(middleware.RateLimit(cfg.RateLimit, time.Minute))
	}
	if cfg.Latency != nil {
		api.Use(middleware.Latency(cfg.Latency))
		if h.Health != nil {
			h.Health.WithLatency(cfg.Latency).RegisterMetrics(api)
		}
	}

	if h.Auth != nil {
		h.Auth.Register(app)
	}
	if h.Session != nil {
		h.Session.Register(api)
	}
	if h.Allowlist != nil {
		h.Allowlist.Register(api)
	}
	if h.Gmail != nil {
		h.Gmail.Register(api)
	}
	if h.Cookbook != nil {
		h.Cookbook.Register(api)
	}
	if h.Notes != nil {
		h.Notes.Register(api)
	}
	if h.ChatLog != nil {
		h.ChatLog.Register(api)
	}

	if cfg.PublicDir != "" {
		app.Static("/", cfg.PublicDir, fiber.Static{Index: "index.html"})
	}
}
