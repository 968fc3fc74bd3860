package bootstrap

import (
	"context"

	"portal_server/adapter/in/http"
	"portal_server/adapter/out/mongodb"
	"portal_server/config"
	"portal_server/infra/middleware"
	"portal_server/pkg/logger"
	"portal_server/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
)

func NewAPI(ctx context.Context, cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		StrictRouting:         false,
		CaseSensitive:         true,

		// go-json: faster drop-in for encoding/json
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		// Chat logs and cookbook imports are the largest bodies
		BodyLimit: 4 * 1024 * 1024,

		ServerHeader:       "",
		DisableDefaultDate: true,
		ProxyHeader:        fiber.HeaderXForwardedFor,
	})

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	health := http.NewHealthHandler().WithPostgres(deps.DB)
	if deps.KV != nil {
		health.WithCheck("redis", deps.KV)
	} else {
		health.WithCheck("redis", nil)
	}
	if deps.MongoDB != nil {
		client := deps.MongoDB
		health.WithCheck("mongodb", http.CheckFunc(func(ctx context.Context) error {
			return mongodb.Ping(ctx, client)
		}))
	}

	cookies := middleware.CookieOptions{Secure: cfg.CookieSecure}
	handlers := &http.Handlers{
		Health:    health,
		Auth:      http.NewAuthHandler(deps.OAuthService, deps.Sessions, cookies),
		Session:   http.NewSessionHandler(deps.OAuthService, cfg.PortalToken),
		Allowlist: http.NewAllowlistHandler(deps.AllowlistService),
		Gmail:     http.NewGmailHandler(deps.MailService),
	}
	if deps.CookbookService != nil {
		handlers.Cookbook = http.NewCookbookHandler(deps.CookbookService)
	}
	if deps.NotesService != nil {
		handlers.Notes = http.NewNotesHandler(deps.NotesService)
	}
	if deps.ChatLogService != nil {
		handlers.ChatLog = http.NewChatLogHandler(deps.ChatLogService)
	}

	http.SetupRoutes(app, handlers, http.RouterConfig{
		Sessions:       deps.Sessions,
		PortalToken:    cfg.PortalToken,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.APIRateLimit,
		HSTS:           cfg.CookieSecure,
		PublicDir:      cfg.PublicDir,
		Latency:        metrics.NewLatencyRegistry(512),
	})

	logger.Info("API server initialized successfully")
	return app, cleanup, nil
}
