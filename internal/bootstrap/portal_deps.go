package bootstrap

import (
	"context"
	"fmt"
	"time"

	"portal_server/adapter/out/identity"
	"portal_server/adapter/out/llm"
	"portal_server/adapter/out/mongodb"
	"portal_server/adapter/out/persistence"
	"portal_server/adapter/out/provider/gmail"
	"portal_server/config"
	"portal_server/core/port/out"
	"portal_server/core/service/auth"
	"portal_server/core/service/chatlog"
	"portal_server/core/service/cookbook"
	"portal_server/core/service/mail"
	"portal_server/core/service/notes"
	"portal_server/infra/database"
	"portal_server/pkg/crypto"
	"portal_server/pkg/httputil"
	"portal_server/pkg/kv"
	"portal_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type Dependencies struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	KV      *kv.Store
	MongoDB *mongo.Client

	// Repositories
	Credentials   out.CredentialStore
	AllowlistRepo out.AllowlistRepository
	RecipeRepo    out.RecipeRepository

	// Providers
	GmailProvider   *gmail.Provider
	GmailAuthorizer *gmail.Authorizer
	Identity        *identity.Provider
	LLMClient       *llm.Client

	// Services
	Sessions         *auth.SessionService
	AllowlistService *auth.AllowlistService
	OAuthService     *auth.OAuthService
	MailService      *mail.Service
	CookbookService  *cookbook.Service
	NotesService     *notes.Service
	ChatLogService   *chatlog.Service
}

// NewDependencies connects every configured backend and wires the services.
// The returned cleanup closes the connections in reverse order.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	// =========================================================================
	// Storage
	// =========================================================================

	if cfg.RedisURL != "" {
		client, err := database.NewRedis(ctx, cfg.RedisURL, database.DefaultRedisConfig())
		if err != nil {
			return fail(err)
		}
		deps.Redis = client
		deps.KV = kv.New(client)
		closers = append(closers, func() { _ = client.Close() })
		logger.Info("Redis connected")
	} else {
		logger.Warn("REDIS_URL not set: allowlist is read-only, notes, chat log and cookbook are disabled")
	}

	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgres(ctx, cfg.DatabaseURL, database.DefaultPostgresConfig())
		if err != nil {
			return fail(err)
		}
		deps.DB = pool
		closers = append(closers, pool.Close)

		if cfg.CredentialMode == config.CredentialStorePostgres {
			sqlDB, err := database.NewSQLX(ctx, cfg.DatabaseURL)
			if err != nil {
				return fail(err)
			}
			deps.SQLDB = sqlDB
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
		logger.Info("PostgreSQL connected")
	}

	if cfg.MongoDBURL != "" {
		client, err := mongodb.NewClient(ctx, cfg.MongoDBURL)
		if err != nil {
			return fail(err)
		}
		deps.MongoDB = client
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		})
		recipes := mongodb.NewRecipeAdapter(client.Database(cfg.MongoDBName))
		if err := recipes.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("Failed to ensure recipe indexes")
		}
		deps.RecipeRepo = recipes
		logger.Info("MongoDB connected (database: %s)", cfg.MongoDBName)
	} else if deps.KV != nil {
		deps.RecipeRepo = persistence.NewKVRecipeRepository(deps.KV)
	}

	creds, err := newCredentialStore(ctx, cfg, deps)
	if err != nil {
		return fail(err)
	}
	deps.Credentials = creds

	if deps.KV != nil {
		deps.AllowlistRepo = persistence.NewKVAllowlistRepository(deps.KV)
	}

	// =========================================================================
	// Providers
	// =========================================================================

	googleHTTP := httputil.NewClient(httputil.GoogleClientConfig())

	idp, err := identity.New(ctx, identity.Config{
		IssuerURL:    cfg.OIDCIssuerURL,
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.PortalRedirectURL,
	}, googleHTTP)
	if err != nil {
		return fail(fmt.Errorf("oidc discovery: %w", err))
	}
	deps.Identity = idp

	deps.GmailAuthorizer = gmail.NewAuthorizer(gmail.AuthorizerConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GmailRedirectURL,
	}, googleHTTP)
	deps.GmailProvider = gmail.NewProvider(gmail.WithHTTPClient(googleHTTP))

	var generator out.RecipeGenerator
	if cfg.GeminiAPIKey != "" {
		deps.LLMClient = llm.NewClient(llm.ClientConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			BaseURL:     cfg.GeminiBaseURL,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			HTTPClient:  httputil.NewClient(httputil.LLMClientConfig()),
		})
		generator = deps.LLMClient
		logger.Info("Recipe generator enabled (model: %s)", cfg.GeminiModel)
	}

	// =========================================================================
	// Services
	// =========================================================================

	signer, err := crypto.NewSigner([]byte(cfg.SessionSecret))
	if err != nil {
		return fail(err)
	}
	deps.Sessions = auth.NewSessionService(signer, cfg.SessionTTL)
	deps.AllowlistService = auth.NewAllowlistService(deps.AllowlistRepo, cfg.AllowedEmails)
	deps.OAuthService = auth.NewOAuthService(
		deps.Identity,
		deps.GmailAuthorizer,
		deps.GmailProvider,
		deps.Credentials,
		deps.AllowlistService,
		deps.Sessions,
	)
	deps.MailService = mail.NewService(deps.OAuthService, deps.GmailProvider, cfg.MaxPreviewMessages)

	if deps.KV != nil {
		deps.CookbookService = cookbook.NewService(
			persistence.NewKVCookbookRepository(deps.KV),
			deps.RecipeRepo,
			generator,
			deps.KV,
			cfg.RecipeRateLimit,
		)
		deps.NotesService = notes.NewService(persistence.NewKVNotesRepository(deps.KV))
		deps.ChatLogService = chatlog.NewService(persistence.NewKVChatLogRepository(deps.KV))
	}

	return deps, cleanup, nil
}

// newCredentialStore builds the configured backend, optionally backed by the
// token directory and sealed with ENCRYPTION_KEY.
func newCredentialStore(ctx context.Context, cfg *config.Config, deps *Dependencies) (out.CredentialStore, error) {
	var store out.CredentialStore

	switch cfg.CredentialMode {
	case config.CredentialStoreKV:
		store = persistence.NewKVCredentialStore(deps.KV)
	case config.CredentialStorePostgres:
		pg := persistence.NewPostgresCredentialStore(deps.SQLDB)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("credential schema: %w", err)
		}
		store = pg
	default:
		fs, err := persistence.NewFileCredentialStore(cfg.TokenDir)
		if err != nil {
			return nil, err
		}
		store = fs
	}

	if cfg.CredentialMode != config.CredentialStoreFile && cfg.FileFallback {
		fs, err := persistence.NewFileCredentialStore(cfg.TokenDir)
		if err != nil {
			return nil, err
		}
		store = persistence.NewMirroredCredentialStore(store, fs, cfg.FileMirror)
		logger.Info("Credential store: %s with file fallback (mirror writes: %v)", cfg.CredentialMode, cfg.FileMirror)
	} else {
		logger.Info("Credential store: %s", cfg.CredentialMode)
	}

	if cfg.EncryptionKey != "" {
		enc, err := crypto.NewEncryptor([]byte(cfg.EncryptionKey))
		if err != nil {
			return nil, fmt.Errorf("encryption key: %w", err)
		}
		store = persistence.NewEncryptedCredentialStore(store, enc)
	}
	return store, nil
}
