package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Credential store backends selectable through CREDENTIAL_STORE.
const (
	CredentialStoreKV       = "kv"
	CredentialStoreFile     = "file"
	CredentialStorePostgres = "postgres"
)

const minSessionSecretLen = 32

type Config struct {
	Host        string
	Port        string
	Environment string
	BaseURL     string
	PublicDir   string
	LogLevel    string

	// Session
	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	// Static API header token
	PortalToken string

	// CORS
	AllowedOrigins []string

	// Per-user requests per minute on /api; 0 disables the limiter
	APIRateLimit int

	// Allowlist fallback when KV holds no list
	AllowedEmails []string

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	OIDCIssuerURL      string
	PortalRedirectURL  string
	GmailRedirectURL   string

	// Gmail
	MaxPreviewMessages int

	// Storage
	RedisURL       string
	DatabaseURL    string
	MongoDBURL     string
	MongoDBName    string
	CredentialMode string
	FileFallback   bool
	FileMirror     bool
	TokenDir       string
	EncryptionKey  string

	// Gemini (OpenAI-compatible endpoint)
	GeminiAPIKey    string
	GeminiModel     string
	GeminiBaseURL   string
	LLMMaxTokens    int
	LLMTemperature  float64
	RecipeRateLimit int
}

func Load() (*Config, error) {
	port := getEnv("PORT", "3000")
	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/")

	cfg := &Config{
		Host:        getEnv("HOST", "127.0.0.1"),
		Port:        port,
		Environment: getEnv("ENV", "development"),
		BaseURL:     baseURL,
		PublicDir:   getEnv("PUBLIC_DIR", "./public"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Session
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		CookieSecure:  getEnvBool("COOKIE_SECURE", strings.HasPrefix(baseURL, "https://")),

		PortalToken: getEnv("PORTAL_TOKEN", ""),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{
			"http://localhost:" + port,
			"http://127.0.0.1:" + port,
		}),

		APIRateLimit: getEnvInt("API_RATE_LIMIT", 300),

		AllowedEmails: getEnvSlice("ALLOWED_EMAILS", nil),

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		OIDCIssuerURL:      getEnv("OIDC_ISSUER_URL", "https://accounts.google.com"),
		PortalRedirectURL:  getEnv("PORTAL_REDIRECT_URL", baseURL+"/auth/callback"),
		GmailRedirectURL:   getEnv("GMAIL_REDIRECT_URL", baseURL+"/auth/gmail/callback"),

		MaxPreviewMessages: getEnvInt("MAX_PREVIEW_MESSAGES", 0),

		// Storage
		RedisURL:       getEnv("REDIS_URL", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MongoDBURL:     getEnv("MONGODB_URL", ""),
		MongoDBName:    getEnv("MONGODB_DATABASE", "portal"),
		CredentialMode: strings.ToLower(getEnv("CREDENTIAL_STORE", "")),
		FileFallback:   getEnvBool("CREDENTIAL_FILE_FALLBACK", true),
		FileMirror:     getEnvBool("CREDENTIAL_FILE_MIRROR", false),
		TokenDir:       getEnv("TOKEN_DIR", "./data"),
		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),

		// Gemini
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		LLMMaxTokens:    getEnvInt("LLM_MAX_TOKENS", 2048),
		LLMTemperature:  getEnvFloat("LLM_TEMPERATURE", 0.7),
		RecipeRateLimit: getEnvInt("RECIPE_RATE_LIMIT", 10),
	}

	if cfg.CredentialMode == "" {
		if cfg.RedisURL != "" {
			cfg.CredentialMode = CredentialStoreKV
		} else {
			cfg.CredentialMode = CredentialStoreFile
		}
	}

	if cfg.PortalToken == "" {
		token, err := randomHex(24)
		if err != nil {
			return nil, fmt.Errorf("generate portal token: %w", err)
		}
		cfg.PortalToken = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the secrets and backend selection are usable.
func (c *Config) Validate() error {
	var errs []error
	if len(c.SessionSecret) < minSessionSecretLen {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLen))
	}
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_HOURS must be positive"))
	}
	switch c.CredentialMode {
	case CredentialStoreKV:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("CREDENTIAL_STORE=kv requires REDIS_URL"))
		}
	case CredentialStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("CREDENTIAL_STORE=postgres requires DATABASE_URL"))
		}
	case CredentialStoreFile:
	default:
		errs = append(errs, fmt.Errorf("unknown CREDENTIAL_STORE %q", c.CredentialMode))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
