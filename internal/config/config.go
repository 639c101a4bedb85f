// Package config reads the server's settings from the environment.
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

// Store drivers.
const (
	StoreJSON     = "json"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Image storage drivers.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config is everything cmd/server needs to assemble the application.
type Config struct {
	Port string

	StoreDriver string
	DataPath    string // flat-file document
	DBPath      string // sqlite file
	DatabaseURL string // postgres

	StorageDriver   string
	UploadDir       string
	UploadURLPrefix string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PublicBaseURL string

	StaticDir string

	SessionSecret string
	// SessionSecretGenerated is true when no secret was configured and a
	// random one was made up. Sessions then die with the process.
	SessionSecretGenerated bool
	SessionTTL             time.Duration
	SecureCookies          bool

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	CORSAllowedOrigins []string
	MaxUploadBytes     int64

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults
// suited to running locally next to the frontend.
//
// A variable that is set but cannot be parsed is an error, never silently
// replaced by its default.
func Load() (Config, error) {
	var env parser
	cfg := Config{
		Port: getString("PORT", "3000"),

		StoreDriver: strings.ToLower(getString("STORE_DRIVER", StoreJSON)),
		DataPath:    getString("DATA_PATH", "data.json"),
		DBPath:      getString("DB_PATH", "vlogsite.db"),
		DatabaseURL: getString("DATABASE_URL", ""),

		StorageDriver:   strings.ToLower(getString("STORAGE_DRIVER", StorageLocal)),
		UploadDir:       getString("UPLOAD_DIR", "uploads"),
		UploadURLPrefix: getString("UPLOAD_URL_PREFIX", "/uploads"),
		S3Bucket:        getString("S3_BUCKET", ""),
		S3Region:        getString("S3_REGION", "us-east-1"),
		S3Endpoint:      getString("S3_ENDPOINT", ""),
		S3PublicBaseURL: getString("S3_PUBLIC_BASE_URL", ""),

		StaticDir: getString("STATIC_DIR", "public"),

		SessionSecret: getString("SESSION_SECRET", ""),
		SessionTTL:    env.duration("SESSION_TTL", 24*time.Hour),
		SecureCookies: env.boolean("SECURE_COOKIES", false),

		GoogleClientID:     getString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getString("GOOGLE_CLIENT_SECRET", ""),
		GoogleCallbackURL:  getString("GOOGLE_CALLBACK_URL", "http://localhost:3000/auth/google/callback"),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		MaxUploadBytes:     int64(env.integer("MAX_UPLOAD_BYTES", 10<<20)),

		RateLimitRequests: env.integer("RATE_LIMIT_REQUESTS", 20),
		RateLimitWindow:   env.duration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitBurst:    env.integer("RATE_LIMIT_BURST", 5),

		LogLevel:  strings.ToLower(getString("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getString("LOG_FORMAT", "text")),
	}
	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}

	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return Config{}, fmt.Errorf("config: generating session secret: %w", err)
		}
		cfg.SessionSecret = secret
		cfg.SessionSecretGenerated = true
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoogleEnabled reports whether ID-token sign-in is configured.
func (c Config) GoogleEnabled() bool { return c.GoogleClientID != "" }

// GoogleRedirectEnabled reports whether the server-side redirect flow can
// run, which additionally needs the client secret.
func (c Config) GoogleRedirectEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("config: invalid PORT %q", c.Port)
	}

	switch c.StoreDriver {
	case StoreJSON:
		if c.DataPath == "" {
			return fmt.Errorf("config: DATA_PATH is required for the json store")
		}
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("config: DB_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.StorageDriver {
	case StorageLocal:
		if c.UploadDir == "" {
			return fmt.Errorf("config: UPLOAD_DIR is required for local storage")
		}
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("config: S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("config: SESSION_SECRET must be at least 16 characters")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parser reads typed variables and remembers every malformed one.
type parser struct {
	errs []error
}

func (p *parser) invalid(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("config: invalid %s %q: %w", key, value, err))
}

func (p *parser) integer(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		p.invalid(key, value, err)
		return fallback
	}
	return i
}

func (p *parser) boolean(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.invalid(key, value, err)
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.invalid(key, value, err)
		return fallback
	}
	return d
}

// getList splits a comma-separated value, dropping empty entries.
func getList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
