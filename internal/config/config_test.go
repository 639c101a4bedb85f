package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads so the host environment cannot leak
// into a test. t.Setenv restores the previous values afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "STORE_DRIVER", "DATA_PATH", "DB_PATH", "DATABASE_URL",
		"STORAGE_DRIVER", "UPLOAD_DIR", "UPLOAD_URL_PREFIX", "S3_BUCKET",
		"S3_REGION", "S3_ENDPOINT", "S3_PUBLIC_BASE_URL", "STATIC_DIR",
		"SESSION_SECRET", "SESSION_TTL", "SECURE_COOKIES", "GOOGLE_CLIENT_ID",
		"GOOGLE_CLIENT_SECRET", "GOOGLE_CALLBACK_URL", "CORS_ALLOWED_ORIGINS",
		"MAX_UPLOAD_BYTES", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW",
		"RATE_LIMIT_BURST", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, StoreJSON, cfg.StoreDriver)
	assert.Equal(t, "data.json", cfg.DataPath)
	assert.Equal(t, StorageLocal, cfg.StorageDriver)
	assert.Equal(t, "/uploads", cfg.UploadURLPrefix)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.GoogleEnabled())
	assert.False(t, cfg.GoogleRedirectEnabled())

	assert.True(t, cfg.SessionSecretGenerated)
	assert.Len(t, cfg.SessionSecret, 64)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DB_PATH", "/tmp/v.db")
	t.Setenv("SESSION_SECRET", "a-configured-secret-value")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("SECURE_COOKIES", "true")
	t.Setenv("GOOGLE_CLIENT_ID", "cid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "csecret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_REQUESTS", "50")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/v.db", cfg.DBPath)
	assert.Equal(t, "a-configured-secret-value", cfg.SessionSecret)
	assert.False(t, cfg.SessionSecretGenerated)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SecureCookies)
	assert.True(t, cfg.GoogleEnabled())
	assert.True(t, cfg.GoogleRedirectEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 50, cfg.RateLimitRequests)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non-numeric port", map[string]string{"PORT": "abc"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"unknown store", map[string]string{"STORE_DRIVER": "mongo"}},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"unknown storage", map[string]string{"STORAGE_DRIVER": "ftp"}},
		{"s3 without bucket", map[string]string{"STORAGE_DRIVER": "s3"}},
		{"short secret", map[string]string{"SESSION_SECRET": "short"}},
		{"negative upload limit", map[string]string{"MAX_UPLOAD_BYTES": "-1"}},
		{"unknown log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"malformed upload limit", map[string]string{"MAX_UPLOAD_BYTES": "10MB"}},
		{"malformed session ttl", map[string]string{"SESSION_TTL": "1day"}},
		{"malformed secure cookies", map[string]string{"SECURE_COOKIES": "maybe"}},
		{"malformed rate limit", map[string]string{"RATE_LIMIT_REQUESTS": "not-a-number"}},
		{"malformed rate window", map[string]string{"RATE_LIMIT_WINDOW": "60"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedValuesNameTheirKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_BURST", "five")
	t.Setenv("SESSION_TTL", "1day")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_BURST")
	assert.Contains(t, err.Error(), `"five"`)
	assert.Contains(t, err.Error(), "SESSION_TTL")
}
