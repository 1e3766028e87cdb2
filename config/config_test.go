package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "MONGODB_URI", "MONGO_USER", "MONGO_PASS", "MONGO_HOST", "MONGO_AUTH_DB",
		"MONGODB_DB", "JWT_SECRET", "JWT_EXPIRE_MINUTES", "REFRESH_TOKEN_EXPIRE_DAYS",
		"COOKIE_SECURE", "ALLOWED_ORIGINS", "GOOGLE_BOOKS_API_KEY", "AWS_S3_BUCKET",
		"LOG_LEVEL", "LOG_DEV", "LOGIN_RATE_PER_MIN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
	assert.Equal(t, "trackerdb", cfg.DBName)
	assert.Equal(t, 60*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 10, cfg.LoginRatePerMin)

	// the default secret must never pass validation
	assert.Error(t, cfg.Validate())
	assert.Len(t, cfg.Warnings(), 2)
}

func TestLoad_MongoURIFromParts(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_USER", "reader")
	t.Setenv("MONGO_PASS", "p@ss")
	t.Setenv("MONGO_HOST", "db:27017")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://reader:p%40ss@db:27017/?authSource=admin", cfg.MongoURI)

	t.Setenv("MONGODB_URI", "mongodb://override:27017")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://override:27017", cfg.MongoURI)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "a-real-secret")
	t.Setenv("JWT_EXPIRE_MINUTES", "15")
	t.Setenv("REFRESH_TOKEN_EXPIRE_DAYS", "30")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_BadInteger(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_EXPIRE_MINUTES", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_EXPIRE_MINUTES")
}
