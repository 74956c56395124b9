package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "isafari_global", cfg.MongoDBName)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 30*time.Second, cfg.RankingCacheTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "@every 15m", cfg.PromotionSweepSpec)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.GoogleEnabled())
	assert.False(t, cfg.CloudinaryEnabled())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("JWT_EXPIRES_IN", "1h")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigBadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("RANKING_CACHE_TTL", "soon")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "RANKING_CACHE_TTL")
}
