package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	Port            string
	Environment     string
	LogLevel        string
	MongoDBURI      string
	MongoDBPassword string
	MongoDBName     string

	JWTSecret    string
	JWTExpiresIn time.Duration

	GoogleClientID string
	GoogleJWKSURL  string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	AllowedOrigins     []string
	PromotionSweepSpec string
	RankingCacheTTL    time.Duration
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnvWithDefault("PORT", "8080"),
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		MongoDBURI:      os.Getenv("MONGODB_URI"),
		MongoDBPassword: os.Getenv("MONGODB_PASSWORD"),
		MongoDBName:     getEnvWithDefault("MONGODB_DB", "isafari_global"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleJWKSURL:  os.Getenv("GOOGLE_JWKS_URL"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		AllowedOrigins:     splitList(getEnvWithDefault("ALLOWED_ORIGINS", "http://localhost:3000")),
		PromotionSweepSpec: getEnvWithDefault("PROMOTION_SWEEP_SPEC", "@every 15m"),
	}

	var err error
	if cfg.JWTExpiresIn, err = getDuration("JWT_EXPIRES_IN", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RankingCacheTTL, err = getDuration("RANKING_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 168h: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// SlogLevel maps LOG_LEVEL onto slog levels, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
