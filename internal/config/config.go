package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration. It is built once in main
// and passed into components; nothing else reads the environment.
type Config struct {
	ServerPort        int
	DatabasePath      string
	JWTSecret         string
	TokenLifetime     time.Duration
	AllowedOrigin     string
	ReconcileSchedule string
	DefaultAvatar     string
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value %q: %w", portStr, err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	lifetimeStr := getEnv("TOKEN_LIFETIME", "168h")
	lifetime, err := time.ParseDuration(lifetimeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_LIFETIME value %q: %w", lifetimeStr, err)
	}

	return &Config{
		ServerPort:        port,
		DatabasePath:      getEnv("DATABASE_PATH", "./snippets.db"),
		JWTSecret:         secret,
		TokenLifetime:     lifetime,
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@every 5m"),
		DefaultAvatar:     getEnv("DEFAULT_AVATAR", "/avatars/default.png"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
