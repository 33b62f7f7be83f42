package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           string
	DatabaseURL    string
	FrontendURL    string
	JWTSecret      string
	SessionTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/spaces?sslmode=disable"),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		SessionTimeout: getDuration("SESSION_TIMEOUT_SECONDS", 90*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
