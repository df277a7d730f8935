package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI   string
	TelegramToken string
	Timezone      string
	PollInterval  time.Duration
	GraceWindow   time.Duration
	HealthAddr    string
	LogLevel      string
	Debug         bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	cfg := &Config{
		DatabaseURI:   os.Getenv("DATABASE_URI"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		Timezone:      getEnvOrDefault("TIMEZONE", "Europe/Moscow"),
		HealthAddr:    getEnvOrDefault("HEALTH_ADDR", ":8080"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		Debug:         os.Getenv("DEBUG") == "true",
	}

	var err error
	if cfg.PollInterval, err = getDurationOrDefault("POLL_INTERVAL", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.GraceWindow, err = getDurationOrDefault("GRACE_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
