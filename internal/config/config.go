package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the server.
type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	TelegramToken   string
	LogLevel        string
	LogFormat       string
	SessionTTL      time.Duration
	PurgeInterval   time.Duration
	ShutdownTimeout time.Duration
	SeedDemo        bool
	SeedUsername    string
	SeedPassword    string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:     envString("DATABASE_URL", "simple_todos.db"),
		HTTPAddr:        envString("HTTP_ADDR", ":8080"),
		TelegramToken:   envString("TELEGRAM_TOKEN", ""),
		LogLevel:        strings.ToLower(envString("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(envString("LOG_FORMAT", "console")),
		SeedUsername:    envString("SEED_USERNAME", "meteorite"),
		SeedPassword:    envString("SEED_PASSWORD", "password"),
		SessionTTL:      30 * 24 * time.Hour,
		PurgeInterval:   time.Hour,
		ShutdownTimeout: 10 * time.Second,
		SeedDemo:        true,
	}

	var err error
	if cfg.SessionTTL, err = envDuration("SESSION_TTL", cfg.SessionTTL); err != nil {
		return cfg, err
	}
	if cfg.PurgeInterval, err = envDuration("SESSION_PURGE_INTERVAL", cfg.PurgeInterval); err != nil {
		return cfg, err
	}
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return cfg, err
	}
	if raw := envString("SEED_DEMO", ""); raw != "" {
		seed, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("SEED_DEMO: %w", err)
		}
		cfg.SeedDemo = seed
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TelegramEnabled reports whether the chat transport should be started.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

func (c Config) validate() error {
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.PurgeInterval < 0 {
		return fmt.Errorf("SESSION_PURGE_INTERVAL must not be negative")
	}
	if c.SeedDemo && (c.SeedUsername == "" || c.SeedPassword == "") {
		return fmt.Errorf("SEED_USERNAME and SEED_PASSWORD are required when SEED_DEMO is on")
	}
	return nil
}

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := envString(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
