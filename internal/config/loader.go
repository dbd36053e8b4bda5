package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// minSecretLength is the smallest accepted JWT signing secret.
const minSecretLength = 32

// Config captures environment driven configuration for the service.
type Config struct {
	HTTPAddr        string        `env:"OC_HTTP_ADDR" envDefault:":8080"`
	DBPath          string        `env:"OC_DB_PATH" envDefault:"officecalendar.db"`
	JWTSecret       string        `env:"OC_JWT_SECRET"`
	JWTIssuer       string        `env:"OC_JWT_ISSUER" envDefault:"office-calendar"`
	JWTAudience     string        `env:"OC_JWT_AUDIENCE" envDefault:"office-calendar"`
	TokenTTL        time.Duration `env:"OC_TOKEN_TTL" envDefault:"1h"`
	LogLevel        string        `env:"OC_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"OC_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	SeedAdminEmail  string        `env:"OC_SEED_ADMIN_EMAIL" envDefault:"admin@example.com"`
	SeedAdminPass   string        `env:"OC_SEED_ADMIN_PASSWORD" envDefault:""`
}

// Load reads an optional .env file, parses the process environment and
// validates the result. Validation failures are collected so a broken
// deployment reports every problem at once.
func Load() (Config, error) {
	// A missing .env file is fine; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	var problems []string

	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		problems = append(problems, "OC_JWT_SECRET is required")
	} else if len(cfg.JWTSecret) < minSecretLength {
		problems = append(problems, fmt.Sprintf("OC_JWT_SECRET must be at least %d bytes", minSecretLength))
	}

	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		problems = append(problems, "OC_HTTP_ADDR must not be blank")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		problems = append(problems, "OC_DB_PATH must not be blank")
	}
	if cfg.TokenTTL <= 0 {
		problems = append(problems, "OC_TOKEN_TTL must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		problems = append(problems, "OC_SHUTDOWN_TIMEOUT must be positive")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.LogLevel)) {
	case "debug", "info", "warn", "error":
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	default:
		problems = append(problems, "OC_LOG_LEVEL must be one of debug, info, warn, error")
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// SlogLevel translates the configured level name for the log handler.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
