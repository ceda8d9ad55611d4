package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	ModeRemote  = "remote"
	ModeOffline = "offline"

	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

type Config struct {
	App struct {
		Name   string `envconfig:"APP_NAME" default:"Gastos Hogar"`
		Port   int    `envconfig:"PORT" default:"8080"`
		Mode   string `envconfig:"APP_MODE" default:"offline"`
		Locale string `envconfig:"APP_LOCALE" default:"es-AR"`
		// UserID selects the remote ledger in the TUI. Empty keeps the TUI offline.
		UserID string `envconfig:"APP_USER_ID"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"gastos"`
		MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"SERVER_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Cache struct {
		Backend      string        `envconfig:"CACHE_BACKEND" default:"sqlite"`
		Path         string        `envconfig:"CACHE_PATH" default:"data/gastos.db"`
		Key          string        `envconfig:"CACHE_KEY" default:"gastoshogar_gastos"`
		PollInterval time.Duration `envconfig:"CACHE_POLL_INTERVAL" default:"500ms"`
	}

	Redis struct {
		URL     string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
		Channel string `envconfig:"REDIS_CHANNEL" default:"gastos:cache"`
	}

	Log struct {
		Level string `envconfig:"LOG_LEVEL" default:"info"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// LogLevel parses Log.Level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}

	return level
}

func (c *Config) validate() error {
	switch c.App.Mode {
	case ModeRemote:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in %s mode", ModeRemote)
		}
	case ModeOffline:
	default:
		return fmt.Errorf("unknown APP_MODE %q", c.App.Mode)
	}

	switch c.Cache.Backend {
	case CacheSQLite, CacheRedis:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg.App.Mode = strings.ToLower(cfg.App.Mode)
	cfg.Cache.Backend = strings.ToLower(cfg.Cache.Backend)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
