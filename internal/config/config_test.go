package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gastos/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "Gastos Hogar", cfg.App.Name)
	assert.Equal(t, config.ModeOffline, cfg.App.Mode)
	assert.Equal(t, config.CacheSQLite, cfg.Cache.Backend)
	assert.Equal(t, "gastoshogar_gastos", cfg.Cache.Key)
	assert.Equal(t, 500*time.Millisecond, cfg.Cache.PollInterval)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "postgres://postgres:@localhost:5432/gastos?sslmode=disable", cfg.ConnectionString())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_MODE", "Remote")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.ModeRemote, cfg.App.Mode)
	assert.Equal(t, config.CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "RemoteWithoutSecret", env: map[string]string{"APP_MODE": "remote"}},
		{name: "UnknownMode", env: map[string]string{"APP_MODE": "cloud"}},
		{name: "UnknownCache", env: map[string]string{"CACHE_BACKEND": "memcached"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
