package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Export.Interval.Duration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "batch" },
			wantErr: "unknown mode",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "unknown log_level",
		},
		{
			name: "serve requires postgres",
			mutate: func(c *Config) {
				c.Postgres.Host = ""
				c.Postgres.DSN = ""
			},
			wantErr: "postgres: host",
		},
		{
			name: "dsn replaces host settings",
			mutate: func(c *Config) {
				c.Postgres.Host = ""
				c.Postgres.DSN = "postgres://u:p@db:5432/paperbroker"
			},
		},
		{
			name: "dev mode needs no external services",
			mutate: func(c *Config) {
				c.Mode = "dev"
				c.Postgres = PostgresConfig{}
				c.Redis = RedisConfig{}
			},
		},
		{
			name:    "serve requires redis",
			mutate:  func(c *Config) { c.Redis.Addr = "" },
			wantErr: "redis: addr",
		},
		{
			name: "export requires s3",
			mutate: func(c *Config) {
				c.Mode = "export"
				c.S3.Bucket = ""
			},
			wantErr: "s3: bucket",
		},
		{
			name: "rate limit needs a window",
			mutate: func(c *Config) {
				c.Server.RateLimit = 100
				c.Server.RateWindow = duration{}
			},
			wantErr: "rate_window",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server: port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "dev"
log_level = "debug"

[server]
port = 9001
rate_limit = 50
rate_window = "30s"

[export]
enabled = false
interval = "1h"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Mode)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Server.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.Server.RateWindow.Duration)
	assert.Equal(t, time.Hour, cfg.Export.Interval.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "paperbroker", cfg.Postgres.Database)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PAPERBROKER_MODE", "dev")
	t.Setenv("PAPERBROKER_SERVER_PORT", "9100")
	t.Setenv("PAPERBROKER_REDIS_ADDR", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Mode)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Server.APIKey = "topsecret"
	cfg.Postgres.Password = "dbpass"
	cfg.Postgres.DSN = "postgres://u:p@db/paperbroker"
	cfg.Redis.Password = "redispass"
	cfg.S3.SecretKey = "s3secret"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Postgres.DSN)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)

	// The original is untouched.
	assert.Equal(t, "topsecret", cfg.Server.APIKey)
}
