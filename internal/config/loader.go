package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PAPERBROKER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PAPERBROKER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "PAPERBROKER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PAPERBROKER_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PAPERBROKER_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "PAPERBROKER_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "PAPERBROKER_SERVER_RATE_WINDOW")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "PAPERBROKER_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "PAPERBROKER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PAPERBROKER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PAPERBROKER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PAPERBROKER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PAPERBROKER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PAPERBROKER_POSTGRES_SSLMODE")
	setStr(&cfg.Postgres.SSLMode, "PAPERBROKER_POSTGRES_SSL_MODE") // compatibility alias
	setInt(&cfg.Postgres.PoolMaxConns, "PAPERBROKER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PAPERBROKER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PAPERBROKER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PAPERBROKER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PAPERBROKER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PAPERBROKER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PAPERBROKER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PAPERBROKER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PAPERBROKER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "PAPERBROKER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PAPERBROKER_S3_REGION")
	setStr(&cfg.S3.Bucket, "PAPERBROKER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PAPERBROKER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PAPERBROKER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PAPERBROKER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PAPERBROKER_S3_FORCE_PATH_STYLE")

	// ── Export ──
	setBool(&cfg.Export.Enabled, "PAPERBROKER_EXPORT_ENABLED")
	setDuration(&cfg.Export.Interval, "PAPERBROKER_EXPORT_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.Mode, "PAPERBROKER_MODE")
	setStr(&cfg.LogLevel, "PAPERBROKER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
