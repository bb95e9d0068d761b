package app

import (
	"context"
	"fmt"
	"strings"

	s3blob "github.com/mvannucci/paperbroker/internal/blob/s3"
	memcache "github.com/mvannucci/paperbroker/internal/cache/memory"
	"github.com/mvannucci/paperbroker/internal/cache/redis"
	"github.com/mvannucci/paperbroker/internal/config"
	"github.com/mvannucci/paperbroker/internal/domain"
	memstore "github.com/mvannucci/paperbroker/internal/store/memory"
	"github.com/mvannucci/paperbroker/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	UserStore     domain.UserStore
	AccountStore  domain.AccountStore
	StockStore    domain.StockStore
	LedgerStore   domain.LedgerStore
	PositionStore domain.PositionStore

	// Caches
	PriceCache  domain.PriceCache
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
}

// needsS3 returns true when object storage must be wired: the export mode
// always needs it, and serve mode needs it when exports are enabled.
func needsS3(cfg *config.Config) bool {
	return strings.ToLower(cfg.Mode) == "export" || cfg.Export.Enabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	mode := strings.ToLower(cfg.Mode)

	// --- Stores: PostgreSQL, or the in-memory engine in dev mode ---
	if mode == "dev" {
		store := memstore.New()
		deps.UserStore = store.Users()
		deps.AccountStore = store.Accounts()
		deps.StockStore = store.Stocks()
		deps.LedgerStore = store.Ledger()
		deps.PositionStore = store.Positions()
	} else {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.UserStore = postgres.NewUserStore(pool)
		deps.AccountStore = postgres.NewAccountStore(pool)
		deps.StockStore = postgres.NewStockStore(pool)
		deps.LedgerStore = postgres.NewLedgerStore(pool)
		deps.PositionStore = postgres.NewPositionStore(pool)
	}

	// --- Caches: Redis in serve mode, in-process in dev mode ---
	switch mode {
	case "serve":
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	case "dev":
		deps.PriceCache = memcache.NewPriceCache()
		deps.SignalBus = memcache.NewSignalBus()
	}

	// --- S3 blob storage (only when exports can run) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
	}

	return deps, cleanup, nil
}
