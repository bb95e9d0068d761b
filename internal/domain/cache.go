package domain

import (
	"context"
	"time"
)

// PriceCache caches the latest reference price per stock.
type PriceCache interface {
	SetPrice(ctx context.Context, stockID int64, price float64, ts time.Time) error
	GetPrice(ctx context.Context, stockID int64) (float64, time.Time, error)
	GetPrices(ctx context.Context, stockIDs []int64) (map[int64]float64, error)
}

// SignalBus provides pub/sub fan-out of committed trade events to
// subscribers such as the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter decides whether a request identified by key is allowed under a
// sliding window limit. Allowing a request counts it against the window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
