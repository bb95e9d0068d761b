package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each stock's
// price is stored as a hash at key "price:{stockID}" with fields "price" and
// "ts" (Unix nanosecond timestamp).
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(stockID int64) string {
	return "price:" + strconv.FormatInt(stockID, 10)
}

// SetPrice stores the latest price and timestamp for a stock.
func (pc *PriceCache) SetPrice(ctx context.Context, stockID int64, price float64, ts time.Time) error {
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, priceKey(stockID), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %d: %w", stockID, err)
	}
	return nil
}

// GetPrice retrieves the latest price and timestamp for a stock. It returns
// domain.ErrNotFound when the key does not exist.
func (pc *PriceCache) GetPrice(ctx context.Context, stockID int64) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(stockID)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %d: %w", stockID, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %d: %w", stockID, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %d: %w", stockID, err)
	}

	return price, time.Unix(0, tsNano), nil
}

// GetPrices retrieves the latest prices for multiple stocks using a pipeline.
// Stocks whose keys do not exist are silently omitted from the result map.
func (pc *PriceCache) GetPrices(ctx context.Context, stockIDs []int64) (map[int64]float64, error) {
	if len(stockIDs) == 0 {
		return map[int64]float64{}, nil
	}

	pipe := pc.rdb.Pipeline()
	cmds := make(map[int64]*redis.MapStringStringCmd, len(stockIDs))
	for _, id := range stockIDs {
		cmds[id] = pipe.HGetAll(ctx, priceKey(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get prices pipeline: %w", err)
	}

	result := make(map[int64]float64, len(stockIDs))
	for id, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		priceStr, ok := vals["price"]
		if !ok {
			continue
		}
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil {
			continue
		}
		result[id] = price
	}

	return result, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
