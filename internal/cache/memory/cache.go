// Package memory provides in-process implementations of the cache interfaces
// for dev mode, where no Redis instance is available.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// PriceCache stores the latest reference price per stock in a map.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[int64]pricePoint
}

type pricePoint struct {
	price float64
	ts    time.Time
}

// NewPriceCache creates an empty in-process price cache.
func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[int64]pricePoint)}
}

var _ domain.PriceCache = (*PriceCache)(nil)

// SetPrice records the latest price for a stock.
func (c *PriceCache) SetPrice(ctx context.Context, stockID int64, price float64, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[stockID] = pricePoint{price: price, ts: ts}
	return nil
}

// GetPrice returns the cached price and its timestamp for a stock.
func (c *PriceCache) GetPrice(ctx context.Context, stockID int64) (float64, time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[stockID]
	if !ok {
		return 0, time.Time{}, fmt.Errorf("memory: price for stock %d: %w", stockID, domain.ErrNotFound)
	}
	return p.price, p.ts, nil
}

// GetPrices returns cached prices for the given stocks. Missing stocks are
// omitted from the result.
func (c *PriceCache) GetPrices(ctx context.Context, stockIDs []int64) (map[int64]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int64]float64, len(stockIDs))
	for _, id := range stockIDs {
		if p, ok := c.prices[id]; ok {
			out[id] = p.price
		}
	}
	return out, nil
}

// SignalBus fans out published payloads to in-process subscribers.
type SignalBus struct {
	mu   sync.RWMutex
	subs map[string][]chan []byte
}

// NewSignalBus creates an empty in-process signal bus.
func NewSignalBus() *SignalBus {
	return &SignalBus{subs: make(map[string][]chan []byte)}
}

var _ domain.SignalBus = (*SignalBus)(nil)

// Publish delivers the payload to every subscriber of the channel. Slow
// subscribers with a full buffer miss the message rather than block the
// publisher.
func (b *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for the channel. The returned channel is
// closed when ctx is cancelled.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 128)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		subs := b.subs[channel]
		for i, c := range subs {
			if c == ch {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}
