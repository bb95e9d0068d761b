package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// PriceChannel is the signal bus channel price updates are published on.
const PriceChannel = "prices"

// StockService manages traded instruments and their reference prices. Price
// updates are written through to both the durable store and the price cache.
type StockService struct {
	stocks    domain.StockStore
	positions domain.PositionStore
	prices    domain.PriceCache
	bus       domain.SignalBus
	logger    *slog.Logger
}

// NewStockService creates a StockService with all required dependencies.
func NewStockService(
	stocks domain.StockStore,
	positions domain.PositionStore,
	prices domain.PriceCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *StockService {
	return &StockService{
		stocks:    stocks,
		positions: positions,
		prices:    prices,
		bus:       bus,
		logger:    logger,
	}
}

// Create registers a new stock.
func (s *StockService) Create(ctx context.Context, name, symbol string, lastPrice float64) (domain.Stock, error) {
	if lastPrice < 0 {
		return domain.Stock{}, &domain.InvalidTradeError{Reason: "price must not be negative"}
	}
	stock, err := s.stocks.Create(ctx, domain.Stock{
		Name:      name,
		Symbol:    symbol,
		LastPrice: lastPrice,
	})
	if err != nil {
		return domain.Stock{}, fmt.Errorf("stock_service: create %q: %w", name, err)
	}
	s.logger.InfoContext(ctx, "stock created",
		slog.Int64("stock_id", stock.ID),
		slog.String("name", name))
	return stock, nil
}

// Get returns one stock by id.
func (s *StockService) Get(ctx context.Context, id int64) (domain.Stock, error) {
	return s.stocks.GetByID(ctx, id)
}

// Detail returns the stock together with holder statistics.
func (s *StockService) Detail(ctx context.Context, id int64) (domain.StockDetail, error) {
	stock, err := s.stocks.GetByID(ctx, id)
	if err != nil {
		return domain.StockDetail{}, fmt.Errorf("stock_service: detail %d: %w", id, err)
	}
	holders, err := s.positions.ListByStock(ctx, id)
	if err != nil {
		return domain.StockDetail{}, fmt.Errorf("stock_service: detail holders %d: %w", id, err)
	}

	detail := domain.StockDetail{Stock: stock, TotalHolders: len(holders)}
	for _, p := range holders {
		detail.TotalSharesHeld += p.Quantity
	}
	return detail, nil
}

// List returns stocks with pagination.
func (s *StockService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Stock, error) {
	return s.stocks.List(ctx, opts)
}

// Search matches stocks by name or symbol.
func (s *StockService) Search(ctx context.Context, query string, limit int) ([]domain.Stock, error) {
	return s.stocks.Search(ctx, query, limit)
}

// Update applies a partial update to the stock. A price change also refreshes
// the cache.
func (s *StockService) Update(ctx context.Context, id int64, patch domain.StockPatch) (domain.Stock, error) {
	stock, err := s.stocks.Update(ctx, id, patch)
	if err != nil {
		return domain.Stock{}, fmt.Errorf("stock_service: update %d: %w", id, err)
	}
	if patch.LastPrice != nil {
		s.cachePrice(ctx, id, *patch.LastPrice)
	}
	return stock, nil
}

// UpdatePrice sets a new reference price, writes it through to the cache and
// publishes the change on the price channel.
func (s *StockService) UpdatePrice(ctx context.Context, id int64, price float64) error {
	if price <= 0 {
		return &domain.InvalidTradeError{Reason: "price must be positive"}
	}
	if err := s.stocks.SetLastPrice(ctx, id, price); err != nil {
		return fmt.Errorf("stock_service: update price %d: %w", id, err)
	}
	s.cachePrice(ctx, id, price)

	payload, err := json.Marshal(map[string]any{
		"event":     "price_updated",
		"stock_id":  id,
		"price":     price,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err == nil {
		if err := s.bus.Publish(ctx, PriceChannel, payload); err != nil {
			s.logger.WarnContext(ctx, "stock_service: publish price failed",
				slog.Int64("stock_id", id),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// cachePrice refreshes the price cache. The durable store already holds the
// price, so a cache failure only degrades read freshness.
func (s *StockService) cachePrice(ctx context.Context, id int64, price float64) {
	if err := s.prices.SetPrice(ctx, id, price, time.Now().UTC()); err != nil {
		s.logger.WarnContext(ctx, "stock_service: cache price failed",
			slog.Int64("stock_id", id),
			slog.String("error", err.Error()))
	}
}
