package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// PositionService answers valuation queries over the position aggregate. It
// prefers live prices from the cache and falls back to the stock's stored
// reference price when the cache misses.
type PositionService struct {
	positions domain.PositionStore
	stocks    domain.StockStore
	ledger    domain.LedgerStore
	prices    domain.PriceCache
	logger    *slog.Logger
}

// NewPositionService creates a PositionService with all required dependencies.
func NewPositionService(
	positions domain.PositionStore,
	stocks domain.StockStore,
	ledger domain.LedgerStore,
	prices domain.PriceCache,
	logger *slog.Logger,
) *PositionService {
	return &PositionService{
		positions: positions,
		stocks:    stocks,
		ledger:    ledger,
		prices:    prices,
		logger:    logger,
	}
}

// Detail returns one position valued at the current market price.
func (s *PositionService) Detail(ctx context.Context, accountID, stockID int64) (domain.PositionDetail, error) {
	pos, err := s.positions.Get(ctx, accountID, stockID)
	if err != nil {
		return domain.PositionDetail{}, fmt.Errorf("position_service: detail %d/%d: %w", accountID, stockID, err)
	}
	stock, err := s.stocks.GetByID(ctx, stockID)
	if err != nil {
		return domain.PositionDetail{}, fmt.Errorf("position_service: detail stock %d: %w", stockID, err)
	}
	price := s.currentPrice(ctx, stock)
	return buildDetail(pos, stock, price), nil
}

// Portfolio aggregates all of the account's open positions, including best
// and worst performer by return percentage.
func (s *PositionService) Portfolio(ctx context.Context, accountID int64) (domain.PortfolioSummary, error) {
	positions, err := s.positions.ListByAccount(ctx, accountID)
	if err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("position_service: portfolio %d: %w", accountID, err)
	}

	summary := domain.PortfolioSummary{
		AccountID:      accountID,
		TotalPositions: len(positions),
		Positions:      make([]domain.PositionDetail, 0, len(positions)),
		CalculatedAt:   time.Now().UTC(),
	}
	if len(positions) == 0 {
		return summary, nil
	}

	stockIDs := make([]int64, 0, len(positions))
	for _, p := range positions {
		stockIDs = append(stockIDs, p.StockID)
	}
	cached := s.cachedPrices(ctx, stockIDs)

	var best, worst *domain.Performer
	for _, pos := range positions {
		stock, err := s.stocks.GetByID(ctx, pos.StockID)
		if err != nil {
			return domain.PortfolioSummary{}, fmt.Errorf("position_service: portfolio stock %d: %w", pos.StockID, err)
		}
		price, ok := cached[pos.StockID]
		if !ok {
			price = stock.LastPrice
		}
		detail := buildDetail(pos, stock, price)
		summary.Positions = append(summary.Positions, detail)
		summary.TotalInvested += detail.TotalInvested
		summary.CurrentValue += detail.CurrentValue

		perf := &domain.Performer{
			StockID:    stock.ID,
			StockName:  stock.Name,
			PnLPercent: detail.PnLPercent,
		}
		if best == nil || perf.PnLPercent > best.PnLPercent {
			best = perf
		}
		if worst == nil || perf.PnLPercent < worst.PnLPercent {
			worst = perf
		}
	}

	summary.UnrealizedPnL = domain.Round2(summary.CurrentValue - summary.TotalInvested)
	if summary.TotalInvested > 0 {
		summary.PnLPercent = domain.Round2((summary.CurrentValue - summary.TotalInvested) / summary.TotalInvested * 100)
	}
	summary.TotalInvested = domain.Round2(summary.TotalInvested)
	summary.CurrentValue = domain.Round2(summary.CurrentValue)
	summary.BestPerformer = best
	summary.WorstPerformer = worst
	return summary, nil
}

// History returns the full buy/sell record behind one position along with
// cumulative share totals.
func (s *PositionService) History(ctx context.Context, accountID, stockID int64) (domain.PositionTradeHistory, error) {
	events, err := s.ledger.ListByPosition(ctx, accountID, stockID)
	if err != nil {
		return domain.PositionTradeHistory{}, fmt.Errorf("position_service: history %d/%d: %w", accountID, stockID, err)
	}
	stock, err := s.stocks.GetByID(ctx, stockID)
	if err != nil {
		return domain.PositionTradeHistory{}, fmt.Errorf("position_service: history stock %d: %w", stockID, err)
	}

	history := domain.PositionTradeHistory{
		AccountID:   accountID,
		StockID:     stockID,
		StockName:   stock.Name,
		StockSymbol: stock.Symbol,
		Trades:      make([]domain.TradeHistoryItem, 0, len(events)),
	}
	for _, e := range events {
		item := domain.TradeHistoryItem{
			TradeID:     e.ID,
			Kind:        e.Kind,
			TotalAmount: e.Amount,
			Note:        e.Note,
			Timestamp:   e.CreatedAt,
		}
		if e.Quantity != nil {
			item.Quantity = *e.Quantity
		}
		if e.Price != nil {
			item.Price = *e.Price
		}
		if e.Kind == domain.EventStockBuy {
			history.TotalBought += item.Quantity
		} else {
			history.TotalSold += item.Quantity
		}
		history.Trades = append(history.Trades, item)
	}

	// The position row may be gone if everything was sold.
	pos, err := s.positions.Get(ctx, accountID, stockID)
	if err == nil {
		history.CurrentQuantity = pos.Quantity
		history.AveragePurchase = pos.AverageCost
	}
	return history, nil
}

// Performance reports the unrealized return of one position over its holding
// period. Days held counts from the earliest recorded buy.
func (s *PositionService) Performance(ctx context.Context, accountID, stockID int64) (domain.PositionPerformance, error) {
	pos, err := s.positions.Get(ctx, accountID, stockID)
	if err != nil {
		return domain.PositionPerformance{}, fmt.Errorf("position_service: performance %d/%d: %w", accountID, stockID, err)
	}
	stock, err := s.stocks.GetByID(ctx, stockID)
	if err != nil {
		return domain.PositionPerformance{}, fmt.Errorf("position_service: performance stock %d: %w", stockID, err)
	}

	price := s.currentPrice(ctx, stock)
	invested := pos.Invested()
	current := pos.Quantity * price

	perf := domain.PositionPerformance{
		AccountID:         accountID,
		StockID:           stockID,
		StockName:         stock.Name,
		TotalReturn:       domain.Round2(current - invested),
		FirstPurchaseDate: pos.CreatedAt,
		DaysHeld:          int(time.Since(pos.CreatedAt).Hours() / 24),
	}
	if invested > 0 {
		perf.TotalReturnPct = domain.Round2((current - invested) / invested * 100)
	}
	return perf, nil
}

// currentPrice returns the cached live price for the stock, or the stored
// reference price when the cache misses or errors.
func (s *PositionService) currentPrice(ctx context.Context, stock domain.Stock) float64 {
	price, _, err := s.prices.GetPrice(ctx, stock.ID)
	if err != nil {
		return stock.LastPrice
	}
	return price
}

// cachedPrices fetches live prices for many stocks at once. A cache failure
// degrades to stored reference prices rather than failing the query.
func (s *PositionService) cachedPrices(ctx context.Context, stockIDs []int64) map[int64]float64 {
	cached, err := s.prices.GetPrices(ctx, stockIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "position_service: price cache unavailable",
			slog.String("error", err.Error()))
		return map[int64]float64{}
	}
	return cached
}

func buildDetail(pos domain.Position, stock domain.Stock, price float64) domain.PositionDetail {
	invested := pos.Invested()
	current := pos.Quantity * price

	detail := domain.PositionDetail{
		AccountID:     pos.AccountID,
		StockID:       pos.StockID,
		StockName:     stock.Name,
		StockSymbol:   stock.Symbol,
		Quantity:      pos.Quantity,
		AverageCost:   pos.AverageCost,
		CurrentPrice:  price,
		TotalInvested: domain.Round2(invested),
		CurrentValue:  domain.Round2(current),
		UnrealizedPnL: domain.Round2(current - invested),
		CreatedAt:     pos.CreatedAt,
		UpdatedAt:     pos.UpdatedAt,
	}
	if invested > 0 {
		detail.PnLPercent = domain.Round2((current - invested) / invested * 100)
	}
	return detail
}
