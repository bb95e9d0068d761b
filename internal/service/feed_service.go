package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// feedConcurrency bounds the number of users valued in parallel when
// building the top-traders ranking.
const feedConcurrency = 8

// FeedService builds the social read-models: top traders, their recent
// buys, and trending stocks. All of them are derived on demand from the
// ledger and position stores.
type FeedService struct {
	users     domain.UserStore
	accounts  domain.AccountStore
	positions domain.PositionStore
	stocks    domain.StockStore
	ledger    domain.LedgerStore
	prices    domain.PriceCache
	logger    *slog.Logger
}

// NewFeedService creates a FeedService with all required dependencies.
func NewFeedService(
	users domain.UserStore,
	accounts domain.AccountStore,
	positions domain.PositionStore,
	stocks domain.StockStore,
	ledger domain.LedgerStore,
	prices domain.PriceCache,
	logger *slog.Logger,
) *FeedService {
	return &FeedService{
		users:     users,
		accounts:  accounts,
		positions: positions,
		stocks:    stocks,
		ledger:    ledger,
		prices:    prices,
		logger:    logger,
	}
}

// TopTraders ranks users by aggregate unrealized return percentage across
// all their accounts. Users with nothing invested are excluded. Valuation of
// individual users runs concurrently with a bounded errgroup.
func (s *FeedService) TopTraders(ctx context.Context, limit int) ([]domain.TopTrader, error) {
	if limit <= 0 {
		limit = 10
	}
	users, err := s.users.List(ctx, domain.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("feed_service: list users: %w", err)
	}

	var mu sync.Mutex
	traders := make([]domain.TopTrader, 0, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feedConcurrency)
	for _, user := range users {
		g.Go(func() error {
			trader, err := s.valueUser(gctx, user)
			if err != nil {
				return err
			}
			if trader.TotalInvested <= 0 {
				return nil
			}
			mu.Lock()
			traders = append(traders, trader)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("feed_service: top traders: %w", err)
	}

	sort.Slice(traders, func(i, j int) bool {
		return traders[i].ReturnPercent > traders[j].ReturnPercent
	})
	if len(traders) > limit {
		traders = traders[:limit]
	}
	return traders, nil
}

// valueUser aggregates positions across all of one user's accounts.
func (s *FeedService) valueUser(ctx context.Context, user domain.User) (domain.TopTrader, error) {
	accounts, err := s.accounts.ListByUser(ctx, user.ID)
	if err != nil {
		return domain.TopTrader{}, fmt.Errorf("accounts of user %d: %w", user.ID, err)
	}

	trader := domain.TopTrader{
		UserID:        user.ID,
		UserName:      user.Name,
		UserEmail:     user.Email,
		TotalAccounts: len(accounts),
	}
	for _, acct := range accounts {
		positions, err := s.positions.ListByAccount(ctx, acct.ID)
		if err != nil {
			return domain.TopTrader{}, fmt.Errorf("positions of account %d: %w", acct.ID, err)
		}
		trader.TotalPositions += len(positions)
		for _, p := range positions {
			price, err := s.stockPrice(ctx, p.StockID)
			if err != nil {
				return domain.TopTrader{}, err
			}
			trader.TotalInvested += p.Invested()
			trader.CurrentValue += p.Quantity * price
		}
	}

	trader.ProfitLoss = domain.Round2(trader.CurrentValue - trader.TotalInvested)
	if trader.TotalInvested > 0 {
		trader.ReturnPercent = domain.Round2((trader.CurrentValue - trader.TotalInvested) / trader.TotalInvested * 100)
	}
	trader.TotalInvested = domain.Round2(trader.TotalInvested)
	trader.CurrentValue = domain.Round2(trader.CurrentValue)
	return trader, nil
}

// RecentTrades returns buys made by the current top traders within the
// window, newest first.
func (s *FeedService) RecentTrades(ctx context.Context, window time.Duration, limit int) ([]domain.FeedTrade, error) {
	if limit <= 0 {
		limit = 20
	}
	traders, err := s.TopTraders(ctx, 10)
	if err != nil {
		return nil, err
	}
	traderByID := make(map[int64]domain.TopTrader, len(traders))
	for _, t := range traders {
		traderByID[t.UserID] = t
	}

	since := time.Now().UTC().Add(-window)
	buys, err := s.ledger.ListBuysSince(ctx, since, 0)
	if err != nil {
		return nil, fmt.Errorf("feed_service: recent buys: %w", err)
	}

	accountOwner := make(map[int64]int64)
	feed := make([]domain.FeedTrade, 0, limit)
	for _, buy := range buys {
		ownerID, ok := accountOwner[buy.AccountID]
		if !ok {
			acct, err := s.accounts.GetByID(ctx, buy.AccountID)
			if err != nil {
				continue
			}
			ownerID = acct.UserID
			accountOwner[buy.AccountID] = ownerID
		}
		trader, ok := traderByID[ownerID]
		if !ok {
			continue
		}
		stock, err := s.stocks.GetByID(ctx, *buy.StockID)
		if err != nil {
			continue
		}
		feed = append(feed, domain.FeedTrade{
			TradeID:      buy.ID,
			TraderID:     trader.UserID,
			TraderName:   trader.UserName,
			TraderReturn: trader.ReturnPercent,
			StockID:      stock.ID,
			StockName:    stock.Name,
			StockSymbol:  stock.Symbol,
			Quantity:     *buy.Quantity,
			Price:        *buy.Price,
			Amount:       buy.Amount,
			Timestamp:    buy.CreatedAt,
		})
		if len(feed) >= limit {
			break
		}
	}
	return feed, nil
}

// TrendingStocks ranks stocks by distinct buyers within the window.
func (s *FeedService) TrendingStocks(ctx context.Context, window time.Duration, limit int) ([]domain.TrendingStock, error) {
	if limit <= 0 {
		limit = 10
	}
	since := time.Now().UTC().Add(-window)
	buys, err := s.ledger.ListBuysSince(ctx, since, 0)
	if err != nil {
		return nil, fmt.Errorf("feed_service: trending buys: %w", err)
	}

	type stat struct {
		buyCount int
		buyers   map[int64]struct{}
		shares   float64
	}
	stats := make(map[int64]*stat)
	for _, buy := range buys {
		st, ok := stats[*buy.StockID]
		if !ok {
			st = &stat{buyers: make(map[int64]struct{})}
			stats[*buy.StockID] = st
		}
		st.buyCount++
		st.buyers[buy.AccountID] = struct{}{}
		st.shares += *buy.Quantity
	}

	trending := make([]domain.TrendingStock, 0, len(stats))
	for stockID, st := range stats {
		stock, err := s.stocks.GetByID(ctx, stockID)
		if err != nil {
			continue
		}
		trending = append(trending, domain.TrendingStock{
			StockID:      stockID,
			StockName:    stock.Name,
			StockSymbol:  stock.Symbol,
			LastPrice:    stock.LastPrice,
			BuyCount:     st.buyCount,
			UniqueBuyers: len(st.buyers),
			SharesBought: st.shares,
		})
	}
	sort.Slice(trending, func(i, j int) bool {
		if trending[i].UniqueBuyers != trending[j].UniqueBuyers {
			return trending[i].UniqueBuyers > trending[j].UniqueBuyers
		}
		return trending[i].StockID < trending[j].StockID
	})
	if len(trending) > limit {
		trending = trending[:limit]
	}
	return trending, nil
}

// stockPrice returns the cached price for a stock, falling back to its
// stored reference price.
func (s *FeedService) stockPrice(ctx context.Context, stockID int64) (float64, error) {
	price, _, err := s.prices.GetPrice(ctx, stockID)
	if err == nil {
		return price, nil
	}
	stock, err := s.stocks.GetByID(ctx, stockID)
	if err != nil {
		return 0, fmt.Errorf("stock %d: %w", stockID, err)
	}
	return stock.LastPrice, nil
}
