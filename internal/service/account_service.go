package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// AccountService manages accounts and their derived summaries.
type AccountService struct {
	accounts  domain.AccountStore
	users     domain.UserStore
	ledger    domain.LedgerStore
	positions domain.PositionStore
	stocks    domain.StockStore
	prices    domain.PriceCache
	logger    *slog.Logger
}

// NewAccountService creates an AccountService with all required dependencies.
func NewAccountService(
	accounts domain.AccountStore,
	users domain.UserStore,
	ledger domain.LedgerStore,
	positions domain.PositionStore,
	stocks domain.StockStore,
	prices domain.PriceCache,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts:  accounts,
		users:     users,
		ledger:    ledger,
		positions: positions,
		stocks:    stocks,
		prices:    prices,
		logger:    logger,
	}
}

// Create opens a new account for an existing user.
func (s *AccountService) Create(ctx context.Context, userID int64, name string) (domain.Account, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return domain.Account{}, fmt.Errorf("account_service: create for user %d: %w", userID, err)
	}
	acct, err := s.accounts.Create(ctx, domain.Account{UserID: userID, Name: name})
	if err != nil {
		return domain.Account{}, fmt.Errorf("account_service: create: %w", err)
	}
	s.logger.InfoContext(ctx, "account created",
		slog.Int64("account_id", acct.ID),
		slog.Int64("user_id", userID))
	return acct, nil
}

// Get returns one account by id.
func (s *AccountService) Get(ctx context.Context, id int64) (domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// List returns accounts with pagination.
func (s *AccountService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Account, error) {
	return s.accounts.List(ctx, opts)
}

// ListByUser returns all accounts owned by one user.
func (s *AccountService) ListByUser(ctx context.Context, userID int64) ([]domain.Account, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("account_service: list for user %d: %w", userID, err)
	}
	return s.accounts.ListByUser(ctx, userID)
}

// Update renames the account.
func (s *AccountService) Update(ctx context.Context, id int64, patch domain.AccountPatch) (domain.Account, error) {
	return s.accounts.Update(ctx, id, patch)
}

// Delete removes the account together with its ledger events and positions.
func (s *AccountService) Delete(ctx context.Context, id int64) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("account_service: delete %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "account deleted", slog.Int64("account_id", id))
	return nil
}

// Summary combines the derived cash balance with the portfolio valuation.
func (s *AccountService) Summary(ctx context.Context, id int64) (domain.AccountSummary, error) {
	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return domain.AccountSummary{}, fmt.Errorf("account_service: summary %d: %w", id, err)
	}

	events, err := s.ledger.ListByAccount(ctx, id, "", domain.ListOpts{})
	if err != nil {
		return domain.AccountSummary{}, fmt.Errorf("account_service: summary events %d: %w", id, err)
	}
	cash := domain.BalanceOf(events)

	positions, err := s.positions.ListByAccount(ctx, id)
	if err != nil {
		return domain.AccountSummary{}, fmt.Errorf("account_service: summary positions %d: %w", id, err)
	}

	stockIDs := make([]int64, 0, len(positions))
	for _, p := range positions {
		stockIDs = append(stockIDs, p.StockID)
	}
	cached, err := s.prices.GetPrices(ctx, stockIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "account_service: price cache unavailable",
			slog.String("error", err.Error()))
		cached = map[int64]float64{}
	}

	var invested, value float64
	for _, p := range positions {
		price, ok := cached[p.StockID]
		if !ok {
			stock, err := s.stocks.GetByID(ctx, p.StockID)
			if err != nil {
				return domain.AccountSummary{}, fmt.Errorf("account_service: summary stock %d: %w", p.StockID, err)
			}
			price = stock.LastPrice
		}
		invested += p.Invested()
		value += p.Quantity * price
	}

	return domain.AccountSummary{
		AccountID:         acct.ID,
		AccountName:       acct.Name,
		UserID:            acct.UserID,
		CashBalance:       domain.Round2(cash),
		PortfolioValue:    domain.Round2(value),
		TotalAccountValue: domain.Round2(cash + value),
		NumPositions:      len(positions),
		UnrealizedPnL:     domain.Round2(value - invested),
		CreatedAt:         acct.CreatedAt,
	}, nil
}
