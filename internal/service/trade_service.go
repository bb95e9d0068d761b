// Package service implements the application use cases on top of the domain
// stores. Services validate requests, delegate atomic commits to the stores,
// and publish committed events on the signal bus.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// TradeChannel is the signal bus channel committed trade events are
// published on.
const TradeChannel = "trades"

// TradeService handles cash movements, stock trades and transfers. All state
// changes flow through LedgerStore commits; the service layer never mutates
// balances or positions directly.
type TradeService struct {
	ledger   domain.LedgerStore
	accounts domain.AccountStore
	stocks   domain.StockStore
	bus      domain.SignalBus
	logger   *slog.Logger
}

// NewTradeService creates a TradeService with all required dependencies.
func NewTradeService(
	ledger domain.LedgerStore,
	accounts domain.AccountStore,
	stocks domain.StockStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		ledger:   ledger,
		accounts: accounts,
		stocks:   stocks,
		bus:      bus,
		logger:   logger,
	}
}

// Deposit adds cash to an account.
func (s *TradeService) Deposit(ctx context.Context, accountID int64, amount float64, note string) (domain.LedgerEvent, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("trade_service: deposit account %d: %w", accountID, err)
	}

	ev, err := s.ledger.CommitCash(ctx, domain.LedgerEvent{
		AccountID: accountID,
		Kind:      domain.EventCashDeposit,
		Amount:    amount,
		Note:      note,
	})
	if err != nil {
		return domain.LedgerEvent{}, err
	}

	s.publish(ctx, ev)
	s.logger.InfoContext(ctx, "cash deposited",
		slog.Int64("account_id", accountID),
		slog.Float64("amount", amount),
		slog.Int64("event_id", ev.ID))
	return ev, nil
}

// Withdraw removes cash from an account. The balance is re-validated inside
// the store commit, so a concurrent withdrawal cannot overdraw.
func (s *TradeService) Withdraw(ctx context.Context, accountID int64, amount float64, note string) (domain.LedgerEvent, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("trade_service: withdraw account %d: %w", accountID, err)
	}

	ev, err := s.ledger.CommitCash(ctx, domain.LedgerEvent{
		AccountID: accountID,
		Kind:      domain.EventCashWithdraw,
		Amount:    amount,
		Note:      note,
	})
	if err != nil {
		return domain.LedgerEvent{}, err
	}

	s.publish(ctx, ev)
	s.logger.InfoContext(ctx, "cash withdrawn",
		slog.Int64("account_id", accountID),
		slog.Float64("amount", amount),
		slog.Int64("event_id", ev.ID))
	return ev, nil
}

// BuyStock purchases quantity shares at pricePerShare. The total amount is
// quantity times price; funds are re-validated inside the commit and the
// position's weighted-average cost is updated in the same transaction.
func (s *TradeService) BuyStock(ctx context.Context, accountID, stockID int64, quantity, pricePerShare float64, note string) (domain.LedgerEvent, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("trade_service: buy account %d: %w", accountID, err)
	}
	if _, err := s.stocks.GetByID(ctx, stockID); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("trade_service: buy stock %d: %w", stockID, err)
	}

	ev, err := s.ledger.CommitStockTrade(ctx, domain.LedgerEvent{
		AccountID: accountID,
		Kind:      domain.EventStockBuy,
		Amount:    quantity * pricePerShare,
		StockID:   &stockID,
		Quantity:  &quantity,
		Price:     &pricePerShare,
		Note:      note,
	})
	if err != nil {
		return domain.LedgerEvent{}, err
	}

	s.publish(ctx, ev)
	s.logger.InfoContext(ctx, "stock bought",
		slog.Int64("account_id", accountID),
		slog.Int64("stock_id", stockID),
		slog.Float64("quantity", quantity),
		slog.Float64("price", pricePerShare),
		slog.Int64("event_id", ev.ID))
	return ev, nil
}

// SellStock sells quantity shares at pricePerShare. The held quantity is
// re-validated inside the commit; the average cost is unchanged by a sell.
func (s *TradeService) SellStock(ctx context.Context, accountID, stockID int64, quantity, pricePerShare float64, note string) (domain.LedgerEvent, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("trade_service: sell account %d: %w", accountID, err)
	}
	if _, err := s.stocks.GetByID(ctx, stockID); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("trade_service: sell stock %d: %w", stockID, err)
	}

	ev, err := s.ledger.CommitStockTrade(ctx, domain.LedgerEvent{
		AccountID: accountID,
		Kind:      domain.EventStockSell,
		Amount:    quantity * pricePerShare,
		StockID:   &stockID,
		Quantity:  &quantity,
		Price:     &pricePerShare,
		Note:      note,
	})
	if err != nil {
		return domain.LedgerEvent{}, err
	}

	s.publish(ctx, ev)
	s.logger.InfoContext(ctx, "stock sold",
		slog.Int64("account_id", accountID),
		slog.Int64("stock_id", stockID),
		slog.Float64("quantity", quantity),
		slog.Float64("price", pricePerShare),
		slog.Int64("event_id", ev.ID))
	return ev, nil
}

// Transfer moves cash between two accounts as a linked TRANSFER_OUT /
// TRANSFER_IN pair sharing one transfer id. The pair commits atomically.
func (s *TradeService) Transfer(ctx context.Context, fromID, toID int64, amount float64, note string) (domain.TransferReceipt, error) {
	if fromID == toID {
		return domain.TransferReceipt{}, domain.ErrDifferentAccountsRequired
	}
	from, err := s.accounts.GetByID(ctx, fromID)
	if err != nil {
		return domain.TransferReceipt{}, fmt.Errorf("trade_service: transfer from %d: %w", fromID, err)
	}
	to, err := s.accounts.GetByID(ctx, toID)
	if err != nil {
		return domain.TransferReceipt{}, fmt.Errorf("trade_service: transfer to %d: %w", toID, err)
	}

	groupID := uuid.New().String()
	out := domain.LedgerEvent{
		AccountID:       fromID,
		Kind:            domain.EventTransferOut,
		Amount:          amount,
		CounterpartyID:  &toID,
		TransferGroupID: &groupID,
		Note:            note,
	}
	in := domain.LedgerEvent{
		AccountID:       toID,
		Kind:            domain.EventTransferIn,
		Amount:          amount,
		CounterpartyID:  &fromID,
		TransferGroupID: &groupID,
		Note:            note,
	}

	committedOut, committedIn, err := s.ledger.CommitTransfer(ctx, out, in)
	if err != nil {
		return domain.TransferReceipt{}, err
	}

	s.publish(ctx, committedOut)
	s.publish(ctx, committedIn)
	s.logger.InfoContext(ctx, "transfer committed",
		slog.String("transfer_id", groupID),
		slog.Int64("from_account_id", fromID),
		slog.Int64("to_account_id", toID),
		slog.Float64("amount", amount))

	return domain.TransferReceipt{
		TransferID:      groupID,
		FromAccountID:   fromID,
		FromAccountName: from.Name,
		ToAccountID:     toID,
		ToAccountName:   to.Name,
		Amount:          amount,
		Note:            note,
		Timestamp:       committedOut.CreatedAt,
	}, nil
}

// Balance folds the account's full ledger into its cash balance.
func (s *TradeService) Balance(ctx context.Context, accountID int64) (float64, error) {
	events, err := s.ledger.ListByAccount(ctx, accountID, "", domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("trade_service: balance account %d: %w", accountID, err)
	}
	return domain.BalanceOf(events), nil
}

// DetailedBalance folds the account's full ledger into per-category
// subtotals.
func (s *TradeService) DetailedBalance(ctx context.Context, accountID int64) (domain.BalanceBreakdown, error) {
	events, err := s.ledger.ListByAccount(ctx, accountID, "", domain.ListOpts{})
	if err != nil {
		return domain.BalanceBreakdown{}, fmt.Errorf("trade_service: detailed balance account %d: %w", accountID, err)
	}
	return domain.DetailedBalanceOf(accountID, events), nil
}

// ListAccountTrades returns the account's ledger events newest first,
// optionally filtered by kind.
func (s *TradeService) ListAccountTrades(ctx context.Context, accountID int64, kind domain.EventKind, opts domain.ListOpts) ([]domain.LedgerEvent, error) {
	if kind != "" && !kind.Valid() {
		return nil, &domain.InvalidTradeError{Reason: "unknown event kind " + string(kind)}
	}
	return s.ledger.ListByAccount(ctx, accountID, kind, opts)
}

// ListTransfers returns the account's transfers with the direction and
// counterparty resolved.
func (s *TradeService) ListTransfers(ctx context.Context, accountID int64) ([]domain.TransferRecord, error) {
	events, err := s.ledger.ListTransfers(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list transfers account %d: %w", accountID, err)
	}

	records := make([]domain.TransferRecord, 0, len(events))
	for _, e := range events {
		rec := domain.TransferRecord{
			EventID:   e.ID,
			Amount:    e.Amount,
			Note:      e.Note,
			Timestamp: e.CreatedAt,
		}
		if e.TransferGroupID != nil {
			rec.TransferID = *e.TransferGroupID
		}
		if e.CounterpartyID != nil {
			rec.Counterparty = *e.CounterpartyID
		}
		if e.Kind == domain.EventTransferIn {
			rec.Direction = "incoming"
		} else {
			rec.Direction = "outgoing"
		}
		records = append(records, rec)
	}
	return records, nil
}

// publish fans the committed event out on the signal bus. Publish failures
// are logged and swallowed: the commit already happened and must not be
// reported as failed.
func (s *TradeService) publish(ctx context.Context, ev domain.LedgerEvent) {
	payload, err := json.Marshal(map[string]any{
		"event":      "trade_committed",
		"event_id":   ev.ID,
		"account_id": ev.AccountID,
		"type":       ev.Kind,
		"amount":     ev.Amount,
		"timestamp":  ev.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, TradeChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "trade_service: publish event failed",
			slog.Int64("event_id", ev.ID),
			slog.String("error", err.Error()))
	}
}
