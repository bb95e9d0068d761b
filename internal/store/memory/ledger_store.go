package memory

import (
	"context"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// LedgerStore implements domain.LedgerStore over the in-memory Store.
type LedgerStore struct {
	s *Store
}

// CommitCash appends a deposit or withdrawal, re-validating the balance for
// withdrawals under the account lock.
func (l *LedgerStore) CommitCash(ctx context.Context, ev domain.LedgerEvent) (domain.LedgerEvent, error) {
	if err := ev.Validate(); err != nil {
		return domain.LedgerEvent{}, err
	}
	if ev.Kind != domain.EventCashDeposit && ev.Kind != domain.EventCashWithdraw {
		return domain.LedgerEvent{}, &domain.InvalidTradeError{Reason: "not a cash event kind"}
	}

	lk, err := l.s.accountLock(ev.AccountID)
	if err != nil {
		return domain.LedgerEvent{}, err
	}
	lk.Lock()
	defer lk.Unlock()

	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if ev.Kind == domain.EventCashWithdraw {
		balance := l.s.balanceLocked(ev.AccountID)
		if balance < ev.Amount {
			return domain.LedgerEvent{}, &domain.InsufficientFundsError{
				AccountID: ev.AccountID,
				Required:  ev.Amount,
				Available: balance,
			}
		}
	}
	return l.s.appendLocked(ev), nil
}

// CommitStockTrade appends a buy or sell and applies the position mutation
// under the account lock, so the ledger append and the position change are
// one atomic unit.
func (l *LedgerStore) CommitStockTrade(ctx context.Context, ev domain.LedgerEvent) (domain.LedgerEvent, error) {
	if err := ev.Validate(); err != nil {
		return domain.LedgerEvent{}, err
	}
	if !ev.Kind.IsStock() {
		return domain.LedgerEvent{}, &domain.InvalidTradeError{Reason: "not a stock event kind"}
	}

	lk, err := l.s.accountLock(ev.AccountID)
	if err != nil {
		return domain.LedgerEvent{}, err
	}
	lk.Lock()
	defer lk.Unlock()

	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	key := posKey{ev.AccountID, *ev.StockID}
	pos, havePos := l.s.positions[key]
	now := time.Now().UTC()

	switch ev.Kind {
	case domain.EventStockBuy:
		balance := l.s.balanceLocked(ev.AccountID)
		if balance < ev.Amount {
			return domain.LedgerEvent{}, &domain.InsufficientFundsError{
				AccountID: ev.AccountID,
				Required:  ev.Amount,
				Available: balance,
			}
		}
	case domain.EventStockSell:
		if !havePos || pos.Quantity < *ev.Quantity {
			var held float64
			if havePos {
				held = pos.Quantity
			}
			return domain.LedgerEvent{}, &domain.InsufficientSharesError{
				AccountID: ev.AccountID,
				StockID:   *ev.StockID,
				Required:  *ev.Quantity,
				Available: held,
			}
		}
	}

	committed := l.s.appendLocked(ev)

	if ev.Kind == domain.EventStockBuy {
		if !havePos {
			pos = domain.Position{
				AccountID: ev.AccountID,
				StockID:   *ev.StockID,
				CreatedAt: now,
			}
		}
		pos = pos.WithBuy(*ev.Quantity, *ev.Price)
		pos.UpdatedAt = now
		l.s.positions[key] = pos
	} else {
		pos = pos.WithSell(*ev.Quantity)
		pos.UpdatedAt = now
		if pos.IsDust() {
			delete(l.s.positions, key)
		} else {
			l.s.positions[key] = pos
		}
	}

	return committed, nil
}

// CommitTransfer appends the linked pair atomically, locking both accounts in
// ascending id order to avoid deadlock with a concurrent reverse transfer.
func (l *LedgerStore) CommitTransfer(ctx context.Context, out, in domain.LedgerEvent) (domain.LedgerEvent, domain.LedgerEvent, error) {
	if err := out.Validate(); err != nil {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, err
	}
	if err := in.Validate(); err != nil {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, err
	}
	if out.Kind != domain.EventTransferOut || in.Kind != domain.EventTransferIn {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, &domain.InvalidTradeError{Reason: "transfer pair kinds are wrong"}
	}
	if out.AccountID == in.AccountID {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, domain.ErrDifferentAccountsRequired
	}

	firstID, secondID := out.AccountID, in.AccountID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	firstLk, err := l.s.accountLock(firstID)
	if err != nil {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, err
	}
	secondLk, err := l.s.accountLock(secondID)
	if err != nil {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, err
	}
	firstLk.Lock()
	defer firstLk.Unlock()
	secondLk.Lock()
	defer secondLk.Unlock()

	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	balance := l.s.balanceLocked(out.AccountID)
	if balance < out.Amount {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, &domain.InsufficientFundsError{
			AccountID: out.AccountID,
			Required:  out.Amount,
			Available: balance,
		}
	}

	committedOut := l.s.appendLocked(out)
	committedIn := l.s.appendLocked(in)
	return committedOut, committedIn, nil
}

// ListByAccount returns the account's events newest first.
func (l *LedgerStore) ListByAccount(ctx context.Context, accountID int64, kind domain.EventKind, opts domain.ListOpts) ([]domain.LedgerEvent, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	if _, ok := l.s.accounts[accountID]; !ok {
		return nil, domain.ErrNotFound
	}

	var events []domain.LedgerEvent
	for _, e := range l.s.events {
		if e.AccountID != accountID {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		if opts.Since != nil && e.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.CreatedAt.After(*opts.Until) {
			continue
		}
		events = append(events, e)
	}
	sortNewestFirst(events)
	return paginate(events, opts), nil
}

// ListByPosition returns the stock trades for one pair, newest first.
func (l *LedgerStore) ListByPosition(ctx context.Context, accountID, stockID int64) ([]domain.LedgerEvent, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	if _, ok := l.s.accounts[accountID]; !ok {
		return nil, domain.ErrNotFound
	}

	var events []domain.LedgerEvent
	for _, e := range l.s.events {
		if e.AccountID == accountID && e.Kind.IsStock() && e.StockID != nil && *e.StockID == stockID {
			events = append(events, e)
		}
	}
	sortNewestFirst(events)
	return events, nil
}

// ListTransfers returns all transfer events touching the account, newest first.
func (l *LedgerStore) ListTransfers(ctx context.Context, accountID int64) ([]domain.LedgerEvent, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	if _, ok := l.s.accounts[accountID]; !ok {
		return nil, domain.ErrNotFound
	}

	var events []domain.LedgerEvent
	for _, e := range l.s.events {
		if e.AccountID == accountID && e.Kind.IsTransfer() {
			events = append(events, e)
		}
	}
	sortNewestFirst(events)
	return events, nil
}

// ListBuysSince returns STOCK_BUY events at or after the cutoff, newest first.
func (l *LedgerStore) ListBuysSince(ctx context.Context, since time.Time, limit int) ([]domain.LedgerEvent, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	var events []domain.LedgerEvent
	for _, e := range l.s.events {
		if e.Kind == domain.EventStockBuy && !e.CreatedAt.Before(since) {
			events = append(events, e)
		}
	}
	sortNewestFirst(events)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// ListBefore returns all events created strictly before the cutoff, oldest
// first.
func (l *LedgerStore) ListBefore(ctx context.Context, before time.Time) ([]domain.LedgerEvent, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	var events []domain.LedgerEvent
	for _, e := range l.s.events {
		if e.CreatedAt.Before(before) {
			events = append(events, e)
		}
	}
	return events, nil
}

// Compile-time interface check.
var _ domain.LedgerStore = (*LedgerStore)(nil)
