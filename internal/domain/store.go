package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// UserStore persists account owners.
type UserStore interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, opts ListOpts) ([]User, error)
}

// AccountStore persists accounts. Delete cascades to the account's positions
// and ledger events.
type AccountStore interface {
	Create(ctx context.Context, a Account) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
	List(ctx context.Context, opts ListOpts) ([]Account, error)
	ListByUser(ctx context.Context, userID int64) ([]Account, error)
	Update(ctx context.Context, id int64, patch AccountPatch) (Account, error)
	Delete(ctx context.Context, id int64) error
}

// StockStore persists traded instruments.
type StockStore interface {
	Create(ctx context.Context, s Stock) (Stock, error)
	GetByID(ctx context.Context, id int64) (Stock, error)
	List(ctx context.Context, opts ListOpts) ([]Stock, error)
	Search(ctx context.Context, query string, limit int) ([]Stock, error)
	Update(ctx context.Context, id int64, patch StockPatch) (Stock, error)
	SetLastPrice(ctx context.Context, id int64, price float64) error
}

// LedgerStore is the durable append-only record of trade events. The Commit
// methods are the only writers: each commits one atomic unit consisting of
// the ledger append, the in-transaction balance re-validation, and (for stock
// trades) the position mutation. Either everything persists or nothing does.
//
// Commit methods return the typed sufficiency errors
// (*InsufficientFundsError, *InsufficientSharesError, *ConflictingStateError)
// when the in-transaction re-check fails.
type LedgerStore interface {
	// CommitCash appends a CASH_DEPOSIT or CASH_WITHDRAW event. Withdrawals
	// re-validate the balance inside the transaction.
	CommitCash(ctx context.Context, ev LedgerEvent) (LedgerEvent, error)

	// CommitStockTrade appends a STOCK_BUY or STOCK_SELL event and applies
	// the corresponding position mutation atomically. Buys re-validate the
	// balance; sells re-validate the held quantity.
	CommitStockTrade(ctx context.Context, ev LedgerEvent) (LedgerEvent, error)

	// CommitTransfer appends a linked TRANSFER_OUT / TRANSFER_IN pair
	// atomically, re-validating the sender's balance in the transaction.
	CommitTransfer(ctx context.Context, out, in LedgerEvent) (LedgerEvent, LedgerEvent, error)

	// ListByAccount returns the account's events newest first, optionally
	// filtered by kind (empty kind means all). Fails with ErrNotFound when
	// the account does not exist.
	ListByAccount(ctx context.Context, accountID int64, kind EventKind, opts ListOpts) ([]LedgerEvent, error)

	// ListByPosition returns the stock trades for one (account, stock) pair,
	// newest first.
	ListByPosition(ctx context.Context, accountID, stockID int64) ([]LedgerEvent, error)

	// ListTransfers returns all transfer events touching the account,
	// newest first.
	ListTransfers(ctx context.Context, accountID int64) ([]LedgerEvent, error)

	// ListBuysSince returns all STOCK_BUY events created at or after the
	// cutoff, newest first, up to limit (0 means no limit).
	ListBuysSince(ctx context.Context, since time.Time, limit int) ([]LedgerEvent, error)

	// ListBefore returns all events created strictly before the cutoff,
	// oldest first. Used for cold export; events are never deleted.
	ListBefore(ctx context.Context, before time.Time) ([]LedgerEvent, error)
}

// PositionStore is the read side of the position aggregate. All mutation
// goes through LedgerStore.CommitStockTrade so that the ledger append and the
// position change share one transaction.
type PositionStore interface {
	// Get returns the position for the pair or ErrNotFound.
	Get(ctx context.Context, accountID, stockID int64) (Position, error)

	// ListByAccount returns the account's positions with quantity > 0,
	// ordered by stock id.
	ListByAccount(ctx context.Context, accountID int64) ([]Position, error)

	// ListByStock returns all holders' positions for one stock.
	ListByStock(ctx context.Context, stockID int64) ([]Position, error)
}
