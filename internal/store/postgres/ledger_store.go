package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// LedgerStore implements domain.LedgerStore using PostgreSQL. Every commit
// method runs as a single transaction: it takes a row lock on the affected
// account(s), re-derives the balance from the event log inside the
// transaction, appends the ledger row(s), and applies the position mutation.
// Either the whole unit persists or none of it does.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a new LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

const ledgerSelectCols = `id, account_id, kind, amount, stock_id, quantity, price,
	counterparty_id, transfer_group_id, note, created_at`

func scanLedgerRows(rows pgx.Rows) ([]domain.LedgerEvent, error) {
	var events []domain.LedgerEvent
	for rows.Next() {
		var e domain.LedgerEvent
		var kind string
		if err := rows.Scan(
			&e.ID, &e.AccountID, &kind, &e.Amount,
			&e.StockID, &e.Quantity, &e.Price,
			&e.CounterpartyID, &e.TransferGroupID,
			&e.Note, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.Kind = domain.EventKind(kind)
		events = append(events, e)
	}
	return events, rows.Err()
}

// lockAccount takes a FOR UPDATE row lock on the account, serializing all
// committing trades on it for the duration of the transaction. Returns
// domain.ErrNotFound when the account does not exist.
func lockAccount(ctx context.Context, tx pgx.Tx, accountID int64) error {
	var id int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrNotFound
		}
		return fmt.Errorf("postgres: lock account %d: %w", accountID, err)
	}
	return nil
}

// balanceTx re-derives the account's cash balance from the event log inside
// the current transaction. Together with the account row lock this closes the
// window where two concurrent debits could both pass an out-of-transaction
// pre-check.
func balanceTx(ctx context.Context, tx pgx.Tx, accountID int64) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(CASE
			WHEN kind IN ('CASH_DEPOSIT', 'STOCK_SELL', 'TRANSFER_IN') THEN amount
			ELSE -amount
		END), 0)
		FROM ledger_events WHERE account_id = $1`

	var balance float64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("postgres: balance for account %d: %w", accountID, err)
	}
	return balance, nil
}

func insertEventTx(ctx context.Context, tx pgx.Tx, ev domain.LedgerEvent) (domain.LedgerEvent, error) {
	const query = `
		INSERT INTO ledger_events (
			account_id, kind, amount, stock_id, quantity, price,
			counterparty_id, transfer_group_id, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := tx.QueryRow(ctx, query,
		ev.AccountID, string(ev.Kind), ev.Amount,
		ev.StockID, ev.Quantity, ev.Price,
		ev.CounterpartyID, ev.TransferGroupID, ev.Note,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("postgres: insert ledger event: %w", err)
	}
	return ev, nil
}

// CommitCash appends a deposit or withdrawal. Withdrawals re-validate the
// balance inside the transaction and fail with *InsufficientFundsError when
// the account cannot cover the amount.
func (s *LedgerStore) CommitCash(ctx context.Context, ev domain.LedgerEvent) (domain.LedgerEvent, error) {
	if err := ev.Validate(); err != nil {
		return domain.LedgerEvent{}, err
	}
	if ev.Kind != domain.EventCashDeposit && ev.Kind != domain.EventCashWithdraw {
		return domain.LedgerEvent{}, &domain.InvalidTradeError{Reason: "not a cash event kind"}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockAccount(ctx, tx, ev.AccountID); err != nil {
		return domain.LedgerEvent{}, err
	}

	if ev.Kind == domain.EventCashWithdraw {
		balance, err := balanceTx(ctx, tx, ev.AccountID)
		if err != nil {
			return domain.LedgerEvent{}, err
		}
		if balance < ev.Amount {
			return domain.LedgerEvent{}, &domain.InsufficientFundsError{
				AccountID: ev.AccountID,
				Required:  ev.Amount,
				Available: balance,
			}
		}
	}

	committed, err := insertEventTx(ctx, tx, ev)
	if err != nil {
		return domain.LedgerEvent{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("postgres: commit cash trade: %w", err)
	}
	return committed, nil
}

// CommitStockTrade appends a buy or sell event and applies the position
// mutation as one atomic unit. The balance (buy) or held quantity (sell) is
// re-validated inside the transaction after the account lock is taken.
func (s *LedgerStore) CommitStockTrade(ctx context.Context, ev domain.LedgerEvent) (domain.LedgerEvent, error) {
	if err := ev.Validate(); err != nil {
		return domain.LedgerEvent{}, err
	}
	if !ev.Kind.IsStock() {
		return domain.LedgerEvent{}, &domain.InvalidTradeError{Reason: "not a stock event kind"}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockAccount(ctx, tx, ev.AccountID); err != nil {
		return domain.LedgerEvent{}, err
	}

	switch ev.Kind {
	case domain.EventStockBuy:
		balance, err := balanceTx(ctx, tx, ev.AccountID)
		if err != nil {
			return domain.LedgerEvent{}, err
		}
		if balance < ev.Amount {
			return domain.LedgerEvent{}, &domain.InsufficientFundsError{
				AccountID: ev.AccountID,
				Required:  ev.Amount,
				Available: balance,
			}
		}
	case domain.EventStockSell:
		held, err := heldQuantityTx(ctx, tx, ev.AccountID, *ev.StockID)
		if err != nil {
			return domain.LedgerEvent{}, err
		}
		if held < *ev.Quantity {
			return domain.LedgerEvent{}, &domain.InsufficientSharesError{
				AccountID: ev.AccountID,
				StockID:   *ev.StockID,
				Required:  *ev.Quantity,
				Available: held,
			}
		}
	}

	committed, err := insertEventTx(ctx, tx, ev)
	if err != nil {
		return domain.LedgerEvent{}, err
	}

	if ev.Kind == domain.EventStockBuy {
		err = applyBuyTx(ctx, tx, ev.AccountID, *ev.StockID, *ev.Quantity, *ev.Price)
	} else {
		err = applySellTx(ctx, tx, ev.AccountID, *ev.StockID, *ev.Quantity)
	}
	if err != nil {
		return domain.LedgerEvent{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("postgres: commit stock trade: %w", err)
	}
	return committed, nil
}

// CommitTransfer appends the linked TRANSFER_OUT / TRANSFER_IN pair
// atomically. Both account rows are locked in ascending id order so that
// concurrent opposite-direction transfers cannot deadlock.
func (s *LedgerStore) CommitTransfer(ctx context.Context, out, in domain.LedgerEvent) (domain.LedgerEvent, domain.LedgerEvent, error) {
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	first, second := out.AccountID, in.AccountID
	if second < first {
		first, second = second, first
	}
	if err := lockAccount(ctx, tx, first); err != nil {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, err
	}
	if err := lockAccount(ctx, tx, second); err != nil {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, err
	}

	balance, err := balanceTx(ctx, tx, out.AccountID)
	if err != nil {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, err
	}
	if balance < out.Amount {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, &domain.InsufficientFundsError{
			AccountID: out.AccountID,
			Required:  out.Amount,
			Available: balance,
		}
	}

	committedOut, err := insertEventTx(ctx, tx, out)
	if err != nil {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, err
	}
	committedIn, err := insertEventTx(ctx, tx, in)
	if err != nil {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.LedgerEvent{}, domain.LedgerEvent{}, fmt.Errorf("postgres: commit transfer: %w", err)
	}
	return committedOut, committedIn, nil
}

// accountExists reports whether the account row exists, so list queries can
// distinguish "no events" from "no account".
func (s *LedgerStore) accountExists(ctx context.Context, accountID int64) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check account %d: %w", accountID, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

// ListByAccount returns the account's events newest first, optionally
// filtered by kind.
func (s *LedgerStore) ListByAccount(ctx context.Context, accountID int64, kind domain.EventKind, opts domain.ListOpts) ([]domain.LedgerEvent, error) {
	if err := s.accountExists(ctx, accountID); err != nil {
		return nil, err
	}

	query := `SELECT ` + ledgerSelectCols + ` FROM ledger_events WHERE account_id = $1`
	args := []any{accountID}
	argIdx := 2

	if kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argIdx)
		args = append(args, string(kind))
		argIdx++
	}
	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ledger events: %w", err)
	}
	defer rows.Close()

	events, err := scanLedgerRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan ledger events: %w", err)
	}
	return events, nil
}

// ListByPosition returns the stock trades behind one (account, stock) pair,
// newest first.
func (s *LedgerStore) ListByPosition(ctx context.Context, accountID, stockID int64) ([]domain.LedgerEvent, error) {
	if err := s.accountExists(ctx, accountID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+ledgerSelectCols+` FROM ledger_events
		 WHERE account_id = $1 AND stock_id = $2
		   AND kind IN ('STOCK_BUY', 'STOCK_SELL')
		 ORDER BY created_at DESC, id DESC`, accountID, stockID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list position events: %w", err)
	}
	defer rows.Close()

	events, err := scanLedgerRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan position events: %w", err)
	}
	return events, nil
}

// ListTransfers returns all transfer events touching the account, newest
// first.
func (s *LedgerStore) ListTransfers(ctx context.Context, accountID int64) ([]domain.LedgerEvent, error) {
	if err := s.accountExists(ctx, accountID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+ledgerSelectCols+` FROM ledger_events
		 WHERE account_id = $1 AND kind IN ('TRANSFER_OUT', 'TRANSFER_IN')
		 ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transfers: %w", err)
	}
	defer rows.Close()

	events, err := scanLedgerRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan transfers: %w", err)
	}
	return events, nil
}

// ListBuysSince returns STOCK_BUY events created at or after the cutoff,
// newest first.
func (s *LedgerStore) ListBuysSince(ctx context.Context, since time.Time, limit int) ([]domain.LedgerEvent, error) {
	query := `SELECT ` + ledgerSelectCols + ` FROM ledger_events
		 WHERE kind = 'STOCK_BUY' AND created_at >= $1
		 ORDER BY created_at DESC, id DESC`
	args := []any{since}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list buys since: %w", err)
	}
	defer rows.Close()

	events, err := scanLedgerRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan buys since: %w", err)
	}
	return events, nil
}

// ListBefore returns all events created strictly before the cutoff, oldest
// first. Used by the cold export; nothing is deleted.
func (s *LedgerStore) ListBefore(ctx context.Context, before time.Time) ([]domain.LedgerEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+ledgerSelectCols+` FROM ledger_events
		 WHERE created_at < $1 ORDER BY created_at ASC, id ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events before: %w", err)
	}
	defer rows.Close()

	events, err := scanLedgerRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan events before: %w", err)
	}
	return events, nil
}

// Compile-time interface check.
var _ domain.LedgerStore = (*LedgerStore)(nil)
