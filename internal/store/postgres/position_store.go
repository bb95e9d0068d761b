package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// PositionStore implements the read side of domain.PositionStore using
// PostgreSQL. Mutation happens exclusively inside LedgerStore transactions
// via applyBuyTx / applySellTx below, so a ledger append can never commit
// without its matching position change.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `account_id, stock_id, quantity, average_cost, created_at, updated_at`

func scanPositionRows(rows pgx.Rows) ([]domain.Position, error) {
	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(
			&p.AccountID, &p.StockID, &p.Quantity, &p.AverageCost,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Get retrieves the position for one (account, stock) pair.
func (s *PositionStore) Get(ctx context.Context, accountID, stockID int64) (domain.Position, error) {
	var p domain.Position
	err := s.pool.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE account_id = $1 AND stock_id = $2`, accountID, stockID).
		Scan(&p.AccountID, &p.StockID, &p.Quantity, &p.AverageCost,
			&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %d/%d: %w", accountID, stockID, err)
	}
	return p, nil
}

// ListByAccount returns the account's positions with quantity > 0, ordered
// by stock id.
func (s *PositionStore) ListByAccount(ctx context.Context, accountID int64) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE account_id = $1 AND quantity > 0
		 ORDER BY stock_id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan positions: %w", err)
	}
	return positions, nil
}

// ListByStock returns all holders' positions for one stock.
func (s *PositionStore) ListByStock(ctx context.Context, stockID int64) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE stock_id = $1 AND quantity > 0
		 ORDER BY account_id`, stockID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions by stock: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan positions by stock: %w", err)
	}
	return positions, nil
}

// heldQuantityTx reads the held quantity for the pair inside the current
// transaction. Returns 0 when no position exists.
func heldQuantityTx(ctx context.Context, tx pgx.Tx, accountID, stockID int64) (float64, error) {
	var qty float64
	err := tx.QueryRow(ctx,
		`SELECT quantity FROM positions WHERE account_id = $1 AND stock_id = $2`,
		accountID, stockID).Scan(&qty)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: held quantity %d/%d: %w", accountID, stockID, err)
	}
	return qty, nil
}

// applyBuyTx applies a buy to the position as one server-side conditional
// upsert: the insert creates the position at the purchase price, the
// conflict branch recomputes the weighted-average cost from the stored row,
// so the read-modify-write cannot lose a concurrent update.
func applyBuyTx(ctx context.Context, tx pgx.Tx, accountID, stockID int64, quantity, price float64) error {
	const query = `
		INSERT INTO positions (account_id, stock_id, quantity, average_cost)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, stock_id) DO UPDATE SET
			average_cost = (positions.quantity * positions.average_cost +
			                EXCLUDED.quantity * EXCLUDED.average_cost) /
			               (positions.quantity + EXCLUDED.quantity),
			quantity     = positions.quantity + EXCLUDED.quantity,
			updated_at   = NOW()`

	if _, err := tx.Exec(ctx, query, accountID, stockID, quantity, price); err != nil {
		return fmt.Errorf("postgres: apply buy %d/%d: %w", accountID, stockID, err)
	}
	return nil
}

// applySellTx decrements the position, guarded so the quantity can never go
// negative, and deletes the row when only dust remains. A guard failure here
// means the in-transaction sufficiency check was bypassed, which the locking
// discipline should make impossible.
func applySellTx(ctx context.Context, tx pgx.Tx, accountID, stockID int64, quantity float64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE positions SET
			quantity   = quantity - $3,
			updated_at = NOW()
		 WHERE account_id = $1 AND stock_id = $2 AND quantity >= $3`,
		accountID, stockID, quantity)
	if err != nil {
		return fmt.Errorf("postgres: apply sell %d/%d: %w", accountID, stockID, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ConflictingStateError{
			AccountID: accountID,
			StockID:   stockID,
			Detail:    "sell reached the position table without a sufficient backing row",
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM positions
		 WHERE account_id = $1 AND stock_id = $2 AND quantity <= $3`,
		accountID, stockID, domain.DustEpsilon); err != nil {
		return fmt.Errorf("postgres: drop dust position %d/%d: %w", accountID, stockID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
