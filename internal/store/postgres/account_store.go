package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// AccountStore implements domain.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates a new AccountStore backed by the given connection pool.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

const accountSelectCols = `id, user_id, name, created_at, updated_at`

func scanAccountRow(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// Create inserts a new account and returns it with the assigned id.
func (s *AccountStore) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (user_id, name) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		a.UserID, a.Name).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, fmt.Errorf("postgres: create account: %w", err)
	}
	return a, nil
}

// GetByID retrieves a single account by id.
func (s *AccountStore) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	a, err := scanAccountRow(s.pool.QueryRow(ctx,
		`SELECT `+accountSelectCols+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("postgres: get account %d: %w", id, err)
	}
	return a, nil
}

// List returns accounts ordered by id with pagination.
func (s *AccountStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Account, error) {
	query := `SELECT ` + accountSelectCols + ` FROM accounts ORDER BY id`
	args := []any{}
	if opts.Limit > 0 {
		query += " LIMIT $1"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET $2"
			args = append(args, opts.Offset)
		}
	} else if opts.Offset > 0 {
		query += " OFFSET $1"
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan accounts: %w", err)
	}
	return accounts, nil
}

// ListByUser returns all accounts owned by the given user.
func (s *AccountStore) ListByUser(ctx context.Context, userID int64) ([]domain.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountSelectCols+` FROM accounts WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list accounts by user: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan accounts: %w", err)
	}
	return accounts, nil
}

// Update applies the patch, touching only the fields it names.
func (s *AccountStore) Update(ctx context.Context, id int64, patch domain.AccountPatch) (domain.Account, error) {
	if patch.Empty() {
		return s.GetByID(ctx, id)
	}

	a, err := scanAccountRow(s.pool.QueryRow(ctx,
		`UPDATE accounts SET name = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+accountSelectCols, id, *patch.Name))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("postgres: update account %d: %w", id, err)
	}
	return a, nil
}

// Delete removes the account. Positions and ledger events go with it via the
// schema's ON DELETE CASCADE.
func (s *AccountStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete account %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.AccountStore = (*AccountStore)(nil)
