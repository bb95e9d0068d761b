package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// StockStore implements domain.StockStore using PostgreSQL.
type StockStore struct {
	pool *pgxpool.Pool
}

// NewStockStore creates a new StockStore backed by the given connection pool.
func NewStockStore(pool *pgxpool.Pool) *StockStore {
	return &StockStore{pool: pool}
}

const stockSelectCols = `id, name, symbol, last_price, created_at, updated_at`

func scanStockRow(row pgx.Row) (domain.Stock, error) {
	var st domain.Stock
	var symbol *string
	err := row.Scan(&st.ID, &st.Name, &symbol, &st.LastPrice, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return domain.Stock{}, err
	}
	if symbol != nil {
		st.Symbol = *symbol
	}
	return st, nil
}

func scanStockRows(rows pgx.Rows) ([]domain.Stock, error) {
	var stocks []domain.Stock
	for rows.Next() {
		var st domain.Stock
		var symbol *string
		if err := rows.Scan(&st.ID, &st.Name, &symbol, &st.LastPrice, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		if symbol != nil {
			st.Symbol = *symbol
		}
		stocks = append(stocks, st)
	}
	return stocks, rows.Err()
}

// nullableSymbol maps an empty symbol to NULL so the unique index only
// applies to real tickers.
func nullableSymbol(symbol string) *string {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return nil
	}
	return &s
}

// Create inserts a new stock. Duplicate names or symbols map to
// ErrAlreadyExists.
func (s *StockStore) Create(ctx context.Context, st domain.Stock) (domain.Stock, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO stocks (name, symbol, last_price) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		st.Name, nullableSymbol(st.Symbol), st.LastPrice).
		Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Stock{}, domain.ErrAlreadyExists
		}
		return domain.Stock{}, fmt.Errorf("postgres: create stock: %w", err)
	}
	return st, nil
}

// GetByID retrieves a single stock by id.
func (s *StockStore) GetByID(ctx context.Context, id int64) (domain.Stock, error) {
	st, err := scanStockRow(s.pool.QueryRow(ctx,
		`SELECT `+stockSelectCols+` FROM stocks WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Stock{}, domain.ErrNotFound
		}
		return domain.Stock{}, fmt.Errorf("postgres: get stock %d: %w", id, err)
	}
	return st, nil
}

// List returns stocks ordered by id with pagination.
func (s *StockStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Stock, error) {
	query := `SELECT ` + stockSelectCols + ` FROM stocks ORDER BY id`
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
		return nil, fmt.Errorf("postgres: list stocks: %w", err)
	}
	defer rows.Close()

	stocks, err := scanStockRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan stocks: %w", err)
	}
	return stocks, nil
}

// Search matches stocks by name or symbol, case-insensitively.
func (s *StockStore) Search(ctx context.Context, query string, limit int) ([]domain.Stock, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	rows, err := s.pool.Query(ctx,
		`SELECT `+stockSelectCols+` FROM stocks
		 WHERE name ILIKE $1 OR symbol ILIKE $1
		 ORDER BY id LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: search stocks: %w", err)
	}
	defer rows.Close()

	stocks, err := scanStockRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan stock search: %w", err)
	}
	return stocks, nil
}

// Update applies the patch, touching only the fields it names.
func (s *StockStore) Update(ctx context.Context, id int64, patch domain.StockPatch) (domain.Stock, error) {
	if patch.Empty() {
		return s.GetByID(ctx, id)
	}

	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	argIdx := 2

	if patch.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *patch.Name)
		argIdx++
	}
	if patch.Symbol != nil {
		sets = append(sets, fmt.Sprintf("symbol = $%d", argIdx))
		args = append(args, nullableSymbol(*patch.Symbol))
		argIdx++
	}
	if patch.LastPrice != nil {
		sets = append(sets, fmt.Sprintf("last_price = $%d", argIdx))
		args = append(args, *patch.LastPrice)
		argIdx++
	}

	query := `UPDATE stocks SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + stockSelectCols

	st, err := scanStockRow(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Stock{}, domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return domain.Stock{}, domain.ErrAlreadyExists
		}
		return domain.Stock{}, fmt.Errorf("postgres: update stock %d: %w", id, err)
	}
	return st, nil
}

// SetLastPrice updates only the reference price.
func (s *StockStore) SetLastPrice(ctx context.Context, id int64, price float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE stocks SET last_price = $2, updated_at = NOW() WHERE id = $1`, id, price)
	if err != nil {
		return fmt.Errorf("postgres: set last price %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.StockStore = (*StockStore)(nil)
