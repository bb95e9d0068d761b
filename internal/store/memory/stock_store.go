package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// StockStore implements domain.StockStore over the in-memory Store.
type StockStore struct {
	s *Store
}

// Create inserts a new stock. Duplicate names or symbols map to
// ErrAlreadyExists.
func (st *StockStore) Create(ctx context.Context, stock domain.Stock) (domain.Stock, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	for _, existing := range st.s.stocks {
		if existing.Name == stock.Name {
			return domain.Stock{}, domain.ErrAlreadyExists
		}
		if stock.Symbol != "" && existing.Symbol == stock.Symbol {
			return domain.Stock{}, domain.ErrAlreadyExists
		}
	}
	st.s.nextStockID++
	stock.ID = st.s.nextStockID
	now := time.Now().UTC()
	stock.CreatedAt = now
	stock.UpdatedAt = now
	st.s.stocks[stock.ID] = stock
	return stock, nil
}

// GetByID retrieves a single stock by id.
func (st *StockStore) GetByID(ctx context.Context, id int64) (domain.Stock, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	stock, ok := st.s.stocks[id]
	if !ok {
		return domain.Stock{}, domain.ErrNotFound
	}
	return stock, nil
}

// List returns stocks ordered by id with pagination.
func (st *StockStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Stock, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	stocks := make([]domain.Stock, 0, len(st.s.stocks))
	for _, stock := range st.s.stocks {
		stocks = append(stocks, stock)
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].ID < stocks[j].ID })

	if opts.Offset > 0 {
		if opts.Offset >= len(stocks) {
			return nil, nil
		}
		stocks = stocks[opts.Offset:]
	}
	if opts.Limit > 0 && len(stocks) > opts.Limit {
		stocks = stocks[:opts.Limit]
	}
	return stocks, nil
}

// Search matches stocks by name or symbol, case-insensitively.
func (st *StockStore) Search(ctx context.Context, query string, limit int) ([]domain.Stock, error) {
	if limit <= 0 {
		limit = 20
	}
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	needle := strings.ToLower(query)
	var stocks []domain.Stock
	for _, stock := range st.s.stocks {
		if strings.Contains(strings.ToLower(stock.Name), needle) ||
			strings.Contains(strings.ToLower(stock.Symbol), needle) {
			stocks = append(stocks, stock)
		}
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].ID < stocks[j].ID })
	if len(stocks) > limit {
		stocks = stocks[:limit]
	}
	return stocks, nil
}

// Update applies the patch, touching only the fields it names.
func (st *StockStore) Update(ctx context.Context, id int64, patch domain.StockPatch) (domain.Stock, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	stock, ok := st.s.stocks[id]
	if !ok {
		return domain.Stock{}, domain.ErrNotFound
	}
	if patch.Empty() {
		return stock, nil
	}
	if patch.Name != nil {
		stock.Name = *patch.Name
	}
	if patch.Symbol != nil {
		stock.Symbol = strings.TrimSpace(*patch.Symbol)
	}
	if patch.LastPrice != nil {
		stock.LastPrice = *patch.LastPrice
	}
	stock.UpdatedAt = time.Now().UTC()
	st.s.stocks[id] = stock
	return stock, nil
}

// SetLastPrice updates only the reference price.
func (st *StockStore) SetLastPrice(ctx context.Context, id int64, price float64) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	stock, ok := st.s.stocks[id]
	if !ok {
		return domain.ErrNotFound
	}
	stock.LastPrice = price
	stock.UpdatedAt = time.Now().UTC()
	st.s.stocks[id] = stock
	return nil
}

// Compile-time interface check.
var _ domain.StockStore = (*StockStore)(nil)
