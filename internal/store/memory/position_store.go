package memory

import (
	"context"
	"sort"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// PositionStore implements the read side of domain.PositionStore over the
// in-memory Store. Mutation happens inside LedgerStore.CommitStockTrade.
type PositionStore struct {
	s *Store
}

// Get returns the position for the pair or ErrNotFound.
func (p *PositionStore) Get(ctx context.Context, accountID, stockID int64) (domain.Position, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	pos, ok := p.s.positions[posKey{accountID, stockID}]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

// ListByAccount returns the account's positions with quantity > 0, ordered by
// stock id.
func (p *PositionStore) ListByAccount(ctx context.Context, accountID int64) ([]domain.Position, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	var positions []domain.Position
	for key, pos := range p.s.positions {
		if key.accountID == accountID && pos.Quantity > 0 {
			positions = append(positions, pos)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].StockID < positions[j].StockID })
	return positions, nil
}

// ListByStock returns all holders' positions for one stock.
func (p *PositionStore) ListByStock(ctx context.Context, stockID int64) ([]domain.Position, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	var positions []domain.Position
	for key, pos := range p.s.positions {
		if key.stockID == stockID && pos.Quantity > 0 {
			positions = append(positions, pos)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].AccountID < positions[j].AccountID })
	return positions, nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
