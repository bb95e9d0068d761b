package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvannucci/paperbroker/internal/domain"
)

func (f *fixture) stocksSvc() *StockService {
	return NewStockService(f.store.Stocks(), f.store.Positions(), f.prices, f.bus, f.logger)
}

func TestStockServiceCreate(t *testing.T) {
	f := newFixture(t)
	svc := f.stocksSvc()

	stock, err := svc.Create(ctx(), "Acme Corp", "ACME", 100)
	require.NoError(t, err)
	assert.NotZero(t, stock.ID)

	t.Run("duplicate name", func(t *testing.T) {
		_, err := svc.Create(ctx(), "Acme Corp", "ACM2", 100)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("negative price", func(t *testing.T) {
		_, err := svc.Create(ctx(), "Negative Inc", "NEG", -1)
		assert.ErrorIs(t, err, domain.ErrInvalidTrade)
	})
}

func TestStockServiceUpdatePrice(t *testing.T) {
	f := newFixture(t)
	svc := f.stocksSvc()
	stock := f.newStock(t, "Acme Corp", "ACME", 100)

	require.NoError(t, svc.UpdatePrice(ctx(), stock.ID, 125))

	updated, err := svc.Get(ctx(), stock.ID)
	require.NoError(t, err)
	assert.InDelta(t, 125, updated.LastPrice, 1e-9)

	cached, _, err := f.prices.GetPrice(ctx(), stock.ID)
	require.NoError(t, err)
	assert.InDelta(t, 125, cached, 1e-9, "price updates write through to the cache")

	t.Run("non-positive price", func(t *testing.T) {
		err := svc.UpdatePrice(ctx(), stock.ID, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidTrade)
	})
}

func TestStockServiceDetail(t *testing.T) {
	f := newFixture(t)
	svc := f.stocksSvc()
	trades := f.trades()
	stock := f.newStock(t, "Acme Corp", "ACME", 100)
	a := f.newAccount(t, "ada", "Main")
	b := f.newAccount(t, "bob", "Main")

	for _, acct := range []domain.Account{a, b} {
		_, err := trades.Deposit(ctx(), acct.ID, 10_000, "")
		require.NoError(t, err)
		_, err = trades.BuyStock(ctx(), acct.ID, stock.ID, 5, 100, "")
		require.NoError(t, err)
	}

	detail, err := svc.Detail(ctx(), stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.TotalHolders)
	assert.InDelta(t, 10, detail.TotalSharesHeld, 1e-9)
}

func TestStockServiceSearch(t *testing.T) {
	f := newFixture(t)
	svc := f.stocksSvc()
	f.newStock(t, "Acme Corp", "ACME", 100)
	f.newStock(t, "Globex", "GLBX", 90)

	results, err := svc.Search(ctx(), "acme", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ACME", results[0].Symbol)

	results, err = svc.Search(ctx(), "glbx", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Globex", results[0].Name)
}
