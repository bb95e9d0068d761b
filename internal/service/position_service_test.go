package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvannucci/paperbroker/internal/domain"
)

func TestPositionServiceDetail(t *testing.T) {
	f := newFixture(t)
	trades := f.trades()
	svc := f.positionsSvc()
	acct := f.newAccount(t, "ada", "Main")
	stock := f.newStock(t, "Acme Corp", "ACME", 100)

	_, err := trades.Deposit(ctx(), acct.ID, 10_000, "")
	require.NoError(t, err)
	_, err = trades.BuyStock(ctx(), acct.ID, stock.ID, 10, 100, "")
	require.NoError(t, err)

	require.NoError(t, f.prices.SetPrice(ctx(), stock.ID, 150, time.Now().UTC()))

	detail, err := svc.Detail(ctx(), acct.ID, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME", detail.StockSymbol)
	assert.InDelta(t, 10, detail.Quantity, 1e-9)
	assert.InDelta(t, 100, detail.AverageCost, 1e-9)
	assert.InDelta(t, 150, detail.CurrentPrice, 1e-9)
	assert.InDelta(t, 1000, detail.TotalInvested, 1e-9)
	assert.InDelta(t, 1500, detail.CurrentValue, 1e-9)
	assert.InDelta(t, 500, detail.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 50, detail.PnLPercent, 1e-9)

	t.Run("missing position", func(t *testing.T) {
		other := f.newStock(t, "Other Corp", "OTHR", 10)
		_, err := svc.Detail(ctx(), acct.ID, other.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPositionServicePortfolio(t *testing.T) {
	f := newFixture(t)
	trades := f.trades()
	svc := f.positionsSvc()
	acct := f.newAccount(t, "ada", "Main")
	winner := f.newStock(t, "Acme Corp", "ACME", 100)
	loser := f.newStock(t, "Globex", "GLBX", 180)

	_, err := trades.Deposit(ctx(), acct.ID, 10_000, "")
	require.NoError(t, err)
	_, err = trades.BuyStock(ctx(), acct.ID, winner.ID, 10, 100, "")
	require.NoError(t, err)
	_, err = trades.BuyStock(ctx(), acct.ID, loser.ID, 5, 200, "")
	require.NoError(t, err)

	// Winner has a live cached price; loser falls back to its stored price.
	require.NoError(t, f.prices.SetPrice(ctx(), winner.ID, 150, time.Now().UTC()))

	summary, err := svc.Portfolio(ctx(), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalPositions)
	assert.InDelta(t, 2000, summary.TotalInvested, 1e-9)
	assert.InDelta(t, 2400, summary.CurrentValue, 1e-9) // 1500 + 5*180
	assert.InDelta(t, 400, summary.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 20, summary.PnLPercent, 1e-9)
	assert.False(t, summary.CalculatedAt.IsZero())

	require.NotNil(t, summary.BestPerformer)
	require.NotNil(t, summary.WorstPerformer)
	assert.Equal(t, winner.ID, summary.BestPerformer.StockID)
	assert.InDelta(t, 50, summary.BestPerformer.PnLPercent, 1e-9)
	assert.Equal(t, loser.ID, summary.WorstPerformer.StockID)
	assert.InDelta(t, -10, summary.WorstPerformer.PnLPercent, 1e-9)
}

func TestPositionServicePortfolioEmpty(t *testing.T) {
	f := newFixture(t)
	svc := f.positionsSvc()
	acct := f.newAccount(t, "ada", "Main")

	summary, err := svc.Portfolio(ctx(), acct.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalPositions)
	assert.Empty(t, summary.Positions)
	assert.Nil(t, summary.BestPerformer)
	assert.Nil(t, summary.WorstPerformer)
}

func TestPositionServiceHistory(t *testing.T) {
	f := newFixture(t)
	trades := f.trades()
	svc := f.positionsSvc()
	acct := f.newAccount(t, "ada", "Main")
	stock := f.newStock(t, "Acme Corp", "ACME", 100)

	_, err := trades.Deposit(ctx(), acct.ID, 10_000, "")
	require.NoError(t, err)
	_, err = trades.BuyStock(ctx(), acct.ID, stock.ID, 10, 100, "")
	require.NoError(t, err)
	_, err = trades.BuyStock(ctx(), acct.ID, stock.ID, 10, 200, "")
	require.NoError(t, err)
	_, err = trades.SellStock(ctx(), acct.ID, stock.ID, 5, 300, "")
	require.NoError(t, err)

	history, err := svc.History(ctx(), acct.ID, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", history.StockName)
	assert.Len(t, history.Trades, 3)
	assert.InDelta(t, 20, history.TotalBought, 1e-9)
	assert.InDelta(t, 5, history.TotalSold, 1e-9)
	assert.InDelta(t, 15, history.CurrentQuantity, 1e-9)
	assert.InDelta(t, 150, history.AveragePurchase, 1e-9)
}

func TestPositionServiceHistoryAfterFullSell(t *testing.T) {
	f := newFixture(t)
	trades := f.trades()
	svc := f.positionsSvc()
	acct := f.newAccount(t, "ada", "Main")
	stock := f.newStock(t, "Acme Corp", "ACME", 100)

	_, err := trades.Deposit(ctx(), acct.ID, 1000, "")
	require.NoError(t, err)
	_, err = trades.BuyStock(ctx(), acct.ID, stock.ID, 10, 100, "")
	require.NoError(t, err)
	_, err = trades.SellStock(ctx(), acct.ID, stock.ID, 10, 120, "")
	require.NoError(t, err)

	// The position row is gone but the trade record survives.
	history, err := svc.History(ctx(), acct.ID, stock.ID)
	require.NoError(t, err)
	assert.Len(t, history.Trades, 2)
	assert.InDelta(t, 10, history.TotalBought, 1e-9)
	assert.InDelta(t, 10, history.TotalSold, 1e-9)
	assert.Zero(t, history.CurrentQuantity)
	assert.Zero(t, history.AveragePurchase)
}

func TestPositionServicePerformance(t *testing.T) {
	f := newFixture(t)
	trades := f.trades()
	svc := f.positionsSvc()
	acct := f.newAccount(t, "ada", "Main")
	stock := f.newStock(t, "Acme Corp", "ACME", 100)

	_, err := trades.Deposit(ctx(), acct.ID, 1000, "")
	require.NoError(t, err)
	_, err = trades.BuyStock(ctx(), acct.ID, stock.ID, 10, 100, "")
	require.NoError(t, err)
	require.NoError(t, f.prices.SetPrice(ctx(), stock.ID, 120, time.Now().UTC()))

	perf, err := svc.Performance(ctx(), acct.ID, stock.ID)
	require.NoError(t, err)
	assert.InDelta(t, 200, perf.TotalReturn, 1e-9)
	assert.InDelta(t, 20, perf.TotalReturnPct, 1e-9)
	assert.Equal(t, 0, perf.DaysHeld)
	assert.False(t, perf.FirstPurchaseDate.IsZero())
}
