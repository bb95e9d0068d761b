package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) feeds() *FeedService {
	return NewFeedService(
		f.store.Users(),
		f.store.Accounts(),
		f.store.Positions(),
		f.store.Stocks(),
		f.store.Ledger(),
		f.prices,
		f.logger,
	)
}

// seedFeed sets up two traders: ada holds only the winner stock, bob holds
// both. With no cached prices valuation falls back to the stored reference
// prices, giving ada +50% and bob +20%.
func seedFeed(t *testing.T, f *fixture) (winnerID, loserID int64) {
	t.Helper()
	trades := f.trades()

	ada := f.newAccount(t, "ada", "Ada Main")
	bob := f.newAccount(t, "bob", "Bob Main")
	winner := f.newStock(t, "Acme Corp", "ACME", 150)
	loser := f.newStock(t, "Globex", "GLBX", 90)

	_, err := trades.Deposit(ctx(), ada.ID, 10_000, "")
	require.NoError(t, err)
	_, err = trades.Deposit(ctx(), bob.ID, 10_000, "")
	require.NoError(t, err)

	_, err = trades.BuyStock(ctx(), ada.ID, winner.ID, 10, 100, "")
	require.NoError(t, err)
	_, err = trades.BuyStock(ctx(), bob.ID, winner.ID, 10, 100, "")
	require.NoError(t, err)
	_, err = trades.BuyStock(ctx(), bob.ID, loser.ID, 10, 100, "")
	require.NoError(t, err)

	return winner.ID, loser.ID
}

func TestFeedServiceTopTraders(t *testing.T) {
	f := newFixture(t)
	seedFeed(t, f)

	traders, err := f.feeds().TopTraders(ctx(), 10)
	require.NoError(t, err)
	require.Len(t, traders, 2)

	assert.Equal(t, "ada", traders[0].UserName)
	assert.InDelta(t, 50, traders[0].ReturnPercent, 1e-9)
	assert.InDelta(t, 1000, traders[0].TotalInvested, 1e-9)
	assert.InDelta(t, 1500, traders[0].CurrentValue, 1e-9)

	assert.Equal(t, "bob", traders[1].UserName)
	assert.InDelta(t, 20, traders[1].ReturnPercent, 1e-9)
	assert.Equal(t, 2, traders[1].TotalPositions)
}

func TestFeedServiceTopTradersExcludesIdleUsers(t *testing.T) {
	f := newFixture(t)
	seedFeed(t, f)
	idle := f.newAccount(t, "carol", "Carol Main")
	_, err := f.trades().Deposit(ctx(), idle.ID, 5000, "")
	require.NoError(t, err)

	traders, err := f.feeds().TopTraders(ctx(), 10)
	require.NoError(t, err)
	require.Len(t, traders, 2, "cash-only users carry no positions and are excluded")
	for _, tr := range traders {
		assert.NotEqual(t, "carol", tr.UserName)
	}
}

func TestFeedServiceTrendingStocks(t *testing.T) {
	f := newFixture(t)
	winnerID, loserID := seedFeed(t, f)

	trending, err := f.feeds().TrendingStocks(ctx(), time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, trending, 2)

	assert.Equal(t, winnerID, trending[0].StockID)
	assert.Equal(t, 2, trending[0].UniqueBuyers)
	assert.Equal(t, 2, trending[0].BuyCount)
	assert.InDelta(t, 20, trending[0].SharesBought, 1e-9)

	assert.Equal(t, loserID, trending[1].StockID)
	assert.Equal(t, 1, trending[1].UniqueBuyers)
}

func TestFeedServiceRecentTrades(t *testing.T) {
	f := newFixture(t)
	winnerID, _ := seedFeed(t, f)

	feed, err := f.feeds().RecentTrades(ctx(), time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, feed, 3)

	// Newest first; the last committed buy was bob's loser purchase.
	assert.Equal(t, "bob", feed[0].TraderName)
	assert.Equal(t, "bob", feed[1].TraderName)
	assert.Equal(t, winnerID, feed[1].StockID)
	assert.Equal(t, "ada", feed[2].TraderName)
	for _, item := range feed {
		assert.Positive(t, item.Quantity)
		assert.Positive(t, item.Price)
	}
}
