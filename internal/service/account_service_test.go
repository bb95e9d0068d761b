package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvannucci/paperbroker/internal/domain"
)

func (f *fixture) accountsSvc() *AccountService {
	return NewAccountService(
		f.store.Accounts(),
		f.store.Users(),
		f.store.Ledger(),
		f.store.Positions(),
		f.store.Stocks(),
		f.prices,
		f.logger,
	)
}

func TestAccountServiceCreate(t *testing.T) {
	f := newFixture(t)
	svc := f.accountsSvc()

	user, err := f.store.Users().Create(ctx(), domain.User{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	acct, err := svc.Create(ctx(), user.ID, "Main")
	require.NoError(t, err)
	assert.Equal(t, user.ID, acct.UserID)
	assert.Equal(t, "Main", acct.Name)

	t.Run("unknown owner", func(t *testing.T) {
		_, err := svc.Create(ctx(), 999, "Orphan")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAccountServiceUpdate(t *testing.T) {
	f := newFixture(t)
	svc := f.accountsSvc()
	acct := f.newAccount(t, "ada", "Main")

	name := "Renamed"
	updated, err := svc.Update(ctx(), acct.ID, domain.AccountPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	// An empty patch leaves the account untouched.
	same, err := svc.Update(ctx(), acct.ID, domain.AccountPatch{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", same.Name)
}

func TestAccountServiceSummary(t *testing.T) {
	f := newFixture(t)
	svc := f.accountsSvc()
	trades := f.trades()
	acct := f.newAccount(t, "ada", "Main")
	stock := f.newStock(t, "Acme Corp", "ACME", 100)

	_, err := trades.Deposit(ctx(), acct.ID, 10_000, "")
	require.NoError(t, err)
	_, err = trades.BuyStock(ctx(), acct.ID, stock.ID, 10, 100, "")
	require.NoError(t, err)
	require.NoError(t, f.prices.SetPrice(ctx(), stock.ID, 150, time.Now().UTC()))

	summary, err := svc.Summary(ctx(), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main", summary.AccountName)
	assert.InDelta(t, 9000, summary.CashBalance, 1e-9)
	assert.InDelta(t, 1500, summary.PortfolioValue, 1e-9)
	assert.InDelta(t, 10_500, summary.TotalAccountValue, 1e-9)
	assert.InDelta(t, 500, summary.UnrealizedPnL, 1e-9)
	assert.Equal(t, 1, summary.NumPositions)
}

func TestAccountServiceDelete(t *testing.T) {
	f := newFixture(t)
	svc := f.accountsSvc()
	trades := f.trades()
	acct := f.newAccount(t, "ada", "Main")

	_, err := trades.Deposit(ctx(), acct.ID, 100, "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx(), acct.ID))

	_, err = svc.Get(ctx(), acct.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = trades.Balance(ctx(), acct.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "balance of a deleted account is gone, not zero")
}
