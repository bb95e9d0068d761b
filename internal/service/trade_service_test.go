package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memcache "github.com/mvannucci/paperbroker/internal/cache/memory"
	"github.com/mvannucci/paperbroker/internal/domain"
	memstore "github.com/mvannucci/paperbroker/internal/store/memory"
)

// fixture wires the services against the in-memory store and caches.
type fixture struct {
	store  *memstore.Store
	prices *memcache.PriceCache
	bus    *memcache.SignalBus
	logger *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		store:  memstore.New(),
		prices: memcache.NewPriceCache(),
		bus:    memcache.NewSignalBus(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (f *fixture) trades() *TradeService {
	return NewTradeService(f.store.Ledger(), f.store.Accounts(), f.store.Stocks(), f.bus, f.logger)
}

func (f *fixture) positionsSvc() *PositionService {
	return NewPositionService(f.store.Positions(), f.store.Stocks(), f.store.Ledger(), f.prices, f.logger)
}

func (f *fixture) newAccount(t *testing.T, userName, accountName string) domain.Account {
	t.Helper()
	ctx := context.Background()
	user, err := f.store.Users().Create(ctx, domain.User{
		Name:  userName,
		Email: userName + "@example.com",
	})
	require.NoError(t, err)
	acct, err := f.store.Accounts().Create(ctx, domain.Account{UserID: user.ID, Name: accountName})
	require.NoError(t, err)
	return acct
}

func (f *fixture) newStock(t *testing.T, name, symbol string, lastPrice float64) domain.Stock {
	t.Helper()
	stock, err := f.store.Stocks().Create(ctx(), domain.Stock{
		Name: name, Symbol: symbol, LastPrice: lastPrice,
	})
	require.NoError(t, err)
	return stock
}

func ctx() context.Context { return context.Background() }

func TestTradeServiceCashFlow(t *testing.T) {
	f := newFixture(t)
	svc := f.trades()
	acct := f.newAccount(t, "ada", "Main")

	_, err := svc.Deposit(ctx(), acct.ID, 1000, "initial funding")
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx(), acct.ID, 300, "")
	require.NoError(t, err)

	bal, err := svc.Balance(ctx(), acct.ID)
	require.NoError(t, err)
	assert.InDelta(t, 700, bal, 1e-9)

	t.Run("unknown account", func(t *testing.T) {
		_, err := svc.Deposit(ctx(), 999, 10, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("overdraw surfaces the typed error", func(t *testing.T) {
		_, err := svc.Withdraw(ctx(), acct.ID, 5000, "")
		require.Error(t, err)
		var fundsErr *domain.InsufficientFundsError
		require.ErrorAs(t, err, &fundsErr)
		assert.InDelta(t, 700, fundsErr.Available, 1e-9)
	})
}

func TestTradeServiceBuySellFlow(t *testing.T) {
	f := newFixture(t)
	svc := f.trades()
	acct := f.newAccount(t, "ada", "Main")
	stock := f.newStock(t, "Acme Corp", "ACME", 100)

	_, err := svc.Deposit(ctx(), acct.ID, 10_000, "")
	require.NoError(t, err)

	ev, err := svc.BuyStock(ctx(), acct.ID, stock.ID, 10, 100, "")
	require.NoError(t, err)
	assert.InDelta(t, 1000, ev.Amount, 1e-9, "amount is quantity times price")

	_, err = svc.BuyStock(ctx(), acct.ID, stock.ID, 10, 200, "")
	require.NoError(t, err)

	pos, err := f.store.Positions().Get(ctx(), acct.ID, stock.ID)
	require.NoError(t, err)
	assert.InDelta(t, 20, pos.Quantity, 1e-9)
	assert.InDelta(t, 150, pos.AverageCost, 1e-9)

	_, err = svc.SellStock(ctx(), acct.ID, stock.ID, 5, 300, "taking profit")
	require.NoError(t, err)

	pos, err = f.store.Positions().Get(ctx(), acct.ID, stock.ID)
	require.NoError(t, err)
	assert.InDelta(t, 15, pos.Quantity, 1e-9)
	assert.InDelta(t, 150, pos.AverageCost, 1e-9)

	// 10000 - 1000 - 2000 + 1500
	bal, err := svc.Balance(ctx(), acct.ID)
	require.NoError(t, err)
	assert.InDelta(t, 8500, bal, 1e-9)

	t.Run("unknown stock", func(t *testing.T) {
		_, err := svc.BuyStock(ctx(), acct.ID, 999, 1, 10, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("oversell", func(t *testing.T) {
		_, err := svc.SellStock(ctx(), acct.ID, stock.ID, 100, 300, "")
		require.Error(t, err)
		var sharesErr *domain.InsufficientSharesError
		require.ErrorAs(t, err, &sharesErr)
		assert.InDelta(t, 15, sharesErr.Available, 1e-9)
	})
}

func TestTradeServiceTransfer(t *testing.T) {
	f := newFixture(t)
	svc := f.trades()
	from := f.newAccount(t, "ada", "Main")
	to := f.newAccount(t, "bob", "Savings")

	_, err := svc.Deposit(ctx(), from.ID, 1000, "")
	require.NoError(t, err)

	receipt, err := svc.Transfer(ctx(), from.ID, to.ID, 250, "rent")
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.TransferID)
	assert.Equal(t, "Main", receipt.FromAccountName)
	assert.Equal(t, "Savings", receipt.ToAccountName)
	assert.InDelta(t, 250, receipt.Amount, 1e-9)
	assert.False(t, receipt.Timestamp.IsZero())

	fromBal, err := svc.Balance(ctx(), from.ID)
	require.NoError(t, err)
	toBal, err := svc.Balance(ctx(), to.ID)
	require.NoError(t, err)
	assert.InDelta(t, 750, fromBal, 1e-9)
	assert.InDelta(t, 250, toBal, 1e-9)

	t.Run("both sides resolve the transfer", func(t *testing.T) {
		outgoing, err := svc.ListTransfers(ctx(), from.ID)
		require.NoError(t, err)
		require.Len(t, outgoing, 1)
		assert.Equal(t, "outgoing", outgoing[0].Direction)
		assert.Equal(t, to.ID, outgoing[0].Counterparty)
		assert.Equal(t, receipt.TransferID, outgoing[0].TransferID)

		incoming, err := svc.ListTransfers(ctx(), to.ID)
		require.NoError(t, err)
		require.Len(t, incoming, 1)
		assert.Equal(t, "incoming", incoming[0].Direction)
		assert.Equal(t, from.ID, incoming[0].Counterparty)
		assert.Equal(t, receipt.TransferID, incoming[0].TransferID)
	})

	t.Run("same account", func(t *testing.T) {
		_, err := svc.Transfer(ctx(), from.ID, from.ID, 10, "")
		assert.ErrorIs(t, err, domain.ErrDifferentAccountsRequired)
	})
}

func TestTradeServiceDetailedBalance(t *testing.T) {
	f := newFixture(t)
	svc := f.trades()
	acct := f.newAccount(t, "ada", "Main")
	stock := f.newStock(t, "Acme Corp", "ACME", 100)

	_, err := svc.Deposit(ctx(), acct.ID, 1000.555, "")
	require.NoError(t, err)
	_, err = svc.BuyStock(ctx(), acct.ID, stock.ID, 3, 33.333, "")
	require.NoError(t, err)

	breakdown, err := svc.DetailedBalance(ctx(), acct.ID)
	require.NoError(t, err)

	raw, err := svc.Balance(ctx(), acct.ID)
	require.NoError(t, err)
	assert.InDelta(t, raw, breakdown.Balance, 1e-9, "raw balance stays unrounded")
	assert.InDelta(t, 1000.56, breakdown.Deposits, 1e-9)
	assert.InDelta(t, 100, breakdown.StockPurchases, 1e-9)
}

func TestTradeServiceListAccountTrades(t *testing.T) {
	f := newFixture(t)
	svc := f.trades()
	acct := f.newAccount(t, "ada", "Main")

	_, err := svc.Deposit(ctx(), acct.ID, 100, "")
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx(), acct.ID, 40, "")
	require.NoError(t, err)

	events, err := svc.ListAccountTrades(ctx(), acct.ID, domain.EventCashWithdraw, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCashWithdraw, events[0].Kind)

	_, err = svc.ListAccountTrades(ctx(), acct.ID, "BOGUS", domain.ListOpts{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTrade)
}

func TestTradeServicePublishesCommittedEvents(t *testing.T) {
	f := newFixture(t)
	svc := f.trades()
	acct := f.newAccount(t, "ada", "Main")

	subCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := f.bus.Subscribe(subCtx, TradeChannel)
	require.NoError(t, err)

	ev, err := svc.Deposit(ctx(), acct.ID, 100, "")
	require.NoError(t, err)

	select {
	case payload := <-ch:
		var msg map[string]any
		require.NoError(t, json.Unmarshal(payload, &msg))
		assert.Equal(t, "trade_committed", msg["event"])
		assert.EqualValues(t, ev.ID, msg["event_id"])
		assert.Equal(t, string(domain.EventCashDeposit), msg["type"])
	case <-time.After(time.Second):
		t.Fatal("no event published on the trade channel")
	}
}
