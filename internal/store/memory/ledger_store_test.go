package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// seed creates a user with two accounts and one stock, returning the store
// and the created ids.
func seed(t *testing.T) (*Store, domain.Account, domain.Account, domain.Stock) {
	t.Helper()
	ctx := context.Background()
	s := New()

	user, err := s.Users().Create(ctx, domain.User{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	main, err := s.Accounts().Create(ctx, domain.Account{UserID: user.ID, Name: "Main"})
	require.NoError(t, err)
	savings, err := s.Accounts().Create(ctx, domain.Account{UserID: user.ID, Name: "Savings"})
	require.NoError(t, err)

	stock, err := s.Stocks().Create(ctx, domain.Stock{Name: "Acme Corp", Symbol: "ACME", LastPrice: 100})
	require.NoError(t, err)

	return s, main, savings, stock
}

func deposit(t *testing.T, s *Store, accountID int64, amount float64) {
	t.Helper()
	_, err := s.Ledger().CommitCash(context.Background(), domain.LedgerEvent{
		AccountID: accountID,
		Kind:      domain.EventCashDeposit,
		Amount:    amount,
	})
	require.NoError(t, err)
}

func buy(t *testing.T, s *Store, accountID, stockID int64, qty, price float64) domain.LedgerEvent {
	t.Helper()
	ev, err := s.Ledger().CommitStockTrade(context.Background(), domain.LedgerEvent{
		AccountID: accountID,
		Kind:      domain.EventStockBuy,
		Amount:    qty * price,
		StockID:   &stockID,
		Quantity:  &qty,
		Price:     &price,
	})
	require.NoError(t, err)
	return ev
}

func balance(t *testing.T, s *Store, accountID int64) float64 {
	t.Helper()
	events, err := s.Ledger().ListByAccount(context.Background(), accountID, "", domain.ListOpts{})
	require.NoError(t, err)
	return domain.BalanceOf(events)
}

func TestCommitCash(t *testing.T) {
	ctx := context.Background()
	s, acct, _, _ := seed(t)

	deposit(t, s, acct.ID, 1000)
	assert.InDelta(t, 1000, balance(t, s, acct.ID), 1e-9)

	_, err := s.Ledger().CommitCash(ctx, domain.LedgerEvent{
		AccountID: acct.ID, Kind: domain.EventCashWithdraw, Amount: 400,
	})
	require.NoError(t, err)
	assert.InDelta(t, 600, balance(t, s, acct.ID), 1e-9)

	t.Run("overdraw is rejected", func(t *testing.T) {
		_, err := s.Ledger().CommitCash(ctx, domain.LedgerEvent{
			AccountID: acct.ID, Kind: domain.EventCashWithdraw, Amount: 600.01,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

		var fundsErr *domain.InsufficientFundsError
		require.ErrorAs(t, err, &fundsErr)
		assert.Equal(t, acct.ID, fundsErr.AccountID)
		assert.InDelta(t, 600.01, fundsErr.Required, 1e-9)
		assert.InDelta(t, 600, fundsErr.Available, 1e-9)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := s.Ledger().CommitCash(ctx, domain.LedgerEvent{
			AccountID: 999, Kind: domain.EventCashDeposit, Amount: 1,
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := s.Ledger().CommitCash(ctx, domain.LedgerEvent{
			AccountID: acct.ID, Kind: domain.EventCashDeposit, Amount: 0,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTrade)
	})

	t.Run("stock kind rejected", func(t *testing.T) {
		stockID := int64(1)
		qty, price := 1.0, 1.0
		_, err := s.Ledger().CommitCash(ctx, domain.LedgerEvent{
			AccountID: acct.ID, Kind: domain.EventStockBuy, Amount: 1,
			StockID: &stockID, Quantity: &qty, Price: &price,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTrade)
	})
}

func TestCommitStockTradeAveragesBuys(t *testing.T) {
	ctx := context.Background()
	s, acct, _, stock := seed(t)
	deposit(t, s, acct.ID, 10_000)

	buy(t, s, acct.ID, stock.ID, 10, 100)
	buy(t, s, acct.ID, stock.ID, 10, 200)

	pos, err := s.Positions().Get(ctx, acct.ID, stock.ID)
	require.NoError(t, err)
	assert.InDelta(t, 20, pos.Quantity, 1e-9)
	assert.InDelta(t, 150, pos.AverageCost, 1e-9)

	// 10000 - 1000 - 2000
	assert.InDelta(t, 7000, balance(t, s, acct.ID), 1e-9)
}

func TestCommitStockTradeSellKeepsAverage(t *testing.T) {
	ctx := context.Background()
	s, acct, _, stock := seed(t)
	deposit(t, s, acct.ID, 10_000)
	buy(t, s, acct.ID, stock.ID, 10, 100)
	buy(t, s, acct.ID, stock.ID, 10, 200)

	qty, price := 5.0, 300.0
	_, err := s.Ledger().CommitStockTrade(ctx, domain.LedgerEvent{
		AccountID: acct.ID, Kind: domain.EventStockSell, Amount: qty * price,
		StockID: &stock.ID, Quantity: &qty, Price: &price,
	})
	require.NoError(t, err)

	pos, err := s.Positions().Get(ctx, acct.ID, stock.ID)
	require.NoError(t, err)
	assert.InDelta(t, 15, pos.Quantity, 1e-9)
	assert.InDelta(t, 150, pos.AverageCost, 1e-9, "sells never move the average cost")
}

func TestCommitStockTradeDustRemoval(t *testing.T) {
	ctx := context.Background()
	s, acct, _, stock := seed(t)
	deposit(t, s, acct.ID, 1000)
	buy(t, s, acct.ID, stock.ID, 10, 100)

	qty, price := 10.0, 120.0
	_, err := s.Ledger().CommitStockTrade(ctx, domain.LedgerEvent{
		AccountID: acct.ID, Kind: domain.EventStockSell, Amount: qty * price,
		StockID: &stock.ID, Quantity: &qty, Price: &price,
	})
	require.NoError(t, err)

	_, err = s.Positions().Get(ctx, acct.ID, stock.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "fully sold position is deleted")
}

func TestCommitStockTradeInsufficient(t *testing.T) {
	ctx := context.Background()
	s, acct, _, stock := seed(t)
	deposit(t, s, acct.ID, 500)

	t.Run("buy beyond balance", func(t *testing.T) {
		qty, price := 10.0, 100.0
		_, err := s.Ledger().CommitStockTrade(ctx, domain.LedgerEvent{
			AccountID: acct.ID, Kind: domain.EventStockBuy, Amount: qty * price,
			StockID: &stock.ID, Quantity: &qty, Price: &price,
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	})

	t.Run("sell without position", func(t *testing.T) {
		qty, price := 1.0, 100.0
		_, err := s.Ledger().CommitStockTrade(ctx, domain.LedgerEvent{
			AccountID: acct.ID, Kind: domain.EventStockSell, Amount: qty * price,
			StockID: &stock.ID, Quantity: &qty, Price: &price,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInsufficientShares)

		var sharesErr *domain.InsufficientSharesError
		require.ErrorAs(t, err, &sharesErr)
		assert.Zero(t, sharesErr.Available)
	})

	t.Run("sell more than held", func(t *testing.T) {
		buy(t, s, acct.ID, stock.ID, 3, 100)
		qty, price := 4.0, 100.0
		_, err := s.Ledger().CommitStockTrade(ctx, domain.LedgerEvent{
			AccountID: acct.ID, Kind: domain.EventStockSell, Amount: qty * price,
			StockID: &stock.ID, Quantity: &qty, Price: &price,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInsufficientShares)

		var sharesErr *domain.InsufficientSharesError
		require.ErrorAs(t, err, &sharesErr)
		assert.InDelta(t, 3, sharesErr.Available, 1e-9)
	})
}

func TestCommitTransfer(t *testing.T) {
	ctx := context.Background()
	s, from, to, _ := seed(t)
	deposit(t, s, from.ID, 1000)

	groupID := "pair-1"
	out := domain.LedgerEvent{
		AccountID: from.ID, Kind: domain.EventTransferOut, Amount: 250,
		CounterpartyID: &to.ID, TransferGroupID: &groupID,
	}
	in := domain.LedgerEvent{
		AccountID: to.ID, Kind: domain.EventTransferIn, Amount: 250,
		CounterpartyID: &from.ID, TransferGroupID: &groupID,
	}

	committedOut, committedIn, err := s.Ledger().CommitTransfer(ctx, out, in)
	require.NoError(t, err)
	assert.Less(t, committedOut.ID, committedIn.ID)
	assert.Equal(t, groupID, *committedOut.TransferGroupID)
	assert.Equal(t, groupID, *committedIn.TransferGroupID)

	assert.InDelta(t, 750, balance(t, s, from.ID), 1e-9)
	assert.InDelta(t, 250, balance(t, s, to.ID), 1e-9)

	t.Run("same account rejected", func(t *testing.T) {
		badOut := out
		badIn := in
		badIn.AccountID = from.ID
		badIn.CounterpartyID = &from.ID
		badOut.CounterpartyID = &from.ID
		_, _, err := s.Ledger().CommitTransfer(ctx, badOut, badIn)
		assert.ErrorIs(t, err, domain.ErrDifferentAccountsRequired)
	})

	t.Run("insufficient funds commits neither leg", func(t *testing.T) {
		before, err := s.Ledger().ListByAccount(ctx, to.ID, "", domain.ListOpts{})
		require.NoError(t, err)

		bigOut := out
		bigOut.Amount = 10_000
		bigIn := in
		bigIn.Amount = 10_000
		_, _, err = s.Ledger().CommitTransfer(ctx, bigOut, bigIn)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

		after, err := s.Ledger().ListByAccount(ctx, to.ID, "", domain.ListOpts{})
		require.NoError(t, err)
		assert.Len(t, after, len(before), "failed transfer must not append the IN leg")
	})
}

func TestListByAccount(t *testing.T) {
	ctx := context.Background()
	s, acct, _, stock := seed(t)
	deposit(t, s, acct.ID, 1000)
	buy(t, s, acct.ID, stock.ID, 2, 100)
	deposit(t, s, acct.ID, 50)

	t.Run("newest first", func(t *testing.T) {
		events, err := s.Ledger().ListByAccount(ctx, acct.ID, "", domain.ListOpts{})
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Greater(t, events[0].ID, events[1].ID)
		assert.Greater(t, events[1].ID, events[2].ID)
	})

	t.Run("kind filter", func(t *testing.T) {
		events, err := s.Ledger().ListByAccount(ctx, acct.ID, domain.EventStockBuy, domain.ListOpts{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventStockBuy, events[0].Kind)
	})

	t.Run("pagination", func(t *testing.T) {
		events, err := s.Ledger().ListByAccount(ctx, acct.ID, "", domain.ListOpts{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := s.Ledger().ListByAccount(ctx, 999, "", domain.ListOpts{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestListBefore(t *testing.T) {
	ctx := context.Background()
	s, acct, _, _ := seed(t)
	deposit(t, s, acct.ID, 100)
	deposit(t, s, acct.ID, 200)

	events, err := s.Ledger().ListBefore(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Less(t, events[0].ID, events[1].ID, "export order is oldest first")

	events, err = s.Ledger().ListBefore(ctx, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAccountDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s, acct, other, stock := seed(t)
	deposit(t, s, acct.ID, 1000)
	deposit(t, s, other.ID, 1000)
	buy(t, s, acct.ID, stock.ID, 2, 100)

	groupID := "pair-2"
	out := domain.LedgerEvent{
		AccountID: other.ID, Kind: domain.EventTransferOut, Amount: 100,
		CounterpartyID: &acct.ID, TransferGroupID: &groupID,
	}
	in := domain.LedgerEvent{
		AccountID: acct.ID, Kind: domain.EventTransferIn, Amount: 100,
		CounterpartyID: &other.ID, TransferGroupID: &groupID,
	}
	_, _, err := s.Ledger().CommitTransfer(ctx, out, in)
	require.NoError(t, err)

	require.NoError(t, s.Accounts().Delete(ctx, acct.ID))

	_, err = s.Accounts().GetByID(ctx, acct.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Ledger().ListByAccount(ctx, acct.ID, "", domain.ListOpts{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Positions().Get(ctx, acct.ID, stock.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The surviving account keeps its leg but loses the dangling
	// counterparty reference.
	events, err := s.Ledger().ListTransfers(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].CounterpartyID)
}

func TestConcurrentTradesSerialize(t *testing.T) {
	ctx := context.Background()
	s, acct, _, stock := seed(t)
	deposit(t, s, acct.ID, 100_000)

	const perPrice = 25
	var wg sync.WaitGroup
	for i := 0; i < perPrice*2; i++ {
		price := 10.0
		if i >= perPrice {
			price = 20.0
		}
		wg.Add(1)
		go func(price float64) {
			defer wg.Done()
			qty := 1.0
			_, err := s.Ledger().CommitStockTrade(ctx, domain.LedgerEvent{
				AccountID: acct.ID, Kind: domain.EventStockBuy, Amount: qty * price,
				StockID: &stock.ID, Quantity: &qty, Price: &price,
			})
			assert.NoError(t, err)
		}(price)
	}
	wg.Wait()

	pos, err := s.Positions().Get(ctx, acct.ID, stock.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50, pos.Quantity, 1e-9)
	assert.InDelta(t, 15, pos.AverageCost, 1e-9, "average is the weighted mean of all committed buys")

	// 100000 - 25*10 - 25*20
	assert.InDelta(t, 99_250, balance(t, s, acct.ID), 1e-9)
}

func TestConcurrentWithdrawalsCannotOverdraw(t *testing.T) {
	ctx := context.Background()
	s, acct, _, _ := seed(t)
	deposit(t, s, acct.ID, 100)

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Ledger().CommitCash(ctx, domain.LedgerEvent{
				AccountID: acct.ID, Kind: domain.EventCashWithdraw, Amount: 60,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 1, succeeded, "only one 60 withdrawal fits into 100")
	assert.InDelta(t, 40, balance(t, s, acct.ID), 1e-9)
}
