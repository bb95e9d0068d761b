package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(kind EventKind, amount float64) LedgerEvent {
	e := LedgerEvent{AccountID: 1, Kind: kind, Amount: amount}
	if kind.IsStock() {
		stockID := int64(1)
		qty := 1.0
		price := amount
		e.StockID = &stockID
		e.Quantity = &qty
		e.Price = &price
	}
	if kind.IsTransfer() {
		other := int64(2)
		e.CounterpartyID = &other
	}
	return e
}

func TestBalanceOf(t *testing.T) {
	tests := []struct {
		name   string
		events []LedgerEvent
		want   float64
	}{
		{"empty ledger", nil, 0},
		{"single deposit", []LedgerEvent{ev(EventCashDeposit, 1000)}, 1000},
		{
			"deposit then full buy",
			[]LedgerEvent{ev(EventCashDeposit, 1000), ev(EventStockBuy, 1000)},
			0,
		},
		{
			"all kinds",
			[]LedgerEvent{
				ev(EventCashDeposit, 500),
				ev(EventCashWithdraw, 100),
				ev(EventStockBuy, 200),
				ev(EventStockSell, 150),
				ev(EventTransferIn, 50),
				ev(EventTransferOut, 25),
			},
			375,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BalanceOf(tt.events), 1e-9)
		})
	}
}

func TestDetailedBalanceRoundTrip(t *testing.T) {
	events := []LedgerEvent{
		ev(EventCashDeposit, 1000),
		ev(EventCashDeposit, 250.50),
		ev(EventCashWithdraw, 100.25),
		ev(EventStockBuy, 400),
		ev(EventStockSell, 175.75),
		ev(EventTransferIn, 60),
		ev(EventTransferOut, 30.10),
	}

	b := DetailedBalanceOf(1, events)

	// The raw balance must equal the fold over the same events and the sum
	// of the category subtotals.
	assert.InDelta(t, BalanceOf(events), b.Balance, 1e-9)
	sum := b.Deposits + b.StockSales + b.TransfersIn -
		b.Withdrawals - b.StockPurchases - b.TransfersOut
	assert.InDelta(t, b.Balance, sum, 1e-9)

	assert.InDelta(t, 1250.50, b.Deposits, 1e-9)
	assert.InDelta(t, 100.25, b.Withdrawals, 1e-9)
	assert.InDelta(t, 400.0, b.StockPurchases, 1e-9)
	assert.InDelta(t, 175.75, b.StockSales, 1e-9)
	assert.InDelta(t, 60.0, b.TransfersIn, 1e-9)
	assert.InDelta(t, 30.10, b.TransfersOut, 1e-9)
}

func TestDetailedBalanceRoundsSubtotalsOnly(t *testing.T) {
	events := []LedgerEvent{
		ev(EventCashDeposit, 10.111),
		ev(EventCashDeposit, 10.112),
	}
	b := DetailedBalanceOf(1, events)

	// Display subtotal is rounded to cents, the raw balance is not.
	assert.InDelta(t, 20.22, b.Deposits, 1e-9)
	assert.InDelta(t, 20.223, b.Balance, 1e-9)
}

func TestLedgerEventValidate(t *testing.T) {
	stockID := int64(7)
	qty := 10.0
	price := 25.0
	other := int64(3)

	t.Run("valid stock buy", func(t *testing.T) {
		e := LedgerEvent{
			AccountID: 1, Kind: EventStockBuy, Amount: qty * price,
			StockID: &stockID, Quantity: &qty, Price: &price,
		}
		require.NoError(t, e.Validate())
	})

	t.Run("valid transfer out", func(t *testing.T) {
		e := LedgerEvent{AccountID: 1, Kind: EventTransferOut, Amount: 50, CounterpartyID: &other}
		require.NoError(t, e.Validate())
	})

	tests := []struct {
		name string
		e    LedgerEvent
	}{
		{"unknown kind", LedgerEvent{Kind: "BONUS", Amount: 1}},
		{"zero amount", LedgerEvent{Kind: EventCashDeposit, Amount: 0}},
		{"negative amount", LedgerEvent{Kind: EventCashDeposit, Amount: -5}},
		{"stock buy missing fields", LedgerEvent{Kind: EventStockBuy, Amount: 100}},
		{"deposit with stock fields", LedgerEvent{Kind: EventCashDeposit, Amount: 100, StockID: &stockID}},
		{"transfer missing counterparty", LedgerEvent{Kind: EventTransferIn, Amount: 100}},
		{"deposit with counterparty", LedgerEvent{Kind: EventCashDeposit, Amount: 100, CounterpartyID: &other}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.e.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTrade)
		})
	}
}

func TestEventKindSign(t *testing.T) {
	assert.Equal(t, 1.0, EventCashDeposit.Sign())
	assert.Equal(t, 1.0, EventStockSell.Sign())
	assert.Equal(t, 1.0, EventTransferIn.Sign())
	assert.Equal(t, -1.0, EventCashWithdraw.Sign())
	assert.Equal(t, -1.0, EventStockBuy.Sign())
	assert.Equal(t, -1.0, EventTransferOut.Sign())
}
