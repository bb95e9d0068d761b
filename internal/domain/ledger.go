package domain

import (
	"math"
	"time"
)

// EventKind identifies the type of a ledger event.
type EventKind string

const (
	EventCashDeposit  EventKind = "CASH_DEPOSIT"
	EventCashWithdraw EventKind = "CASH_WITHDRAW"
	EventStockBuy     EventKind = "STOCK_BUY"
	EventStockSell    EventKind = "STOCK_SELL"
	EventTransferOut  EventKind = "TRANSFER_OUT"
	EventTransferIn   EventKind = "TRANSFER_IN"
)

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventCashDeposit, EventCashWithdraw, EventStockBuy, EventStockSell,
		EventTransferOut, EventTransferIn:
		return true
	}
	return false
}

// IsStock reports whether the kind carries stock id / quantity / price.
func (k EventKind) IsStock() bool {
	return k == EventStockBuy || k == EventStockSell
}

// IsTransfer reports whether the kind carries a counterparty account.
func (k EventKind) IsTransfer() bool {
	return k == EventTransferOut || k == EventTransferIn
}

// Sign returns +1 for kinds that add cash to the account and -1 for kinds
// that remove cash.
func (k EventKind) Sign() float64 {
	switch k {
	case EventCashDeposit, EventStockSell, EventTransferIn:
		return 1
	case EventCashWithdraw, EventStockBuy, EventTransferOut:
		return -1
	}
	return 0
}

// LedgerEvent is one immutable record of a cash or stock movement. Events are
// created exactly once by the trade/transfer commit path and never updated or
// deleted afterwards (except by account cascade).
type LedgerEvent struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Kind      EventKind `json:"type"`
	Amount    float64   `json:"amount"`

	// Set iff Kind is a stock kind.
	StockID  *int64   `json:"stock_id,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	Price    *float64 `json:"price_per_share,omitempty"`

	// Set iff Kind is a transfer kind. Both legs of a transfer share the
	// same group id.
	CounterpartyID  *int64  `json:"counterparty_account_id,omitempty"`
	TransferGroupID *string `json:"transfer_id,omitempty"`

	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

// Validate checks the structural invariants of the event: positive amount,
// kind-dependent presence of the stock and transfer fields.
func (e LedgerEvent) Validate() error {
	if !e.Kind.Valid() {
		return &InvalidTradeError{Reason: "unknown event kind " + string(e.Kind)}
	}
	if e.Amount <= 0 {
		return &InvalidTradeError{Reason: "amount must be positive"}
	}
	if e.Kind.IsStock() {
		if e.StockID == nil || e.Quantity == nil || e.Price == nil {
			return &InvalidTradeError{Reason: "stock trades require stock id, quantity and price"}
		}
		if *e.Quantity <= 0 {
			return &InvalidTradeError{Reason: "quantity must be positive"}
		}
		if *e.Price <= 0 {
			return &InvalidTradeError{Reason: "price must be positive"}
		}
	} else if e.StockID != nil || e.Quantity != nil || e.Price != nil {
		return &InvalidTradeError{Reason: "stock fields are only valid on stock trades"}
	}
	if e.Kind.IsTransfer() {
		if e.CounterpartyID == nil {
			return &InvalidTradeError{Reason: "transfers require a counterparty account"}
		}
	} else if e.CounterpartyID != nil {
		return &InvalidTradeError{Reason: "counterparty is only valid on transfers"}
	}
	return nil
}

// BalanceOf folds a sequence of ledger events into the account's cash
// balance. The fold is pure and order-independent: deposits, stock sales and
// incoming transfers add, withdrawals, stock purchases and outgoing transfers
// subtract.
func BalanceOf(events []LedgerEvent) float64 {
	var balance float64
	for _, e := range events {
		balance += e.Kind.Sign() * e.Amount
	}
	return balance
}

// BalanceBreakdown reports the per-category subtotals behind a balance.
// Subtotals are rounded to two decimals for display; Balance is the raw,
// unrounded figure used for sufficiency checks.
type BalanceBreakdown struct {
	AccountID      int64   `json:"account_id"`
	Deposits       float64 `json:"total_deposits"`
	Withdrawals    float64 `json:"total_withdrawals"`
	StockPurchases float64 `json:"total_stock_purchases"`
	StockSales     float64 `json:"total_stock_sales"`
	TransfersIn    float64 `json:"total_transfers_in"`
	TransfersOut   float64 `json:"total_transfers_out"`
	Balance        float64 `json:"balance"`
}

// DetailedBalanceOf folds events into a per-category breakdown. The raw
// balance always equals deposits + sales + transfers in - withdrawals -
// purchases - transfers out computed from the same events.
func DetailedBalanceOf(accountID int64, events []LedgerEvent) BalanceBreakdown {
	b := BalanceBreakdown{AccountID: accountID}
	for _, e := range events {
		switch e.Kind {
		case EventCashDeposit:
			b.Deposits += e.Amount
		case EventCashWithdraw:
			b.Withdrawals += e.Amount
		case EventStockBuy:
			b.StockPurchases += e.Amount
		case EventStockSell:
			b.StockSales += e.Amount
		case EventTransferIn:
			b.TransfersIn += e.Amount
		case EventTransferOut:
			b.TransfersOut += e.Amount
		}
	}
	b.Balance = b.Deposits + b.StockSales + b.TransfersIn -
		b.Withdrawals - b.StockPurchases - b.TransfersOut

	b.Deposits = Round2(b.Deposits)
	b.Withdrawals = Round2(b.Withdrawals)
	b.StockPurchases = Round2(b.StockPurchases)
	b.StockSales = Round2(b.StockSales)
	b.TransfersIn = Round2(b.TransfersIn)
	b.TransfersOut = Round2(b.TransfersOut)
	return b
}

// Round2 rounds a monetary value to two decimal places for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
