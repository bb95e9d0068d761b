package domain

import "time"

// Stock is a traded instrument with a reference price. Price history is
// owned by an external feed; the ledger only reads the latest price.
type Stock struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Symbol    string    `json:"ticker,omitempty"`
	LastPrice float64   `json:"last_price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockPatch names exactly the mutable stock fields. Nil fields are left
// untouched.
type StockPatch struct {
	Name      *string
	Symbol    *string
	LastPrice *float64
}

// Empty reports whether the patch changes nothing.
func (p StockPatch) Empty() bool {
	return p.Name == nil && p.Symbol == nil && p.LastPrice == nil
}

// StockDetail is a stock together with holder statistics derived from the
// position table.
type StockDetail struct {
	Stock
	TotalHolders    int     `json:"total_holders"`
	TotalSharesHeld float64 `json:"total_shares_held"`
}
