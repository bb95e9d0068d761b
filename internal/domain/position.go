package domain

import "time"

// DustEpsilon is the quantity below which a position is considered empty.
// Sells that leave less than this behind delete the position instead of
// retaining a near-zero row.
const DustEpsilon = 1e-9

// Position is the current share holding and weighted-average cost basis for
// one (account, stock) pair. The pair is the primary key; there is never a
// surrogate id and never a zero-quantity row.
type Position struct {
	AccountID   int64     `json:"account_id"`
	StockID     int64     `json:"stock_id"`
	Quantity    float64   `json:"quantity"`
	AverageCost float64   `json:"average_purchase_price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WithBuy returns the position after buying quantity shares at pricePerShare,
// recomputing the average cost as the quantity-weighted mean of the existing
// basis and the new lot. quantity must be positive.
func (p Position) WithBuy(quantity, pricePerShare float64) Position {
	newQty := p.Quantity + quantity
	p.AverageCost = (p.Quantity*p.AverageCost + quantity*pricePerShare) / newQty
	p.Quantity = newQty
	return p
}

// WithSell returns the position after selling quantity shares. The average
// cost is unchanged by a sell. Callers must have verified sufficiency; the
// result may be dust, in which case the position is deleted by the store.
func (p Position) WithSell(quantity float64) Position {
	p.Quantity -= quantity
	return p
}

// IsDust reports whether the position's quantity has decayed to (near) zero.
func (p Position) IsDust() bool {
	return p.Quantity <= DustEpsilon
}

// Invested returns the cost basis of the position (quantity x average cost).
func (p Position) Invested() float64 {
	return p.Quantity * p.AverageCost
}
