package domain

import "time"

// Account owns zero or more positions and an implicit cash balance. The
// balance is never stored; it is always recomputed from the account's ledger
// events. Deleting an account cascades to its positions and ledger events.
type Account struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountPatch names exactly the mutable account fields. Nil fields are left
// untouched.
type AccountPatch struct {
	Name *string
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Name == nil
}

// AccountSummary combines the derived cash balance with the portfolio
// valuation for one account.
type AccountSummary struct {
	AccountID         int64     `json:"account_id"`
	AccountName       string    `json:"account_name"`
	UserID            int64     `json:"user_id"`
	CashBalance       float64   `json:"cash_balance"`
	PortfolioValue    float64   `json:"portfolio_value"`
	TotalAccountValue float64   `json:"total_account_value"`
	NumPositions      int       `json:"num_positions"`
	UnrealizedPnL     float64   `json:"unrealized_profit_loss"`
	CreatedAt         time.Time `json:"created_at"`
}
