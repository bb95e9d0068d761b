package domain

import "time"

// PositionDetail is a position enriched with stock metadata and valuation at
// the current market price.
type PositionDetail struct {
	AccountID     int64     `json:"account_id"`
	StockID       int64     `json:"stock_id"`
	StockName     string    `json:"stock_name"`
	StockSymbol   string    `json:"stock_symbol"`
	Quantity      float64   `json:"quantity"`
	AverageCost   float64   `json:"average_purchase_price"`
	CurrentPrice  float64   `json:"current_market_price"`
	TotalInvested float64   `json:"total_invested"`
	CurrentValue  float64   `json:"current_value"`
	UnrealizedPnL float64   `json:"unrealized_profit_loss"`
	PnLPercent    float64   `json:"unrealized_profit_loss_percentage"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Performer identifies the best or worst position of a portfolio by P&L
// percentage.
type Performer struct {
	StockID    int64   `json:"stock_id"`
	StockName  string  `json:"stock_name"`
	PnLPercent float64 `json:"return_percentage"`
}

// PortfolioSummary aggregates all of an account's open positions.
type PortfolioSummary struct {
	AccountID      int64            `json:"account_id"`
	TotalPositions int              `json:"total_positions"`
	TotalInvested  float64          `json:"total_invested"`
	CurrentValue   float64          `json:"current_portfolio_value"`
	UnrealizedPnL  float64          `json:"total_unrealized_profit_loss"`
	PnLPercent     float64          `json:"total_unrealized_profit_loss_percentage"`
	BestPerformer  *Performer       `json:"best_performer"`
	WorstPerformer *Performer       `json:"worst_performer"`
	Positions      []PositionDetail `json:"positions"`
	CalculatedAt   time.Time        `json:"calculated_at"`
}

// TradeHistoryItem is one stock trade in a position's history.
type TradeHistoryItem struct {
	TradeID     int64     `json:"trade_id"`
	Kind        EventKind `json:"type"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price_per_share"`
	TotalAmount float64   `json:"total_amount"`
	Note        string    `json:"note,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// PositionTradeHistory is the full buy/sell history behind one position.
type PositionTradeHistory struct {
	AccountID       int64              `json:"account_id"`
	StockID         int64              `json:"stock_id"`
	StockName       string             `json:"stock_name"`
	StockSymbol     string             `json:"stock_ticker"`
	CurrentQuantity float64            `json:"current_quantity"`
	TotalBought     float64            `json:"total_shares_bought"`
	TotalSold       float64            `json:"total_shares_sold"`
	AveragePurchase float64            `json:"average_purchase_price"`
	Trades          []TradeHistoryItem `json:"trades"`
}

// PositionPerformance reports the return of a single position over its
// holding period.
type PositionPerformance struct {
	AccountID         int64     `json:"account_id"`
	StockID           int64     `json:"stock_id"`
	StockName         string    `json:"stock_name"`
	TotalReturn       float64   `json:"total_return"`
	TotalReturnPct    float64   `json:"total_return_percentage"`
	DaysHeld          int       `json:"days_held"`
	FirstPurchaseDate time.Time `json:"first_purchase_date"`
}
