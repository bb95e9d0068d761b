package domain

import "time"

// TopTrader is one entry of the top-traders read-model: a user ranked by the
// aggregate return percentage across all their accounts.
type TopTrader struct {
	UserID         int64   `json:"user_id"`
	UserName       string  `json:"user_name"`
	UserEmail      string  `json:"user_email"`
	TotalAccounts  int     `json:"total_accounts"`
	TotalPositions int     `json:"total_positions"`
	TotalInvested  float64 `json:"total_invested"`
	CurrentValue   float64 `json:"current_value"`
	ProfitLoss     float64 `json:"profit_loss"`
	ReturnPercent  float64 `json:"return_percentage"`
}

// FeedTrade is a recent buy by a top trader.
type FeedTrade struct {
	TradeID      int64     `json:"trade_id"`
	TraderID     int64     `json:"trader_id"`
	TraderName   string    `json:"trader_name"`
	TraderReturn float64   `json:"trader_return"`
	StockID      int64     `json:"stock_id"`
	StockName    string    `json:"stock_name"`
	StockSymbol  string    `json:"stock_symbol"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	Amount       float64   `json:"amount"`
	Timestamp    time.Time `json:"timestamp"`
}

// TrendingStock is one entry of the trending-stocks read-model: a stock
// ranked by distinct buyers within a recent window.
type TrendingStock struct {
	StockID      int64   `json:"stock_id"`
	StockName    string  `json:"stock_name"`
	StockSymbol  string  `json:"stock_symbol"`
	LastPrice    float64 `json:"last_price"`
	BuyCount     int     `json:"buy_count"`
	UniqueBuyers int     `json:"unique_buyers"`
	SharesBought float64 `json:"shares_bought"`
}
