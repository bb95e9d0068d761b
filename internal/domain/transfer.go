package domain

import "time"

// TransferReceipt summarizes a committed transfer between two accounts.
type TransferReceipt struct {
	TransferID      string    `json:"transfer_id"`
	FromAccountID   int64     `json:"from_account_id"`
	FromAccountName string    `json:"from_account_name"`
	ToAccountID     int64     `json:"to_account_id"`
	ToAccountName   string    `json:"to_account_name"`
	Amount          float64   `json:"amount"`
	Note            string    `json:"note,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// TransferRecord is one transfer as seen from a given account, with the
// direction and counterparty resolved.
type TransferRecord struct {
	TransferID   string    `json:"transfer_id"`
	EventID      int64     `json:"event_id"`
	Direction    string    `json:"direction"` // "incoming" or "outgoing"
	Counterparty int64     `json:"counterparty_account_id"`
	Amount       float64   `json:"amount"`
	Note         string    `json:"note,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
