package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                  = errors.New("not found")
	ErrAlreadyExists             = errors.New("already exists")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrInsufficientShares        = errors.New("insufficient shares")
	ErrInvalidTrade              = errors.New("invalid trade")
	ErrConflictingState          = errors.New("conflicting position state")
	ErrDifferentAccountsRequired = errors.New("transfer requires two different accounts")
)

// InsufficientFundsError reports a withdrawal, buy or transfer that exceeds
// the account's cash balance.
type InsufficientFundsError struct {
	AccountID int64
	Required  float64
	Available float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %d: required %.2f, available %.2f",
		e.AccountID, e.Required, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InsufficientSharesError reports a sell that exceeds the held quantity.
type InsufficientSharesError struct {
	AccountID int64
	StockID   int64
	Required  float64
	Available float64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares of stock %d on account %d: required %g, available %g",
		e.StockID, e.AccountID, e.Required, e.Available)
}

func (e *InsufficientSharesError) Unwrap() error { return ErrInsufficientShares }

// InvalidTradeError reports a structurally invalid trade request
// (non-positive quantity, price or amount, malformed event).
type InvalidTradeError struct {
	Reason string
}

func (e *InvalidTradeError) Error() string {
	return "invalid trade: " + e.Reason
}

func (e *InvalidTradeError) Unwrap() error { return ErrInvalidTrade }

// ConflictingStateError reports a position mutation contract violation: a
// sell reached the aggregator without a sufficient backing position even
// though validation passed. This indicates a concurrency-control defect, not
// a user error.
type ConflictingStateError struct {
	AccountID int64
	StockID   int64
	Detail    string
}

func (e *ConflictingStateError) Error() string {
	return fmt.Sprintf("conflicting position state for account %d stock %d: %s",
		e.AccountID, e.StockID, e.Detail)
}

func (e *ConflictingStateError) Unwrap() error { return ErrConflictingState }
