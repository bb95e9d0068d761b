package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// AccountService defines the methods the account handler requires.
type AccountService interface {
	Create(ctx context.Context, userID int64, name string) (domain.Account, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Account, error)
	Update(ctx context.Context, id int64, patch domain.AccountPatch) (domain.Account, error)
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context, id int64) (domain.AccountSummary, error)
}

// BalanceService reads derived balances.
type BalanceService interface {
	Balance(ctx context.Context, accountID int64) (float64, error)
	DetailedBalance(ctx context.Context, accountID int64) (domain.BalanceBreakdown, error)
}

// AccountHandler serves account-related HTTP endpoints.
type AccountHandler struct {
	accounts AccountService
	balances BalanceService
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler with the given services and logger.
func NewAccountHandler(accounts AccountService, balances BalanceService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, balances: balances, logger: logger}
}

type createAccountRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// CreateAccount opens a new account for an existing user.
// POST /api/accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.Name == "" {
		writeError(w, http.StatusBadRequest, "user_id and name are required")
		return
	}

	acct, err := h.accounts.Create(r.Context(), req.UserID, req.Name)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create account failed",
			slog.Int64("user_id", req.UserID),
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

// GetAccount returns one account by id.
// GET /api/accounts/{id}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	acct, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// ListAccounts returns accounts with pagination.
// GET /api/accounts
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list accounts failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

type updateAccountRequest struct {
	Name *string `json:"name"`
}

// UpdateAccount renames the account.
// PATCH /api/accounts/{id}
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.accounts.Update(r.Context(), id, domain.AccountPatch{Name: req.Name})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// DeleteAccount removes the account and cascades to its ledger events and
// positions.
// DELETE /api/accounts/{id}
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.accounts.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSummary returns the account's combined cash and portfolio valuation.
// GET /api/accounts/{id}/summary
func (h *AccountHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	summary, err := h.accounts.Summary(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: account summary failed",
			slog.Int64("account_id", id),
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetBalance returns the account's derived cash balance.
// GET /api/accounts/{id}/balance
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	balance, err := h.balances.Balance(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"balance":    domain.Round2(balance),
	})
}

// GetDetailedBalance returns the balance broken down by category.
// GET /api/accounts/{id}/balance/detailed
func (h *AccountHandler) GetDetailedBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	breakdown, err := h.balances.DetailedBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}
