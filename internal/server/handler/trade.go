package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// TradeService defines the methods the trade handler requires.
type TradeService interface {
	Deposit(ctx context.Context, accountID int64, amount float64, note string) (domain.LedgerEvent, error)
	Withdraw(ctx context.Context, accountID int64, amount float64, note string) (domain.LedgerEvent, error)
	BuyStock(ctx context.Context, accountID, stockID int64, quantity, pricePerShare float64, note string) (domain.LedgerEvent, error)
	SellStock(ctx context.Context, accountID, stockID int64, quantity, pricePerShare float64, note string) (domain.LedgerEvent, error)
	Transfer(ctx context.Context, fromID, toID int64, amount float64, note string) (domain.TransferReceipt, error)
	ListAccountTrades(ctx context.Context, accountID int64, kind domain.EventKind, opts domain.ListOpts) ([]domain.LedgerEvent, error)
	ListTransfers(ctx context.Context, accountID int64) ([]domain.TransferRecord, error)
}

// TradeHandler serves trade submission and trade history endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

type cashRequest struct {
	AccountID int64   `json:"account_id"`
	Amount    float64 `json:"amount"`
	Note      string  `json:"note"`
}

// Deposit adds cash to an account.
// POST /api/trades/deposit
func (h *TradeHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req cashRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := h.trades.Deposit(r.Context(), req.AccountID, req.Amount, req.Note)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: deposit failed",
			slog.Int64("account_id", req.AccountID),
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// Withdraw removes cash from an account.
// POST /api/trades/withdraw
func (h *TradeHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req cashRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := h.trades.Withdraw(r.Context(), req.AccountID, req.Amount, req.Note)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: withdraw failed",
			slog.Int64("account_id", req.AccountID),
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

type stockTradeRequest struct {
	AccountID     int64   `json:"account_id"`
	StockID       int64   `json:"stock_id"`
	Quantity      float64 `json:"quantity"`
	PricePerShare float64 `json:"price_per_share"`
	Note          string  `json:"note"`
}

// Buy purchases shares.
// POST /api/trades/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req stockTradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := h.trades.BuyStock(r.Context(), req.AccountID, req.StockID, req.Quantity, req.PricePerShare, req.Note)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: buy failed",
			slog.Int64("account_id", req.AccountID),
			slog.Int64("stock_id", req.StockID),
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// Sell sells shares.
// POST /api/trades/sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req stockTradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := h.trades.SellStock(r.Context(), req.AccountID, req.StockID, req.Quantity, req.PricePerShare, req.Note)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: sell failed",
			slog.Int64("account_id", req.AccountID),
			slog.Int64("stock_id", req.StockID),
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

type transferRequest struct {
	FromAccountID int64   `json:"from_account_id"`
	ToAccountID   int64   `json:"to_account_id"`
	Amount        float64 `json:"amount"`
	Note          string  `json:"note"`
}

// Transfer moves cash between two accounts.
// POST /api/trades/transfer
func (h *TradeHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.trades.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount, req.Note)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: transfer failed",
			slog.Int64("from_account_id", req.FromAccountID),
			slog.Int64("to_account_id", req.ToAccountID),
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// ListTrades returns the account's ledger events, optionally filtered by
// type.
// GET /api/accounts/{id}/trades?type=STOCK_BUY
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	kind := domain.EventKind(r.URL.Query().Get("type"))
	events, err := h.trades.ListAccountTrades(r.Context(), id, kind, parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if events == nil {
		events = []domain.LedgerEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": events})
}

// ListTransfers returns the account's transfers with direction resolved.
// GET /api/accounts/{id}/transfers
func (h *TradeHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	transfers, err := h.trades.ListTransfers(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if transfers == nil {
		transfers = []domain.TransferRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": transfers})
}
