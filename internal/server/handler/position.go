package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// PositionService defines the methods the position handler requires.
type PositionService interface {
	Detail(ctx context.Context, accountID, stockID int64) (domain.PositionDetail, error)
	Portfolio(ctx context.Context, accountID int64) (domain.PortfolioSummary, error)
	History(ctx context.Context, accountID, stockID int64) (domain.PositionTradeHistory, error)
	Performance(ctx context.Context, accountID, stockID int64) (domain.PositionPerformance, error)
}

// PositionHandler serves position and portfolio endpoints.
type PositionHandler struct {
	positions PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given service and logger.
func NewPositionHandler(positions PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{positions: positions, logger: logger}
}

// GetPortfolio returns all of the account's open positions with valuation.
// GET /api/accounts/{id}/portfolio
func (h *PositionHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	summary, err := h.positions.Portfolio(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: portfolio failed",
			slog.Int64("account_id", id),
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetPosition returns one position valued at the current price.
// GET /api/accounts/{id}/positions/{stockID}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	stockID, err := pathID(r, "stockID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stock id")
		return
	}

	detail, err := h.positions.Detail(r.Context(), accountID, stockID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GetHistory returns the buy/sell record behind one position.
// GET /api/accounts/{id}/positions/{stockID}/history
func (h *PositionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	stockID, err := pathID(r, "stockID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stock id")
		return
	}

	history, err := h.positions.History(r.Context(), accountID, stockID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// GetPerformance returns the position's return over its holding period.
// GET /api/accounts/{id}/positions/{stockID}/performance
func (h *PositionHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	stockID, err := pathID(r, "stockID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stock id")
		return
	}

	perf, err := h.positions.Performance(r.Context(), accountID, stockID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}
