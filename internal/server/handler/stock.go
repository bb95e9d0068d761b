package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// StockService defines the methods the stock handler requires.
type StockService interface {
	Create(ctx context.Context, name, symbol string, lastPrice float64) (domain.Stock, error)
	Detail(ctx context.Context, id int64) (domain.StockDetail, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Stock, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Stock, error)
	Update(ctx context.Context, id int64, patch domain.StockPatch) (domain.Stock, error)
	UpdatePrice(ctx context.Context, id int64, price float64) error
}

// StockHandler serves stock-related HTTP endpoints.
type StockHandler struct {
	stocks StockService
	logger *slog.Logger
}

// NewStockHandler creates a StockHandler with the given service and logger.
func NewStockHandler(stocks StockService, logger *slog.Logger) *StockHandler {
	return &StockHandler{stocks: stocks, logger: logger}
}

type createStockRequest struct {
	Name      string  `json:"name"`
	Ticker    string  `json:"ticker"`
	LastPrice float64 `json:"last_price"`
}

// CreateStock registers a new stock.
// POST /api/stocks
func (h *StockHandler) CreateStock(w http.ResponseWriter, r *http.Request) {
	var req createStockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	stock, err := h.stocks.Create(r.Context(), req.Name, req.Ticker, req.LastPrice)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create stock failed",
			slog.String("name", req.Name),
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stock)
}

// GetStock returns one stock with holder statistics.
// GET /api/stocks/{id}
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stock id")
		return
	}
	detail, err := h.stocks.Detail(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ListStocks returns stocks with pagination, or search results when a query
// is given.
// GET /api/stocks?q=...
func (h *StockHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	var stocks []domain.Stock
	var err error

	if q := r.URL.Query().Get("q"); q != "" {
		stocks, err = h.stocks.Search(r.Context(), q, parseListOpts(r).Limit)
	} else {
		stocks, err = h.stocks.List(r.Context(), parseListOpts(r))
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list stocks failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if stocks == nil {
		stocks = []domain.Stock{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stocks": stocks})
}

type updateStockRequest struct {
	Name      *string  `json:"name"`
	Ticker    *string  `json:"ticker"`
	LastPrice *float64 `json:"last_price"`
}

// UpdateStock applies a partial update to the stock.
// PATCH /api/stocks/{id}
func (h *StockHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stock id")
		return
	}
	var req updateStockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stock, err := h.stocks.Update(r.Context(), id, domain.StockPatch{
		Name:      req.Name,
		Symbol:    req.Ticker,
		LastPrice: req.LastPrice,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

type updatePriceRequest struct {
	Price float64 `json:"price"`
}

// UpdatePrice sets a new reference price.
// PUT /api/stocks/{id}/price
func (h *StockHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stock id")
		return
	}
	var req updatePriceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.stocks.UpdatePrice(r.Context(), id, req.Price); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stock_id": id,
		"price":    req.Price,
	})
}
