package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// defaultFeedWindow bounds the lookback for recent and trending feeds.
const defaultFeedWindow = 7 * 24 * time.Hour

// FeedService defines the methods the feed handler requires.
type FeedService interface {
	TopTraders(ctx context.Context, limit int) ([]domain.TopTrader, error)
	RecentTrades(ctx context.Context, window time.Duration, limit int) ([]domain.FeedTrade, error)
	TrendingStocks(ctx context.Context, window time.Duration, limit int) ([]domain.TrendingStock, error)
}

// FeedHandler serves the social feed endpoints.
type FeedHandler struct {
	feeds  FeedService
	logger *slog.Logger
}

// NewFeedHandler creates a FeedHandler with the given service and logger.
func NewFeedHandler(feeds FeedService, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{feeds: feeds, logger: logger}
}

// TopTraders returns users ranked by aggregate return percentage.
// GET /api/feeds/top-traders?limit=10
func (h *FeedHandler) TopTraders(w http.ResponseWriter, r *http.Request) {
	traders, err := h.feeds.TopTraders(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: top traders failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if traders == nil {
		traders = []domain.TopTrader{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"top_traders": traders})
}

// RecentTrades returns recent buys by the top traders.
// GET /api/feeds/recent-trades?days=7&limit=20
func (h *FeedHandler) RecentTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.feeds.RecentTrades(r.Context(), queryWindow(r), queryInt(r, "limit", 20))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: recent trades failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if trades == nil {
		trades = []domain.FeedTrade{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// TrendingStocks returns stocks ranked by distinct recent buyers.
// GET /api/feeds/trending?days=7&limit=10
func (h *FeedHandler) TrendingStocks(w http.ResponseWriter, r *http.Request) {
	trending, err := h.feeds.TrendingStocks(r.Context(), queryWindow(r), queryInt(r, "limit", 10))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: trending stocks failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if trending == nil {
		trending = []domain.TrendingStock{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trending": trending})
}

// queryInt parses a positive integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// queryWindow parses the "days" query parameter into a lookback window.
func queryWindow(r *http.Request) time.Duration {
	if days := queryInt(r, "days", 0); days > 0 {
		return time.Duration(days) * 24 * time.Hour
	}
	return defaultFeedWindow
}
