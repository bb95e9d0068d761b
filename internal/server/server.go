// Package server assembles the HTTP API: routes, middleware chain and
// lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mvannucci/paperbroker/internal/domain"
	"github.com/mvannucci/paperbroker/internal/server/handler"
	"github.com/mvannucci/paperbroker/internal/server/middleware"
	"github.com/mvannucci/paperbroker/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps requests per client per RateWindow. Zero disables
	// rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Users     *handler.UserHandler
	Accounts  *handler.AccountHandler
	Stocks    *handler.StockHandler
	Trades    *handler.TradeHandler
	Positions *handler.PositionHandler
	Feeds     *handler.FeedHandler
	Exports   *handler.ExportHandler
}

// Server is the HTTP + WebSocket API server for the paper brokerage.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (rate limit, auth, logging, CORS) applied.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// User endpoints.
	mux.HandleFunc("POST /api/users", handlers.Users.CreateUser)
	mux.HandleFunc("GET /api/users", handlers.Users.ListUsers)
	mux.HandleFunc("GET /api/users/{id}", handlers.Users.GetUser)
	mux.HandleFunc("GET /api/users/{id}/accounts", handlers.Users.ListUserAccounts)

	// Account endpoints.
	mux.HandleFunc("POST /api/accounts", handlers.Accounts.CreateAccount)
	mux.HandleFunc("GET /api/accounts", handlers.Accounts.ListAccounts)
	mux.HandleFunc("GET /api/accounts/{id}", handlers.Accounts.GetAccount)
	mux.HandleFunc("PATCH /api/accounts/{id}", handlers.Accounts.UpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", handlers.Accounts.DeleteAccount)
	mux.HandleFunc("GET /api/accounts/{id}/summary", handlers.Accounts.GetSummary)
	mux.HandleFunc("GET /api/accounts/{id}/balance", handlers.Accounts.GetBalance)
	mux.HandleFunc("GET /api/accounts/{id}/balance/detailed", handlers.Accounts.GetDetailedBalance)

	// Stock endpoints.
	mux.HandleFunc("POST /api/stocks", handlers.Stocks.CreateStock)
	mux.HandleFunc("GET /api/stocks", handlers.Stocks.ListStocks)
	mux.HandleFunc("GET /api/stocks/{id}", handlers.Stocks.GetStock)
	mux.HandleFunc("PATCH /api/stocks/{id}", handlers.Stocks.UpdateStock)
	mux.HandleFunc("PUT /api/stocks/{id}/price", handlers.Stocks.UpdatePrice)

	// Trade endpoints.
	mux.HandleFunc("POST /api/trades/deposit", handlers.Trades.Deposit)
	mux.HandleFunc("POST /api/trades/withdraw", handlers.Trades.Withdraw)
	mux.HandleFunc("POST /api/trades/buy", handlers.Trades.Buy)
	mux.HandleFunc("POST /api/trades/sell", handlers.Trades.Sell)
	mux.HandleFunc("POST /api/trades/transfer", handlers.Trades.Transfer)
	mux.HandleFunc("GET /api/accounts/{id}/trades", handlers.Trades.ListTrades)
	mux.HandleFunc("GET /api/accounts/{id}/transfers", handlers.Trades.ListTransfers)

	// Position and portfolio endpoints.
	mux.HandleFunc("GET /api/accounts/{id}/portfolio", handlers.Positions.GetPortfolio)
	mux.HandleFunc("GET /api/accounts/{id}/positions/{stockID}", handlers.Positions.GetPosition)
	mux.HandleFunc("GET /api/accounts/{id}/positions/{stockID}/history", handlers.Positions.GetHistory)
	mux.HandleFunc("GET /api/accounts/{id}/positions/{stockID}/performance", handlers.Positions.GetPerformance)

	// Feed endpoints.
	mux.HandleFunc("GET /api/feeds/top-traders", handlers.Feeds.TopTraders)
	mux.HandleFunc("GET /api/feeds/recent-trades", handlers.Feeds.RecentTrades)
	mux.HandleFunc("GET /api/feeds/trending", handlers.Feeds.TrendingStocks)

	// Export endpoints.
	if handlers.Exports != nil {
		mux.HandleFunc("POST /api/exports", handlers.Exports.TriggerExport)
		mux.HandleFunc("GET /api/exports", handlers.Exports.ListExports)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
