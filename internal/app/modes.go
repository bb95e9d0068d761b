package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvannucci/paperbroker/internal/server"
	"github.com/mvannucci/paperbroker/internal/server/handler"
	"github.com/mvannucci/paperbroker/internal/server/ws"
	"github.com/mvannucci/paperbroker/internal/service"
)

// ServeMode runs the full API server backed by PostgreSQL and Redis.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")
	return a.runServer(ctx, deps)
}

// DevMode runs the API server against the in-memory store. All data is lost
// on shutdown.
func (a *App) DevMode(ctx context.Context, deps *Dependencies) error {
	a.logger.WarnContext(ctx, "starting dev mode, data is held in memory and not persisted")
	return a.runServer(ctx, deps)
}

// ExportMode performs a one-shot ledger export to object storage and exits.
func (a *App) ExportMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting export mode")

	if deps.BlobWriter == nil || deps.BlobReader == nil {
		return fmt.Errorf("export mode: object storage is not wired")
	}

	exportSvc := service.NewExportService(deps.LedgerStore, deps.BlobWriter, deps.BlobReader, a.logger)
	path, count, err := exportSvc.ExportLedger(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("export mode: %w", err)
	}
	if count == 0 {
		a.logger.InfoContext(ctx, "export mode: ledger is empty, nothing to export")
		return nil
	}

	a.logger.InfoContext(ctx, "export mode: ledger exported",
		slog.String("path", path),
		slog.Int64("events", count),
	)
	return nil
}

// runServer builds all services and handlers, starts the WebSocket hub and
// the HTTP server, and blocks until the context is cancelled.
func (a *App) runServer(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	// Services.
	userSvc := service.NewUserService(deps.UserStore, a.logger)
	accountSvc := service.NewAccountService(
		deps.AccountStore, deps.UserStore, deps.LedgerStore,
		deps.PositionStore, deps.StockStore, deps.PriceCache, a.logger,
	)
	stockSvc := service.NewStockService(
		deps.StockStore, deps.PositionStore, deps.PriceCache, deps.SignalBus, a.logger,
	)
	tradeSvc := service.NewTradeService(
		deps.LedgerStore, deps.AccountStore, deps.StockStore, deps.SignalBus, a.logger,
	)
	positionSvc := service.NewPositionService(
		deps.PositionStore, deps.StockStore, deps.LedgerStore, deps.PriceCache, a.logger,
	)
	feedSvc := service.NewFeedService(
		deps.UserStore, deps.AccountStore, deps.PositionStore,
		deps.StockStore, deps.LedgerStore, deps.PriceCache, a.logger,
	)

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(),
		Users:     handler.NewUserHandler(userSvc, accountSvc, a.logger),
		Accounts:  handler.NewAccountHandler(accountSvc, tradeSvc, a.logger),
		Stocks:    handler.NewStockHandler(stockSvc, a.logger),
		Trades:    handler.NewTradeHandler(tradeSvc, a.logger),
		Positions: handler.NewPositionHandler(positionSvc, a.logger),
		Feeds:     handler.NewFeedHandler(feedSvc, a.logger),
	}

	// Exports are only served when object storage is wired.
	var exportSvc *service.ExportService
	if deps.BlobWriter != nil && deps.BlobReader != nil {
		exportSvc = service.NewExportService(deps.LedgerStore, deps.BlobWriter, deps.BlobReader, a.logger)
		handlers.Exports = handler.NewExportHandler(exportSvc, a.logger)
	}

	// WebSocket hub.
	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	// Periodic ledger exports.
	if exportSvc != nil && a.cfg.Export.Enabled && a.cfg.Export.Interval.Duration > 0 {
		g.Go(func() error {
			a.runExportLoop(ctx, exportSvc, a.cfg.Export.Interval.Duration)
			return nil
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// runExportLoop exports the ledger on a fixed interval until the context is
// cancelled. Export failures are logged and retried on the next tick.
func (a *App) runExportLoop(ctx context.Context, exports *service.ExportService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			path, count, err := exports.ExportLedger(ctx, time.Now().UTC())
			if err != nil {
				a.logger.ErrorContext(ctx, "periodic export failed",
					slog.String("error", err.Error()))
				continue
			}
			if count > 0 {
				a.logger.InfoContext(ctx, "periodic export completed",
					slog.String("path", path),
					slog.Int64("events", count))
			}
		}
	}
}
