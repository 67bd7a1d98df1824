package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akarpov91/polyindexer/internal/discovery"
	"github.com/akarpov91/polyindexer/internal/server"
	"github.com/akarpov91/polyindexer/internal/server/handler"
	"github.com/akarpov91/polyindexer/internal/service"
)

// DiscoverMode fetches one event's metadata and stores it.
func (a *App) DiscoverMode(ctx context.Context, deps *Dependencies) error {
	slug := a.opts.EventSlug
	if slug == "" {
		slug = a.cfg.Indexer.EventSlug
	}
	if slug == "" {
		return errors.New("app: discover mode needs an event slug (-event or indexer.event_slug)")
	}

	d := discovery.New(deps.Gamma, deps.EventStore, deps.MarketStore, deps.MarketCache,
		a.cfg.Chain.CollateralUSDC, a.logger)

	event, markets, err := d.Discover(ctx, slug)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "discovery complete",
		slog.String("event", event.Slug),
		slog.Int("markets", len(markets)))
	return nil
}

// IndexMode runs one scan and exits. With -tx the scan covers exactly the
// block containing that transaction; otherwise -from/-to bound it, resuming
// from the stored cursor by default.
func (a *App) IndexMode(ctx context.Context, deps *Dependencies) error {
	ix := newIndexer(a.cfg, deps, a.logger)

	from, to := a.opts.FromBlock, a.opts.ToBlock
	if a.opts.TxHash != "" {
		block, err := ix.ResolveBlock(ctx, a.opts.TxHash)
		if err != nil {
			return err
		}
		from, to = block, block
	}

	res, err := ix.IndexRange(ctx, from, to, a.opts.FilterTokens)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "index complete",
		slog.Uint64("from", res.FromBlock),
		slog.Uint64("to", res.ToBlock),
		slog.Int("fetched", res.Fetched),
		slog.Int64("inserted", res.Inserted),
		slog.Int("decode_skips", res.DecodeSkips))
	return nil
}

// WatchMode scans to the head on an interval until cancelled.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	ix := newIndexer(a.cfg, deps, a.logger)
	return ix.Watch(ctx, a.cfg.Indexer.ScanInterval.Duration)
}

// ServerMode runs the HTTP read API until cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	srv := a.buildServer(deps)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

// FullMode runs the watch loop and the HTTP API together. If an event slug
// is configured its metadata is refreshed first so the API can attribute
// outcomes immediately.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	if slug := a.cfg.Indexer.EventSlug; slug != "" {
		d := discovery.New(deps.Gamma, deps.EventStore, deps.MarketStore, deps.MarketCache,
			a.cfg.Chain.CollateralUSDC, a.logger)
		if _, _, err := d.Discover(ctx, slug); err != nil {
			// Metadata refresh is best-effort here; trades index without it.
			a.logger.WarnContext(ctx, "startup discovery failed",
				slog.String("event", slug),
				slog.String("error", err.Error()))
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.WatchMode(ctx, deps)
	})
	g.Go(func() error {
		return a.ServerMode(ctx, deps)
	})
	return g.Wait()
}

// ResetMode drops and recreates the schema. Destructive; gated behind its
// own mode so it can never run by accident.
func (a *App) ResetMode(ctx context.Context, deps *Dependencies) error {
	a.logger.WarnContext(ctx, "resetting database schema")
	if err := deps.PG.Reset(ctx); err != nil {
		return fmt.Errorf("app: reset: %w", err)
	}
	a.logger.InfoContext(ctx, "schema reset complete")
	return nil
}

func (a *App) buildServer(deps *Dependencies) *server.Server {
	query := service.NewQueryService(deps.EventStore, deps.MarketStore, deps.TradeStore,
		deps.MarketCache, a.logger)

	return server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(),
		Events:  handler.NewEventHandler(query, a.logger),
		Markets: handler.NewMarketHandler(query, a.logger),
		Trades:  handler.NewTradeHandler(query, a.logger),
	}, a.logger)
}
