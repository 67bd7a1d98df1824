// Package app owns the application lifecycle: it wires dependencies from
// configuration and runs the selected operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akarpov91/polyindexer/internal/config"
)

// Options carries the operational flags from the command line.
type Options struct {
	// EventSlug overrides indexer.event_slug for discover mode.
	EventSlug string

	// FromBlock and ToBlock bound a one-shot index run. Zero means "resume
	// from the cursor" and "scan to head" respectively.
	FromBlock uint64
	ToBlock   uint64

	// TxHash pins a one-shot index run to the block containing this
	// transaction.
	TxHash string

	// FilterTokens restricts a one-shot index run to these token ids.
	FilterTokens []string
}

// App is the root application object.
type App struct {
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and options.
func New(cfg *config.Config, opts Options, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		opts:   opts,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies, dispatches the configured mode, and blocks until
// the mode finishes or the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel))

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "discover":
		return a.DiscoverMode(ctx, deps)
	case "index":
		return a.IndexMode(ctx, deps)
	case "watch":
		return a.WatchMode(ctx, deps)
	case "server":
		return a.ServerMode(ctx, deps)
	case "full":
		return a.FullMode(ctx, deps)
	case "reset":
		return a.ResetMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down resources in reverse registration order. Safe to call
// more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
