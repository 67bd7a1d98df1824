// Command polyindexer discovers Polymarket event metadata, scans CTF Exchange
// OrderFilled logs into PostgreSQL, and serves the indexed data over HTTP.
// The operating mode comes from configuration; operational flags narrow what
// a single run does.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/akarpov91/polyindexer/internal/app"
	"github.com/akarpov91/polyindexer/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "override configured mode (discover|index|watch|server|full|reset)")
	event := flag.String("event", "", "event slug for discover mode")
	from := flag.Uint64("from", 0, "first block of a one-shot index run (0 = resume from cursor)")
	to := flag.Uint64("to", 0, "last block of a one-shot index run (0 = chain head)")
	tx := flag.String("tx", "", "index only the block containing this transaction hash")
	tokens := flag.String("tokens", "", "comma-separated token ids to keep during an index run")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	opts := app.Options{
		EventSlug: *event,
		FromBlock: *from,
		ToBlock:   *to,
		TxHash:    *tx,
	}
	if *tokens != "" {
		for _, t := range strings.Split(*tokens, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.FilterTokens = append(opts.FilterTokens, t)
			}
		}
	}

	application := app.New(cfg, opts, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("shut down gracefully")
			return
		}
		logger.Error("exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
