package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/akarpov91/polyindexer/internal/blob/s3"
	"github.com/akarpov91/polyindexer/internal/cache/memory"
	"github.com/akarpov91/polyindexer/internal/cache/redis"
	"github.com/akarpov91/polyindexer/internal/config"
	"github.com/akarpov91/polyindexer/internal/domain"
	"github.com/akarpov91/polyindexer/internal/indexer"
	"github.com/akarpov91/polyindexer/internal/notify"
	"github.com/akarpov91/polyindexer/internal/platform/chain"
	"github.com/akarpov91/polyindexer/internal/platform/gamma"
	"github.com/akarpov91/polyindexer/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	PG *postgres.Client

	EventStore  domain.EventStore
	MarketStore domain.MarketStore
	TradeStore  domain.TradeStore
	SyncStore   domain.SyncStateStore

	MarketCache domain.MarketCache // nil when redis is disabled
	LockManager domain.LockManager

	Archiver *s3blob.Archiver // nil when s3 is disabled

	Gamma *gamma.Client
	Chain *chain.Client // nil for modes that never touch the rpc node

	Notifier *notify.Notifier
}

// needsChain returns true for modes that query the JSON-RPC node.
func needsChain(mode string) bool {
	switch mode {
	case "index", "watch", "full":
		return true
	default:
		return false
	}
}

// Wire constructs the concrete dependency implementations for the configured
// mode and returns them with a cleanup function releasing resources in
// reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations && cfg.Mode != "reset" {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PG = pgClient
	deps.EventStore = postgres.NewEventStore(pool)
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.TradeStore = postgres.NewTradeStore(pool)
	deps.SyncStore = postgres.NewSyncStateStore(pool)

	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.Options{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLS:        cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.MarketCache = redis.NewMarketCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
	} else {
		// Single-instance deployment: the lock only has to exclude
		// goroutines in this process.
		deps.LockManager = memory.NewLockManager()
	}

	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         true,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), "trades")
	}

	deps.Gamma = gamma.NewClient(cfg.Gamma.Host)

	if needsChain(cfg.Mode) {
		chainClient, err := chain.Dial(ctx, cfg.Chain.RPCURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain rpc: %w", err)
		}
		closers = append(closers, chainClient.Close)
		deps.Chain = chainClient
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(logger, cfg.Notify.Events, senders...)

	return deps, cleanup, nil
}

// exchangeAddresses collects the configured exchange contracts.
func exchangeAddresses(cfg *config.Config) []common.Address {
	var addrs []common.Address
	if cfg.Chain.Exchange != "" {
		addrs = append(addrs, common.HexToAddress(cfg.Chain.Exchange))
	}
	if cfg.Chain.NegRiskExchange != "" {
		addrs = append(addrs, common.HexToAddress(cfg.Chain.NegRiskExchange))
	}
	return addrs
}

// newIndexer assembles the trade indexer from wired dependencies.
func newIndexer(cfg *config.Config, deps *Dependencies, logger *slog.Logger) *indexer.Indexer {
	var archiver indexer.Archiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}
	var notifier indexer.Notifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}
	return indexer.New(deps.Chain, deps.TradeStore, deps.SyncStore, deps.LockManager,
		archiver, notifier, logger, indexer.Config{
			Exchanges:    exchangeAddresses(cfg),
			SyncKey:      cfg.Indexer.SyncKey,
			GenesisBlock: cfg.Indexer.GenesisBlock,
			ChunkSize:    cfg.Chain.LogChunkSize,
			LockTTL:      cfg.Indexer.LockTTL.Duration,
		})
}
