package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYIDX_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
//
// A missing file is not an error: defaults plus environment overrides are
// enough to run against public endpoints.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYIDX_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Gamma.Host, "POLYIDX_GAMMA_HOST")

	setStr(&cfg.Chain.RPCURL, "POLYIDX_CHAIN_RPC_URL")
	setStr(&cfg.Chain.Exchange, "POLYIDX_CHAIN_EXCHANGE")
	setStr(&cfg.Chain.NegRiskExchange, "POLYIDX_CHAIN_NEG_RISK_EXCHANGE")
	setStr(&cfg.Chain.CollateralUSDC, "POLYIDX_CHAIN_COLLATERAL_USDC")
	setUint64(&cfg.Chain.LogChunkSize, "POLYIDX_CHAIN_LOG_CHUNK_SIZE")

	setStr(&cfg.Database.DSN, "POLYIDX_DATABASE_DSN")
	setStr(&cfg.Database.Host, "POLYIDX_DATABASE_HOST")
	setInt(&cfg.Database.Port, "POLYIDX_DATABASE_PORT")
	setStr(&cfg.Database.Database, "POLYIDX_DATABASE_NAME")
	setStr(&cfg.Database.User, "POLYIDX_DATABASE_USER")
	setStr(&cfg.Database.Password, "POLYIDX_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "POLYIDX_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "POLYIDX_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "POLYIDX_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "POLYIDX_DATABASE_RUN_MIGRATIONS")

	setBool(&cfg.Redis.Enabled, "POLYIDX_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POLYIDX_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYIDX_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYIDX_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYIDX_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYIDX_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYIDX_REDIS_TLS_ENABLED")

	setBool(&cfg.S3.Enabled, "POLYIDX_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYIDX_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYIDX_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYIDX_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYIDX_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYIDX_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "POLYIDX_S3_FORCE_PATH_STYLE")

	setStr(&cfg.Indexer.SyncKey, "POLYIDX_INDEXER_SYNC_KEY")
	setStr(&cfg.Indexer.EventSlug, "POLYIDX_INDEXER_EVENT_SLUG")
	setUint64(&cfg.Indexer.GenesisBlock, "POLYIDX_INDEXER_GENESIS_BLOCK")
	setDuration(&cfg.Indexer.ScanInterval, "POLYIDX_INDEXER_SCAN_INTERVAL")
	setDuration(&cfg.Indexer.LockTTL, "POLYIDX_INDEXER_LOCK_TTL")

	setInt(&cfg.Server.Port, "POLYIDX_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYIDX_SERVER_CORS_ORIGINS")

	setStr(&cfg.Notify.TelegramToken, "POLYIDX_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYIDX_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYIDX_NOTIFY_DISCORD_WEBHOOK_URL")

	setStr(&cfg.Mode, "POLYIDX_MODE")
	setStr(&cfg.LogLevel, "POLYIDX_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
