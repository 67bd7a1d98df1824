package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Mode != "server" {
		t.Errorf("mode = %q, want server", cfg.Mode)
	}
	if cfg.Gamma.Host != "https://gamma-api.polymarket.com" {
		t.Errorf("gamma host = %q", cfg.Gamma.Host)
	}
	if cfg.Chain.LogChunkSize != 4000 {
		t.Errorf("log_chunk_size = %d, want 4000", cfg.Chain.LogChunkSize)
	}
	if cfg.Indexer.SyncKey != "trade_sync" {
		t.Errorf("sync_key = %q, want trade_sync", cfg.Indexer.SyncKey)
	}
	if cfg.Indexer.ScanInterval.Duration != 2*time.Minute {
		t.Errorf("scan_interval = %v, want 2m", cfg.Indexer.ScanInterval.Duration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want default 8000", cfg.Server.Port)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
mode = "watch"
log_level = "debug"

[chain]
rpc_url = "https://polygon.example/rpc"
log_chunk_size = 1500

[indexer]
event_slug = "us-election"
scan_interval = "30s"
genesis_block = 33605403
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "watch" {
		t.Errorf("mode = %q, want watch", cfg.Mode)
	}
	if cfg.Chain.LogChunkSize != 1500 {
		t.Errorf("log_chunk_size = %d, want 1500", cfg.Chain.LogChunkSize)
	}
	if cfg.Indexer.ScanInterval.Duration != 30*time.Second {
		t.Errorf("scan_interval = %v, want 30s", cfg.Indexer.ScanInterval.Duration)
	}
	if cfg.Indexer.GenesisBlock != 33605403 {
		t.Errorf("genesis_block = %d", cfg.Indexer.GenesisBlock)
	}
	// Untouched sections keep their defaults.
	if cfg.Database.Port != 5432 {
		t.Errorf("database port = %d, want default 5432", cfg.Database.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POLYIDX_MODE", "index")
	t.Setenv("POLYIDX_DATABASE_PASSWORD", "hunter2")
	t.Setenv("POLYIDX_CHAIN_LOG_CHUNK_SIZE", "250")
	t.Setenv("POLYIDX_REDIS_ENABLED", "true")
	t.Setenv("POLYIDX_INDEXER_LOCK_TTL", "90s")
	t.Setenv("POLYIDX_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Mode != "index" {
		t.Errorf("mode = %q, want index", cfg.Mode)
	}
	if cfg.Database.Password != "hunter2" {
		t.Errorf("password not overridden")
	}
	if cfg.Chain.LogChunkSize != 250 {
		t.Errorf("log_chunk_size = %d, want 250", cfg.Chain.LogChunkSize)
	}
	if !cfg.Redis.Enabled {
		t.Error("redis not enabled")
	}
	if cfg.Indexer.LockTTL.Duration != 90*time.Second {
		t.Errorf("lock_ttl = %v, want 90s", cfg.Indexer.LockTTL.Duration)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors_origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "turbo" },
			wantErr: "unknown mode",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: "unknown log_level",
		},
		{
			name: "index mode requires rpc url",
			mutate: func(c *Config) {
				c.Mode = "index"
				c.Chain.RPCURL = ""
			},
			wantErr: "rpc_url",
		},
		{
			name: "index mode requires an exchange",
			mutate: func(c *Config) {
				c.Mode = "index"
				c.Chain.Exchange = ""
				c.Chain.NegRiskExchange = ""
			},
			wantErr: "exchange",
		},
		{
			name: "server mode ignores missing rpc",
			mutate: func(c *Config) {
				c.Mode = "server"
				c.Chain.RPCURL = ""
			},
		},
		{
			name:    "bad database port",
			mutate:  func(c *Config) { c.Database.Port = 99999 },
			wantErr: "database: port",
		},
		{
			name: "dsn bypasses host checks",
			mutate: func(c *Config) {
				c.Database.DSN = "postgres://u:p@h:5432/db"
				c.Database.Host = ""
				c.Database.Port = 0
				c.Database.Database = ""
			},
		},
		{
			name: "redis enabled needs addr",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Addr = ""
			},
			wantErr: "redis: addr",
		},
		{
			name: "s3 enabled needs bucket",
			mutate: func(c *Config) {
				c.S3.Enabled = true
				c.S3.Bucket = ""
			},
			wantErr: "s3: bucket",
		},
		{
			name:    "empty sync key",
			mutate:  func(c *Config) { c.Indexer.SyncKey = "" },
			wantErr: "sync_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
