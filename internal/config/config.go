package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

const (
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	Redis         RedisConfig      `json:"redis"`
	Queue         QueueConfig      `json:"queue"`
	Session       SessionConfig    `json:"session"`
	VectorDB      VectorDBConfig   `json:"vector_db"`
	AI            AIConfig         `json:"ai"`
	Chat          ChatConfig       `json:"chat"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type QueueConfig struct {
	Backend            string `json:"backend"`
	PollTimeoutSeconds int    `json:"poll_timeout_seconds"`
}

type SessionConfig struct {
	Backend      string `json:"backend"`
	CleanupCron  string `json:"cleanup_cron"`
	IdleTTLHours int    `json:"idle_ttl_hours"`
}

type VectorDBConfig struct {
	Backend      string `json:"backend"`
	DSN          string `json:"dsn"`
	NativeSearch bool   `json:"native_search"`
}

type ProviderConfig struct {
	Provider string          `json:"provider"`
	Model    string          `json:"model"`
	Data     json.RawMessage `json:"data"`
}

type AIConfig struct {
	Generate             []ProviderConfig `json:"generate"`
	Embed                []ProviderConfig `json:"embed"`
	EmbedCacheSize       int              `json:"embed_cache_size"`
	EmbedCacheTTLMinutes int              `json:"embed_cache_ttl_minutes"`
}

type ChatConfig struct {
	ChunkSize   int    `json:"chunk_size"`
	TopK        int    `json:"top_k"`
	RepoDataDir string `json:"repo_data_dir"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = BackendRedis
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = BackendRedis
	}
	if cfg.VectorDB.Backend == "" {
		cfg.VectorDB.Backend = BackendPostgres
	}
	switch cfg.Queue.Backend {
	case BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("queue.backend must be redis or memory")
	}
	switch cfg.Session.Backend {
	case BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("session.backend must be redis or memory")
	}
	switch cfg.VectorDB.Backend {
	case BackendPostgres:
		if cfg.VectorDB.DSN == "" {
			return nil, fmt.Errorf("vector_db.dsn is required for postgres backend")
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("vector_db.backend must be postgres or memory")
	}
	if (cfg.Queue.Backend == BackendRedis || cfg.Session.Backend == BackendRedis) && cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis.addr is required for redis backends")
	}
	if len(cfg.AI.Generate) == 0 {
		return nil, fmt.Errorf("ai.generate requires at least one provider")
	}
	if len(cfg.AI.Embed) == 0 {
		return nil, fmt.Errorf("ai.embed requires at least one provider")
	}
	if cfg.Queue.PollTimeoutSeconds <= 0 {
		cfg.Queue.PollTimeoutSeconds = 5
	}
	if cfg.Chat.ChunkSize <= 0 {
		cfg.Chat.ChunkSize = 350
	}
	if cfg.Chat.TopK <= 0 {
		cfg.Chat.TopK = 4
	}
	if cfg.Chat.RepoDataDir == "" {
		cfg.Chat.RepoDataDir = "./data"
	}
	if cfg.AI.EmbedCacheSize <= 0 {
		cfg.AI.EmbedCacheSize = 4096
	}
	if cfg.AI.EmbedCacheTTLMinutes <= 0 {
		cfg.AI.EmbedCacheTTLMinutes = 60
	}
	if cfg.Session.CleanupCron == "" {
		cfg.Session.CleanupCron = "0 * * * *"
	}
	return &cfg, nil
}
