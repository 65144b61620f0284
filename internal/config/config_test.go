package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/repoinsight/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"redis": {"addr": "127.0.0.1:6379"},
		"vector_db": {"backend": "memory"},
		"ai": {
			"generate": [{"provider": "openai", "model": "gpt-4o-mini", "data": {"api_key": "k"}}],
			"embed": [{"provider": "openai", "model": "text-embedding-3-small", "data": {"api_key": "k"}}]
		}
	}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, config.BackendRedis, cfg.Queue.Backend)
	require.Equal(t, config.BackendRedis, cfg.Session.Backend)
	require.Equal(t, 5, cfg.Queue.PollTimeoutSeconds)
	require.Equal(t, 350, cfg.Chat.ChunkSize)
	require.Equal(t, 4, cfg.Chat.TopK)
	require.Equal(t, "./data", cfg.Chat.RepoDataDir)
	require.Equal(t, 4096, cfg.AI.EmbedCacheSize)
	require.Equal(t, 60, cfg.AI.EmbedCacheTTLMinutes)
	require.Equal(t, "0 * * * *", cfg.Session.CleanupCron)
	require.Equal(t, "info", cfg.LogConfig.Level)
}

func TestLoadRequiresPort(t *testing.T) {
	path := writeConfig(t, `{
		"redis": {"addr": "127.0.0.1:6379"},
		"vector_db": {"backend": "memory"},
		"ai": {
			"generate": [{"provider": "openai", "model": "m"}],
			"embed": [{"provider": "openai", "model": "m"}]
		}
	}`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRequiresRedisAddrForRedisBackends(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"vector_db": {"backend": "memory"},
		"ai": {
			"generate": [{"provider": "openai", "model": "m"}],
			"embed": [{"provider": "openai", "model": "m"}]
		}
	}`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"queue": {"backend": "memory"},
		"session": {"backend": "memory"},
		"vector_db": {"backend": "postgres"},
		"ai": {
			"generate": [{"provider": "openai", "model": "m"}],
			"embed": [{"provider": "openai", "model": "m"}]
		}
	}`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"queue": {"backend": "kafka"},
		"session": {"backend": "memory"},
		"vector_db": {"backend": "memory"},
		"ai": {
			"generate": [{"provider": "openai", "model": "m"}],
			"embed": [{"provider": "openai", "model": "m"}]
		}
	}`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRequiresProviders(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"queue": {"backend": "memory"},
		"session": {"backend": "memory"},
		"vector_db": {"backend": "memory"},
		"ai": {"generate": [], "embed": []}
	}`)
	_, err := config.Load(path)
	require.Error(t, err)
}
