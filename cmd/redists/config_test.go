package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)

	require.Equal(t, backendRedis, cfg.Backend)
	require.Equal(t, "redis-ts", cfg.Controller.KeyRoot)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, 5, cfg.Redis.Pool.Size)
	require.Equal(t, ":8086", cfg.HTTP.Addr)
	require.NoError(t, cfg.validate())
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redists.yaml")
	content := `
backend: nats
controller:
  model: "p=15s,d=15m|p=2m,d=1h"
  reconnectPeriod: 2s
nats:
  url: nats://nats-0:4222
  store:
    bucket: ts-config
    storage: memory
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	require.Equal(t, backendNATS, cfg.Backend)
	require.Equal(t, "p=15s,d=15m|p=2m,d=1h", cfg.Controller.Model)
	require.Equal(t, 2*time.Second, cfg.Controller.ReconnectPeriod)
	// Untouched fields keep their defaults.
	require.Equal(t, 3*time.Second, cfg.Controller.HeartbeatPeriod)
	require.Equal(t, "nats://nats-0:4222", cfg.NATS.URL)
	require.Equal(t, "ts-config", cfg.NATS.Store.Bucket)
	require.Equal(t, 5, cfg.NATS.Store.PoolSize)
	require.Equal(t, "debug", cfg.Log.Level)
	require.NoError(t, cfg.validate())
}

func TestDecodeConfig_RejectsUnknownKeys(t *testing.T) {
	cfg := defaultFileConfig()
	err := decodeConfig(strings.NewReader("redis:\n  pool:\n    maxActive: 10\n"), &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "maxActive")
}

func TestDecodeConfig_Empty(t *testing.T) {
	cfg := defaultFileConfig()
	require.NoError(t, decodeConfig(strings.NewReader(""), &cfg))
	require.Equal(t, defaultFileConfig(), cfg)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestFileConfig_Validate(t *testing.T) {
	cfg := defaultFileConfig()
	cfg.Backend = "etcd"
	require.ErrorContains(t, cfg.validate(), "backend")

	cfg = defaultFileConfig()
	cfg.Backend = backendNATS
	cfg.NATS.URL = ""
	require.ErrorContains(t, cfg.validate(), "nats.url")
}
