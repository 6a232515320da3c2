package redisstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, "localhost", cfg.Host)
	require.Equal(t, 6379, cfg.Port)
	require.Equal(t, 5, cfg.Pool.Size)
	require.Equal(t, 2*time.Second, cfg.Pool.DialTimeout)
	require.NoError(t, cfg.Validate())
}

func TestSetDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{Host: "redis.internal", Pool: PoolConfig{Size: 12, Timeout: time.Second}}
	SetDefaults(&cfg)

	require.Equal(t, "redis.internal", cfg.Host)
	require.Equal(t, 6379, cfg.Port)
	require.Equal(t, 12, cfg.Pool.Size)
	require.Equal(t, time.Second, cfg.Pool.Timeout)
	require.Equal(t, 5*time.Minute, cfg.Pool.IdleTimeout)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty host", func(c *Config) { c.Host = "" }, "Host"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "Port"},
		{"negative db", func(c *Config) { c.DB = -1 }, "DB"},
		{"pool too small", func(c *Config) { c.Pool.Size = 1 }, "Pool.Size"},
		{"min idle above size", func(c *Config) { c.Pool.MinIdle = 6 }, "Pool.MinIdle"},
		{"zero pool timeout", func(c *Config) { c.Pool.Timeout = 0 }, "Pool.Timeout"},
		{"zero dial timeout", func(c *Config) { c.Pool.DialTimeout = 0 }, "Pool.DialTimeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Addr(t *testing.T) {
	cfg := Config{Host: "10.1.2.3", Port: 6380}
	require.Equal(t, "10.1.2.3:6380", cfg.Addr())

	cfg = Config{Host: "::1", Port: 6379}
	require.Equal(t, "[::1]:6379", cfg.Addr())
}

func TestConfig_YAML(t *testing.T) {
	input := `
host: cache
port: 6380
db: 2
pool:
  size: 8
  minIdle: 1
  timeout: 750ms
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(input), &cfg))
	SetDefaults(&cfg)

	require.Equal(t, "cache", cfg.Host)
	require.Equal(t, 6380, cfg.Port)
	require.Equal(t, 2, cfg.DB)
	require.Equal(t, 8, cfg.Pool.Size)
	require.Equal(t, 1, cfg.Pool.MinIdle)
	require.Equal(t, 750*time.Millisecond, cfg.Pool.Timeout)
	require.NoError(t, cfg.Validate())
}
