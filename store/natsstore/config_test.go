package natsstore

import (
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	var cfg Config
	SetDefaults(&cfg)

	require.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty bucket", func(c *Config) { c.Bucket = "" }, "Bucket"},
		{"dotted bucket", func(c *Config) { c.Bucket = "redis-ts.config" }, "Bucket"},
		{"unknown storage", func(c *Config) { c.Storage = "disk" }, "Storage"},
		{"too many replicas", func(c *Config) { c.Replicas = 7 }, "Replicas"},
		{"empty pool", func(c *Config) { c.PoolSize = -1 }, "PoolSize"},
		{"negative retries", func(c *Config) { c.BucketRetries = -1 }, "BucketRetries"},
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

func TestConfig_StorageType(t *testing.T) {
	cfg := Config{Storage: "Memory"}
	storage, err := cfg.storageType()
	require.NoError(t, err)
	require.Equal(t, jetstream.MemoryStorage, storage)

	cfg.Storage = "file"
	storage, err = cfg.storageType()
	require.NoError(t, err)
	require.Equal(t, jetstream.FileStorage, storage)
}
