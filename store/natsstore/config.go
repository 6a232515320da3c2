package natsstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// Config is the configuration for a NATS store.
type Config struct {
	// Bucket is the JetStream KV bucket holding the control-plane keys.
	Bucket string `yaml:"bucket"`

	// Storage is "file" or "memory".
	Storage string `yaml:"storage"`

	// Replicas is the bucket replication factor.
	Replicas int `yaml:"replicas"`

	// PoolSize bounds the number of sessions checked out at once.
	PoolSize int `yaml:"poolSize"`

	// BucketRetries is the number of retries when bucket creation races another client.
	BucketRetries int `yaml:"bucketRetries"`
}

// DefaultConfig returns the default NATS store configuration.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		Bucket:        "redis-ts-config",
		Storage:       "file",
		Replicas:      1,
		PoolSize:      5,
		BucketRetries: 3,
	}
}

// SetDefaults fills in missing configuration values with defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Bucket == "" {
		cfg.Bucket = defaults.Bucket
	}
	if cfg.Storage == "" {
		cfg.Storage = defaults.Storage
	}
	if cfg.Replicas == 0 {
		cfg.Replicas = defaults.Replicas
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.BucketRetries == 0 {
		cfg.BucketRetries = defaults.BucketRetries
	}
}

// Validate checks configuration constraints.
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.Bucket == "" {
		return errors.New("Bucket must not be empty")
	}
	if strings.ContainsAny(cfg.Bucket, ". *>") {
		return fmt.Errorf("Bucket must not contain '.', ' ', '*' or '>', got %q", cfg.Bucket)
	}
	if _, err := cfg.storageType(); err != nil {
		return err
	}
	if cfg.Replicas < 1 || cfg.Replicas > 5 {
		return fmt.Errorf("Replicas must be in 1..5, got %d", cfg.Replicas)
	}
	if cfg.PoolSize < 1 {
		return fmt.Errorf("PoolSize must be >= 1, got %d", cfg.PoolSize)
	}
	if cfg.BucketRetries < 0 {
		return fmt.Errorf("BucketRetries must be >= 0, got %d", cfg.BucketRetries)
	}

	return nil
}

func (cfg *Config) storageType() (jetstream.StorageType, error) {
	switch strings.ToLower(cfg.Storage) {
	case "file":
		return jetstream.FileStorage, nil
	case "memory":
		return jetstream.MemoryStorage, nil
	default:
		return 0, fmt.Errorf("Storage must be \"file\" or \"memory\", got %q", cfg.Storage)
	}
}
