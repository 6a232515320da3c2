package connection

import (
	"fmt"
	"time"
)

// DefaultHeartbeatChannel is the publish/subscribe channel used for heartbeats.
const DefaultHeartbeatChannel = "redis-ts.heartbeat"

// Config holds connection manager timings.
type Config struct {
	// HeartbeatChannel is the publish/subscribe channel carrying heartbeats.
	HeartbeatChannel string `yaml:"heartbeatChannel"`

	// ReconnectPeriod is the store probe interval while connected and the maximum
	// delay between reconnect attempts.
	ReconnectPeriod time.Duration `yaml:"reconnectPeriod"`

	// ReconnectBackoffInitial is the delay before the first reconnect attempt.
	ReconnectBackoffInitial time.Duration `yaml:"reconnectBackoffInitial"`

	// ReconnectMaxAttempts bounds consecutive failed reconnect attempts. 0 means unlimited.
	ReconnectMaxAttempts int `yaml:"reconnectMaxAttempts"`

	// HeartbeatPeriod is the heartbeat monitor check interval.
	HeartbeatPeriod time.Duration `yaml:"heartbeatPeriod"`

	// HeartbeatPublishPeriod is the heartbeat publish interval.
	HeartbeatPublishPeriod time.Duration `yaml:"heartbeatPublishPeriod"`

	// HeartbeatTimeout is the maximum tolerated age of the latest heartbeat.
	HeartbeatTimeout time.Duration `yaml:"heartbeatTimeout"`

	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration `yaml:"connectTimeout"`

	// OperationTimeout bounds session checkout and store probes.
	OperationTimeout time.Duration `yaml:"operationTimeout"`
}

// DefaultConfig returns the default connection timings.
func DefaultConfig() Config {
	return Config{
		HeartbeatChannel:        DefaultHeartbeatChannel,
		ReconnectPeriod:         5 * time.Second,
		ReconnectBackoffInitial: 500 * time.Millisecond,
		HeartbeatPeriod:         3 * time.Second,
		HeartbeatPublishPeriod:  1500 * time.Millisecond,
		HeartbeatTimeout:        3 * time.Second,
		ConnectTimeout:          2 * time.Second,
		OperationTimeout:        5 * time.Second,
	}
}

// SetDefaults fills zero fields. Publish period defaults to half the heartbeat period and
// the timeout to the heartbeat period, so both follow a customized HeartbeatPeriod.
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.HeartbeatChannel == "" {
		cfg.HeartbeatChannel = defaults.HeartbeatChannel
	}
	if cfg.ReconnectPeriod == 0 {
		cfg.ReconnectPeriod = defaults.ReconnectPeriod
	}
	if cfg.ReconnectBackoffInitial == 0 {
		cfg.ReconnectBackoffInitial = min(defaults.ReconnectBackoffInitial, cfg.ReconnectPeriod)
	}
	if cfg.HeartbeatPeriod == 0 {
		cfg.HeartbeatPeriod = defaults.HeartbeatPeriod
	}
	if cfg.HeartbeatPublishPeriod == 0 {
		cfg.HeartbeatPublishPeriod = cfg.HeartbeatPeriod / 2
	}
	if cfg.HeartbeatTimeout == 0 {
		cfg.HeartbeatTimeout = cfg.HeartbeatPeriod
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
}

// Validate checks timing relationships.
func (cfg *Config) Validate() error {
	if cfg.HeartbeatChannel == "" {
		return fmt.Errorf("HeartbeatChannel must not be empty")
	}
	if cfg.ReconnectPeriod <= 0 {
		return fmt.Errorf("ReconnectPeriod must be > 0, got %v", cfg.ReconnectPeriod)
	}
	if cfg.ReconnectBackoffInitial <= 0 || cfg.ReconnectBackoffInitial > cfg.ReconnectPeriod {
		return fmt.Errorf("ReconnectBackoffInitial (%v) must be in (0, ReconnectPeriod (%v)]",
			cfg.ReconnectBackoffInitial, cfg.ReconnectPeriod)
	}
	if cfg.ReconnectMaxAttempts < 0 {
		return fmt.Errorf("ReconnectMaxAttempts must be >= 0, got %d", cfg.ReconnectMaxAttempts)
	}
	if cfg.HeartbeatPeriod <= 0 || cfg.HeartbeatPublishPeriod <= 0 || cfg.HeartbeatTimeout <= 0 {
		return fmt.Errorf("heartbeat periods must be > 0 (period=%v publish=%v timeout=%v)",
			cfg.HeartbeatPeriod, cfg.HeartbeatPublishPeriod, cfg.HeartbeatTimeout)
	}
	if cfg.HeartbeatPublishPeriod > cfg.HeartbeatTimeout {
		return fmt.Errorf("HeartbeatPublishPeriod (%v) must be <= HeartbeatTimeout (%v) or every check fails",
			cfg.HeartbeatPublishPeriod, cfg.HeartbeatTimeout)
	}
	if cfg.ConnectTimeout <= 0 {
		return fmt.Errorf("ConnectTimeout must be > 0, got %v", cfg.ConnectTimeout)
	}
	if cfg.OperationTimeout <= 0 {
		return fmt.Errorf("OperationTimeout must be > 0, got %v", cfg.OperationTimeout)
	}

	return nil
}
