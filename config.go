package redists

import (
	"errors"
	"fmt"
	"time"

	"github.com/nickman/redis-ts/internal/connection"
)

// Store key layout: <KeyRoot><KeyDelimiter>config<KeyDelimiter><name>.
const (
	configSegment   = "config"
	modelSegment    = "model"
	tierNameSegment = "tier-names"
)

// Config is the configuration for the Controller.
//
// All duration fields accept standard Go duration strings like "500ms", "3s", "1m".
type Config struct {
	// Model is the tier schedule expression, e.g. "p=15s,d=15m | p=2m,d=1h".
	// It is parsed when the controller is created and written verbatim on first init.
	Model string `yaml:"model"`

	// KeyRoot is the first segment of every control-plane key.
	KeyRoot string `yaml:"keyRoot"`

	// KeyDelimiter joins key segments.
	KeyDelimiter string `yaml:"keyDelimiter"`

	// HeartbeatChannel is the publish/subscribe channel carrying heartbeats.
	HeartbeatChannel string `yaml:"heartbeatChannel"`

	// ReconnectPeriod is how often a connected store is probed, and the cap on the delay
	// between reconnect attempts.
	ReconnectPeriod time.Duration `yaml:"reconnectPeriod"`

	// ReconnectBackoffInitial is the delay before the first reconnect attempt.
	// Later attempts back off exponentially up to ReconnectPeriod.
	ReconnectBackoffInitial time.Duration `yaml:"reconnectBackoffInitial"`

	// ReconnectMaxAttempts bounds consecutive failed reconnect attempts.
	// 0 retries forever.
	ReconnectMaxAttempts int `yaml:"reconnectMaxAttempts"`

	// HeartbeatPeriod is how often heartbeat freshness is checked.
	HeartbeatPeriod time.Duration `yaml:"heartbeatPeriod"`

	// HeartbeatPublishPeriod is how often heartbeats are published.
	// Default: HeartbeatPeriod / 2
	HeartbeatPublishPeriod time.Duration `yaml:"heartbeatPublishPeriod"`

	// HeartbeatTimeout is the maximum age of the latest heartbeat before a check fails.
	// Default: HeartbeatPeriod
	HeartbeatTimeout time.Duration `yaml:"heartbeatTimeout"`

	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration `yaml:"connectTimeout"`

	// OperationTimeout bounds session checkout and store probes.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// StartupTimeout bounds how long Start waits for the first reconciliation.
	StartupTimeout time.Duration `yaml:"startupTimeout"`

	// ShutdownTimeout bounds how long Stop waits for background tasks.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DefaultConfig returns the production defaults. Model has no default.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	conn := connection.DefaultConfig()

	return Config{
		KeyRoot:                 "redis-ts",
		KeyDelimiter:            ".",
		HeartbeatChannel:        conn.HeartbeatChannel,
		ReconnectPeriod:         conn.ReconnectPeriod,
		ReconnectBackoffInitial: conn.ReconnectBackoffInitial,
		ReconnectMaxAttempts:    conn.ReconnectMaxAttempts,
		HeartbeatPeriod:         conn.HeartbeatPeriod,
		HeartbeatPublishPeriod:  conn.HeartbeatPublishPeriod,
		HeartbeatTimeout:        conn.HeartbeatTimeout,
		ConnectTimeout:          conn.ConnectTimeout,
		OperationTimeout:        conn.OperationTimeout,
		StartupTimeout:          30 * time.Second,
		ShutdownTimeout:         10 * time.Second,
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.KeyRoot == "" {
		cfg.KeyRoot = defaults.KeyRoot
	}
	if cfg.KeyDelimiter == "" {
		cfg.KeyDelimiter = defaults.KeyDelimiter
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaults.StartupTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	conn := cfg.connectionConfig()
	connection.SetDefaults(&conn)
	cfg.HeartbeatChannel = conn.HeartbeatChannel
	cfg.ReconnectPeriod = conn.ReconnectPeriod
	cfg.ReconnectBackoffInitial = conn.ReconnectBackoffInitial
	cfg.HeartbeatPeriod = conn.HeartbeatPeriod
	cfg.HeartbeatPublishPeriod = conn.HeartbeatPublishPeriod
	cfg.HeartbeatTimeout = conn.HeartbeatTimeout
	cfg.ConnectTimeout = conn.ConnectTimeout
	cfg.OperationTimeout = conn.OperationTimeout
}

// Validate checks configuration constraints and returns error for invalid values.
//
// Hard Validation Rules:
//   - Model, KeyRoot and KeyDelimiter are non-empty
//   - All periods and timeouts are > 0
//   - ReconnectBackoffInitial <= ReconnectPeriod
//   - HeartbeatPublishPeriod <= HeartbeatTimeout (otherwise every check fails)
//
// The schedule grammar is checked by NewController, which returns the tier error.
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.Model == "" {
		return errors.New("Model must not be empty")
	}
	if cfg.KeyRoot == "" {
		return errors.New("KeyRoot must not be empty")
	}
	if cfg.KeyDelimiter == "" {
		return errors.New("KeyDelimiter must not be empty")
	}
	if cfg.StartupTimeout <= 0 {
		return fmt.Errorf("StartupTimeout must be > 0, got %v", cfg.StartupTimeout)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("ShutdownTimeout must be > 0, got %v", cfg.ShutdownTimeout)
	}

	conn := cfg.connectionConfig()

	return conn.Validate()
}

// ValidateWithWarnings logs warnings for legal but risky values.
//
// This is called after Validate() in NewController() to provide operator guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.HeartbeatTimeout < 2*cfg.HeartbeatPublishPeriod {
		logger.Warn(
			"HeartbeatTimeout tolerates no missed heartbeat",
			"heartbeatTimeout", cfg.HeartbeatTimeout,
			"heartbeatPublishPeriod", cfg.HeartbeatPublishPeriod,
			"recommended", 2*cfg.HeartbeatPublishPeriod,
		)
	}

	if cfg.StartupTimeout < cfg.ConnectTimeout {
		logger.Warn(
			"StartupTimeout is shorter than ConnectTimeout, Start may fail before the first attempt completes",
			"startupTimeout", cfg.StartupTimeout,
			"connectTimeout", cfg.ConnectTimeout,
		)
	}

	if cfg.ReconnectMaxAttempts > 0 {
		logger.Warn(
			"ReconnectMaxAttempts is set, the controller stays disconnected after giving up",
			"reconnectMaxAttempts", cfg.ReconnectMaxAttempts,
		)
	}
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Use DefaultConfig() for production deployments.
//
// Parameters:
//   - model: Schedule expression
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := redists.TestConfig("p=15s,d=15m|p=2m,d=1h")
//	ctrl, err := redists.NewController(&cfg, store)
func TestConfig(model string) Config {
	cfg := DefaultConfig()
	cfg.Model = model

	cfg.ReconnectPeriod = 100 * time.Millisecond        // 50x faster
	cfg.ReconnectBackoffInitial = 10 * time.Millisecond // 50x faster
	cfg.HeartbeatPeriod = 50 * time.Millisecond         // 60x faster
	cfg.HeartbeatPublishPeriod = 10 * time.Millisecond  // 150x faster
	cfg.HeartbeatTimeout = 250 * time.Millisecond       // 12x faster
	cfg.ConnectTimeout = 500 * time.Millisecond         // 4x faster
	cfg.OperationTimeout = 500 * time.Millisecond       // 10x faster
	cfg.StartupTimeout = 3 * time.Second                // 10x faster
	cfg.ShutdownTimeout = 3 * time.Second               // 3x faster

	return cfg
}

// ModelKey returns the store key holding the schedule expression.
func (cfg *Config) ModelKey() string {
	return cfg.key(modelSegment)
}

// TierNamesKey returns the store key holding the comma-separated tier names.
func (cfg *Config) TierNamesKey() string {
	return cfg.key(tierNameSegment)
}

func (cfg *Config) key(name string) string {
	return cfg.KeyRoot + cfg.KeyDelimiter + configSegment + cfg.KeyDelimiter + name
}

func (cfg *Config) connectionConfig() connection.Config {
	return connection.Config{
		HeartbeatChannel:        cfg.HeartbeatChannel,
		ReconnectPeriod:         cfg.ReconnectPeriod,
		ReconnectBackoffInitial: cfg.ReconnectBackoffInitial,
		ReconnectMaxAttempts:    cfg.ReconnectMaxAttempts,
		HeartbeatPeriod:         cfg.HeartbeatPeriod,
		HeartbeatPublishPeriod:  cfg.HeartbeatPublishPeriod,
		HeartbeatTimeout:        cfg.HeartbeatTimeout,
		ConnectTimeout:          cfg.ConnectTimeout,
		OperationTimeout:        cfg.OperationTimeout,
	}
}
