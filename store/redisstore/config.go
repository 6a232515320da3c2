package redisstore

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the configuration for a Redis store.
type Config struct {
	// Host is the Redis server host name or address.
	Host string `yaml:"host"`

	// Port is the Redis server port.
	Port int `yaml:"port"`

	// Username for Redis 6 ACL authentication. Empty uses the default user.
	Username string `yaml:"username"`

	// Password for AUTH. Empty disables authentication.
	Password string `yaml:"password"`

	// DB is the database index selected on every pooled connection.
	DB int `yaml:"db"`

	// ClientName is sent with CLIENT SETNAME on every new connection.
	// Default: "redis-ts-<uuid>"
	ClientName string `yaml:"clientName"`

	// Pool tunes the connection pool.
	Pool PoolConfig `yaml:"pool"`
}

// PoolConfig tunes the go-redis connection pool.
type PoolConfig struct {
	// Size is the maximum number of connections, including checked-out sessions and
	// the heartbeat subscription.
	Size int `yaml:"size"`

	// MinIdle is the number of idle connections kept open.
	MinIdle int `yaml:"minIdle"`

	// Timeout bounds how long a caller waits for a free connection.
	Timeout time.Duration `yaml:"timeout"`

	// IdleTimeout closes connections idle for longer than this. Negative disables the check.
	IdleTimeout time.Duration `yaml:"idleTimeout"`

	// DialTimeout bounds establishing a new connection.
	DialTimeout time.Duration `yaml:"dialTimeout"`

	// ReadTimeout bounds socket reads.
	ReadTimeout time.Duration `yaml:"readTimeout"`

	// WriteTimeout bounds socket writes.
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// DefaultConfig returns defaults for a local Redis server.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		Host: "localhost",
		Port: 6379,
		Pool: PoolConfig{
			Size:         5,
			Timeout:      2 * time.Second,
			IdleTimeout:  5 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

// SetDefaults fills in missing configuration values with defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.Pool.Size == 0 {
		cfg.Pool.Size = defaults.Pool.Size
	}
	if cfg.Pool.Timeout == 0 {
		cfg.Pool.Timeout = defaults.Pool.Timeout
	}
	if cfg.Pool.IdleTimeout == 0 {
		cfg.Pool.IdleTimeout = defaults.Pool.IdleTimeout
	}
	if cfg.Pool.DialTimeout == 0 {
		cfg.Pool.DialTimeout = defaults.Pool.DialTimeout
	}
	if cfg.Pool.ReadTimeout == 0 {
		cfg.Pool.ReadTimeout = defaults.Pool.ReadTimeout
	}
	if cfg.Pool.WriteTimeout == 0 {
		cfg.Pool.WriteTimeout = defaults.Pool.WriteTimeout
	}
}

// Validate checks configuration constraints.
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.Host == "" {
		return errors.New("Host must not be empty")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("Port must be in 1..65535, got %d", cfg.Port)
	}
	if cfg.DB < 0 {
		return fmt.Errorf("DB must be >= 0, got %d", cfg.DB)
	}
	// One connection is held by the heartbeat subscription.
	if cfg.Pool.Size < 2 {
		return fmt.Errorf("Pool.Size must be >= 2, got %d", cfg.Pool.Size)
	}
	if cfg.Pool.MinIdle < 0 || cfg.Pool.MinIdle > cfg.Pool.Size {
		return fmt.Errorf("Pool.MinIdle must be in 0..Pool.Size (%d), got %d", cfg.Pool.Size, cfg.Pool.MinIdle)
	}
	if cfg.Pool.Timeout <= 0 {
		return fmt.Errorf("Pool.Timeout must be > 0, got %v", cfg.Pool.Timeout)
	}
	if cfg.Pool.DialTimeout <= 0 {
		return fmt.Errorf("Pool.DialTimeout must be > 0, got %v", cfg.Pool.DialTimeout)
	}

	return nil
}

// Addr returns host:port.
func (cfg *Config) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}
