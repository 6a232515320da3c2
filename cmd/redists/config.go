package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	redists "github.com/nickman/redis-ts"
	"github.com/nickman/redis-ts/store/natsstore"
	"github.com/nickman/redis-ts/store/redisstore"
)

const (
	backendRedis = "redis"
	backendNATS  = "nats"
)

// fileConfig is the layout of the -config YAML file.
type fileConfig struct {
	// Backend selects the store: "redis" (default) or "nats".
	Backend string `yaml:"backend"`

	Controller redists.Config    `yaml:"controller"`
	Redis      redisstore.Config `yaml:"redis"`
	NATS       natsConfig        `yaml:"nats"`
	HTTP       httpConfig        `yaml:"http"`
	Log        logConfig         `yaml:"log"`
}

type natsConfig struct {
	// URL is a comma-separated list of server URLs.
	URL string `yaml:"url"`

	Store natsstore.Config `yaml:"store"`
}

type httpConfig struct {
	// Addr serves /live, /ready and /metrics. Empty disables the listener.
	Addr string `yaml:"addr"`
}

type logConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Backend:    backendRedis,
		Controller: redists.DefaultConfig(),
		Redis:      redisstore.DefaultConfig(),
		NATS: natsConfig{
			URL:   "nats://127.0.0.1:4222",
			Store: natsstore.DefaultConfig(),
		},
		HTTP: httpConfig{Addr: ":8086"},
		Log:  logConfig{Level: "info"},
	}
}

// loadConfig reads path over the defaults. Unknown keys are rejected so typos in pool
// settings fail loudly. An empty path returns the defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	if err := decodeConfig(f, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

func decodeConfig(r io.Reader, cfg *fileConfig) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

func (c *fileConfig) validate() error {
	switch c.Backend {
	case backendRedis, backendNATS:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", backendRedis, backendNATS, c.Backend)
	}

	if c.Backend == backendNATS && c.NATS.URL == "" {
		return errors.New("nats.url must not be empty")
	}

	return nil
}
