// Package daemon wires configuration, storage, the scoring engine, and
// the HTTP server into the long-running sahayog process.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sahayog-network/sahayog/internal/app/cluster"
	"github.com/sahayog-network/sahayog/internal/app/scoring"
)

// Config is the daemon configuration, loaded from ~/.sahayog/config.toml.
type Config struct {
	API     APIConfig      `toml:"api"`
	Storage StorageConfig  `toml:"storage"`
	Graph   GraphConfig    `toml:"graph"`
	Scoring scoring.Config `toml:"scoring"`
	Cluster cluster.Config `toml:"cluster"`
	Sweep   SweepConfig    `toml:"sweep"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// Addr returns the host:port listen address.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// StorageConfig configures the SQLite data directory.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// GraphConfig configures the endorsement graph backend. An empty URI
// selects the in-memory graph.
type GraphConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// SweepConfig configures the periodic full recomputation.
type SweepConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"` // Go duration, e.g. "24h"
	Workers  int    `toml:"workers"`
}

// IntervalDuration parses the sweep interval, defaulting to 24h.
func (s SweepConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8314,
			Metrics: true,
		},
		Storage: StorageConfig{
			Dir: defaultDataDir(),
		},
		Scoring: scoring.DefaultConfig(),
		Cluster: cluster.DefaultConfig(),
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: "24h",
			Workers:  4,
		},
	}
}

// DefaultConfigPath returns ~/.sahayog/config.toml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".sahayog", "config.toml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".sahayog")
}

// Load reads the config file at path, layering it over the defaults.
// A missing file is not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the loaded configuration.
func (c Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir must be set")
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Cluster.Validate(); err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	if c.Sweep.Workers < 1 {
		return fmt.Errorf("sweep.workers must be >= 1, got %d", c.Sweep.Workers)
	}
	return nil
}
