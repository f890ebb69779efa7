// Package config loads the exchange's startup configuration from YAML,
// falling back to spec.md §6's documented defaults for anything the file
// omits.
package config

import (
	"os"

	"fenrir/internal/orderbook"

	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of the server's config file.
type Config struct {
	ListenAddress     string `yaml:"listen_address"`
	ListenPort        int    `yaml:"listen_port"`
	MetricsAddress    string `yaml:"metrics_address"`
	FeedAddress       string `yaml:"feed_address"`
	ArenaCapacity     int    `yaml:"arena_capacity"`
	QueueCapacityHint int    `yaml:"queue_capacity_hint"`
	TrackStats        bool   `yaml:"track_stats"`
}

// Default returns the spec's documented defaults plus reasonable listen
// addresses for the TCP, metrics and feed servers.
func Default() Config {
	bookDefaults := orderbook.DefaultConfig()
	return Config{
		ListenAddress:     "0.0.0.0",
		ListenPort:        9001,
		MetricsAddress:    ":9090",
		FeedAddress:       ":9002",
		ArenaCapacity:     bookDefaults.ArenaCapacity,
		QueueCapacityHint: bookDefaults.QueueCapacityHint,
		TrackStats:        bookDefaults.TrackStats,
	}
}

// Load reads a YAML config file at path, overlaying it onto Default(). A
// missing file is not an error: Load just returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BookConfig extracts the orderbook.Config portion of cfg.
func (c Config) BookConfig() orderbook.Config {
	return orderbook.Config{
		ArenaCapacity:     c.ArenaCapacity,
		QueueCapacityHint: c.QueueCapacityHint,
		TrackStats:        c.TrackStats,
	}
}
