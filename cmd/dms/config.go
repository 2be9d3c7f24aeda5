package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration. Values come from an optional YAML
// file; command line flags override it.
type Config struct {
	// HTTPAddr is the listen address of the HTTP server.
	HTTPAddr string `yaml:"http_addr"`
	// MongoURI is the MongoDB connection string. Ignored when Memory is set.
	MongoURI string `yaml:"mongo_uri"`
	// DBPrefix is prepended to logical database names in MongoDB.
	DBPrefix string `yaml:"db_prefix"`
	// Memory selects the in-process store instead of MongoDB.
	Memory bool `yaml:"memory"`
	// Debug enables request/response body logging, pprof endpoints and
	// tracebacks in error envelopes.
	Debug bool `yaml:"debug"`
	// RateLimit caps requests per second across all clients; 0 disables
	// limiting.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the burst size of the rate limiter.
	RateBurst int `yaml:"rate_burst"`
}

func defaultConfig() Config {
	return Config{
		HTTPAddr:  ":8080",
		MongoURI:  "mongodb://localhost:27017",
		RateBurst: 100,
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
