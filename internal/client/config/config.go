// Package config loads runtime configuration for the courier client.
//
// Sources, later ones override earlier ones:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags.
//
// Flags
//
//	-a string   address:port of the relay gRPC endpoint
//	-d string   data directory (database and attachment folder)
//	-t int      per-step network timeout, seconds
//	-b int      discovery batch size
//	-n int      concurrent delivery legs
//	-l string   log format: json, text or logrus
//	-v          debug logging
//
// JSON durations accept "3s" style strings or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "data_dir": "/var/lib/courier",
//	  "request_timeout": "15s",
//	  "discovery_batch_size": 2048,
//	  "delivery_concurrency": 4,
//	  "log_format": "text"
//	}
package config

import (
	"path/filepath"
	"time"
)

type Config struct {
	ServerEndpointAddr  string
	DataDir             string
	DBFile              string
	RequestTimeout      time.Duration
	DiscoveryBatchSize  int
	DeliveryConcurrency int
	LogFormat           string
	Debug               bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DataDir = ".courier"
	c.DBFile = "courier.db"
	c.RequestTimeout = 15 * time.Second
	c.DiscoveryBatchSize = 2048
	c.DeliveryConcurrency = 4
	c.LogFormat = "text"
	c.Debug = false
}

// DBPath is the SQLite file inside the data directory unless DBFile is
// absolute.
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.DBFile) {
		return c.DBFile
	}
	return filepath.Join(c.DataDir, c.DBFile)
}

// LoadConfig applies defaults, then JSON (if present), then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
