package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/courier/internal/flagx"
	"github.com/dmitrijs2005/courier/internal/timex"
)

// JsonConfig is the on-disk form of Config. Zero values leave the current
// setting untouched.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	DataDir             string         `json:"data_dir"`
	DBFile              string         `json:"db_file"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	DiscoveryBatchSize  int            `json:"discovery_batch_size"`
	DeliveryConcurrency int            `json:"delivery_concurrency"`
	LogFormat           string         `json:"log_format"`
	Debug               *bool          `json:"debug"`
}

// parseJson overlays cfg with the file named by -c/-config. It panics on an
// unreadable or malformed file.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.DBFile != "" {
		cfg.DBFile = jc.DBFile
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DiscoveryBatchSize > 0 {
		cfg.DiscoveryBatchSize = jc.DiscoveryBatchSize
	}
	if jc.DeliveryConcurrency > 0 {
		cfg.DeliveryConcurrency = jc.DeliveryConcurrency
	}
	if jc.LogFormat != "" {
		cfg.LogFormat = jc.LogFormat
	}
	if jc.Debug != nil {
		cfg.Debug = *jc.Debug
	}
}
