package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/courier/internal/flagx"
)

// parseFlags overlays cfg with command-line flags. Only the flags listed
// here are parsed, so other loaders can share os.Args.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t", "-b", "-n", "-l", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the relay")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "per-step network timeout (in seconds)")
	fs.IntVar(&cfg.DiscoveryBatchSize, "b", cfg.DiscoveryBatchSize, "discovery batch size")
	fs.IntVar(&cfg.DeliveryConcurrency, "n", cfg.DeliveryConcurrency, "concurrent delivery legs")
	fs.StringVar(&cfg.LogFormat, "l", cfg.LogFormat, "log format: json, text or logrus")
	fs.BoolVar(&cfg.Debug, "v", cfg.Debug, "debug logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
