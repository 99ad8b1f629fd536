package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, 2048, c.DiscoveryBatchSize)
	assert.Equal(t, 4, c.DeliveryConcurrency)
	assert.Equal(t, "text", c.LogFormat)
}

func TestLoadConfig_UsesDefaultsWithoutArgs(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"server_endpoint_addr": "json:1",
		"delivery_concurrency": 9,
	})
	os.Args = []string{"testbin", "-c", path, "-a", "flag:2"}

	cfg := LoadConfig()
	assert.Equal(t, "flag:2", cfg.ServerEndpointAddr)
	assert.Equal(t, 9, cfg.DeliveryConcurrency)
}

func TestDBPath(t *testing.T) {
	c := Config{DataDir: "/data", DBFile: "x.db"}
	assert.Equal(t, filepath.Join("/data", "x.db"), c.DBPath())

	c.DBFile = "/abs/y.db"
	assert.Equal(t, "/abs/y.db", c.DBPath())
}
