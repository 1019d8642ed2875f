package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigFile_Overrides(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	path := writeConfig(t, `
data_dir: `+dataDir+`
ping_count: 4
port_timeout: 500ms
mtu_floor: 1200
download_urls:
  - http://example.test/10MB.bin
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, 4, cfg.PingCount)
	assert.Equal(t, 500*time.Millisecond, cfg.PortTimeout)
	assert.Equal(t, 1200, cfg.MTUFloor)
	assert.Equal(t, []string{"http://example.test/10MB.bin"}, cfg.DownloadURLs)

	// Untouched keys keep their defaults
	assert.Equal(t, 1472, cfg.MTUStart)
	assert.Equal(t, 10, cfg.MTUStep)
	assert.Equal(t, 30*time.Second, cfg.DiscoverTimeout)
	assert.Equal(t, "8.8.8.8", cfg.DNSResolver)

	// Derived paths follow data_dir
	assert.Equal(t, filepath.Join(dataDir, "records"), cfg.RecordsDir)
	assert.Equal(t, filepath.Join(dataDir, "history.db"), cfg.IndexPath)
	assert.Equal(t, filepath.Join(dataDir, "netdiag.log"), cfg.LogFile)
	assert.DirExists(t, dataDir)
}

func TestLoadConfigFile_EnvOverride(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, "data_dir: "+dataDir+"\n")
	t.Setenv("NETDIAG_PING_COUNT", "3")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.PingCount)
}

func TestLoadConfigFile_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	path := writeConfig(t, "data_dir: "+t.TempDir()+"\nmtu_step: 0\n")

	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mtu_step")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero ping count", func(c *Config) { c.PingCount = 0 }, "ping_count"},
		{"start below floor", func(c *Config) { c.MTUStart = 900 }, "mtu_start"},
		{"negative timeout", func(c *Config) { c.PortTimeout = -time.Second }, "port_timeout"},
		{"port out of range", func(c *Config) { c.WebPort = 70000 }, "web_port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_YAML(t *testing.T) {
	cfg := DefaultConfig()
	out, err := cfg.YAML()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 1472, decoded["mtu_start"])
	assert.Equal(t, "2s", decoded["port_timeout"])
	assert.Equal(t, "8.8.8.8", decoded["default_target"])
}

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "ping_8_8_8_8", SanitizeTitle("ping_8.8.8.8"))
	assert.Equal(t, "traceroute_example_com", SanitizeTitle(" traceroute example.com "))
	assert.Equal(t, "netcat_fe80__1", SanitizeTitle("netcat_fe80::1"))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
}
