// Package util provides configuration and logging for netdiag.
package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataDir    string `mapstructure:"data_dir" yaml:"data_dir"`
	RecordsDir string `mapstructure:"records_dir" yaml:"records_dir"`
	IndexPath  string `mapstructure:"index_path" yaml:"index_path"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`

	// Probe defaults
	PingCount       int           `mapstructure:"ping_count" yaml:"ping_count"`
	DefaultTarget   string        `mapstructure:"default_target" yaml:"default_target"`
	PortTimeout     time.Duration `mapstructure:"port_timeout" yaml:"port_timeout"`
	DiscoverTimeout time.Duration `mapstructure:"discover_timeout" yaml:"discover_timeout"`

	// DNS checks
	DNSResolver   string `mapstructure:"dns_resolver" yaml:"dns_resolver"`
	DNSLookupName string `mapstructure:"dns_lookup_name" yaml:"dns_lookup_name"`
	DoHURL        string `mapstructure:"doh_url" yaml:"doh_url"`

	// MTU discovery
	MTUStart int `mapstructure:"mtu_start" yaml:"mtu_start"`
	MTUStep  int `mapstructure:"mtu_step" yaml:"mtu_step"`
	MTUFloor int `mapstructure:"mtu_floor" yaml:"mtu_floor"`

	// HTTP probes
	CaptiveURL      string   `mapstructure:"captive_url" yaml:"captive_url"`
	DownloadURLs    []string `mapstructure:"download_urls" yaml:"download_urls"`
	PublicIPSources []string `mapstructure:"public_ip_sources" yaml:"public_ip_sources"`

	// Web server
	WebPort int `mapstructure:"web_port" yaml:"web_port"`

	// Number of records offered for prognosis and history views
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".netdiag")

	return &Config{
		DataDir:    dataDir,
		RecordsDir: filepath.Join(dataDir, "records"),
		IndexPath:  filepath.Join(dataDir, "history.db"),
		LogLevel:   "info",
		LogFile:    filepath.Join(dataDir, "netdiag.log"),

		PingCount:       10,
		DefaultTarget:   "8.8.8.8",
		PortTimeout:     2 * time.Second,
		DiscoverTimeout: 30 * time.Second,

		DNSResolver:   "8.8.8.8",
		DNSLookupName: "google.com",
		DoHURL:        "https://dns.google/resolve",

		MTUStart: 1472,
		MTUStep:  10,
		MTUFloor: 1000,

		CaptiveURL: "http://clients3.google.com/generate_204",
		DownloadURLs: []string{
			"https://nbg1-speed.hetzner.com/100MB.bin",
		},
		PublicIPSources: []string{
			"https://api.ipify.org",
			"https://ifconfig.me/ip",
			"https://icanhazip.com",
		},

		WebPort:      8088,
		HistoryLimit: 10,
	}
}

// LoadConfig loads configuration from $HOME/.netdiag/config.yaml or
// ./config.yaml, then NETDIAG_* environment variables.
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile loads configuration from an explicit file when path is set.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(cfg.DataDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NETDIAG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Set defaults in viper
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("records_dir", "")
	v.SetDefault("index_path", "")
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("ping_count", cfg.PingCount)
	v.SetDefault("default_target", cfg.DefaultTarget)
	v.SetDefault("port_timeout", cfg.PortTimeout)
	v.SetDefault("discover_timeout", cfg.DiscoverTimeout)
	v.SetDefault("dns_resolver", cfg.DNSResolver)
	v.SetDefault("dns_lookup_name", cfg.DNSLookupName)
	v.SetDefault("doh_url", cfg.DoHURL)
	v.SetDefault("mtu_start", cfg.MTUStart)
	v.SetDefault("mtu_step", cfg.MTUStep)
	v.SetDefault("mtu_floor", cfg.MTUFloor)
	v.SetDefault("captive_url", cfg.CaptiveURL)
	v.SetDefault("download_urls", cfg.DownloadURLs)
	v.SetDefault("public_ip_sources", cfg.PublicIPSources)
	v.SetDefault("web_port", cfg.WebPort)
	v.SetDefault("history_limit", cfg.HistoryLimit)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Paths left empty follow data_dir
	if cfg.RecordsDir == "" {
		cfg.RecordsDir = filepath.Join(cfg.DataDir, "records")
	}
	if cfg.IndexPath == "" {
		cfg.IndexPath = filepath.Join(cfg.DataDir, "history.db")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "netdiag.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings the probes cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.PingCount <= 0:
		return fmt.Errorf("ping_count must be positive, got %d", c.PingCount)
	case c.MTUStep <= 0:
		return fmt.Errorf("mtu_step must be positive, got %d", c.MTUStep)
	case c.MTUFloor <= 0 || c.MTUStart < c.MTUFloor:
		return fmt.Errorf("mtu_start (%d) must be at least mtu_floor (%d) and both positive", c.MTUStart, c.MTUFloor)
	case c.PortTimeout <= 0:
		return fmt.Errorf("port_timeout must be positive, got %s", c.PortTimeout)
	case c.WebPort <= 0 || c.WebPort > 65535:
		return fmt.Errorf("web_port out of range: %d", c.WebPort)
	}
	return nil
}

// YAML renders the effective configuration.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(out), nil
}

// EnsureDir ensures a directory exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// SanitizeTitle makes a probe title safe to embed in a file name.
func SanitizeTitle(title string) string {
	r := strings.NewReplacer(".", "_", "/", "_", " ", "_", ":", "_", "\\", "_")
	return r.Replace(strings.TrimSpace(title))
}
