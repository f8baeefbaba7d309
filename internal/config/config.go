// Package config handles gatewayd configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.toml, ~/.config/gatewayd/config.toml, /config/config.toml,
// /etc/gatewayd/config.toml.
func DefaultSearchPaths() []string {
	paths := []string{"config.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "gatewayd", "config.toml"))
	}

	paths = append(paths, "/config/config.toml") // Container convention
	paths = append(paths, "/etc/gatewayd/config.toml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all gatewayd configuration.
type Config struct {
	Listen   ListenConfig         `toml:"listen"`
	Auth     AuthConfig           `toml:"auth"`
	Redis    RedisConfig          `toml:"redis"`
	Media    MediaConfig          `toml:"media"`
	Upstream UpstreamConfig       `toml:"upstream"`
	LogLevel string               `toml:"log_level"`
	Plugins  map[string]toml.Primitive `toml:"plugins"`
}

// ListenConfig defines the WebSocket server bind settings.
type ListenConfig struct {
	Address string `toml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `toml:"port"`
}

// AuthConfig defines the bearer-token check applied to incoming connections.
type AuthConfig struct {
	// Token is compared against the Authorization header using a
	// constant-time comparison. Empty disables the check: every
	// connection is accepted.
	Token string `toml:"token"`
}

// RedisConfig defines the connection used by the message journal.
type RedisConfig struct {
	Address  string `toml:"address"` // host:port
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MediaConfig defines where downloaded and decoded media segments are stored.
type MediaConfig struct {
	// Root is the directory media files are written to. Must be set for
	// the media pipeline to be active; if empty, media side-loading is
	// skipped and local_path is left unset.
	Root string `toml:"root"`
	// ProxyURL is an optional HTTP proxy used for outbound media downloads.
	ProxyURL string `toml:"proxy_url"`
}

// UpstreamConfig defines timeouts applied to the RPC correlator.
type UpstreamConfig struct {
	// RequestTimeoutSec bounds how long a single-shot action waits for
	// its matching echo before failing (default 20).
	RequestTimeoutSec int `toml:"request_timeout_sec"`
}

// Configured reports whether a Redis address has been set.
func (c RedisConfig) Configured() bool {
	return c.Address != ""
}

// Configured reports whether media side-loading has a destination directory.
func (c MediaConfig) Configured() bool {
	return c.Root != ""
}

// RequestTimeout returns the configured upstream request timeout as a
// time.Duration.
func (c UpstreamConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// Load reads configuration from a TOML file, expands environment
// variables, applies defaults for any unset fields, and validates
// the result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${REDIS_PASSWORD}, ${GATEWAY_TOKEN}).
	// This is a convenience for container deployments; the recommended
	// approach is to put values directly in the config file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// PluginConfig decodes the named plugin's configuration table into dst.
// Plugins that have no table in the config file leave dst untouched.
func (c *Config) PluginConfig(name string, dst any) error {
	prim, ok := c.Plugins[name]
	if !ok {
		return nil
	}
	return toml.PrimitiveDecode(prim, dst)
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Called automatically by Load. After this, callers can read any field
// without checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8080
	}
	if c.Redis.Address == "" {
		c.Redis.Address = "localhost:6379"
	}
	if c.Upstream.RequestTimeoutSec == 0 {
		c.Upstream.RequestTimeoutSec = 20
	}
}

// Validate checks that the configuration is internally consistent.
// It runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range (1-65535)", c.Listen.Port)
	}
	if c.Upstream.RequestTimeoutSec < 1 {
		return fmt.Errorf("upstream.request_timeout_sec must be positive")
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a default configuration suitable for local development
// against a local Redis instance. All defaults are already applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
