// Package config loads the optional vttc.toml project configuration.
// CLI flags override anything set here.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultFilename is the configuration file looked up in the working
// directory.
const DefaultFilename = "vttc.toml"

// Config is the tool configuration.
type Config struct {
	// Yosys is the synthesizer binary path. Empty resolves "yosys" from
	// PATH.
	Yosys string `toml:"yosys"`

	// Compact enables compact packing by default.
	Compact bool `toml:"compact"`

	// ClockSpeed is written into the save header.
	ClockSpeed uint32 `toml:"clock_speed"`

	// WireColor is the color index written on every wire.
	WireColor uint8 `toml:"wire_color"`

	// Cache configures the synthesis cache.
	Cache CacheConfig `toml:"cache"`

	// Server configures the compile server.
	Server ServerConfig `toml:"server"`
}

// CacheConfig selects and parameterizes the cache backend.
type CacheConfig struct {
	// Backend is "file", "redis", or "none". Empty means "file".
	Backend string `toml:"backend"`
	// Dir is the file backend's directory. Empty resolves to
	// "vttc" in the user cache dir.
	Dir string `toml:"dir"`
	// Redis is the redis backend address (host:port).
	Redis string `toml:"redis"`
	// RedisPassword authenticates the redis connection.
	RedisPassword string `toml:"redis_password"`
	// RedisDB selects the redis database index.
	RedisDB int `toml:"redis_db"`
}

// ServerConfig parameterizes `vttc serve`.
type ServerConfig struct {
	// Addr is the listen address. Empty means ":8080".
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ClockSpeed: 100000,
		Cache:      CacheConfig{Backend: "file"},
		Server:     ServerConfig{Addr: ":8080"},
	}
}

// Load reads the configuration file at path, or the defaults when the
// file does not exist. A present-but-malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFilename
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// CacheDir resolves the file cache directory, defaulting into the user
// cache directory.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "vttc")
}
