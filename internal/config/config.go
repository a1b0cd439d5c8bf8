package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up next to the executable when
// --config is not given.
const FileName = "devserve.toml"

// Config holds the devserve configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	CORS      CORSConfig      `toml:"cors" yaml:"cors"`
	Log       LogConfig       `toml:"log" yaml:"log"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
	Watch     WatchConfig     `toml:"watch" yaml:"watch"`
}

// ServerConfig holds listener and filesystem settings.
type ServerConfig struct {
	Host string `toml:"host" yaml:"host"`
	Port int    `toml:"port" yaml:"port"`
	// Root is the directory files are served from. Empty means the
	// directory containing the running executable.
	Root string `toml:"root,omitempty" yaml:"root,omitempty"`
}

// CORSConfig holds the values of the CORS headers added to every response.
type CORSConfig struct {
	AllowOrigin  string `toml:"allow_origin" yaml:"allow_origin"`
	AllowMethods string `toml:"allow_methods" yaml:"allow_methods"`
	AllowHeaders string `toml:"allow_headers" yaml:"allow_headers"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Access bool   `toml:"access" yaml:"access"`
}

// RateLimitConfig holds the optional per-client rate limit.
type RateLimitConfig struct {
	Enabled bool    `toml:"enabled" yaml:"enabled"`
	Rate    float64 `toml:"rate" yaml:"rate"`
	Burst   int     `toml:"burst" yaml:"burst"`
}

// WatchConfig controls reloading of the config file while serving.
type WatchConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// Default returns a config with every field set to its default.
func Default() *Config {
	cfg := &Config{Log: LogConfig{Access: true}}
	cfg.applyDefaults()
	return cfg
}

// LoadFrom reads config from the given path, applying defaults.
// If the file doesn't exist, returns a config with defaults.
// Files ending in .yaml or .yml are decoded as YAML, anything else as TOML.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes config to the given path, creating directories as needed.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := c.Encode(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Encode renders the config in the format implied by path's extension.
func (c *Config) Encode(path string) ([]byte, error) {
	if isYAML(path) {
		data, err := yaml.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
		return data, nil
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit: rate and burst must be positive")
	}
	return nil
}

// Addr returns the host:port the listener binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// RootDir returns the absolute directory to serve files from.
func (c *Config) RootDir() (string, error) {
	root := c.Server.Root
	if root == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return "", err
		}
		root = dir
	}

	root, err := ExpandPath(root)
	if err != nil {
		return "", err
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s is not a directory", root)
	}
	return root, nil
}

// ExecutableDir returns the directory containing the running binary,
// with symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// DefaultPath returns the config path used when none is given.
func DefaultPath() (string, error) {
	dir, err := ExecutableDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.CORS.AllowOrigin == "" {
		c.CORS.AllowOrigin = "*"
	}
	if c.CORS.AllowMethods == "" {
		c.CORS.AllowMethods = "GET, POST, OPTIONS"
	}
	if c.CORS.AllowHeaders == "" {
		c.CORS.AllowHeaders = "Content-Type"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.RateLimit.Rate == 0 {
		c.RateLimit.Rate = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 30
	}
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
