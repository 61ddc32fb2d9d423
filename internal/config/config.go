// ABOUTME: Configuration loading and parsing for chorus
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/2389/coven-chorus/internal/auth"
	"github.com/2389/coven-chorus/internal/generation"
	"github.com/2389/coven-chorus/internal/kvstore"
)

// Config represents the complete chorus configuration
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Generation GenerationConfig `yaml:"generation"`
	Auth       AuthConfig       `yaml:"auth"`
	Personas   PersonasConfig   `yaml:"personas"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// StoreConfig selects the key-value backend
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// GenerationConfig holds generation service overrides
type GenerationConfig struct {
	Service string `yaml:"service"`
	Model   string `yaml:"model"`

	StreamTimeout    time.Duration `yaml:"-"`
	StreamTimeoutRaw string        `yaml:"stream_timeout"`
}

// AuthConfig holds credential lookup configuration
type AuthConfig struct {
	EnvFile   string `yaml:"env_file"`
	SecretEnv string `yaml:"secret_env"`
}

// PersonasConfig points at the persona catalog
type PersonasConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file exists. Store files
// live under dataDir.
func Default(dataDir string) *Config {
	return &Config{
		Store: StoreConfig{
			Backend: kvstore.BackendSQLite,
			Path:    filepath.Join(dataDir, "chorus.db"),
		},
		Generation: GenerationConfig{
			StreamTimeout:    2 * time.Minute,
			StreamTimeoutRaw: "2m",
		},
		Auth: AuthConfig{
			EnvFile:   ".env",
			SecretEnv: "CHORUS_SECRET",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
			Path: "/metrics",
		},
	}
}

// Load reads a configuration file from the given path on top of the
// defaults. Environment variables in the format ${VAR_NAME} are expanded.
func Load(path, dataDir string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default(dataDir)
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Personas.Path = expandHome(cfg.Personas.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when path does
// not exist.
func LoadOrDefault(path, dataDir string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(dataDir), nil
	}
	return Load(path, dataDir)
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Validate checks that all configuration fields are valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case kvstore.BackendMemory:
	case kvstore.BackendSQLite, kvstore.BackendPebble:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s backend", c.Store.Backend)
		}
	default:
		return fmt.Errorf("store.backend must be one of memory, sqlite, pebble (got %q)", c.Store.Backend)
	}

	if c.Generation.Service != "" {
		if _, err := auth.ParseService(c.Generation.Service); err != nil {
			return fmt.Errorf("generation.service: %w", err)
		}
	}
	if c.Generation.Model != "" {
		if _, err := generation.ParseModel(c.Generation.Model); err != nil {
			return fmt.Errorf("generation.model: %w", err)
		}
	}
	if c.Generation.StreamTimeout < 0 {
		return fmt.Errorf("generation.stream_timeout must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Addr == "" {
			return fmt.Errorf("metrics.addr is required when metrics are enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with /")
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Generation.StreamTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Generation.StreamTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing stream_timeout %q: %w", cfg.Generation.StreamTimeoutRaw, err)
		}
		cfg.Generation.StreamTimeout = d
	}
	return nil
}
