// Package config loads supplyshock settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/supplyshock/internal/reasoning"
)

// Config contains all supplyshock settings.
type Config struct {
	Reasoning ReasoningConfig `json:"reasoning" yaml:"reasoning"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Export    ExportConfig    `json:"export" yaml:"export"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`

	// TopologyFile optionally replaces the built-in baseline network with
	// one loaded from YAML or JSON.
	TopologyFile string `json:"topology_file,omitempty" yaml:"topology_file,omitempty"`
}

// ReasoningConfig selects and configures the reasoning backend.
type ReasoningConfig struct {
	// Provider is "backboard", "anthropic" or "rules" (offline).
	Provider string `json:"provider" yaml:"provider"`

	// APIKey supports ${VAR} expansion.
	APIKey        string        `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL       string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model         string        `json:"model,omitempty" yaml:"model,omitempty"`
	AssistantName string        `json:"assistant_name,omitempty" yaml:"assistant_name,omitempty"`
	Timeout       time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// RedactedAPIKey returns the API key with most characters masked, e.g.
// "sk-a...xyz9". Keys shorter than 12 characters show as "(set)".
func (c ReasoningConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String keeps the API key out of logs.
func (c ReasoningConfig) String() string {
	return fmt.Sprintf("ReasoningConfig{Provider:%s, APIKey:%s, Model:%s, BaseURL:%s}",
		c.Provider, c.RedactedAPIKey(), c.Model, c.BaseURL)
}

// ClientConfig converts to the reasoning package's client settings.
func (c ReasoningConfig) ClientConfig() reasoning.ClientConfig {
	return reasoning.ClientConfig{
		Provider:      c.Provider,
		APIKey:        c.APIKey,
		BaseURL:       c.BaseURL,
		Model:         c.Model,
		Timeout:       c.Timeout,
		AssistantName: c.AssistantName,
	}
}

// StoreConfig selects where session records are kept.
type StoreConfig struct {
	// Driver is "sqlite", "postgres" or "memory".
	Driver string `json:"driver" yaml:"driver"`

	// Path is the SQLite file. Empty means <home>/supplyshock.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// DSN is the Postgres connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// ExportConfig selects where reports are written.
type ExportConfig struct {
	// Driver is "fs" or "s3".
	Driver string `json:"driver" yaml:"driver"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`

	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"path_style,omitempty" yaml:"path_style,omitempty"`
}

// LoggingConfig configures operational and decision logging.
type LoggingConfig struct {
	// Level is error, warn, info (default), debug or trace. Debug and
	// trace also write decisions.jsonl under DecisionDir.
	Level string `json:"level" yaml:"level"`

	// DecisionDir defaults to the supplyshock home directory.
	DecisionDir string `json:"decision_dir,omitempty" yaml:"decision_dir,omitempty"`
}

// HomeDir is where supplyshock keeps its config, database and logs:
// $SUPPLYSHOCK_HOME, or ~/.supplyshock.
func HomeDir() string {
	if v := os.Getenv("SUPPLYSHOCK_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".supplyshock"
	}
	return filepath.Join(home, ".supplyshock")
}

// Default returns the built-in configuration: offline reasoning, SQLite
// storage and filesystem export.
func Default() *Config {
	return &Config{
		Reasoning: ReasoningConfig{
			Provider: reasoning.ProviderRules,
			Timeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:3001",
		},
		Export: ExportConfig{
			Driver: "fs",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration in the order defaults -> file -> environment.
// With an empty path, <home>/config.yaml is used when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidate := filepath.Join(HomeDir(), "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file on top of Default().
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Reasoning.APIKey = expandEnvVars(cfg.Reasoning.APIKey)
	cfg.Store.DSN = expandEnvVars(cfg.Store.DSN)

	return cfg, nil
}

// Validate checks enum fields and obvious inconsistencies.
func (c *Config) Validate() error {
	validProviders := map[string]bool{"": true, "backboard": true, "anthropic": true, "rules": true}
	if !validProviders[c.Reasoning.Provider] {
		return fmt.Errorf("invalid reasoning provider: %s (valid: backboard, anthropic, rules)", c.Reasoning.Provider)
	}
	if c.Reasoning.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Reasoning.Timeout)
	}

	switch c.Store.Driver {
	case "", "sqlite", "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver postgres requires a dsn")
		}
	default:
		return fmt.Errorf("invalid store driver: %s (valid: sqlite, postgres, memory)", c.Store.Driver)
	}

	switch c.Export.Driver {
	case "", "fs":
	case "s3":
		if c.Export.Bucket == "" {
			return fmt.Errorf("export driver s3 requires a bucket")
		}
	default:
		return fmt.Errorf("invalid export driver: %s (valid: fs, s3)", c.Export.Driver)
	}

	validLevels := map[string]bool{"": true, "error": true, "warn": true, "info": true, "debug": true, "trace": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace)", c.Logging.Level)
	}

	return nil
}

// StorePath returns the SQLite path, defaulting under HomeDir.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(HomeDir(), "supplyshock.db")
}

// ExportDir returns the report directory, defaulting under HomeDir.
func (c *Config) ExportDir() string {
	if c.Export.Dir != "" {
		return c.Export.Dir
	}
	return filepath.Join(HomeDir(), "reports")
}

// DecisionDir returns where decisions.jsonl goes.
func (c *Config) DecisionDir() string {
	if c.Logging.DecisionDir != "" {
		return c.Logging.DecisionDir
	}
	return HomeDir()
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SUPPLYSHOCK_PROVIDER"); v != "" {
		cfg.Reasoning.Provider = v
	}
	if v := os.Getenv("SUPPLYSHOCK_MODEL"); v != "" {
		cfg.Reasoning.Model = v
	}
	if v := os.Getenv("SUPPLYSHOCK_BASE_URL"); v != "" {
		cfg.Reasoning.BaseURL = v
	}
	if v := os.Getenv("SUPPLYSHOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Reasoning.Timeout = d
		}
	}
	if v := os.Getenv("BACKBOARD_API_KEY"); v != "" && cfg.Reasoning.Provider == "backboard" {
		cfg.Reasoning.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.Reasoning.Provider == "anthropic" {
		cfg.Reasoning.APIKey = v
	}

	if v := os.Getenv("SUPPLYSHOCK_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("SUPPLYSHOCK_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("SUPPLYSHOCK_DATABASE_URL"); v != "" {
		cfg.Store.DSN = v
	}

	if v := os.Getenv("SUPPLYSHOCK_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if v := os.Getenv("SUPPLYSHOCK_EXPORT_DRIVER"); v != "" {
		cfg.Export.Driver = v
	}
	if v := os.Getenv("SUPPLYSHOCK_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("SUPPLYSHOCK_S3_BUCKET"); v != "" {
		cfg.Export.Bucket = v
	}
	if v := os.Getenv("SUPPLYSHOCK_S3_REGION"); v != "" {
		cfg.Export.Region = v
	}
	if v := os.Getenv("SUPPLYSHOCK_S3_ENDPOINT"); v != "" {
		cfg.Export.Endpoint = v
	}
	if v := os.Getenv("SUPPLYSHOCK_S3_PATH_STYLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Export.PathStyle = b
		}
	}

	if v := os.Getenv("SUPPLYSHOCK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SUPPLYSHOCK_TOPOLOGY_FILE"); v != "" {
		cfg.TopologyFile = v
	}
}

// expandEnvVars expands ${VAR} patterns.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
