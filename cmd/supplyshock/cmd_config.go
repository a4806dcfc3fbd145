package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/supplyshock/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage supplyshock configuration",
		Long: `View and modify supplyshock configuration settings.

Configuration is stored in $SUPPLYSHOCK_HOME/config.yaml (default
~/.supplyshock/config.yaml). Environment variables override the file.

Examples:
  supplyshock config list
  supplyshock config get reasoning.provider
  supplyshock config set reasoning.provider anthropic
  supplyshock config set store.driver postgres`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfgPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if jsonOut {
				redacted := *cfg
				redacted.Reasoning.APIKey = cfg.Reasoning.RedactedAPIKey()
				return printJSON(cmd, redacted)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration (%s):\n\n", configPath(cfgPath))
			for _, key := range configKeys {
				v, _ := getConfigValue(cfg, key)
				s := fmt.Sprint(v)
				if s == "" {
					s = "(not set)"
				}
				fmt.Fprintf(out, "  %-22s %s\n", key+":", s)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfgPath, _ := cmd.Flags().GetString("config")
			key := args[0]

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}
			if jsonOut {
				return printJSON(cmd, map[string]any{"key": key, "value": value})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value and write the config file. Only the file is
updated: environment overrides present while running set are not saved.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfgPath, _ := cmd.Flags().GetString("config")
			key, value := args[0], args[1]

			path := configPath(cfgPath)
			cfg := config.Default()
			if _, err := os.Stat(path); err == nil {
				if cfg, err = config.LoadFromFile(path); err != nil {
					return err
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if err := saveConfig(path, cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return printJSON(cmd, map[string]string{"status": "updated", "key": key, "value": value})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// configKeys lists the keys config list prints, in order.
var configKeys = []string{
	"reasoning.provider",
	"reasoning.api_key",
	"reasoning.base_url",
	"reasoning.model",
	"reasoning.timeout",
	"store.driver",
	"store.path",
	"server.addr",
	"export.driver",
	"export.dir",
	"export.bucket",
	"export.region",
	"logging.level",
	"topology_file",
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (any, bool) {
	switch key {
	case "reasoning.provider":
		return cfg.Reasoning.Provider, true
	case "reasoning.api_key":
		return cfg.Reasoning.RedactedAPIKey(), true
	case "reasoning.base_url":
		return cfg.Reasoning.BaseURL, true
	case "reasoning.model":
		return cfg.Reasoning.Model, true
	case "reasoning.timeout":
		return cfg.Reasoning.Timeout.String(), true
	case "store.driver":
		return cfg.Store.Driver, true
	case "store.path":
		return cfg.StorePath(), true
	case "server.addr":
		return cfg.Server.Addr, true
	case "export.driver":
		return cfg.Export.Driver, true
	case "export.dir":
		return cfg.ExportDir(), true
	case "export.bucket":
		return cfg.Export.Bucket, true
	case "export.region":
		return cfg.Export.Region, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "topology_file":
		return cfg.TopologyFile, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "reasoning.provider":
		cfg.Reasoning.Provider = value
	case "reasoning.api_key":
		cfg.Reasoning.APIKey = value
	case "reasoning.base_url":
		cfg.Reasoning.BaseURL = value
	case "reasoning.model":
		cfg.Reasoning.Model = value
	case "reasoning.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Reasoning.Timeout = d
	case "store.driver":
		cfg.Store.Driver = value
	case "store.path":
		cfg.Store.Path = value
	case "store.dsn":
		cfg.Store.DSN = value
	case "server.addr":
		cfg.Server.Addr = value
	case "export.driver":
		cfg.Export.Driver = value
	case "export.dir":
		cfg.Export.Dir = value
	case "export.bucket":
		cfg.Export.Bucket = value
	case "export.prefix":
		cfg.Export.Prefix = value
	case "export.region":
		cfg.Export.Region = value
	case "export.endpoint":
		cfg.Export.Endpoint = value
	case "export.path_style":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Export.PathStyle = b
	case "logging.level":
		cfg.Logging.Level = value
	case "topology_file":
		cfg.TopologyFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(config.HomeDir(), "config.yaml")
}

func saveConfig(path string, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
