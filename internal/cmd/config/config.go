// Package config provides CLI commands for managing hive configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/hivemind/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify hive configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  hive config set coordination.max_respawns 2
  hive config set planner.strategy hybrid
  hive config set worker.kinds architect,backend,tester
  hive config set textgen.provider openai

The resulting configuration is validated before it is written.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
}

// Register adds all config-related commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "# Config file: %s\n", used)
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	settings := viper.AllSettings()
	delete(settings, "config")
	if tg, ok := settings["textgen"].(map[string]any); ok {
		if key, _ := tg["api_key"].(string); key != "" {
			tg["api_key"] = "********"
		}
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// parseValue converts value to the type of key's default.
func parseValue(key, value string) (any, error) {
	switch viper.Get(key).(type) {
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return n, nil
	case bool:
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case []string, []any:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := strings.ToLower(args[0]), args[1]
	if key == "config" || !slices.Contains(viper.AllKeys(), key) {
		return fmt.Errorf("unknown configuration key: %s\nRun 'hive config show' to see valid keys", key)
	}

	typed, err := parseValue(key, value)
	if err != nil {
		return err
	}
	viper.Set(key, typed)
	if _, err := appconfig.Load(); err != nil {
		return err
	}

	if err := os.MkdirAll(appconfig.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configFile := appconfig.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typed)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

const defaultConfig = `# hive configuration

paths:
  # Directory holding .hive (default: the current directory)
  root: ""

coordination:
  # Seconds an unblocked worker has to emit worker_spawned
  startup_grace_seconds: 60
  # Monitor polling cadence; file notifications wake it earlier
  poll_interval_ms: 1000
  # Re-spawns per worker before the session is escalated
  max_respawns: 1
  # Failure kinds eligible for re-spawn
  respawn_reasons: [startup_timeout, compliance_violation, incomplete_output, worker_failed]
  state_update_retries: 8
  state_update_backoff_ms: 10

worker:
  kinds: [analyzer, architect, backend, devops, frontend, researcher, tester]
  dependency_poll_ms: 500

planner:
  # static, file or oracle
  mode: static
  # parallel, sequential or hybrid
  strategy: parallel
  max_workers: 8
  plan_file: ""

textgen:
  # anthropic, openai or bridge
  provider: anthropic
  endpoint: http://localhost:8080/generate
  model: claude-sonnet-4-20250514
  max_tokens: 4096
  timeout_seconds: 120
  # Read from ANTHROPIC_API_KEY or OPENAI_API_KEY when empty
  api_key: ""

logging:
  level: info
  max_size_mb: 10
  max_backups: 3
  compress: false

backlog:
  # Default: <root>/.hive/backlog.db
  path: ""

tui:
  refresh_ms: 500
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := appconfig.ConfigFile()
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'hive config set' to modify values", configFile)
	}
	if err := os.MkdirAll(appconfig.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "Active config: %s\n", used)
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", appconfig.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(appconfig.ConfigDir(), "config.yaml"))
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: HIVE_* (e.g., HIVE_COORDINATION_MAX_RESPAWNS)")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := appconfig.Load(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
	return nil
}
