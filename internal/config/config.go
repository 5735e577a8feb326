package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete hive configuration
type Config struct {
	Paths        PathsConfig        `mapstructure:"paths"`
	Coordination CoordinationConfig `mapstructure:"coordination"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Planner      PlannerConfig      `mapstructure:"planner"`
	TextGen      TextGenConfig      `mapstructure:"textgen"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Backlog      BacklogConfig      `mapstructure:"backlog"`
	TUI          TUIConfig          `mapstructure:"tui"`
}

// PathsConfig controls where session data lives
type PathsConfig struct {
	// Root is the directory holding the .hive workspace.
	// Empty means the current working directory.
	Root string `mapstructure:"root"`
}

// CoordinationConfig holds the protocol timers and budgets
type CoordinationConfig struct {
	// StartupGraceSeconds is how long an unblocked worker has to emit
	// worker_spawned before it is timed out.
	StartupGraceSeconds int `mapstructure:"startup_grace_seconds"`

	// PollIntervalMs is the monitor's polling cadence. fsnotify wakes the
	// monitor early when the event log changes.
	PollIntervalMs int `mapstructure:"poll_interval_ms"`

	// MaxRespawns is the number of times a failed worker is re-spawned
	// before the session is escalated.
	MaxRespawns int `mapstructure:"max_respawns"`

	// RespawnReasons lists the failure kinds eligible for re-spawn.
	RespawnReasons []string `mapstructure:"respawn_reasons"`

	// StateUpdateRetries bounds the compare-and-swap retry loop on state.json.
	StateUpdateRetries int `mapstructure:"state_update_retries"`

	// StateUpdateBackoffMs is the base backoff between CAS retries.
	StateUpdateBackoffMs int `mapstructure:"state_update_backoff_ms"`
}

// WorkerConfig controls worker defaults
type WorkerConfig struct {
	// Kinds is the set of worker kinds available to the planner.
	Kinds []string `mapstructure:"kinds"`

	// DependencyPollMs is how often a blocked worker re-checks its dependencies.
	DependencyPollMs int `mapstructure:"dependency_poll_ms"`
}

// PlannerConfig controls how assignments are produced
type PlannerConfig struct {
	// Mode selects the planner: "static", "file" or "oracle".
	Mode string `mapstructure:"mode"`

	// Strategy selects the execution strategy: "parallel", "sequential" or "hybrid".
	Strategy string `mapstructure:"strategy"`

	// MaxWorkers caps the number of assignments a planner may emit.
	MaxWorkers int `mapstructure:"max_workers"`

	// PlanFile is the YAML plan used in "file" mode.
	PlanFile string `mapstructure:"plan_file"`
}

// TextGenConfig configures the external text-generation collaborator
type TextGenConfig struct {
	// Provider selects the backend: "anthropic", "openai" or "bridge".
	Provider string `mapstructure:"provider"`

	// Endpoint is the HTTP bridge URL used by the "bridge" provider, or an
	// alternative API base URL for "openai".
	Endpoint string `mapstructure:"endpoint"`

	// Model is the model identifier passed to the provider.
	Model string `mapstructure:"model"`

	// MaxTokens bounds a single response.
	MaxTokens int `mapstructure:"max_tokens"`

	// TimeoutSeconds bounds a single generation call.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// APIKey is read from ANTHROPIC_API_KEY when unset.
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig controls the per-session debug log
type LoggingConfig struct {
	// Level is the minimum level written: "debug", "info", "warn" or "error".
	Level string `mapstructure:"level"`

	// MaxSizeMB rotates debug.log once it reaches this size.
	MaxSizeMB int `mapstructure:"max_size_mb"`

	// MaxBackups is the number of rotated files kept.
	MaxBackups int `mapstructure:"max_backups"`

	// Compress gzips rotated files.
	Compress bool `mapstructure:"compress"`
}

// BacklogConfig locates the long-lived backlog database
type BacklogConfig struct {
	// Path of the SQLite database. Empty means <root>/.hive/backlog.db.
	Path string `mapstructure:"path"`
}

// TUIConfig controls the watch dashboard
type TUIConfig struct {
	RefreshMs int `mapstructure:"refresh_ms"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Coordination: CoordinationConfig{
			StartupGraceSeconds:  60,
			PollIntervalMs:       1000,
			MaxRespawns:          1,
			RespawnReasons:       []string{"startup_timeout", "compliance_violation", "incomplete_output", "worker_failed"},
			StateUpdateRetries:   8,
			StateUpdateBackoffMs: 10,
		},
		Worker: WorkerConfig{
			Kinds:            []string{"analyzer", "architect", "backend", "devops", "frontend", "researcher", "tester"},
			DependencyPollMs: 500,
		},
		Planner: PlannerConfig{
			Mode:       "static",
			Strategy:   "parallel",
			MaxWorkers: 8,
		},
		TextGen: TextGenConfig{
			Provider:       "anthropic",
			Endpoint:       "http://localhost:8080/generate",
			Model:          "claude-sonnet-4-20250514",
			MaxTokens:      4096,
			TimeoutSeconds: 120,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		TUI: TUIConfig{
			RefreshMs: 500,
		},
	}
}

// StartupGrace returns the startup grace window as a time.Duration
func (c *CoordinationConfig) StartupGrace() time.Duration {
	return time.Duration(c.StartupGraceSeconds) * time.Second
}

// PollInterval returns the monitor polling cadence as a time.Duration
func (c *CoordinationConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// StateUpdateBackoff returns the CAS retry base backoff as a time.Duration
func (c *CoordinationConfig) StateUpdateBackoff() time.Duration {
	return time.Duration(c.StateUpdateBackoffMs) * time.Millisecond
}

// DependencyPoll returns the blocked-worker polling cadence as a time.Duration
func (c *WorkerConfig) DependencyPoll() time.Duration {
	return time.Duration(c.DependencyPollMs) * time.Millisecond
}

// Timeout returns the per-call generation timeout as a time.Duration
func (c *TextGenConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Refresh returns the dashboard refresh interval as a time.Duration
func (c *TUIConfig) Refresh() time.Duration {
	return time.Duration(c.RefreshMs) * time.Millisecond
}

// ResolveRoot returns the absolute workspace root.
func (p *PathsConfig) ResolveRoot() string {
	root := p.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		root = wd
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// ResolveBacklogPath returns the backlog database path for the given root.
func (b *BacklogConfig) ResolveBacklogPath(root string) string {
	if b.Path != "" {
		return b.Path
	}
	return filepath.Join(root, ".hive", "backlog.db")
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("paths.root", defaults.Paths.Root)

	viper.SetDefault("coordination.startup_grace_seconds", defaults.Coordination.StartupGraceSeconds)
	viper.SetDefault("coordination.poll_interval_ms", defaults.Coordination.PollIntervalMs)
	viper.SetDefault("coordination.max_respawns", defaults.Coordination.MaxRespawns)
	viper.SetDefault("coordination.respawn_reasons", defaults.Coordination.RespawnReasons)
	viper.SetDefault("coordination.state_update_retries", defaults.Coordination.StateUpdateRetries)
	viper.SetDefault("coordination.state_update_backoff_ms", defaults.Coordination.StateUpdateBackoffMs)

	viper.SetDefault("worker.kinds", defaults.Worker.Kinds)
	viper.SetDefault("worker.dependency_poll_ms", defaults.Worker.DependencyPollMs)

	viper.SetDefault("planner.mode", defaults.Planner.Mode)
	viper.SetDefault("planner.strategy", defaults.Planner.Strategy)
	viper.SetDefault("planner.max_workers", defaults.Planner.MaxWorkers)
	viper.SetDefault("planner.plan_file", defaults.Planner.PlanFile)

	viper.SetDefault("textgen.provider", defaults.TextGen.Provider)
	viper.SetDefault("textgen.endpoint", defaults.TextGen.Endpoint)
	viper.SetDefault("textgen.model", defaults.TextGen.Model)
	viper.SetDefault("textgen.max_tokens", defaults.TextGen.MaxTokens)
	viper.SetDefault("textgen.timeout_seconds", defaults.TextGen.TimeoutSeconds)
	viper.SetDefault("textgen.api_key", defaults.TextGen.APIKey)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	viper.SetDefault("backlog.path", defaults.Backlog.Path)

	viper.SetDefault("tui.refresh_ms", defaults.TUI.RefreshMs)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hive")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hive"
	}
	return filepath.Join(home, ".config", "hive")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
