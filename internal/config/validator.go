package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "coordination.max_respawns")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// workerKindRegex matches identifiers usable as worker ids and file names
var workerKindRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidPlannerModes returns the list of valid planner modes
func ValidPlannerModes() []string {
	return []string{"static", "file", "oracle"}
}

// ValidStrategies returns the list of valid execution strategies
func ValidStrategies() []string {
	return []string{"parallel", "sequential", "hybrid"}
}

// ValidProviders returns the list of valid text-generation providers
func ValidProviders() []string {
	return []string{"anthropic", "openai", "bridge"}
}

// ValidRespawnReasons returns the failure kinds that may be listed in
// coordination.respawn_reasons
func ValidRespawnReasons() []string {
	return []string{"startup_timeout", "compliance_violation", "incomplete_output", "worker_failed"}
}

// IsValidWorkerID reports whether id can name a worker.
func IsValidWorkerID(id string) bool {
	return workerKindRegex.MatchString(id)
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	errors = append(errors, c.validateCoordination()...)
	errors = append(errors, c.validateWorker()...)
	errors = append(errors, c.validatePlanner()...)
	errors = append(errors, c.validateTextGen()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTUI()...)
	return errors
}

func (c *Config) validateCoordination() []ValidationError {
	var errors []ValidationError
	co := c.Coordination

	if co.StartupGraceSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "coordination.startup_grace_seconds",
			Value:   co.StartupGraceSeconds,
			Message: "must be at least 1",
		})
	}
	if co.PollIntervalMs < 10 {
		errors = append(errors, ValidationError{
			Field:   "coordination.poll_interval_ms",
			Value:   co.PollIntervalMs,
			Message: "must be at least 10",
		})
	}
	if co.MaxRespawns < 0 {
		errors = append(errors, ValidationError{
			Field:   "coordination.max_respawns",
			Value:   co.MaxRespawns,
			Message: "must be non-negative",
		})
	}
	for _, reason := range co.RespawnReasons {
		if !slices.Contains(ValidRespawnReasons(), reason) {
			errors = append(errors, ValidationError{
				Field:   "coordination.respawn_reasons",
				Value:   reason,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidRespawnReasons(), ", ")),
			})
		}
	}
	if co.StateUpdateRetries < 1 || co.StateUpdateRetries > 100 {
		errors = append(errors, ValidationError{
			Field:   "coordination.state_update_retries",
			Value:   co.StateUpdateRetries,
			Message: "must be between 1 and 100",
		})
	}
	if co.StateUpdateBackoffMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "coordination.state_update_backoff_ms",
			Value:   co.StateUpdateBackoffMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateWorker() []ValidationError {
	var errors []ValidationError

	if len(c.Worker.Kinds) == 0 {
		errors = append(errors, ValidationError{
			Field:   "worker.kinds",
			Value:   c.Worker.Kinds,
			Message: "must list at least one worker kind",
		})
	}
	for _, kind := range c.Worker.Kinds {
		if !IsValidWorkerID(kind) {
			errors = append(errors, ValidationError{
				Field:   "worker.kinds",
				Value:   kind,
				Message: "must start with a lowercase letter and contain only lowercase letters, digits, '-' or '_'",
			})
		}
	}
	if c.Worker.DependencyPollMs < 10 {
		errors = append(errors, ValidationError{
			Field:   "worker.dependency_poll_ms",
			Value:   c.Worker.DependencyPollMs,
			Message: "must be at least 10",
		})
	}

	return errors
}

func (c *Config) validatePlanner() []ValidationError {
	var errors []ValidationError
	p := c.Planner

	if !slices.Contains(ValidPlannerModes(), p.Mode) {
		errors = append(errors, ValidationError{
			Field:   "planner.mode",
			Value:   p.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidPlannerModes(), ", ")),
		})
	}
	if !slices.Contains(ValidStrategies(), p.Strategy) {
		errors = append(errors, ValidationError{
			Field:   "planner.strategy",
			Value:   p.Strategy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidStrategies(), ", ")),
		})
	}
	if p.MaxWorkers < 1 {
		errors = append(errors, ValidationError{
			Field:   "planner.max_workers",
			Value:   p.MaxWorkers,
			Message: "must be at least 1",
		})
	}
	if p.Mode == "file" && p.PlanFile == "" {
		errors = append(errors, ValidationError{
			Field:   "planner.plan_file",
			Value:   p.PlanFile,
			Message: "is required when planner.mode is \"file\"",
		})
	}

	return errors
}

func (c *Config) validateTextGen() []ValidationError {
	var errors []ValidationError
	tg := c.TextGen

	if !slices.Contains(ValidProviders(), tg.Provider) {
		errors = append(errors, ValidationError{
			Field:   "textgen.provider",
			Value:   tg.Provider,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidProviders(), ", ")),
		})
	}
	if tg.Provider == "bridge" {
		if u, err := url.Parse(tg.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "textgen.endpoint",
				Value:   tg.Endpoint,
				Message: "must be an absolute http(s) URL",
			})
		}
	}
	if tg.Provider == "openai" && tg.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "textgen.model",
			Value:   tg.Model,
			Message: "is required for the openai provider",
		})
	}
	if tg.MaxTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "textgen.max_tokens",
			Value:   tg.MaxTokens,
			Message: "must be at least 1",
		})
	}
	if tg.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "textgen.timeout_seconds",
			Value:   tg.TimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateTUI() []ValidationError {
	if c.TUI.RefreshMs < 50 {
		return []ValidationError{{
			Field:   "tui.refresh_ms",
			Value:   c.TUI.RefreshMs,
			Message: "must be at least 50",
		}}
	}
	return nil
}
