package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "budgets.max_rounds")
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

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateBudgets()...)
	errors = append(errors, c.validateConsensus()...)
	errors = append(errors, c.validateBackends()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePaths()...)
	errors = append(errors, c.validateTUI()...)

	return errors
}

// validateBudgets validates the BudgetConfig
func (c *Config) validateBudgets() []ValidationError {
	var errors []ValidationError

	if c.Budgets.MaxRounds < 1 {
		errors = append(errors, ValidationError{
			Field:   "budgets.max_rounds",
			Value:   c.Budgets.MaxRounds,
			Message: "must be at least 1",
		})
	}

	const maxRoundsLimit = 1000
	if c.Budgets.MaxRounds > maxRoundsLimit {
		errors = append(errors, ValidationError{
			Field:   "budgets.max_rounds",
			Value:   c.Budgets.MaxRounds,
			Message: fmt.Sprintf("exceeds maximum of %d", maxRoundsLimit),
		})
	}

	if c.Budgets.MaxMessages < 0 {
		errors = append(errors, ValidationError{
			Field:   "budgets.max_messages",
			Value:   c.Budgets.MaxMessages,
			Message: "must be non-negative (0 disables limit)",
		})
	}

	if c.Budgets.MinDiscussionRounds < 0 {
		errors = append(errors, ValidationError{
			Field:   "budgets.min_discussion_rounds",
			Value:   c.Budgets.MinDiscussionRounds,
			Message: "must be non-negative",
		})
	}

	// A discussion floor above the round budget can never be satisfied
	if c.Budgets.MinDiscussionRounds > c.Budgets.MaxRounds {
		errors = append(errors, ValidationError{
			Field:   "budgets.min_discussion_rounds",
			Value:   c.Budgets.MinDiscussionRounds,
			Message: fmt.Sprintf("cannot exceed max_rounds (%d)", c.Budgets.MaxRounds),
		})
	}

	if c.Budgets.StuckThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "budgets.stuck_threshold",
			Value:   c.Budgets.StuckThreshold,
			Message: "must be at least 1",
		})
	}

	if c.Budgets.MaxTurnRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "budgets.max_turn_retries",
			Value:   c.Budgets.MaxTurnRetries,
			Message: "must be non-negative (0 disables retries)",
		})
	}

	if c.Budgets.MaxVotingRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "budgets.max_voting_retries",
			Value:   c.Budgets.MaxVotingRetries,
			Message: "must be non-negative (0 disables retries)",
		})
	}

	return errors
}

// validateConsensus validates the ConsensusConfig
func (c *Config) validateConsensus() []ValidationError {
	var errors []ValidationError

	// Threshold is a fraction of total weight. A threshold above 1 can
	// never be met; at or below 0.5 a proposal and its negation could
	// both pass.
	if c.Consensus.Threshold <= 0.5 || c.Consensus.Threshold > 1.0 {
		errors = append(errors, ValidationError{
			Field:   "consensus.threshold",
			Value:   c.Consensus.Threshold,
			Message: "must be greater than 0.5 and at most 1.0",
		})
	}

	return errors
}

// validateBackends validates the BackendsConfig
func (c *Config) validateBackends() []ValidationError {
	var errors []ValidationError

	if !IsValidBackendName(c.Backends.Preferred) {
		errors = append(errors, ValidationError{
			Field:   "backends.preferred",
			Value:   c.Backends.Preferred,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBackendNames(), ", ")),
		})
	}

	if c.Backends.Fallback != "" {
		if !IsValidBackendName(c.Backends.Fallback) {
			errors = append(errors, ValidationError{
				Field:   "backends.fallback",
				Value:   c.Backends.Fallback,
				Message: fmt.Sprintf("must be empty or one of: %s", strings.Join(ValidBackendNames(), ", ")),
			})
		}
		if c.Backends.Fallback == c.Backends.Preferred {
			errors = append(errors, ValidationError{
				Field:   "backends.fallback",
				Value:   c.Backends.Fallback,
				Message: "must differ from backends.preferred",
			})
		}
	}

	const minTimeoutSeconds = 1
	const maxTimeoutSeconds = 3600
	if c.Backends.RequestTimeoutSeconds < minTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "backends.request_timeout_seconds",
			Value:   c.Backends.RequestTimeoutSeconds,
			Message: fmt.Sprintf("must be at least %d", minTimeoutSeconds),
		})
	}
	if c.Backends.RequestTimeoutSeconds > maxTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "backends.request_timeout_seconds",
			Value:   c.Backends.RequestTimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d", maxTimeoutSeconds),
		})
	}

	if c.Backends.RetryBackoffMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "backends.retry_backoff_ms",
			Value:   c.Backends.RetryBackoffMs,
			Message: "must be non-negative",
		})
	}

	if c.Backends.MaxResponseChars < 0 {
		errors = append(errors, ValidationError{
			Field:   "backends.max_response_chars",
			Value:   c.Backends.MaxResponseChars,
			Message: "must be non-negative (0 disables limit)",
		})
	}

	if c.Backends.Ollama.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "backends.ollama.base_url",
			Value:   c.Backends.Ollama.BaseURL,
			Message: "cannot be empty",
		})
	}

	if c.Backends.OpenRouter.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "backends.openrouter.base_url",
			Value:   c.Backends.OpenRouter.BaseURL,
			Message: "cannot be empty",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
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

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	if c.Paths.DataDir != "" {
		path := c.Paths.DataDir

		if strings.ContainsRune(path, '\x00') {
			errors = append(errors, ValidationError{
				Field:   "paths.data_dir",
				Value:   path,
				Message: "path contains invalid null character",
			})
		}

		// Most filesystems cap paths around 4096
		const maxPathLength = 4096
		if len(path) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   "paths.data_dir",
				Value:   path,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.MaxTranscriptLines < 0 {
		errors = append(errors, ValidationError{
			Field:   "tui.max_transcript_lines",
			Value:   c.TUI.MaxTranscriptLines,
			Message: "must be non-negative",
		})
	}

	const maxTranscriptLimit = 100000
	if c.TUI.MaxTranscriptLines > maxTranscriptLimit {
		errors = append(errors, ValidationError{
			Field:   "tui.max_transcript_lines",
			Value:   c.TUI.MaxTranscriptLines,
			Message: fmt.Sprintf("exceeds maximum of %d", maxTranscriptLimit),
		})
	}

	return errors
}
