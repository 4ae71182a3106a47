package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Roundtable configuration
type Config struct {
	Budgets   BudgetConfig    `mapstructure:"budgets"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Backends  BackendsConfig  `mapstructure:"backends"`
	Team      TeamConfig      `mapstructure:"team"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Paths     PathsConfig     `mapstructure:"paths"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// BudgetConfig bounds how long a conversation may run
type BudgetConfig struct {
	// MaxRounds is the maximum number of full rounds before the conversation
	// is force-concluded (default: 20)
	MaxRounds int `mapstructure:"max_rounds"`
	// MaxMessages caps the total message count, 0 = no limit
	MaxMessages int `mapstructure:"max_messages"`
	// MinDiscussionRounds is the minimum number of DISCUSSING rounds before
	// the facilitator may call a vote (default: 2)
	MinDiscussionRounds int `mapstructure:"min_discussion_rounds"`
	// StuckThreshold is the number of consecutive rounds without a new
	// proposal before the facilitator is nudged to act (default: 3)
	StuckThreshold int `mapstructure:"stuck_threshold"`
	// MaxTurnRetries is how many times a failed participant turn is retried
	// before a placeholder message is recorded (default: 2)
	MaxTurnRetries int `mapstructure:"max_turn_retries"`
	// MaxVotingRetries is how many times a malformed ballot is re-requested
	// before the participant is counted as abstaining (default: 2)
	MaxVotingRetries int `mapstructure:"max_voting_retries"`
	// ForcedDecision lets the facilitator settle the conversation when
	// budgets run out without consensus (default: true)
	ForcedDecision bool `mapstructure:"forced_decision"`
}

// ConsensusConfig controls the weighted-vote decision rule
type ConsensusConfig struct {
	// Threshold is the fraction of total voting weight that must approve
	// for a proposal to pass (default: 0.8)
	Threshold float64 `mapstructure:"threshold"`
}

// BackendsConfig controls text-generation backends and failover
type BackendsConfig struct {
	// Preferred is the backend tried first: "ollama" or "openrouter"
	Preferred string `mapstructure:"preferred"`
	// Fallback is tried when the preferred backend is exhausted; empty
	// disables failover
	Fallback string `mapstructure:"fallback"`
	// RequestTimeoutSeconds bounds a single generation request (default: 120)
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	// RetryBackoffMs is the pause before retrying a backend once (default: 500)
	RetryBackoffMs int `mapstructure:"retry_backoff_ms"`
	// MaxResponseChars rejects responses longer than this, 0 = no limit
	// (default: 8000)
	MaxResponseChars int `mapstructure:"max_response_chars"`

	Ollama     OllamaConfig     `mapstructure:"ollama"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
}

// OllamaConfig configures the local Ollama backend
type OllamaConfig struct {
	// BaseURL is the Ollama server address (default: "http://localhost:11434")
	BaseURL string `mapstructure:"base_url"`
	// Model is the model name passed to /api/generate
	Model string `mapstructure:"model"`
}

// OpenRouterConfig configures the hosted OpenRouter backend
type OpenRouterConfig struct {
	// BaseURL is the OpenRouter API address (default: "https://openrouter.ai/api/v1")
	BaseURL string `mapstructure:"base_url"`
	// Model is the model identifier, e.g. "anthropic/claude-3.5-sonnet"
	Model string `mapstructure:"model"`
	// APIKey authenticates requests. Prefer the OPENROUTER_API_KEY
	// environment variable over putting a key in the config file.
	APIKey string `mapstructure:"api_key"`
}

// TeamConfig controls the participant roster
type TeamConfig struct {
	// RosterPath is a YAML file describing the participants. Empty uses
	// the built-in five-persona team.
	RosterPath string `mapstructure:"roster_path"`
}

// LoggingConfig controls structured logging behavior
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where Roundtable stores data
type PathsConfig struct {
	// DataDir is where conversations and logs are stored.
	// Defaults to ~/.local/share/roundtable. Supports ~ expansion.
	DataDir string `mapstructure:"data_dir"`
}

// TUIConfig controls the terminal UI
type TUIConfig struct {
	// MaxTranscriptLines limits how many transcript lines are kept in the
	// viewport (default: 2000)
	MaxTranscriptLines int `mapstructure:"max_transcript_lines"`
}

// RequestTimeout returns the per-request timeout as a time.Duration
func (b *BackendsConfig) RequestTimeout() time.Duration {
	return time.Duration(b.RequestTimeoutSeconds) * time.Second
}

// RetryBackoff returns the retry backoff as a time.Duration
func (b *BackendsConfig) RetryBackoff() time.Duration {
	return time.Duration(b.RetryBackoffMs) * time.Millisecond
}

// ResolveDataDir returns the resolved data directory path.
// If DataDir is empty, it returns the default under the user's home.
// ~ prefixes are expanded.
func (p *PathsConfig) ResolveDataDir() string {
	path := p.DataDir
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ".roundtable"
		}
		return filepath.Join(home, ".local", "share", "roundtable")
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Budgets: BudgetConfig{
			MaxRounds:           20,
			MaxMessages:         0, // No limit by default
			MinDiscussionRounds: 2,
			StuckThreshold:      3,
			MaxTurnRetries:      2,
			MaxVotingRetries:    2,
			ForcedDecision:      true,
		},
		Consensus: ConsensusConfig{
			Threshold: 0.8,
		},
		Backends: BackendsConfig{
			Preferred:             "ollama",
			Fallback:              "openrouter",
			RequestTimeoutSeconds: 120,
			RetryBackoffMs:        500,
			MaxResponseChars:      8000,
			Ollama: OllamaConfig{
				BaseURL: "http://localhost:11434",
				Model:   "llama3.1",
			},
			OpenRouter: OpenRouterConfig{
				BaseURL: "https://openrouter.ai/api/v1",
				Model:   "anthropic/claude-3.5-sonnet",
				APIKey:  "", // Read from OPENROUTER_API_KEY
			},
		},
		Team: TeamConfig{
			RosterPath: "", // Empty means use the built-in team
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			DataDir: "", // Empty means use default under $HOME
		},
		TUI: TUIConfig{
			MaxTranscriptLines: 2000,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Budget defaults
	viper.SetDefault("budgets.max_rounds", defaults.Budgets.MaxRounds)
	viper.SetDefault("budgets.max_messages", defaults.Budgets.MaxMessages)
	viper.SetDefault("budgets.min_discussion_rounds", defaults.Budgets.MinDiscussionRounds)
	viper.SetDefault("budgets.stuck_threshold", defaults.Budgets.StuckThreshold)
	viper.SetDefault("budgets.max_turn_retries", defaults.Budgets.MaxTurnRetries)
	viper.SetDefault("budgets.max_voting_retries", defaults.Budgets.MaxVotingRetries)
	viper.SetDefault("budgets.forced_decision", defaults.Budgets.ForcedDecision)

	// Consensus defaults
	viper.SetDefault("consensus.threshold", defaults.Consensus.Threshold)

	// Backend defaults
	viper.SetDefault("backends.preferred", defaults.Backends.Preferred)
	viper.SetDefault("backends.fallback", defaults.Backends.Fallback)
	viper.SetDefault("backends.request_timeout_seconds", defaults.Backends.RequestTimeoutSeconds)
	viper.SetDefault("backends.retry_backoff_ms", defaults.Backends.RetryBackoffMs)
	viper.SetDefault("backends.max_response_chars", defaults.Backends.MaxResponseChars)
	viper.SetDefault("backends.ollama.base_url", defaults.Backends.Ollama.BaseURL)
	viper.SetDefault("backends.ollama.model", defaults.Backends.Ollama.Model)
	viper.SetDefault("backends.openrouter.base_url", defaults.Backends.OpenRouter.BaseURL)
	viper.SetDefault("backends.openrouter.model", defaults.Backends.OpenRouter.Model)
	viper.SetDefault("backends.openrouter.api_key", defaults.Backends.OpenRouter.APIKey)

	// Team defaults
	viper.SetDefault("team.roster_path", defaults.Team.RosterPath)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Paths defaults
	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)

	// TUI defaults
	viper.SetDefault("tui.max_transcript_lines", defaults.TUI.MaxTranscriptLines)
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

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "roundtable")
	}
	// Fall back to ~/.config/roundtable
	home, err := os.UserHomeDir()
	if err != nil {
		return ".roundtable"
	}
	return filepath.Join(home, ".config", "roundtable")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidBackendNames returns the list of valid backend identifiers
func ValidBackendNames() []string {
	return []string{"ollama", "openrouter"}
}

// IsValidBackendName checks if the given backend name is valid
func IsValidBackendName(name string) bool {
	for _, valid := range ValidBackendNames() {
		if name == valid {
			return true
		}
	}
	return false
}
