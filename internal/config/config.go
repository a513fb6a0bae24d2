// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates kidsai configuration.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/kidsai/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultModel is the free-tier model used when none is configured.
	DefaultModel = "meta-llama/llama-3.3-70b-instruct:free"

	// DefaultBaseURL is the OpenRouter API base URL.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultTelegramURL is the Telegram Bot API base URL.
	DefaultTelegramURL = "https://api.telegram.org"

	// DefaultMaxHistory is the number of turns kept in the conversation.
	DefaultMaxHistory = 20

	// DefaultMaxAttempts is the per-turn attempt budget for empty replies.
	DefaultMaxAttempts = 3

	// DefaultRetryBackoffMs is the fixed wait before each retry.
	DefaultRetryBackoffMs = 1500

	// DefaultWrapPrefixCols is the width of the "AI> " prefix.
	DefaultWrapPrefixCols = 4

	// DefaultSendIntervalMs paces Telegram messages.
	DefaultSendIntervalMs = 1000

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// maxAttemptsLimit caps max_attempts.
	maxAttemptsLimit = 10
)

// Environment variable names.
const (
	EnvOpenRouterKey   = "OPENROUTER_API_KEY"
	EnvOpenRouterModel = "OPENROUTER_MODEL"
	EnvOpenRouterURL   = "OPENROUTER_BASE_URL"
	EnvTelegramToken   = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID  = "TELEGRAM_CHAT_ID"
	EnvChildName       = "CHILD_NAME"
	EnvMaxHistory      = "MAX_HISTORY"
	EnvLogFile         = "KIDSAI_LOG_FILE"
	EnvLogLevel        = "KIDSAI_LOG_LEVEL"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete kidsai configuration.
type Config struct {
	OpenRouter OpenRouterConfig `toml:"openrouter" json:"openrouter"`
	Telegram   TelegramConfig   `toml:"telegram" json:"telegram"`
	Chat       ChatConfig       `toml:"chat" json:"chat"`
	Logging    LoggingConfig    `toml:"logging" json:"logging"`
}

// OpenRouterConfig configures the chat endpoint.
type OpenRouterConfig struct {
	APIKey   string `toml:"api_key" json:"api_key"`
	Model    string `toml:"model" json:"model"`
	BaseURL  string `toml:"base_url" json:"base_url"`
	SiteName string `toml:"site_name" json:"site_name"`
}

// TelegramConfig configures parent notifications.
type TelegramConfig struct {
	Enabled        bool   `toml:"enabled" json:"enabled"`
	BotToken       string `toml:"bot_token" json:"bot_token"`
	ChatID         string `toml:"chat_id" json:"chat_id"`
	BaseURL        string `toml:"base_url" json:"base_url"`
	SendIntervalMs int    `toml:"send_interval_ms" json:"send_interval_ms"`
}

// ChatConfig configures the conversation and the turn loop.
type ChatConfig struct {
	ChildName      string `toml:"child_name" json:"child_name"`
	MaxHistory     int    `toml:"max_history" json:"max_history"`
	MaxAttempts    int    `toml:"max_attempts" json:"max_attempts"`
	RetryBackoffMs int    `toml:"retry_backoff_ms" json:"retry_backoff_ms"`
	WrapPrefixCols int    `toml:"wrap_prefix_cols" json:"wrap_prefix_cols"`
}

// LoggingConfig configures diagnostics.
type LoggingConfig struct {
	File  string `toml:"file" json:"file"`
	Level string `toml:"level" json:"level"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with default values. Secrets are empty.
func Default() *Config {
	return &Config{
		OpenRouter: OpenRouterConfig{
			Model:    DefaultModel,
			BaseURL:  DefaultBaseURL,
			SiteName: "Kids AI",
		},
		Telegram: TelegramConfig{
			Enabled:        true,
			BaseURL:        DefaultTelegramURL,
			SendIntervalMs: DefaultSendIntervalMs,
		},
		Chat: ChatConfig{
			MaxHistory:     DefaultMaxHistory,
			MaxAttempts:    DefaultMaxAttempts,
			RetryBackoffMs: DefaultRetryBackoffMs,
			WrapPrefixCols: DefaultWrapPrefixCols,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.OpenRouter.Model == "" {
		cfg.OpenRouter.Model = defaults.OpenRouter.Model
	}
	if cfg.OpenRouter.BaseURL == "" {
		cfg.OpenRouter.BaseURL = defaults.OpenRouter.BaseURL
	}
	if cfg.OpenRouter.SiteName == "" {
		cfg.OpenRouter.SiteName = defaults.OpenRouter.SiteName
	}
	if cfg.Telegram.BaseURL == "" {
		cfg.Telegram.BaseURL = defaults.Telegram.BaseURL
	}
	if cfg.Chat.MaxHistory == 0 {
		cfg.Chat.MaxHistory = defaults.Chat.MaxHistory
	}
	if cfg.Chat.MaxAttempts == 0 {
		cfg.Chat.MaxAttempts = defaults.Chat.MaxAttempts
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the kidsai configuration directory, ~/.kidsai.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".kidsai"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "kidsai.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Path is the TOML file. Empty means ConfigPath(); a missing default
	// file is not an error, a missing explicit file is.
	Path string

	// DotEnv is the .env file to load. Empty means ".env" in the working
	// directory; a missing file is not an error.
	DotEnv string
}

// Load builds the configuration from, lowest precedence first: defaults,
// the TOML file, the .env file and the process environment. Command-line
// flags are applied by the caller. Load does not validate.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path := opts.Path
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if err := LoadTOML(cfg, path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
		}
	}

	if err := LoadDotEnv(opts.DotEnv); err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	fillDefaults(cfg)
	return nil
}

// LoadDotEnv loads variables from a .env file into the process
// environment. Variables that are already set are not overridden.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides applies environment variables on top of the current
// values. Unset or empty variables are ignored, as is a MAX_HISTORY that is
// not a positive integer.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvOpenRouterKey); v != "" {
		c.OpenRouter.APIKey = v
	}
	if v := os.Getenv(EnvOpenRouterModel); v != "" {
		c.OpenRouter.Model = v
	}
	if v := os.Getenv(EnvOpenRouterURL); v != "" {
		c.OpenRouter.BaseURL = v
	}
	if v := os.Getenv(EnvTelegramToken); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(EnvTelegramChatID); v != "" {
		c.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvChildName)); v != "" {
		c.Chat.ChildName = v
	}
	if v := os.Getenv(EnvMaxHistory); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			c.Chat.MaxHistory = n
		}
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path atomically.
// SECURITY: The file holds API keys, so it is created 0600.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# kidsai configuration file\n")
	buf.WriteString("# Environment variables and command-line flags override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.WriteFileAtomic(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks that the configuration is usable. Missing secrets are
// reported with the environment variable that supplies them.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if strings.TrimSpace(c.OpenRouter.APIKey) == "" {
		errs = append(errs, ValidationError{
			Field:   "openrouter.api_key",
			Message: EnvOpenRouterKey + " is required. Set it in .env or environment.",
		})
	}
	if err := validateURL(c.OpenRouter.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "openrouter.base_url", Message: err.Error()})
	}

	if c.Telegram.Enabled {
		if strings.TrimSpace(c.Telegram.BotToken) == "" {
			errs = append(errs, ValidationError{
				Field:   "telegram.bot_token",
				Message: EnvTelegramToken + " is required. Set it in .env or environment.",
			})
		}
		if strings.TrimSpace(c.Telegram.ChatID) == "" {
			errs = append(errs, ValidationError{
				Field:   "telegram.chat_id",
				Message: EnvTelegramChatID + " is required. Set it in .env or environment.",
			})
		}
		if err := validateURL(c.Telegram.BaseURL); err != nil {
			errs = append(errs, ValidationError{Field: "telegram.base_url", Message: err.Error()})
		}
	}
	if c.Telegram.SendIntervalMs < 0 {
		errs = append(errs, ValidationError{Field: "telegram.send_interval_ms", Message: "must not be negative"})
	}

	if c.Chat.MaxHistory < 1 {
		errs = append(errs, ValidationError{Field: "chat.max_history", Message: "must be at least 1"})
	}
	if c.Chat.MaxAttempts < 1 || c.Chat.MaxAttempts > maxAttemptsLimit {
		errs = append(errs, ValidationError{
			Field:   "chat.max_attempts",
			Message: fmt.Sprintf("must be between 1 and %d", maxAttemptsLimit),
		})
	}
	if c.Chat.RetryBackoffMs < 0 {
		errs = append(errs, ValidationError{Field: "chat.retry_backoff_ms", Message: "must not be negative"})
	}
	if c.Chat.WrapPrefixCols < 0 {
		errs = append(errs, ValidationError{Field: "chat.wrap_prefix_cols", Message: "must not be negative"})
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Logging.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got '%s'", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: '%s'", raw)
	}
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as JSON for debugging.
// SECURITY: API keys and bot tokens are redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.OpenRouter.APIKey != "" {
		safe.OpenRouter.APIKey = "[REDACTED]"
	}
	if safe.Telegram.BotToken != "" {
		safe.Telegram.BotToken = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
