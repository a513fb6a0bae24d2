// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at temp dirs and clears
// every variable the loader reads.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, name := range []string{
		EnvOpenRouterKey, EnvOpenRouterModel, EnvOpenRouterURL,
		EnvTelegramToken, EnvTelegramChatID, EnvChildName,
		EnvMaxHistory, EnvLogFile, EnvLogLevel,
	} {
		t.Setenv(name, "")
		// godotenv skips variables that are set, even to "".
		os.Unsetenv(name)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func validConfig() *Config {
	cfg := Default()
	cfg.OpenRouter.APIKey = "sk-or-test"
	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = "42"
	return cfg
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.OpenRouter.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.OpenRouter.Model, DefaultModel)
	}
	if cfg.Chat.MaxHistory != 20 {
		t.Errorf("MaxHistory = %d, want 20", cfg.Chat.MaxHistory)
	}
	if cfg.Chat.MaxAttempts != 3 || cfg.Chat.RetryBackoffMs != 1500 || cfg.Chat.WrapPrefixCols != 4 {
		t.Errorf("unexpected chat defaults: %+v", cfg.Chat)
	}
	if !cfg.Telegram.Enabled {
		t.Error("notifications should be enabled by default")
	}
	if cfg.OpenRouter.APIKey != "" || cfg.Telegram.BotToken != "" {
		t.Error("defaults must not carry secrets")
	}
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Precedence(t *testing.T) {
	home := isolate(t)

	writeFile(t, filepath.Join(home, ".kidsai", "config.toml"), `
[openrouter]
model = "from/toml"
api_key = "toml-key"

[chat]
child_name = "Toml"
max_history = 8
max_attempts = 5
`)
	writeFile(t, ".env", "OPENROUTER_MODEL=from/dotenv\nCHILD_NAME=Dot\n")
	t.Setenv(EnvChildName, "Env")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "toml-key", cfg.OpenRouter.APIKey, "file value kept when no override")
	assert.Equal(t, "from/dotenv", cfg.OpenRouter.Model, ".env overrides the file")
	assert.Equal(t, "Env", cfg.Chat.ChildName, "environment overrides .env")
	assert.Equal(t, 8, cfg.Chat.MaxHistory)
	assert.Equal(t, 5, cfg.Chat.MaxAttempts)
	assert.Equal(t, DefaultRetryBackoffMs, cfg.Chat.RetryBackoffMs, "absent keys keep defaults")
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	isolate(t)

	_, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "missing.toml")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[chat]\nmax_histroy = 4\n")

	_, err := Load(LoadOptions{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat.max_histroy")
}

func TestApplyEnvOverrides_MaxHistory(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"12", 12},
		{" 7 ", 7},
		{"many", DefaultMaxHistory},
		{"0", DefaultMaxHistory},
		{"-3", DefaultMaxHistory},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv(EnvMaxHistory, tc.value)
			cfg := Default()
			cfg.ApplyEnvOverrides()
			if cfg.Chat.MaxHistory != tc.want {
				t.Errorf("MaxHistory = %d, want %d", cfg.Chat.MaxHistory, tc.want)
			}
		})
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		message string
	}{
		{"valid", func(*Config) {}, "", ""},
		{"missing api key", func(c *Config) { c.OpenRouter.APIKey = " " }, "openrouter.api_key", EnvOpenRouterKey},
		{"missing bot token", func(c *Config) { c.Telegram.BotToken = "" }, "telegram.bot_token", EnvTelegramToken},
		{"missing chat id", func(c *Config) { c.Telegram.ChatID = "" }, "telegram.chat_id", EnvTelegramChatID},
		{"telegram disabled", func(c *Config) { c.Telegram.Enabled = false; c.Telegram.BotToken = "" }, "", ""},
		{"bad base url", func(c *Config) { c.OpenRouter.BaseURL = "ftp://x" }, "openrouter.base_url", "http"},
		{"zero history", func(c *Config) { c.Chat.MaxHistory = 0 }, "chat.max_history", "at least 1"},
		{"too many attempts", func(c *Config) { c.Chat.MaxAttempts = 11 }, "chat.max_attempts", "between"},
		{"negative backoff", func(c *Config) { c.Chat.RetryBackoffMs = -1 }, "chat.retry_backoff_ms", "negative"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level", "loud"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()

			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "expected ValidateErrors, got %v", err)
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field)
			assert.Contains(t, verrs[0].Message, tc.message)
		})
	}
}

func TestValidateErrors_Error(t *testing.T) {
	errs := ValidateErrors{
		{Field: "a", Message: "one"},
		{Field: "b", Message: "two"},
	}
	assert.Equal(t, "a: one; b: two", errs.Error())
	assert.Equal(t, "no validation errors", ValidateErrors{}.Error())
}

// =============================================================================
// SAVE AND DISPLAY
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kidsai", "config.toml")
	cfg := validConfig()
	cfg.Chat.ChildName = "Mia"

	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := Default()
	require.NoError(t, LoadTOML(loaded, path))
	assert.Equal(t, cfg, loaded)
}

func TestString_RedactsSecrets(t *testing.T) {
	out := validConfig().String()

	assert.False(t, strings.Contains(out, "sk-or-test"), "API key leaked")
	assert.False(t, strings.Contains(out, "123:abc"), "bot token leaked")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, `"chat_id": "42"`)
}
