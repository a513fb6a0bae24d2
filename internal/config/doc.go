// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates kidsai configuration.
//
// # Configuration Precedence
//
// Configuration is loaded from (lowest to highest precedence):
//   - Built-in defaults
//   - ~/.kidsai/config.toml (or the file given with --config)
//   - .env in the working directory
//   - Environment variables (OPENROUTER_API_KEY, TELEGRAM_BOT_TOKEN, ...)
//   - Command-line flags, applied by the cli package
//
// # Usage
//
//	cfg, err := config.Load(config.LoadOptions{})
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
