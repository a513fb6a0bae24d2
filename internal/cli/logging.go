// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// logging.go - Diagnostics logger setup.
//
// The console belongs to the chat, so diagnostics go to a file unless
// --debug asks for them on stderr.

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/kidsai/internal/config"
)

// NewLogger builds the diagnostics logger. The returned close function is
// always safe to call. When the log file cannot be opened a warning is
// written to stderr and logging is disabled; the chat still runs.
func NewLogger(cfg config.LoggingConfig, debug bool, stderr io.Writer) (zerolog.Logger, func(), error) {
	noop := func() {}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), noop, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if debug {
		w := zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly, NoColor: true}
		logger := zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
		return logger, noop, nil
	}
	if level == zerolog.Disabled {
		return zerolog.Nop(), noop, nil
	}

	path := cfg.File
	if path == "" {
		path, err = config.DefaultLogPath()
		if err != nil {
			fmt.Fprintf(stderr, "Warning: logging disabled: %v\n", err)
			return zerolog.Nop(), noop, nil
		}
	}

	f, err := openLogFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: logging disabled: %v\n", err)
		return zerolog.Nop(), noop, nil
	}

	logger := zerolog.New(f).Level(level).With().Timestamp().Int("pid", os.Getpid()).Logger()
	return logger, func() { _ = f.Close() }, nil
}

// SECURITY: The log may contain the child's questions; owner-only permissions.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
