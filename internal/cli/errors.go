// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for the kidsai command.
//
// STANDARDIZED PATTERN:
//   - Setup steps return errors, they never print and exit
//   - Run displays the error once and maps it to an exit code
//   - Errors inside a chat session never reach here; the child only ever
//     sees the friendly console messages

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/jeranaias/kidsai/internal/config"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid flags or arguments
	ExitUsageError = 2
	// ExitConfigError indicates missing or invalid configuration
	ExitConfigError = 3
)

// =============================================================================
// ERROR TYPES FOR STRUCTURED ERROR HANDLING
// =============================================================================

// UsageError reports invalid command-line usage.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// ConfigError reports a configuration that could not be loaded or is invalid.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HANDLING
// =============================================================================

// ExitCode determines the exit code for an error returned by run.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return ExitConfigError
	}

	return ExitGeneralError
}

// DisplayError writes err to w. Validation failures are listed one per line.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}

	var verrs config.ValidateErrors
	if errors.As(err, &verrs) {
		fmt.Fprintln(w, "Configuration error:")
		for _, v := range verrs {
			fmt.Fprintf(w, "  - %s: %s\n", v.Field, v.Message)
		}
		return
	}

	fmt.Fprintf(w, "Error: %v\n", err)

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(w, "Run 'kidsai --help' for usage.")
	}
}
