// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for the chat console.
//
// USABILITY: TTY detection for proper terminal handling
//
// Interactive terminals get colours and in-place line erasing. Piped output
// gets neither, and NO_COLOR (https://no-color.org/) is respected.

package cli

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// =============================================================================
// TERMINAL WIDTH DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width we'll use for wrapping
	MinTerminalWidth = 20
)

// GetTerminalWidth returns the current terminal width.
// Returns DefaultTerminalWidth (80) if width cannot be determined.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	return clampWidth(width, err)
}

func clampWidth(width int, err error) int {
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

// ColorsEnabled returns true if coloured output should be used.
// NO_COLOR wins over FORCE_COLOR, which wins over TTY detection.
func ColorsEnabled(stdoutTTY bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return stdoutTTY
}

// GetColorProfile returns the termenv profile for stdout.
// Returns Ascii (no colors) for non-TTY or when NO_COLOR is set.
func GetColorProfile(stdoutTTY bool) termenv.Profile {
	if !ColorsEnabled(stdoutTTY) {
		return termenv.Ascii
	}
	profile := termenv.NewOutput(os.Stdout).EnvColorProfile()
	if profile == termenv.Ascii && os.Getenv("FORCE_COLOR") != "" {
		return termenv.ANSI
	}
	return profile
}

// =============================================================================
// DISPLAY
// =============================================================================

// Display describes the terminal the chat is rendered on.
type Display struct {
	Width       int
	Profile     termenv.Profile
	Interactive bool
}

// DetectDisplay inspects stdout.
func DetectDisplay() Display {
	tty := IsStdoutTTY()
	return Display{
		Width:       GetTerminalWidth(),
		Profile:     GetColorProfile(tty),
		Interactive: tty,
	}
}

// PlainDisplay is an 80-column display without colour or cursor control.
func PlainDisplay() Display {
	return Display{Width: DefaultTerminalWidth, Profile: termenv.Ascii}
}
