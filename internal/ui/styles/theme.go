// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles used by the console. Styles are bound to a
// renderer for one output, so colour decisions follow that output.
type Theme struct {
	// Terminal capabilities
	ColorProfile termenv.Profile

	Banner   lipgloss.Style
	Hint     lipgloss.Style
	Thinking lipgloss.Style
	AIPrefix lipgloss.Style
	User     lipgloss.Style
	Error    lipgloss.Style
	Command  lipgloss.Style
	History  lipgloss.Style

	renderer *lipgloss.Renderer
}

// NewTheme creates a theme for out with the given colour profile.
// termenv.Ascii disables colour entirely.
func NewTheme(out io.Writer, profile termenv.Profile) *Theme {
	r := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	r.SetColorProfile(profile)

	t := &Theme{
		ColorProfile: profile,
		renderer:     r,
	}
	t.initStyles()
	return t
}

// Plain returns a theme that never emits escape sequences.
func Plain(out io.Writer) *Theme {
	return NewTheme(out, termenv.Ascii)
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	r := t.renderer

	t.Banner = r.NewStyle().Foreground(Amber).Bold(true)
	t.Hint = r.NewStyle().Foreground(TextMuted)
	t.Thinking = r.NewStyle().Foreground(TextMuted).Italic(true)
	t.AIPrefix = r.NewStyle().Foreground(Cyan).Bold(true)
	t.User = r.NewStyle().Foreground(Emerald).Bold(true)
	t.Error = r.NewStyle().Foreground(Rose)
	t.Command = r.NewStyle().Foreground(Purple)
	t.History = r.NewStyle().Foreground(TextSecondary)
}
