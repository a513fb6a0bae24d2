// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colours and text styles of the console.

All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.

# Colors

  - Amber - welcome and goodbye banners
  - Cyan - the AI> prefix
  - Emerald - the You label in history listings
  - Purple - console command output
  - Rose - errors
  - TextMuted - the thinking indicator and hints

# Theme

A Theme binds the styles to a lipgloss renderer for one writer:

	theme := styles.NewTheme(os.Stdout, termenv.ColorProfile())
	fmt.Println(theme.Banner.Render("Welcome"))

Use styles.Plain for output that must not carry escape sequences, such as
a pipe or a test buffer.
*/
package styles
